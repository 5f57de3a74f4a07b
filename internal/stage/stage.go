/*
Copyright © 2020 A. Jensen <jensen.aaro@gmail.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

package stage

import (
	"cloud.google.com/go/logging"
	"context"
	"fmt"
	"github.com/jackc/pgx/v4"
	"io/fs"

	"github.com/ajjensen13/stocker-iex/internal/db"
	"github.com/ajjensen13/stocker-iex/internal/scripts"
	"github.com/ajjensen13/stocker-iex/internal/src"
	"github.com/ajjensen13/stocker-iex/internal/util"
)

type StagingInfo struct {
	BlobLength int64
	RowsStaged int64
	// RowsDropped counts batch records the stage script filtered out, i.e.
	// those with a null natural key.
	RowsDropped int64
}

func Table(table string) pgx.Identifier {
	return pgx.Identifier{src.StagingSchema, table}
}

// Batch rebuilds staging.<table> empty, with the columns of public.<table>,
// and fills it with batch through the table's json table and stage script.
func Batch(ctx context.Context, d *db.DB, fsys fs.FS, table string, batch interface{ Len() int }) (StagingInfo, error) {
	ctx = util.WithLoggerValue(ctx, "action", "stage")
	staging := Table(table).Sanitize()
	production := pgx.Identifier{"public", table}.Sanitize()

	script, err := db.LoadScript(fsys, scripts.Stage(table))
	if err != nil {
		return StagingInfo{}, err
	}

	_, err = d.Exec(ctx, `DROP TABLE IF EXISTS `+staging)
	if err != nil {
		return StagingInfo{}, fmt.Errorf("failed to drop %s: %w", staging, err)
	}

	_, err = d.Exec(ctx, `CREATE TABLE `+staging+` (LIKE `+production+`)`)
	if err != nil {
		return StagingInfo{}, fmt.Errorf("failed to create %s: %w", staging, err)
	}

	l, err := src.InsertBatch(ctx, d, table, batch)
	if err != nil {
		return StagingInfo{}, err
	}

	err = db.ExecScript(ctx, d, script).Err()
	if err != nil {
		return StagingInfo{}, fmt.Errorf("error while staging %s: %w", table, err)
	}

	n, err := d.Count(ctx, Table(table))
	if err != nil {
		return StagingInfo{}, fmt.Errorf("failed to count %s: %w", staging, err)
	}

	info := StagingInfo{BlobLength: l, RowsStaged: n}
	if dropped := int64(batch.Len()) - n; dropped > 0 {
		info.RowsDropped = dropped
		util.Logf(ctx, logging.Warning, "dropped %d of %d %s records with a null natural key", dropped, batch.Len(), table)
	}

	util.Logf(ctx, logging.Debug, "successfully staged %d %s rows", n, table)
	return info, nil
}
