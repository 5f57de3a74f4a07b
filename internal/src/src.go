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

package src

import (
	"cloud.google.com/go/logging"
	"context"
	"encoding/json"
	"fmt"
	"github.com/jackc/pgx/v4"

	"github.com/ajjensen13/stocker-iex/internal/db"
	"github.com/ajjensen13/stocker-iex/internal/util"
)

const StagingSchema = "staging"

// JSONTable is the unlogged table that carries a table's raw batch.
func JSONTable(table string) pgx.Identifier {
	return pgx.Identifier{StagingSchema, table + "_json"}
}

// InsertBatch recreates the json table of table and copies the whole batch
// into it as a single json document. It returns the document's length.
func InsertBatch(ctx context.Context, d *db.DB, table string, batch interface{}) (int64, error) {
	ctx = util.WithLoggerValue(ctx, "action", "src")
	ident := JSONTable(table)

	doc, err := json.Marshal(batch)
	if err != nil {
		return 0, fmt.Errorf("failed to encode %s batch: %w", table, err)
	}
	if string(doc) == "null" {
		doc = []byte("[]")
	}

	util.Logf(ctx, logging.Info, "creating unlogged table to store json %s data...", table)
	_, err = d.Exec(ctx, `DROP TABLE IF EXISTS `+ident.Sanitize())
	if err != nil {
		return 0, fmt.Errorf("failed to drop %s: %w", ident.Sanitize(), err)
	}
	_, err = d.Exec(ctx, `CREATE UNLOGGED TABLE `+ident.Sanitize()+` (doc JSON)`)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", ident.Sanitize(), err)
	}

	util.Logf(ctx, logging.Info, "copying json %s data into table...", table)
	_, err = d.CopyJSON(ctx, ident, "doc", doc)
	if err != nil {
		return 0, fmt.Errorf("failed to copy %s batch: %w", table, err)
	}

	l, err := d.TextLength(ctx, ident, "doc")
	if err != nil {
		return 0, fmt.Errorf("failed to check %s batch: %w", table, err)
	}

	if l == 0 {
		util.Logf(ctx, logging.Error, "no json data copied to %s. char length: %d", ident.Sanitize(), l)
	} else {
		util.Logf(ctx, logging.Info, "json data successfully copied to %s. char length: %d", ident.Sanitize(), l)
	}

	return l, nil
}
