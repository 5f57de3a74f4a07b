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

package load

import (
	"cloud.google.com/go/logging"
	"context"
	"fmt"
	"github.com/jackc/pgx/v4"
	"io/fs"

	"github.com/ajjensen13/stocker-iex/internal/db"
	"github.com/ajjensen13/stocker-iex/internal/model"
	"github.com/ajjensen13/stocker-iex/internal/scripts"
	"github.com/ajjensen13/stocker-iex/internal/stage"
	"github.com/ajjensen13/stocker-iex/internal/util"
)

// Batch is a slice of flat records, e.g. model.Companies or model.Prices.
type Batch interface {
	Len() int
}

type Report struct {
	Dataset        string
	Mode           model.Mode
	Staging        stage.StagingInfo
	StagingRows    int64
	ProductionRows int64
	// NewValues holds the distinct report key values that were new to
	// production. Only set for incremental loads.
	NewValues []string
}

// Loader reconciles staged batches into production tables. Two loaders must
// never run against the same database at the same time: staging tables are
// shared and rebuilt from scratch by every load.
type Loader struct {
	db   *db.DB
	fsys fs.FS
}

func NewLoader(d *db.DB, fsys fs.FS) *Loader {
	return &Loader{db: d, fsys: fsys}
}

// Load runs, in order and stopping at the first failure: the schema script
// (backfill only), staging of batch (only when batch is non-nil), the merge
// script, row counts, and the new value report (incremental only). Nothing
// is rolled back on failure.
func (l *Loader) Load(ctx context.Context, ds Dataset, mode model.Mode, batch Batch) (Report, error) {
	ctx = util.WithLoggerValue(ctx, "dataset", ds.Name)
	ctx = util.WithLoggerValue(ctx, "mode", mode.String())
	report := Report{Dataset: ds.Name, Mode: mode}

	err := ds.Validate()
	if err != nil {
		return report, err
	}

	if mode == model.Backfill {
		util.Logf(ctx, logging.Info, "backfill: dropping and recreating public.%s", ds.Name)
		err = l.runScript(ctx, scripts.DDL(ds.Name))
		if err != nil {
			return report, critical(ctx, fmt.Errorf("failed to apply %s schema: %w", ds.Name, err))
		}
	}

	if batch != nil {
		util.Logf(ctx, logging.Info, "staging %d %s records", batch.Len(), ds.Name)
		report.Staging, err = stage.Batch(ctx, l.db, l.fsys, ds.Name, batch)
		if err != nil {
			return report, critical(ctx, fmt.Errorf("failed to stage %s: %w", ds.Name, err))
		}
	}

	err = l.runScript(ctx, scripts.Insert(ds.Name))
	if err != nil {
		return report, critical(ctx, fmt.Errorf("failed to merge %s: %w", ds.Name, err))
	}

	report.StagingRows, report.ProductionRows, err = l.checkRowCounts(ctx, ds.Name)
	if err != nil {
		return report, critical(ctx, err)
	}

	if mode == model.Backfill {
		return report, nil
	}

	vs, err := l.db.Distinct(ctx, stage.Table(ds.Name), ds.ReportKey)
	if err != nil {
		return report, critical(ctx, fmt.Errorf("failed to query new %s values: %w", ds.Name, err))
	}

	report.NewValues = FormatValues(vs)
	if len(report.NewValues) == 0 {
		util.Logf(ctx, logging.Info, "no new data to insert into public.%s", ds.Name)
	} else {
		util.Logf(ctx, logging.Info, "new %s values inserted into public.%s: %v", ds.ReportKey, ds.Name, report.NewValues)
	}

	return report, nil
}

// checkRowCounts logs the size of the staging and production table. An empty
// table is expected when a run finds nothing new and is not an error.
func (l *Loader) checkRowCounts(ctx context.Context, table string) (staging, production int64, err error) {
	for _, t := range []struct {
		ident pgx.Identifier
		n     *int64
	}{
		{stage.Table(table), &staging},
		{pgx.Identifier{"public", table}, &production},
	} {
		*t.n, err = l.db.Count(ctx, t.ident)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to count rows of %s: %w", t.ident.Sanitize(), err)
		}

		if *t.n == 0 {
			util.Logf(ctx, logging.Info, "table %s is empty", t.ident.Sanitize())
			continue
		}
		util.Logf(ctx, logging.Info, "row count for %s: %d", t.ident.Sanitize(), *t.n)
	}
	return
}

// Cleanup drops every staging table.
func (l *Loader) Cleanup(ctx context.Context) error {
	ctx = util.WithLoggerValue(ctx, "action", "cleanup")
	err := l.runScript(ctx, scripts.Cleanup)
	if err != nil {
		util.Logf(ctx, logging.Warning, "failed to drop staging tables: %v", err)
		return err
	}
	return nil
}

func (l *Loader) runScript(ctx context.Context, name string) error {
	s, err := db.LoadScript(l.fsys, name)
	if err != nil {
		return err
	}
	return db.ExecScript(ctx, l.db, s).Err()
}

func critical(ctx context.Context, err error) error {
	util.Logf(ctx, logging.Critical, "%v", err)
	return err
}
