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

package etl

import (
	"cloud.google.com/go/logging"
	"context"
	"fmt"
	"go.uber.org/multierr"

	"github.com/ajjensen13/stocker-iex/internal/extract"
	"github.com/ajjensen13/stocker-iex/internal/load"
	"github.com/ajjensen13/stocker-iex/internal/model"
	"github.com/ajjensen13/stocker-iex/internal/transform"
	"github.com/ajjensen13/stocker-iex/internal/util"
)

type Fetcher interface {
	Fetch(ctx context.Context, endpoint extract.Endpoint, mode model.Mode) (model.BatchResponse, error)
}

type Loader interface {
	Load(ctx context.Context, ds load.Dataset, mode model.Mode, batch load.Batch) (load.Report, error)
	Cleanup(ctx context.Context) error
}

type step struct {
	dataset load.Dataset
	// endpoint is empty for tables derived from already loaded tables.
	endpoint  extract.Endpoint
	transform func(model.BatchResponse) load.Batch
}

func (s step) derived() bool {
	return s.endpoint == ""
}

// steps run in this order. orders is derived from public.company and
// public.prices and must come after both.
var steps = []step{
	{
		dataset:   load.Company,
		endpoint:  extract.CompanyEndpoint,
		transform: func(r model.BatchResponse) load.Batch { return transform.Companies(r) },
	},
	{
		dataset:   load.Prices,
		endpoint:  extract.ChartEndpoint,
		transform: func(r model.BatchResponse) load.Batch { return transform.Prices(r) },
	},
	{
		dataset: load.Orders,
	},
}

type Summary struct {
	Reports []load.Report
	Failed  []string
}

// Runner loads every table once per Run. Runs are sequential and a Runner is
// not safe for concurrent use. Two Runs against the same database, from one
// process or several, must not overlap because they share the staging
// tables. Whoever schedules the job has to guarantee that.
type Runner struct {
	fetcher Fetcher
	loader  Loader
}

func NewRunner(fetcher Fetcher, loader Loader) *Runner {
	return &Runner{fetcher: fetcher, loader: loader}
}

// Run loads company, prices and orders, then drops the staging tables. A
// table whose fetch fails is not loaded at all; the other tables still are,
// except that a backfill skips orders once one of its sources failed. All
// failures are returned together.
func (r *Runner) Run(ctx context.Context, mode model.Mode) (Summary, error) {
	ctx = util.WithLoggerValue(ctx, "mode", mode.String())
	util.Logf(ctx, logging.Info, "performing backfill? %v", mode == model.Backfill)

	var summary Summary
	var errs error
	for _, s := range steps {
		ctx := util.WithLoggerValue(ctx, "dataset", s.dataset.Name)

		if s.derived() && mode == model.Backfill && len(summary.Failed) > 0 {
			err := fmt.Errorf("skipping %s backfill: source tables failed to load: %v", s.dataset.Name, summary.Failed)
			util.Logf(ctx, logging.Error, "%v", err)
			summary.Failed = append(summary.Failed, s.dataset.Name)
			errs = multierr.Append(errs, err)
			continue
		}

		util.Logf(ctx, logging.Info, "loading %s table...", s.dataset.Name)
		report, err := r.runStep(ctx, s, mode)
		if err != nil {
			summary.Failed = append(summary.Failed, s.dataset.Name)
			errs = multierr.Append(errs, err)
			continue
		}
		summary.Reports = append(summary.Reports, report)
	}

	util.Logf(ctx, logging.Info, "dropping staging tables...")
	err := r.loader.Cleanup(ctx)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("failed to drop staging tables: %w", err))
	}

	return summary, errs
}

func (r *Runner) runStep(ctx context.Context, s step, mode model.Mode) (load.Report, error) {
	var batch load.Batch
	if !s.derived() {
		raw, err := r.fetcher.Fetch(ctx, s.endpoint, mode)
		if err != nil {
			util.Logf(ctx, logging.Critical, "iex http call failed, %s will not be loaded: %v", s.dataset.Name, err)
			return load.Report{}, fmt.Errorf("failed to extract %s: %w", s.dataset.Name, err)
		}
		batch = s.transform(raw)
	}

	report, err := r.loader.Load(ctx, s.dataset, mode, batch)
	if err != nil {
		return report, fmt.Errorf("failed to load %s: %w", s.dataset.Name, err)
	}
	return report, nil
}
