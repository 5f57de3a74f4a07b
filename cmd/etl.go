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

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ajjensen13/stocker-iex/internal/model"
	"github.com/ajjensen13/stocker-iex/internal/util"
)

const (
	appConfigName = "stocker-config-cm.json"
)

type appConfig struct {
	ApiRootURL         string `json:"api_root_url"`
	StockCodesPath     string `json:"stock_codes_path"`
	SqlDir             string `json:"sql_dir"`
	MigrationSourceURL string `json:"migration_source_url"`
	FetchRetries       uint64 `json:"fetch_retries"`
}

// dbConfig is read from the pg_* environment variables.
type dbConfig struct {
	Host     string
	Database string
	User     string
	Password string
	SSLMode  string
}

const dbPort = 5432

var backfill bool

// etlCmd represents the etl command
var etlCmd = &cobra.Command{
	Use:   "etl",
	Short: "Load the company, prices and orders tables",
	Long: `Fetches one month of data (two years with --backfill) for every stock
code and appends whatever is new to public.company, public.prices and
public.orders. A backfill drops and recreates those tables first.

Never run two etl jobs against the same database at once.`,
	Run: func(cmd *cobra.Command, args []string) {
		lg, cleanup := logger()
		defer cleanup()

		ctx := util.WithLogger(context.Background(), lg)

		r, cleanupRunner, err := runner(ctx, lg)
		if err != nil {
			panic(lg.ErrorErr(fmt.Errorf("failed to setup etl: %w", err)))
		}
		defer cleanupRunner()

		summary, err := r.Run(ctx, model.ModeOf(backfill))
		for _, report := range summary.Reports {
			lg.Defaultf("loaded %s: %d rows staged, %d rows in production, %d new values", report.Dataset, report.StagingRows, report.ProductionRows, len(report.NewValues))
		}
		if err != nil {
			panic(lg.ErrorErr(fmt.Errorf("etl finished with failures %v: %w", summary.Failed, err)))
		}

		lg.Defaultf("etl finished")
	},
}

func init() {
	etlCmd.Flags().BoolVarP(&backfill, "backfill", "b", false, "Backfill the data 2 years. This will drop and re-create all tables.")
	rootCmd.AddCommand(etlCmd)
}
