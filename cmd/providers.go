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
	"errors"
	"fmt"
	"github.com/ajjensen13/config"
	"github.com/ajjensen13/gke"
	"github.com/cenkalti/backoff/v4"
	"github.com/golang-migrate/migrate/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/joho/godotenv"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/ajjensen13/stocker-iex/internal/extract"
	"github.com/ajjensen13/stocker-iex/internal/model"
	"github.com/ajjensen13/stocker-iex/internal/scripts"
)

func provideAppConfig(lg gke.Logger) (*appConfig, error) {
	result, found, err := readAppConfig(config.InterfaceJson)
	if err != nil {
		return nil, err
	}
	if !found {
		lg.Warningf("%s not found, using defaults", appConfigName)
	}
	return result, nil
}

// readAppConfig reads appConfigName with read and fills in defaults. A missing
// config map is not an error, one that cannot be parsed is.
func readAppConfig(read func(name string, v interface{}) error) (cfg *appConfig, found bool, err error) {
	var result appConfig
	err = read(appConfigName, &result)
	switch {
	case errors.Is(err, os.ErrNotExist):
		result = appConfig{}
	case err != nil:
		return nil, false, fmt.Errorf("failed to read %s: %w", appConfigName, err)
	default:
		found = true
	}

	if result.ApiRootURL == "" {
		result.ApiRootURL = extract.DefaultRootURL
	}
	if result.StockCodesPath == "" {
		result.StockCodesPath = "data/stock_codes.txt"
	}
	if result.MigrationSourceURL == "" {
		result.MigrationSourceURL = "file://migrations"
	}
	return &result, found, nil
}

func provideDbConfig() (*dbConfig, error) {
	_ = godotenv.Load()

	result := dbConfig{
		Host:     os.Getenv("pg_host"),
		Database: os.Getenv("pg_database"),
		User:     os.Getenv("pg_user"),
		Password: os.Getenv("pg_password"),
		SSLMode:  os.Getenv("pg_sslmode"),
	}

	switch {
	case result.Database == "":
		return nil, errors.New("pg_database environment variable is required")
	case result.User == "":
		return nil, errors.New("pg_user environment variable is required")
	}

	if result.Host == "" {
		result.Host = "localhost"
	}
	if result.SSLMode == "" {
		result.SSLMode = "disable"
	}
	return &result, nil
}

func provideDataSourceName(cfg *dbConfig) *url.URL {
	return &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     cfg.Host + ":" + strconv.Itoa(dbPort),
		Path:     "/" + cfg.Database,
		RawQuery: url.Values{"sslmode": []string{cfg.SSLMode}}.Encode(),
	}
}

func provideDbConnPool(ctx context.Context, dsn *url.URL) (ret *pgxpool.Pool, cleanup func(), err error) {
	pool, err := pgxpool.Connect(ctx, dsn.String())
	if err != nil {
		return nil, func() {}, fmt.Errorf("failed to open database connection pool: %w", err)
	}

	return pool, pool.Close, nil
}

func provideScripts(cfg *appConfig) fs.FS {
	return scripts.FS(cfg.SqlDir)
}

func provideUniverse(cfg *appConfig) (model.Universe, error) {
	return model.LoadUniverse(cfg.StockCodesPath)
}

func provideHttpClient() *http.Client {
	return &http.Client{}
}

// provideBackoff allows cfg.FetchRetries retries. The default of zero means
// a failed request is not retried.
func provideBackoff(cfg *appConfig) backoff.BackOff {
	result := backoff.NewExponentialBackOff()
	result.InitialInterval = time.Second
	result.MaxElapsedTime = time.Minute
	return backoff.WithMaxRetries(result, cfg.FetchRetries)
}

func provideBackoffNotifier(lg gke.Logger) backoff.Notify {
	return func(err error, duration time.Duration) {
		if errors.Is(err, extract.ErrToManyRequests) {
			lg.Info(gke.NewFmtMsgData("request exceeded rate limit, waiting %v before retrying: %v", duration, err))
			return
		}
		lg.Warning(gke.NewFmtMsgData("request failed, waiting %v before retrying: %v", duration, err))
	}
}

func provideFetcher(cfg *appConfig, client *http.Client, universe model.Universe, bo backoff.BackOff, bon backoff.Notify) *extract.Client {
	return extract.NewClient(cfg.ApiRootURL, client, universe, bo, bon)
}

func provideMigrationSourceURL(cfg *appConfig) string {
	return cfg.MigrationSourceURL
}

func provideLogger() (lg gke.Logger, cleanup func()) {
	lg, cleanup, err := gke.NewLogger(context.Background())
	if err != nil {
		panic(err)
	}

	gke.LogEnv(lg)
	gke.LogMetadata(lg)

	return lg, cleanup
}

func provideMigrator(lg gke.Logger, databaseURL *url.URL, sourceURL string) (m *migrate.Migrate, err error) {
	m, err = migrate.New(sourceURL, databaseURL.String())
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator for %s: %w", sourceURL, err)
	}
	m.Log = migrationLogger{lg}
	return m, nil
}

type migrationLogger struct {
	gke.Logger
}

func (m migrationLogger) Printf(format string, v ...interface{}) {
	m.Defaultf(format, v...)
}

func (m migrationLogger) Verbose() bool {
	return false
}
