package load_test

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"testing"
	"testing/fstest"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajjensen13/stocker-iex/internal/db"
	"github.com/ajjensen13/stocker-iex/internal/dbtest"
	"github.com/ajjensen13/stocker-iex/internal/load"
	"github.com/ajjensen13/stocker-iex/internal/model"
	"github.com/ajjensen13/stocker-iex/internal/scripts"
)

func TestMain(m *testing.M) {
	code := m.Run()
	dbtest.Terminate()
	os.Exit(code)
}

func str(s string) *string { return &s }

func price(code, date, close string) model.PriceRecord {
	return model.PriceRecord{
		StockCode: model.StockCode(code),
		Date:      str(date),
		Close:     decimal.NewNullDecimal(decimal.RequireFromString(close)),
	}
}

func company(code, name string) model.CompanyRecord {
	return model.CompanyRecord{StockCode: model.StockCode(code), CompanyName: str(name), Exchange: str("NASDAQ"), Sector: str("Technology"), Industry: str("Hardware")}
}

func newLoader(t *testing.T, fsys fs.FS) (*load.Loader, *pgxpool.Pool) {
	pool := dbtest.NewPool(t)
	return load.NewLoader(db.New(pool), fsys), pool
}

func count(t *testing.T, pool *pgxpool.Pool, sql string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, pool.QueryRow(context.Background(), sql, args...).Scan(&n))
	return n
}

func TestLoadIncrementalReportsOnlyNewRows(t *testing.T) {
	ctx := context.Background()
	l, pool := newLoader(t, scripts.FS(""))

	_, err := pool.Exec(ctx, `INSERT INTO public.prices (stock_code, date, close) VALUES ('AAPL', '2024-01-01', 10)`)
	require.NoError(t, err)

	batch := model.Prices{price("AAPL", "2024-01-01", "10"), price("AAPL", "2024-01-02", "11")}
	report, err := l.Load(ctx, load.Prices, model.Incremental, batch)
	require.NoError(t, err)

	assert.Equal(t, []string{"2024-01-02"}, report.NewValues)
	assert.Equal(t, int64(2), report.Staging.RowsStaged)
	assert.Equal(t, int64(1), report.StagingRows)
	assert.Equal(t, int64(2), report.ProductionRows)
	assert.Positive(t, report.Staging.BlobLength)
}

func TestLoadIsIdempotent(t *testing.T) {
	ctx := context.Background()
	l, pool := newLoader(t, scripts.FS(""))

	batch := model.Prices{price("AAPL", "2024-01-02", "11"), price("MSFT", "2024-01-02", "370.5")}

	first, err := l.Load(ctx, load.Prices, model.Incremental, batch)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-02"}, first.NewValues)

	second, err := l.Load(ctx, load.Prices, model.Incremental, batch)
	require.NoError(t, err)
	assert.Empty(t, second.NewValues)
	assert.Equal(t, int64(0), second.StagingRows)

	assert.Equal(t, int64(2), count(t, pool, `SELECT COUNT(*) FROM public.prices`))
}

func TestLoadDuplicatesInBatchInsertedOnce(t *testing.T) {
	ctx := context.Background()
	l, pool := newLoader(t, scripts.FS(""))

	batch := model.Prices{price("AAPL", "2024-01-02", "11"), price("AAPL", "2024-01-02", "11")}
	_, err := l.Load(ctx, load.Prices, model.Incremental, batch)
	require.NoError(t, err)

	assert.Equal(t, int64(1), count(t, pool, `SELECT COUNT(*) FROM public.prices`))
}

func TestLoadBackfillReplacesProduction(t *testing.T) {
	ctx := context.Background()
	l, pool := newLoader(t, scripts.FS(""))

	_, err := pool.Exec(ctx, `INSERT INTO public.prices (stock_code, date, close) VALUES ('IBM', '2020-01-01', 130)`)
	require.NoError(t, err)

	batch := model.Prices{price("AAPL", "2024-01-01", "10"), price("AAPL", "2024-01-02", "11")}
	report, err := l.Load(ctx, load.Prices, model.Backfill, batch)
	require.NoError(t, err)

	assert.Nil(t, report.NewValues)
	assert.Equal(t, int64(2), report.ProductionRows)
	assert.Equal(t, int64(0), count(t, pool, `SELECT COUNT(*) FROM public.prices WHERE stock_code = 'IBM'`))
}

func TestLoadBackfillCreatesStagingSchema(t *testing.T) {
	ctx := context.Background()
	l, pool := newLoader(t, scripts.FS(""))

	_, err := pool.Exec(ctx, `DROP SCHEMA staging CASCADE`)
	require.NoError(t, err)

	report, err := l.Load(ctx, load.Prices, model.Backfill, model.Prices{price("AAPL", "2024-01-02", "11")})
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.ProductionRows)
}

func TestLoadDropsRecordsWithoutNaturalKey(t *testing.T) {
	ctx := context.Background()
	l, pool := newLoader(t, scripts.FS(""))

	undated := price("MSFT", "2024-01-02", "370.87")
	undated.Date = nil
	batch := model.Prices{price("AAPL", "2024-01-02", "11"), undated}

	report, err := l.Load(ctx, load.Prices, model.Incremental, batch)
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.Staging.RowsStaged)
	assert.Equal(t, int64(1), report.Staging.RowsDropped)
	assert.Equal(t, int64(1), count(t, pool, `SELECT COUNT(*) FROM public.prices`))
}

func TestLoadCompanyKeepsNullColumns(t *testing.T) {
	ctx := context.Background()
	l, pool := newLoader(t, scripts.FS(""))

	c := company("AAPL", "Apple Inc.")
	c.Industry = nil
	batch := model.Companies{c, {StockCode: "MSFT"}}

	report, err := l.Load(ctx, load.Company, model.Incremental, batch)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, report.NewValues)

	assert.Equal(t, int64(1), count(t, pool, `SELECT COUNT(*) FROM public.company WHERE stock_code = 'AAPL' AND industry IS NULL AND company_name = 'Apple Inc.'`))
	assert.Equal(t, int64(1), count(t, pool, `SELECT COUNT(*) FROM public.company WHERE stock_code = 'MSFT' AND company_name IS NULL`))
}

func TestLoadOrdersDerivedFromPrices(t *testing.T) {
	ctx := context.Background()
	l, pool := newLoader(t, scripts.FS(""))

	_, err := l.Load(ctx, load.Company, model.Incremental, model.Companies{company("AAPL", "Apple Inc.")})
	require.NoError(t, err)

	prices := model.Prices{
		price("AAPL", "2024-01-01", "10"),
		price("AAPL", "2024-01-02", "11"),
		price("AAPL", "2024-01-03", "9"),
		price("AAPL", "2024-01-04", "9"),
	}
	_, err = l.Load(ctx, load.Prices, model.Incremental, prices)
	require.NoError(t, err)

	report, err := l.Load(ctx, load.Orders, model.Incremental, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-02", "2024-01-03"}, report.NewValues)

	assert.Equal(t, int64(1), count(t, pool, `SELECT COUNT(*) FROM public.orders WHERE date::text = $1 AND side = 'buy'`, "2024-01-02"))
	assert.Equal(t, int64(1), count(t, pool, `SELECT COUNT(*) FROM public.orders WHERE date::text = $1 AND side = 'sell'`, "2024-01-03"))

	again, err := l.Load(ctx, load.Orders, model.Incremental, nil)
	require.NoError(t, err)
	assert.Empty(t, again.NewValues)
}

func TestLoadOrdersBackfillBeforeSourcesIsEmpty(t *testing.T) {
	l, _ := newLoader(t, scripts.FS(""))

	report, err := l.Load(context.Background(), load.Orders, model.Backfill, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), report.ProductionRows)
}

func withScript(t *testing.T, name, text string) fs.FS {
	t.Helper()
	src := scripts.FS("")
	out := fstest.MapFS{}
	entries, err := fs.ReadDir(src, ".")
	require.NoError(t, err)
	for _, e := range entries {
		b, err := fs.ReadFile(src, e.Name())
		require.NoError(t, err)
		out[e.Name()] = &fstest.MapFile{Data: b}
	}
	out[name] = &fstest.MapFile{Data: []byte(text)}
	return out
}

func TestLoadFailingStatementFailsPhase(t *testing.T) {
	ctx := context.Background()
	fsys := withScript(t, scripts.Insert("prices"), `
INSERT INTO public.no_such_table VALUES (1);
INSERT INTO public.prices (stock_code, date, close) SELECT stock_code, date, close FROM staging.prices;
`)
	l, pool := newLoader(t, fsys)

	report, err := l.Load(ctx, load.Prices, model.Incremental, model.Prices{price("AAPL", "2024-01-02", "11")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, db.ErrStatementsSkipped))
	assert.Nil(t, report.NewValues)

	// the statement after the failing one still ran and nothing was rolled back
	assert.Equal(t, int64(1), count(t, pool, `SELECT COUNT(*) FROM public.prices`))
}

func TestCleanupDropsStagingTables(t *testing.T) {
	ctx := context.Background()
	l, pool := newLoader(t, scripts.FS(""))

	_, err := l.Load(ctx, load.Prices, model.Incremental, model.Prices{price("AAPL", "2024-01-02", "11")})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count(t, pool, `SELECT COUNT(*) FROM pg_tables WHERE schemaname = 'staging'`))

	require.NoError(t, l.Cleanup(ctx))
	assert.Equal(t, int64(0), count(t, pool, `SELECT COUNT(*) FROM pg_tables WHERE schemaname = 'staging'`))

	require.NoError(t, l.Cleanup(ctx), "cleanup with nothing to drop")
}
