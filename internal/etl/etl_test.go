package etl_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajjensen13/stocker-iex/internal/db"
	"github.com/ajjensen13/stocker-iex/internal/dbtest"
	"github.com/ajjensen13/stocker-iex/internal/etl"
	"github.com/ajjensen13/stocker-iex/internal/extract"
	"github.com/ajjensen13/stocker-iex/internal/load"
	"github.com/ajjensen13/stocker-iex/internal/model"
	"github.com/ajjensen13/stocker-iex/internal/scripts"
)

func TestMain(m *testing.M) {
	code := m.Run()
	dbtest.Terminate()
	os.Exit(code)
}

const companyBody = `{
	"AAPL": {"company": {"symbol": "AAPL", "companyName": "Apple Inc.", "exchange": "NASDAQ", "industry": "Telecommunications Equipment", "sector": "Electronic Technology"}},
	"MSFT": {"company": {"symbol": "MSFT", "companyName": "Microsoft Corporation", "exchange": "NASDAQ", "sector": "Technology Services"}}
}`

const chartBody = `{
	"AAPL": {"chart": [
		{"date": "2024-01-02", "close": 185.64, "volume": 82488700},
		{"date": "2024-01-03", "close": 184.25, "volume": 58414500},
		{"date": "2024-01-04", "close": 181.91, "volume": 71983600}
	]},
	"MSFT": {"chart": [
		{"date": "2024-01-02", "close": 370.87, "volume": 25258600},
		{"date": "2024-01-03", "close": 370.60, "volume": 23083500},
		{"date": "2024-01-04", "close": 367.94, "volume": 20901500}
	]}
}`

func iexServer(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("types") {
		case string(extract.CompanyEndpoint):
			_, _ = w.Write([]byte(companyBody))
		case string(extract.ChartEndpoint):
			_, _ = w.Write([]byte(chartBody))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunEndToEnd(t *testing.T) {
	ctx := context.Background()
	pool := dbtest.NewPool(t)
	srv := iexServer(t)

	universe, err := model.NewUniverse("AAPL", "MSFT")
	require.NoError(t, err)

	client := extract.NewClient(srv.URL, srv.Client(), universe, backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 0), nil)
	r := etl.NewRunner(client, load.NewLoader(db.New(pool), scripts.FS("")))

	summary, err := r.Run(ctx, model.Backfill)
	require.NoError(t, err)
	require.Len(t, summary.Reports, 3)
	assert.Equal(t, int64(2), summary.Reports[0].ProductionRows)
	assert.Equal(t, int64(6), summary.Reports[1].ProductionRows)
	assert.Equal(t, int64(4), summary.Reports[2].ProductionRows)

	var staged int64
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM pg_tables WHERE schemaname = 'staging'`).Scan(&staged))
	assert.Equal(t, int64(0), staged)

	summary, err = r.Run(ctx, model.Incremental)
	require.NoError(t, err)
	for _, report := range summary.Reports {
		assert.Empty(t, report.NewValues, report.Dataset)
	}
}
