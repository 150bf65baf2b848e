package kraken

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/0xc0d3d00d/candlesync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hourly = domain.Resolution(time.Hour)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(
		WithBaseURL(server.URL+"/"),
		WithHTTPClient(server.Client()),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}
}

// toCandles coerces every row, failing the test on the first malformed one.
func toCandles(t *testing.T, rows []Row) []domain.Candle {
	t.Helper()

	candles := make([]domain.Candle, 0, len(rows))
	for _, row := range rows {
		candle, err := row.Candle()
		require.NoError(t, err)
		candles = append(candles, candle)
	}
	return candles
}

func TestClient_FetchRows_Query(t *testing.T) {
	since := time.Unix(1690000000, 0)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/0/public/OHLC", r.URL.Path)
		assert.Equal(t, "BTC/USD", r.URL.Query().Get("pair"))
		assert.Equal(t, "60", r.URL.Query().Get("interval"))
		assert.Equal(t, strconv.FormatInt(since.Unix(), 10), r.URL.Query().Get("since"))

		w.Write([]byte(`{"error":[],"result":{"BTC/USD":[],"last":1690000000}}`))
	})

	rows, err := client.FetchRows(context.Background(), "BTC/USD", hourly, since)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestClient_FetchRows_Coercion(t *testing.T) {
	client := newTestClient(t, respond(http.StatusOK,
		`{"result": {"BTC/USD": [[1690000000,"10","12","9","11","5.0","100","3"]]}}`))

	rows, err := client.FetchRows(context.Background(), "BTC/USD", hourly, time.Now())
	require.NoError(t, err)
	candles := toCandles(t, rows)
	require.Len(t, candles, 1)

	assert.Equal(t, domain.Candle{
		Timestamp:  time.Unix(1690000000, 0).UTC(),
		TickerId:   "BTC/USD",
		Resolution: hourly,
		Open:       10,
		High:       12,
		Low:        9,
		Close:      11,
		Vwap:       "5.0",
		Volume:     100,
		Count:      3,
	}, candles[0])
}

func TestClient_FetchRows_KeepsOrder(t *testing.T) {
	client := newTestClient(t, respond(http.StatusOK, `{"error":[],"result":{"BTC/USD":[
		[1690000000,"10","12","9","11","10.5","100",3],
		[1690003600,"11","13","10","12","11.5","200",4]
	],"last":1690003600}}`))

	rows, err := client.FetchRows(context.Background(), "BTC/USD", hourly, time.Now())
	require.NoError(t, err)
	candles := toCandles(t, rows)
	require.Len(t, candles, 2)
	assert.Equal(t, int64(1690000000), candles[0].Timestamp.Unix())
	assert.Equal(t, int64(1690003600), candles[1].Timestamp.Unix())
	assert.Equal(t, int64(4), candles[1].Count)
}

func TestClient_FetchRows_CanonicalPairName(t *testing.T) {
	client := newTestClient(t, respond(http.StatusOK,
		`{"error":[],"result":{"XXBTZUSD":[[1690000000,"10","12","9","11","10.5","100",3]],"last":1690000000}}`))

	rows, err := client.FetchRows(context.Background(), "BTC/USD", hourly, time.Now())
	require.NoError(t, err)
	candles := toCandles(t, rows)
	require.Len(t, candles, 1)
	assert.Equal(t, "BTC/USD", candles[0].TickerId)
}

func TestClient_FetchRows_Empty(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty_rows", body: `{"error":[],"result":{"BTC/USD":[]}}`},
		{name: "missing_result", body: `{"error":[]}`},
		{name: "ambiguous_series", body: `{"error":[],"result":{"A":[],"B":[],"last":1}}`},
		{name: "rows_not_a_list", body: `{"error":[],"result":{"BTC/USD":"nope"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, respond(http.StatusOK, tt.body))

			rows, err := client.FetchRows(context.Background(), "BTC/USD", hourly, time.Now())
			require.NoError(t, err)
			assert.Empty(t, rows)
		})
	}
}

func TestClient_FetchRows_UnexpectedStatus(t *testing.T) {
	client := newTestClient(t, respond(http.StatusServiceUnavailable, `maintenance`))

	rows, err := client.FetchRows(context.Background(), "BTC/USD", hourly, time.Now())
	assert.Empty(t, rows)
	assert.ErrorIs(t, err, domain.ErrMarketData)

	var statusErr *domain.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Equal(t, "maintenance", statusErr.Body)
}

func TestClient_FetchRows_APIError(t *testing.T) {
	client := newTestClient(t, respond(http.StatusOK, `{"error":["EQuery:Unknown asset pair"]}`))

	rows, err := client.FetchRows(context.Background(), "FOO/BAR", hourly, time.Now())
	assert.Empty(t, rows)
	assert.ErrorIs(t, err, domain.ErrMarketData)
	assert.Contains(t, err.Error(), "EQuery:Unknown asset pair")
}

func TestRow_Candle_Malformed(t *testing.T) {
	tests := []struct {
		name string
		row  string
	}{
		{name: "short_row", row: `[1690000000,"10","12"]`},
		{name: "long_row", row: `[1690000000,"10","12","9","11","5.0","100",3,"extra"]`},
		{name: "non_numeric_price", row: `[1690000000,"ten","12","9","11","5.0","100",3]`},
		{name: "null_volume", row: `[1690000000,"10","12","9","11","5.0",null,3]`},
		{name: "fractional_count_string", row: `[1690000000,"10","12","9","11","5.0","100","3.5"]`},
		{name: "row_not_a_list", row: `{"time":1690000000}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, respond(http.StatusOK,
				`{"error":[],"result":{"BTC/USD":[[1690000000,"10","12","9","11","5.0","100",3],`+tt.row+`]}}`))

			rows, err := client.FetchRows(context.Background(), "BTC/USD", hourly, time.Now())
			require.NoError(t, err)
			require.Len(t, rows, 2)

			_, err = rows[0].Candle()
			require.NoError(t, err)

			_, err = rows[1].Candle()
			assert.ErrorIs(t, err, domain.ErrMalformedCandle)
			assert.NotErrorIs(t, err, domain.ErrMarketData)
			assert.Contains(t, err.Error(), "row 1 of BTC/USD")
		})
	}
}
