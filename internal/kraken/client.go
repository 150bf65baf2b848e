package kraken

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/0xc0d3d00d/candlesync/internal/domain"
)

const (
	DefaultBaseURL = "https://api.kraken.com"
	ohlcPath       = "/0/public/OHLC"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: http.DefaultClient,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type ohlcResponse struct {
	Error  []string                   `json:"error"`
	Result map[string]json.RawMessage `json:"result"`
}

// FetchRows returns the OHLC rows of symbol starting after since, in the
// order the API sent them. The window end is left to the API, which answers
// up to the current interval. Rows are not coerced until Row.Candle is called.
func (c *Client) FetchRows(ctx context.Context, symbol string, resolution domain.Resolution, since time.Time) ([]Row, error) {
	query := url.Values{}
	query.Set("pair", symbol)
	query.Set("interval", strconv.Itoa(resolution.Minutes()))
	query.Set("since", strconv.FormatInt(since.Unix(), 10))

	requestURL := c.baseURL + ohlcPath + "?" + query.Encode()
	c.logger.DebugContext(ctx, "fetching candles", "symbol", symbol, "resolution", resolution, "since", since)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %w", domain.ErrMarketData, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMarketData, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", domain.ErrMarketData, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.StatusError{Kind: domain.ErrMarketData, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var parsed ohlcResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %w", domain.ErrMarketData, err)
	}
	if len(parsed.Error) > 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrMarketData, strings.Join(parsed.Error, "; "))
	}

	series, ok := seriesFor(parsed.Result, symbol)
	if !ok {
		c.logger.WarnContext(ctx, "no series in response", "symbol", symbol)
		return nil, nil
	}

	raw, err := splitRows(series)
	if err != nil {
		c.logger.WarnContext(ctx, "series is not a list of rows", "symbol", symbol, "error", err)
		return nil, nil
	}

	rows := make([]Row, 0, len(raw))
	for i, r := range raw {
		rows = append(rows, Row{raw: r, index: i, symbol: symbol, resolution: resolution})
	}

	c.logger.DebugContext(ctx, "fetched rows", "symbol", symbol, "count", len(rows))
	return rows, nil
}

// seriesFor picks the rows of symbol from the result object. The API keys
// its answer by the canonical pair name (XXBTZUSD for BTC/USD), so a result
// holding a single series is used when the requested name is absent.
func seriesFor(result map[string]json.RawMessage, symbol string) (json.RawMessage, bool) {
	if series, ok := result[symbol]; ok {
		return series, true
	}

	var (
		only  json.RawMessage
		count int
	)
	for key, series := range result {
		if key == "last" {
			continue
		}
		only = series
		count++
	}

	return only, count == 1
}
