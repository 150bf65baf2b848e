package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/0xc0d3d00d/candlesync/internal/domain"
	"github.com/0xc0d3d00d/candlesync/internal/journal"
	"github.com/0xc0d3d00d/candlesync/internal/kraken"
	"github.com/0xc0d3d00d/candlesync/internal/pocketbase"
)

// Interface requirements for the record store
type recordStore interface {
	Authenticate(ctx context.Context) (pocketbase.Session, error)
	InsertRecord(ctx context.Context, session pocketbase.Session, path string, record any) (pocketbase.Record, error)
}

// Interface requirements for the market data source
type marketData interface {
	FetchRows(ctx context.Context, symbol string, resolution domain.Resolution, since time.Time) ([]kraken.Row, error)
}

type recorder interface {
	CandlesFetched(ctx context.Context, symbol string, count int)
	RecordInserted(ctx context.Context, symbol string)
	RecordFailed(ctx context.Context, symbol string)
}

type failureJournal interface {
	Append(entry journal.Entry) error
}

type Config struct {
	Collection string
	Symbols    []string
	Resolution domain.Resolution
	Lookback   time.Duration
}

// Report summarizes one run.
type Report struct {
	Since    time.Time
	Symbols  int
	Fetched  int
	Inserted int
	Failed   int
}

type Driver struct {
	store    recordStore
	market   marketData
	cfg      Config
	now      func() time.Time
	logger   *slog.Logger
	recorder recorder
	journal  failureJournal
}

type Option func(*Driver)

func WithClock(now func() time.Time) Option {
	return func(d *Driver) {
		d.now = now
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) {
		d.logger = logger
	}
}

func WithRecorder(r recorder) Option {
	return func(d *Driver) {
		d.recorder = r
	}
}

func WithJournal(j failureJournal) Option {
	return func(d *Driver) {
		d.journal = j
	}
}

func New(store recordStore, market marketData, cfg Config, opts ...Option) *Driver {
	d := &Driver{
		store:    store,
		market:   market,
		cfg:      cfg,
		now:      time.Now,
		logger:   slog.Default(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run performs one ingestion pass: authenticate, then fetch the lookback
// window of every symbol and insert each row as soon as it is coerced.
// Insert and fetch failures are logged and skipped. Authentication failure,
// a malformed row and cancellation of ctx stop the run; rows inserted
// before the stop stay in the store.
func (d *Driver) Run(ctx context.Context) (Report, error) {
	session, err := d.store.Authenticate(ctx)
	if err != nil {
		return Report{}, err
	}

	report := Report{Since: d.now().Add(-d.cfg.Lookback)}
	path := pocketbase.RecordsPath(d.cfg.Collection)

	for _, symbol := range d.cfg.Symbols {
		if err := ctx.Err(); err != nil {
			return report, interrupted(err)
		}
		report.Symbols++

		rows, err := d.market.FetchRows(ctx, symbol, d.cfg.Resolution, report.Since)
		if err != nil {
			if ctx.Err() != nil {
				return report, interrupted(ctx.Err())
			}
			d.logger.ErrorContext(ctx, "failed to fetch candles", "symbol", symbol, "error", err)
			rows = nil
		}

		report.Fetched += len(rows)
		d.recorder.CandlesFetched(ctx, symbol, len(rows))

		for _, row := range rows {
			if err := ctx.Err(); err != nil {
				return report, interrupted(err)
			}

			candle, err := row.Candle()
			if err != nil {
				return report, err
			}

			record := pocketbase.NewCandleRecord(candle)
			_, err = d.store.InsertRecord(ctx, session, path, record)
			if err != nil {
				// the request may have reached the store, so it is neither failed nor journaled
				if ctx.Err() != nil {
					return report, interrupted(ctx.Err())
				}

				report.Failed++
				d.recorder.RecordFailed(ctx, symbol)
				d.journalFailure(ctx, symbol, path, record, err)
				continue
			}

			report.Inserted++
			d.recorder.RecordInserted(ctx, symbol)
		}

		d.logger.InfoContext(ctx, "symbol ingested", "symbol", symbol, "candle_count", len(rows))
	}

	return report, nil
}

func interrupted(err error) error {
	return fmt.Errorf("ingestion interrupted: %w", err)
}

func (d *Driver) journalFailure(ctx context.Context, symbol string, path string, record pocketbase.CandleRecord, cause error) {
	if d.journal == nil {
		return
	}

	entry := journal.Entry{
		Time:   d.now(),
		Symbol: symbol,
		Path:   path,
		Record: record,
		Error:  cause.Error(),
	}

	var statusErr *domain.StatusError
	if errors.As(cause, &statusErr) {
		entry.StatusCode = statusErr.StatusCode
	}

	if err := d.journal.Append(entry); err != nil {
		d.logger.ErrorContext(ctx, "failed to journal record", "symbol", symbol, "time", record.Time, "error", err, "insert_error", cause)
	}
}

type nopRecorder struct{}

func (nopRecorder) CandlesFetched(context.Context, string, int) {}
func (nopRecorder) RecordInserted(context.Context, string) {}
func (nopRecorder) RecordFailed(context.Context, string) {}
