package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/0xc0d3d00d/candlesync/internal/domain"
	"github.com/0xc0d3d00d/candlesync/internal/ingest"
	"github.com/0xc0d3d00d/candlesync/internal/journal"
	"github.com/0xc0d3d00d/candlesync/internal/kraken"
	"github.com/0xc0d3d00d/candlesync/internal/metrics"
	"github.com/0xc0d3d00d/candlesync/internal/pocketbase"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
)

type config struct {
	PocketbaseURL      string            `env:"POCKETBASE_URL" envDefault:"http://127.0.0.1:8090"`
	PocketbaseIdentity string            `env:"POCKETBASE_ADMIN_IDENTITY,required,notEmpty"`
	PocketbasePassword string            `env:"POCKETBASE_ADMIN_PASSWORD,required,notEmpty"`
	Collection         string            `env:"POCKETBASE_COLLECTION,required,notEmpty"`
	KrakenURL          string            `env:"KRAKEN_URL" envDefault:"https://api.kraken.com"`
	Symbols            []string          `env:"KRAKEN_SYMBOLS" envSeparator:"," envDefault:"BTC/USD"`
	Interval           domain.Resolution `env:"CANDLE_INTERVAL" envDefault:"h1"`
	Lookback           time.Duration     `env:"LOOKBACK" envDefault:"24h"`
	HTTPTimeout        time.Duration     `env:"HTTP_TIMEOUT" envDefault:"30s"`
	LogLevel           slog.Level        `env:"LOG_LEVEL" envDefault:"info"`
	PushgatewayURL     string            `env:"PUSHGATEWAY_URL"`
	PushgatewayJob     string            `env:"PUSHGATEWAY_JOB" envDefault:"candlesync"`
	FailedRecordsDir   string            `env:"FAILED_RECORDS_DIR"`
}

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := config{}
	err := loadConfig(&cfg)
	if err != nil {
		setLogger(slog.LevelInfo)
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		return 1
	}
	setLogger(cfg.LogLevel)

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	store := pocketbase.NewClient(cfg.PocketbaseURL, cfg.PocketbaseIdentity, cfg.PocketbasePassword,
		pocketbase.WithHTTPClient(httpClient),
	)
	market := kraken.NewClient(
		kraken.WithBaseURL(cfg.KrakenURL),
		kraken.WithHTTPClient(httpClient),
	)

	m, err := metrics.New(prometheus.NewRegistry())
	if err != nil {
		slog.ErrorContext(ctx, "failed to create metrics", "error", err)
		return 1
	}
	defer m.Shutdown(context.Background())

	opts := []ingest.Option{ingest.WithRecorder(m)}
	if cfg.FailedRecordsDir != "" {
		j, err := journal.New(afero.NewOsFs(), cfg.FailedRecordsDir)
		if err != nil {
			slog.ErrorContext(ctx, "failed to open failure journal", "error", err)
			return 1
		}
		opts = append(opts, ingest.WithJournal(j))
	}

	driver := ingest.New(store, market, ingest.Config{
		Collection: cfg.Collection,
		Symbols:    cleanSymbols(cfg.Symbols),
		Resolution: cfg.Interval,
		Lookback:   cfg.Lookback,
	}, opts...)

	slog.InfoContext(ctx, "starting ingestion", "symbols", cfg.Symbols, "interval", cfg.Interval, "collection", cfg.Collection)
	report, err := driver.Run(ctx)

	exitCode := 0
	switch {
	case errors.Is(err, domain.ErrMalformedCandle):
		slog.ErrorContext(ctx, "ingestion aborted on malformed market data", "error", err, "inserted", report.Inserted)
		exitCode = 1
	case errors.Is(err, context.Canceled):
		slog.WarnContext(ctx, "ingestion interrupted", "error", err, "inserted", report.Inserted, "failed", report.Failed)
		exitCode = 1
	case err != nil:
		slog.ErrorContext(ctx, "ingestion failed", "error", err)
	default:
		slog.InfoContext(ctx, "ingestion finished",
			"since", report.Since,
			"symbols", report.Symbols,
			"fetched", report.Fetched,
			"inserted", report.Inserted,
			"failed", report.Failed,
		)
	}

	if cfg.PushgatewayURL != "" {
		pushCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPTimeout)
		defer cancel()

		if err := m.Push(pushCtx, cfg.PushgatewayURL, cfg.PushgatewayJob); err != nil {
			slog.ErrorContext(ctx, "failed to push metrics", "error", err)
		}
	}

	return exitCode
}

// cleanSymbols trims the blanks around each symbol and drops empty ones,
// so "BTC/USD, ETH/USD" reads as two symbols.
func cleanSymbols(symbols []string) []string {
	cleaned := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		symbol = strings.TrimSpace(symbol)
		if symbol != "" {
			cleaned = append(cleaned, symbol)
		}
	}
	return cleaned
}

func setLogger(level slog.Level) {
	// set global logger with custom options
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.DateTime,
		}),
	))
}

func loadConfig(config any) error {
	// Ignore error if .env is missing
	err := godotenv.Load()

	if err != nil && !os.IsNotExist(err) {
		return err
	}

	// Parse for built-in types
	if err := env.Parse(config); err != nil {
		return err
	}

	return nil
}
