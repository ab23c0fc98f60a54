// Package cli provides common CLI initialization utilities shared by the
// cashbook commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"cashbook/internal/backend"
	"cashbook/internal/cache"
	"cashbook/internal/config"
	"cashbook/internal/currency"
	"cashbook/internal/log"
	"cashbook/internal/report"
	"cashbook/internal/sheets"

	"github.com/joho/godotenv"
)

// SetupLogger initializes structured logging from the configured level and
// format and installs it as the default logger. Records go to out.
func SetupLogger(cfg *config.Config, out io.Writer) (*log.Logger, error) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logCfg := log.DefaultConfig()
	logCfg.Level = level
	logCfg.Format = cfg.LogFormat
	logCfg.Component = log.ComponentCLI
	if out != nil {
		logCfg.Output = out
	}
	logger := log.New(logCfg)
	log.SetDefault(logger)
	return logger, nil
}

// LoadEnvFile loads the given .env files, or ./.env when none are named.
// Missing files are ignored since the environment may already be set.
func LoadEnvFile(files ...string) {
	_ = godotenv.Load(files...)
}

// LoadAndValidateConfig loads configuration and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OpenBackend opens the configured ledger. The caller owns the returned
// cleanup.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *log.Logger) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	return res, nil
}

// NewConverter builds a currency converter reading the configured rate
// endpoints through a TTL cache.
func NewConverter(cfg *config.Config) *currency.Converter {
	source := &currency.HTTPRateSource{
		BaseURLs: cfg.RateBaseURLs,
		Client:   &http.Client{Timeout: cfg.RateHTTPTimeout},
	}
	return currency.NewConverter(source, cache.NewRateCache(cfg.RateCacheTTL, nil))
}

// NewReportGenerator wires a generator over lister using the configured
// concurrency.
func NewReportGenerator(cfg *config.Config, lister report.Lister, converter report.Converter, logger *log.Logger) *report.Generator {
	return report.NewGenerator(lister, converter,
		report.WithConcurrency(cfg.ReportConcurrency),
		report.WithLogger(logger))
}

// NewSheetsClient returns a Sheets report writer, or an error when the
// spreadsheet export is not configured.
func NewSheetsClient(ctx context.Context, cfg *config.Config) (*sheets.Client, error) {
	if !cfg.SheetsEnabled() {
		return nil, fmt.Errorf("google sheets export is not configured: set GOOGLE_SPREADSHEET_ID")
	}
	return sheets.NewClient(ctx, sheets.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
