package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"cashbook/internal/log"
	"cashbook/internal/storage"
)

const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

type Config struct {
	// Ledger
	LedgerPath  string
	DataBackend string

	// Logging
	LogLevel  string
	LogFormat string

	// Exchange rates
	RateBaseURLs    []string
	RateCacheTTL    time.Duration
	RateHTTPTimeout time.Duration

	// Reports
	ReportConcurrency int

	// AMQP (optional, events are disabled without a URL)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets (optional)
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

func Load() *Config {
	return &Config{
		LedgerPath:  getEnv("CASHBOOK_LEDGER_PATH", "./data/cashbook.ledger"),
		DataBackend: getEnv("DATA_BACKEND", BackendSQLite),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		RateBaseURLs:    getEnvList("RATE_BASE_URLS", nil),
		RateCacheTTL:    getEnvDuration("RATE_CACHE_TTL", time.Hour),
		RateHTTPTimeout: getEnvDuration("RATE_HTTP_TIMEOUT", 0),

		ReportConcurrency: getEnvInt("REPORT_CONCURRENCY", 4),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "cashbook"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "entry_events"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Report"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
	}
}

// AMQPEnabled reports whether entry events should be published.
func (c *Config) AMQPEnabled() bool { return c.AMQPURL != "" }

// SheetsEnabled reports whether a spreadsheet is configured for exports.
func (c *Config) SheetsEnabled() bool { return c.GoogleSpreadsheetID != "" }

// Validate validates the configuration and returns every problem at once
func (c *Config) Validate() error {
	var errors []string

	validBackends := []string{BackendSQLite, BackendMemory}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == BackendSQLite {
		if c.LedgerPath == "" {
			errors = append(errors, "ledger path cannot be empty when using sqlite backend")
		} else if err := storage.ValidateLedgerPath(c.LedgerPath); err != nil {
			errors = append(errors, fmt.Sprintf("invalid ledger path: %v", err))
		}
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}
	if f := strings.ToLower(c.LogFormat); f != "text" && f != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	for _, raw := range c.RateBaseURLs {
		if u, err := url.Parse(raw); err != nil {
			errors = append(errors, fmt.Sprintf("invalid rate base URL '%s': %v", raw, err))
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid rate base URL scheme '%s': must be 'http' or 'https'", u.Scheme))
		}
	}
	if c.RateCacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid rate cache TTL %v: must be positive", c.RateCacheTTL))
	}
	if c.RateHTTPTimeout < 0 {
		errors = append(errors, fmt.Sprintf("invalid rate HTTP timeout %v: must not be negative", c.RateHTTPTimeout))
	}

	if c.ReportConcurrency < 1 {
		errors = append(errors, fmt.Sprintf("invalid report concurrency %d: must be at least 1", c.ReportConcurrency))
	} else if c.ReportConcurrency > 64 {
		errors = append(errors, fmt.Sprintf("invalid report concurrency %d: must be at most 64", c.ReportConcurrency))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.GoogleSpreadsheetID != "" {
		hasJSON := c.GoogleServiceAccountJSON != ""
		hasFile := c.GoogleServiceAccountFile != ""
		if !hasJSON && !hasFile {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided with GOOGLE_SPREADSHEET_ID")
		}
		if hasFile && !hasJSON {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated value, dropping empty items.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
