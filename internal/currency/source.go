package currency

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"cashbook/internal/core"
)

// DefaultBaseURLs are tried in order by HTTPRateSource when none are set.
var DefaultBaseURLs = []string{
	"https://cdn.jsdelivr.net/npm/@fawazahmed0/currency-api@latest/v1/currencies",
	"https://latest.currency-api.pages.dev/v1/currencies",
}

// RateTable holds every rate published for one base currency. Codes are
// uppercase.
type RateTable struct {
	Base  string
	Date  string
	Rates map[string]float64
}

// RateSource fetches the whole rate table for a base currency.
type RateSource interface {
	FetchRates(ctx context.Context, base string) (RateTable, error)
}

// HTTPRateSource reads rate tables published as
// <base-url>/<code>.json = {"date": "...", "<code>": {"<to>": rate, ...}}.
type HTTPRateSource struct {
	BaseURLs []string
	Client   *http.Client
}

var _ RateSource = (*HTTPRateSource)(nil)

// FetchRates tries each base URL in turn and returns the first table fetched
// and decoded successfully. When all fail the errors are joined.
func (s *HTTPRateSource) FetchRates(ctx context.Context, base string) (RateTable, error) {
	urls := s.BaseURLs
	if len(urls) == 0 {
		urls = DefaultBaseURLs
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	code := strings.ToLower(strings.TrimSpace(base))

	var errs []error
	for _, baseURL := range urls {
		addr := strings.TrimSuffix(baseURL, "/") + "/" + code + ".json"
		table, err := fetchTable(ctx, client, addr, code)
		if err == nil {
			return table, nil
		}
		slog.WarnContext(ctx, "Rate source failed, trying next", "url", addr, "error", err)
		errs = append(errs, err)
	}
	return RateTable{}, errors.Join(errs...)
}

func fetchTable(ctx context.Context, client *http.Client, addr, code string) (RateTable, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return RateTable{}, fmt.Errorf("%w: build request %s: %w", core.ErrNetwork, addr, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return RateTable{}, fmt.Errorf("%w: GET %s: %w", core.ErrNetwork, addr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return RateTable{}, fmt.Errorf("%w: GET %s: %s", core.ErrNetwork, addr, resp.Status)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return RateTable{}, fmt.Errorf("%w: read %s: %w", core.ErrNetwork, addr, err)
	}
	return decodeTable(buf.Bytes(), code)
}

func decodeTable(body []byte, code string) (RateTable, error) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return RateTable{}, fmt.Errorf("%w: decode rate table: %w", core.ErrJSON, err)
	}

	table := RateTable{Base: strings.ToUpper(code), Rates: map[string]float64{}}
	if raw, ok := payload["date"]; ok {
		if err := json.Unmarshal(raw, &table.Date); err != nil {
			return RateTable{}, fmt.Errorf("%w: decode date: %w", core.ErrJSON, err)
		}
	}

	raw, ok := payload[code]
	if !ok {
		return RateTable{}, fmt.Errorf("%w: rate table has no %q object", core.ErrJSON, code)
	}
	var rates map[string]float64
	if err := json.Unmarshal(raw, &rates); err != nil {
		return RateTable{}, fmt.Errorf("%w: decode %s rates: %w", core.ErrJSON, code, err)
	}
	for to, rate := range rates {
		table.Rates[strings.ToUpper(to)] = rate
	}
	return table, nil
}
