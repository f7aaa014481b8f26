package indicator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const alphaQueryPath = "/query"

// AlphaVantageOptions parameterise the equity quote client.
type AlphaVantageOptions struct {
	APIKey         string
	BaseURL        string
	Timeout        time.Duration
	RequestsPerMin int
}

// AlphaVantage fetches quotes and daily close series from Alpha Vantage.
// Requests are throttled to stay inside the free-tier quota; a burst beyond
// it would otherwise surface as a "Note" payload mid-cycle.
type AlphaVantage struct {
	opts    AlphaVantageOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
}

// NewAlphaVantage constructs an Alpha Vantage client.
func NewAlphaVantage(opts AlphaVantageOptions, logger zerolog.Logger) *AlphaVantage {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://www.alphavantage.co"
	}

	perMin := opts.RequestsPerMin
	if perMin <= 0 {
		perMin = 5
	}

	return &AlphaVantage{
		opts:    opts,
		logger:  logger.With().Str("component", "alphavantage_client").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), 1),
	}
}

func (a *AlphaVantage) request(ctx context.Context, params url.Values) (map[string]json.RawMessage, error) {
	if a.opts.APIKey == "" {
		return nil, fmt.Errorf("alphavantage api key not configured")
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params.Set("apikey", a.opts.APIKey)
	endpoint := a.baseURL + alphaQueryPath + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("alphavantage api error (%d)", resp.StatusCode)
	}

	var payload map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	if raw, ok := payload["Error Message"]; ok {
		return nil, fmt.Errorf("alphavantage error: %s", rawString(raw))
	}
	if raw, ok := payload["Note"]; ok {
		return nil, fmt.Errorf("alphavantage rate limit: %s", rawString(raw))
	}

	return payload, nil
}

// GlobalQuote returns the latest price for a symbol.
func (a *AlphaVantage) GlobalQuote(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("function", "GLOBAL_QUOTE")
	params.Set("symbol", symbol)

	payload, err := a.request(ctx, params)
	if err != nil {
		return 0, err
	}

	raw, ok := payload["Global Quote"]
	if !ok {
		return 0, fmt.Errorf("no quote data for %s", symbol)
	}

	var quote map[string]string
	if err := json.Unmarshal(raw, &quote); err != nil {
		return 0, err
	}

	priceStr, ok := quote["05. price"]
	if !ok || priceStr == "" {
		return 0, fmt.Errorf("no quote data for %s", symbol)
	}

	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		return 0, fmt.Errorf("parse quote price: %w", err)
	}
	return price, nil
}

// DailyCloses returns daily close prices for a symbol, newest first.
// outputSize is "compact" (100 points) or "full".
func (a *AlphaVantage) DailyCloses(ctx context.Context, symbol, outputSize string) ([]float64, error) {
	if outputSize == "" {
		outputSize = "compact"
	}

	params := url.Values{}
	params.Set("function", "TIME_SERIES_DAILY")
	params.Set("symbol", symbol)
	params.Set("outputsize", outputSize)

	payload, err := a.request(ctx, params)
	if err != nil {
		return nil, err
	}

	raw, ok := payload["Time Series (Daily)"]
	if !ok {
		return nil, fmt.Errorf("no daily time series for %s", symbol)
	}

	var series map[string]struct {
		Close string `json:"4. close"`
	}
	if err := json.Unmarshal(raw, &series); err != nil {
		return nil, err
	}

	dates := make([]string, 0, len(series))
	for date := range series {
		dates = append(dates, date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	closes := make([]float64, 0, len(dates))
	for _, date := range dates {
		value, err := strconv.ParseFloat(series[date].Close, 64)
		if err != nil {
			return nil, fmt.Errorf("parse close for %s: %w", date, err)
		}
		closes = append(closes, value)
	}
	return closes, nil
}

func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return string(raw)
	}
	return s
}
