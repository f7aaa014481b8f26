package indicator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const fredObservationsPath = "/fred/series/observations"

// FREDOptions parameterise the St. Louis Fed data client.
type FREDOptions struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Observation is the most recent value of one FRED series.
type Observation struct {
	Value float64
	Date  time.Time
}

// FREDClient fetches macro series from the FRED observations API.
type FREDClient struct {
	opts    FREDOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewFREDClient constructs a FRED client.
func NewFREDClient(opts FREDOptions, logger zerolog.Logger) *FREDClient {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.stlouisfed.org"
	}

	return &FREDClient{
		opts:    opts,
		logger:  logger.With().Str("component", "fred_client").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Latest retrieves the newest observation for a series. FRED publishes "."
// for holiday gaps; that is an error so the caller can apply its fallback.
func (f *FREDClient) Latest(ctx context.Context, seriesID string) (Observation, error) {
	if f.opts.APIKey == "" {
		return Observation{}, fmt.Errorf("fred api key not configured")
	}

	query := url.Values{}
	query.Set("series_id", seriesID)
	query.Set("api_key", f.opts.APIKey)
	query.Set("file_type", "json")
	query.Set("sort_order", "desc")
	query.Set("limit", "1")

	endpoint := f.baseURL + fredObservationsPath + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Observation{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return Observation{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Observation{}, fmt.Errorf("fred api error (%d) for series %s", resp.StatusCode, seriesID)
	}

	var payload struct {
		Observations []struct {
			Date  string `json:"date"`
			Value string `json:"value"`
		} `json:"observations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Observation{}, err
	}

	if len(payload.Observations) == 0 {
		return Observation{}, fmt.Errorf("no observations for fred series %s", seriesID)
	}

	obs := payload.Observations[0]
	value, err := strconv.ParseFloat(obs.Value, 64)
	if err != nil {
		return Observation{}, fmt.Errorf("non-numeric value %q for fred series %s", obs.Value, seriesID)
	}

	date, err := time.Parse("2006-01-02", obs.Date)
	if err != nil {
		date = time.Time{}
	}

	return Observation{Value: value, Date: date}, nil
}
