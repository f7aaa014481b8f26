package indicator

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// peCellPattern matches the first value cell of the multpl monthly table,
// e.g. `<td class="col2">29.48`.
var peCellPattern = regexp.MustCompile(`<td class="col2">\s*([\d.]+)`)

// ValuationOptions parameterise the best-effort P/E scrape.
type ValuationOptions struct {
	URL       string
	Timeout   time.Duration
	UserAgent string
}

// ValuationScraper estimates the S&P 500 P/E ratio from a public table.
// There is no clean free API for this figure, so the scrape is best effort
// and callers are expected to fall back on failure.
type ValuationScraper struct {
	opts   ValuationOptions
	logger zerolog.Logger
	client *http.Client
}

// NewValuationScraper constructs a P/E scraper.
func NewValuationScraper(opts ValuationOptions, logger zerolog.Logger) *ValuationScraper {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	if opts.URL == "" {
		opts.URL = "https://www.multpl.com/s-p-500-pe-ratio/table/by-month"
	}

	return &ValuationScraper{
		opts:   opts,
		logger: logger.With().Str("component", "valuation_scraper").Logger(),
		client: &http.Client{Timeout: timeout},
	}
}

// ScrapePE returns the most recent monthly S&P 500 P/E ratio.
func (v *ValuationScraper) ScrapePE(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.opts.URL, nil)
	if err != nil {
		return 0, err
	}
	if v.opts.UserAgent != "" {
		req.Header.Set("User-Agent", v.opts.UserAgent)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("valuation fetch error (%d)", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, err
	}

	match := peCellPattern.FindSubmatch(body)
	if match == nil {
		return 0, fmt.Errorf("pe ratio not found in valuation page")
	}

	pe, err := strconv.ParseFloat(string(match[1]), 64)
	if err != nil {
		return 0, fmt.Errorf("parse pe ratio: %w", err)
	}

	v.logger.Debug().Float64("pe", pe).Msg("scraped valuation ratio")
	return pe, nil
}
