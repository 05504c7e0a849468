package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/dnldd/trendsignal/shared"
	"github.com/tidwall/gjson"
)

const (
	// BaseURL is the FMP stable API base url.
	BaseURL = "https://financialmodelingprep.com/stable"
	// defaultTimeout is the default http client timeout.
	defaultTimeout = time.Second * 10
)

// FMPConfig represents the configuration for the FMP client.
type FMPConfig struct {
	// APIkey is the FMP API Key.
	APIKey string
	// BaseURL is the FMP API base url.
	BaseURL string
	// Timeout is the http client timeout, defaults to ten seconds.
	Timeout time.Duration
}

// Validate asserts the config sane inputs.
func (cfg *FMPConfig) Validate() error {
	var errs error

	if cfg.APIKey == "" {
		errs = errors.Join(errs, fmt.Errorf("fmp api key cannot be an empty string"))
	}
	if cfg.BaseURL == "" {
		errs = errors.Join(errs, fmt.Errorf("fmp base url cannot be an empty string"))
	}
	if cfg.Timeout < 0 {
		errs = errors.Join(errs, fmt.Errorf("fmp timeout cannot be negative"))
	}

	return errs
}

// FMPClient represents the Financial Modeling Preparation (FMP) API client.
type FMPClient struct {
	cfg    *FMPConfig
	httpc  http.Client
	buf    *bytes.Buffer
	bufMtx sync.Mutex
}

// Ensure the FMPClient implements the MarketFetcher interface.
var _ shared.MarketFetcher = (*FMPClient)(nil)

// NewFMPClient instantiates a new FMP client.
func NewFMPClient(cfg *FMPConfig) (*FMPClient, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating fmp config: %w", err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &FMPClient{
		cfg:   cfg,
		httpc: http.Client{Timeout: timeout},
		buf:   bytes.NewBuffer(make([]byte, 0, 512)),
	}, nil
}

// formURL creates full urls including paramters for the api.
func (c *FMPClient) formURL(path string, params string) string {
	c.bufMtx.Lock()
	defer c.bufMtx.Unlock()

	c.buf.WriteString(c.cfg.BaseURL)
	c.buf.WriteString(path)
	c.buf.WriteString("?")
	c.buf.WriteString(params)
	url := c.buf.String()
	c.buf.Reset()

	return url
}

// FetchDailyHistorical fetches end of day historical market data. A zero end time fetches
// up to the latest available day.
func (c *FMPClient) FetchDailyHistorical(ctx context.Context, market string, start time.Time, end time.Time) ([]gjson.Result, error) {
	const dailyHistoricalPath = "/historical-price-eod/full"

	params := url.Values{}
	params.Add("symbol", market)
	params.Add("apikey", c.cfg.APIKey)
	params.Add("from", start.Format(shared.DateLayout))
	if !end.IsZero() {
		params.Add("to", end.Format(shared.DateLayout))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.formURL(dailyHistoricalPath, params.Encode()), nil)
	if err != nil {
		return nil, fmt.Errorf("creating daily historical data request for %s: %w", market, err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching daily historical data for %s: %w", market, err)
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status fetching daily historical data for %s: %d (%s)",
			market, resp.StatusCode, gjson.GetBytes(body, "Error Message").String())
	}

	res := gjson.ParseBytes(body)
	if !res.IsArray() {
		return nil, fmt.Errorf("unexpected daily historical data response for %s: %s", market, res.Raw)
	}

	return res.Array(), nil
}
