package upbit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/leonid6372/upbit-paper/internal/common/domain"
)

const (
	DefaultBaseURL = "https://api.upbit.com"
	DefaultQuote   = "KRW"

	tickerPath  = "/v1/ticker"
	marketsPath = "/v1/market/all"
)

// ErrFetchFailed wraps every failure of a market data request.
var ErrFetchFailed = errors.New("upbit fetch failed")

type Client struct {
	http    *http.Client
	baseURL string
	quote   string
}

func NewClient(baseURL string, timeout time.Duration, quote string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	if quote == "" {
		quote = DefaultQuote
	}

	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		quote:   quote,
	}
}

// GetTickers returns the current ticker of every market in codes in one request.
// Upbit answers only for the markets it knows, so the result may be shorter than codes.
func (c *Client) GetTickers(ctx context.Context, codes []string) ([]*domain.Ticker, error) {
	if len(codes) == 0 {
		return nil, nil
	}

	q := url.Values{}
	q.Set("markets", strings.Join(codes, ","))

	var res []*tickerResponse
	if err := c.get(ctx, tickerPath+"?"+q.Encode(), &res); err != nil {
		return nil, err
	}

	capturedAt := time.Now()

	tickers := make([]*domain.Ticker, 0, len(res))
	for _, r := range res {
		if r == nil {
			continue
		}

		tickers = append(tickers, r.CreateDomain(capturedAt))
	}

	return tickers, nil
}

// GetMarkets lists the tradable markets of the configured quote currency.
func (c *Client) GetMarkets(ctx context.Context) ([]*domain.Market, error) {
	var res []*marketResponse
	if err := c.get(ctx, marketsPath, &res); err != nil {
		return nil, err
	}

	prefix := c.quote + "-"

	markets := make([]*domain.Market, 0, len(res))
	for _, r := range res {
		if r == nil || !strings.HasPrefix(r.Market, prefix) {
			continue
		}

		markets = append(markets, r.CreateDomain())
	}

	return markets, nil
}

func (c *Client) get(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: new request: %v", ErrFetchFailed, err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %w", ErrFetchFailed, err)
	}

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%w: http %d: %s", ErrFetchFailed, resp.StatusCode, string(data))
	}

	if err := sonic.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: decode: %w", ErrFetchFailed, err)
	}

	return nil
}
