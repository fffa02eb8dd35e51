// Package unsplash implements imagesearch.Searcher on the Unsplash API.
package unsplash

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/papercomputeco/storyline/pkg/imagesearch"
)

const (
	DefaultBaseURL       = "https://api.unsplash.com"
	DefaultTimeout       = 10 * time.Second
	DefaultRatePerSecond = 1.0
	DefaultMaxRetries    = 2
	defaultRetryDelay    = 500 * time.Millisecond
)

// Config configures a Client. Zero values take the defaults above.
type Config struct {
	AccessKey     string
	BaseURL       string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
	MaxRetries    int
	RetryDelay    time.Duration
	HTTPClient    *http.Client

	// Clock decides when a spent quota resets. Defaults to time.Now.
	Clock func() time.Time
}

// Client searches Unsplash photos.
type Client struct {
	accessKey  string
	baseURL    string
	http       *http.Client
	limiter    *rateLimiter
	maxRetries int
	retryDelay time.Duration
}

var _ imagesearch.Searcher = (*Client)(nil)

type searchResponse struct {
	Total      int                  `json:"total"`
	TotalPages int                  `json:"total_pages"`
	Results    []imagesearch.Result `json:"results"`
}

// StatusError is a non-2xx Unsplash response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unsplash status %d: %s", e.Code, e.Body)
}

// New creates a Client. An empty access key is rejected; callers without a
// credential should not construct a searcher at all.
func New(cfg Config) (*Client, error) {
	if cfg.AccessKey == "" {
		return nil, errors.New("unsplash: access key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = DefaultRatePerSecond
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		accessKey:  cfg.AccessKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		http:       httpClient,
		limiter:    newRateLimiter(cfg.RatePerSecond, cfg.Burst, cfg.Clock),
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}, nil
}

// Search calls GET /search/photos, retrying rate-limit and server failures.
func (c *Client) Search(ctx context.Context, q imagesearch.Query) ([]imagesearch.Result, error) {
	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		results, err := c.search(ctx, q)
		if err == nil {
			return results, nil
		}
		lastErr = err
		if !retryable(err) || ctx.Err() != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) search(ctx context.Context, q imagesearch.Query) ([]imagesearch.Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("query", q.Text)
	perPage := q.PerPage
	if perPage <= 0 {
		perPage = 1
	}
	params.Set("per_page", strconv.Itoa(perPage))
	if q.Orientation != "" {
		params.Set("orientation", q.Orientation)
	}
	if q.ContentFilter != "" {
		params.Set("content_filter", q.ContentFilter)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search/photos?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create unsplash request: %w", err)
	}
	req.Header.Set("Authorization", "Client-ID "+c.accessKey)
	req.Header.Set("Accept-Version", "v1")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send unsplash request: %w", err)
	}
	defer resp.Body.Close()

	c.limiter.Update(resp)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode unsplash response: %w", err)
	}
	return out.Results, nil
}

// Remaining returns the last quota Unsplash reported, or -1 if unknown.
func (c *Client) Remaining() int {
	return c.limiter.Remaining()
}

func retryable(err error) bool {
	if errors.Is(err, imagesearch.ErrRateLimited) || errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	// Transport failures and per-request timeouts.
	return true
}
