package moviedb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public API root.
const DefaultBaseURL = "https://api.themoviedb.org/3"

// Default request pacing. The public API allows roughly 40 requests per
// second; highlight changes come far slower than that.
const (
	defaultTimeout = 5 * time.Second
	defaultRate    = rate.Limit(4)
	defaultBurst   = 4
	maxErrorBody   = 512
)

var (
	// ErrNoAPIKey is returned by New when no API key is configured.
	ErrNoAPIKey = errors.New("moviedb: api key required")

	// ErrStatus is returned when the API answers with a non-200 status.
	ErrStatus = errors.New("moviedb: unexpected status")
)

// Movie is one search result.
type Movie struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	ReleaseDate string  `json:"release_date"`
	VoteAverage float64 `json:"vote_average"`
	VoteCount   int     `json:"vote_count"`
}

type searchResponse struct {
	Page         int     `json:"page"`
	Results      []Movie `json:"results"`
	TotalResults int     `json:"total_results"`
}

type errorResponse struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
}

// Config configures a Client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration

	// HTTPClient overrides the default client. Optional.
	HTTPClient *http.Client
}

// Client queries the movie database. It is safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
}

// New creates a Client.
//
// Parameters:
//   - cfg: API location and credentials; BaseURL defaults to DefaultBaseURL
//
// Returns:
//   - *Client: ready for use
//   - error: ErrNoAPIKey if cfg.APIKey is empty
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL: base,
		apiKey:  cfg.APIKey,
		http:    hc,
		limiter: rate.NewLimiter(defaultRate, defaultBurst),
	}, nil
}

// SearchMovie returns the movies matching title released in year, best
// match first. A year of zero or less searches all years.
func (c *Client) SearchMovie(ctx context.Context, title string, year int) ([]Movie, error) {
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("query", title)
	if year > 0 {
		params.Set("year", strconv.Itoa(year))
	}

	var resp searchResponse
	if err := c.get(ctx, "/search/movie", params, &resp); err != nil {
		return nil, fmt.Errorf("searching %q: %w", title, err)
	}
	return resp.Results, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	reqURL := c.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// Strip the URL from the error so the api key never reaches the logs.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var apiErr errorResponse
	if json.Unmarshal(body, &apiErr) == nil && apiErr.StatusMessage != "" {
		return fmt.Errorf("%w %d: %s", ErrStatus, resp.StatusCode, apiErr.StatusMessage)
	}
	return fmt.Errorf("%w %d", ErrStatus, resp.StatusCode)
}
