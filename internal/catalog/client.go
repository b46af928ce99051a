package catalog

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

	"github.com/cenkalti/backoff/v4"

	"github.com/JonMunkholm/watchlist/internal/core"
)

// DefaultBaseURL is the public TMDB v3 API.
const DefaultBaseURL = "https://api.themoviedb.org/3"

// DefaultMaxResults caps the candidates returned per search.
const DefaultMaxResults = 10

// Result represents a single TMDB search match.
type Result struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	Overview     string  `json:"overview"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	MediaType    string  `json:"media_type"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	Popularity   float64 `json:"popularity"`
}

// Response models the TMDB paginated search response.
type Response struct {
	Page         int      `json:"page"`
	Results      []Result `json:"results"`
	TotalPages   int      `json:"total_pages"`
	TotalResults int      `json:"total_results"`
}

// StatusError is returned for a non-200 response.
type StatusError struct {
	StatusCode int
	Endpoint   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("catalog %s returned %d", e.Endpoint, e.StatusCode)
}

// retryable reports whether the status is worth another attempt.
func (e *StatusError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client provides access to the TMDB search API.
type Client struct {
	apiKey     string
	baseURL    string
	language   string
	maxResults int
	maxRetries uint64
	httpClient *http.Client
	newBackOff func() backoff.BackOff
}

var _ core.CatalogSearcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLanguage sets the language of returned titles (for example "en-US").
func WithLanguage(language string) Option {
	return func(c *Client) {
		c.language = strings.TrimSpace(language)
	}
}

// WithMaxResults caps the candidates returned per search.
func WithMaxResults(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxResults = n
		}
	}
}

// WithRetries sets how many times a throttled or failed request is retried
// and the first wait between attempts.
func WithRetries(maxRetries int, initial time.Duration) Option {
	return func(c *Client) {
		if maxRetries < 0 {
			maxRetries = 0
		}
		c.maxRetries = uint64(maxRetries)
		c.newBackOff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			if initial > 0 {
				b.InitialInterval = initial
			}
			b.MaxElapsedTime = 0
			return b
		}
	}
}

// New creates a catalog client.
func New(apiKey, baseURL string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("catalog api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxResults: DefaultMaxResults,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	WithRetries(2, 250*time.Millisecond)(client)
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Search implements core.CatalogSearcher. A media kind hint selects the
// movie or TV endpoint with the year as a filter. Without a hint, a year
// searches both endpoints (movies first); no year falls back to the multi
// endpoint, dropping people.
func (c *Client) Search(ctx context.Context, q core.CatalogQuery) ([]core.CatalogResult, error) {
	var (
		resp *Response
		err  error
	)
	year := 0
	if q.Year != nil {
		year = *q.Year
	}

	switch q.MediaKind {
	case core.MediaMovie:
		resp, err = c.SearchMovie(ctx, q.Title, year)
	case core.MediaTV:
		resp, err = c.SearchTV(ctx, q.Title, year)
	default:
		if year > 0 {
			return c.searchBothByYear(ctx, q.Title, year)
		}
		resp, err = c.SearchMulti(ctx, q.Title)
	}
	if err != nil {
		return nil, err
	}

	return c.toResults(resp, q.MediaKind), nil
}

// searchBothByYear runs year-filtered movie and TV searches and concatenates
// them in catalog order. The multi endpoint has no year filter.
func (c *Client) searchBothByYear(ctx context.Context, title string, year int) ([]core.CatalogResult, error) {
	movies, err := c.SearchMovie(ctx, title, year)
	if err != nil {
		return nil, err
	}
	shows, err := c.SearchTV(ctx, title, year)
	if err != nil {
		return nil, err
	}

	out := c.toResults(movies, core.MediaMovie)
	for _, r := range c.toResults(shows, core.MediaTV) {
		if len(out) == c.maxResults {
			break
		}
		out = append(out, r)
	}
	return out, nil
}

// SearchMovie searches movies, filtered by primary release year when year > 0.
func (c *Client) SearchMovie(ctx context.Context, query string, year int) (*Response, error) {
	params := url.Values{}
	if year > 0 {
		params.Set("primary_release_year", strconv.Itoa(year))
	}
	return c.search(ctx, "/search/movie", query, params)
}

// SearchTV searches TV shows, filtered by first air year when year > 0.
func (c *Client) SearchTV(ctx context.Context, query string, year int) (*Response, error) {
	params := url.Values{}
	if year > 0 {
		params.Set("first_air_date_year", strconv.Itoa(year))
	}
	return c.search(ctx, "/search/tv", query, params)
}

// SearchMulti searches movies, TV and people in one request.
func (c *Client) SearchMulti(ctx context.Context, query string) (*Response, error) {
	return c.search(ctx, "/search/multi", query, url.Values{})
}

func (c *Client) search(ctx context.Context, path, query string, params url.Values) (*Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("parse catalog url: %w", err)
	}
	params.Set("query", query)
	params.Set("api_key", c.apiKey)
	params.Set("include_adult", "false")
	if c.language != "" {
		params.Set("language", c.language)
	}
	endpoint.RawQuery = params.Encode()

	var payload Response
	operation := func() error {
		return c.get(ctx, endpoint.String(), path, &payload)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return &payload, nil
}

// get performs one request. Errors that retrying cannot fix are wrapped
// as permanent.
func (c *Client) get(ctx context.Context, endpoint, path string, out *Response) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		statusErr := &StatusError{StatusCode: resp.StatusCode, Endpoint: path}
		if statusErr.retryable() {
			return statusErr
		}
		return backoff.Permanent(statusErr)
	}

	*out = Response{}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return backoff.Permanent(fmt.Errorf("decode catalog response: %w", err))
	}
	return nil
}

// toResults maps TMDB results to catalog results in catalog order. hint
// fills in the media kind for single-kind endpoints, which omit it.
func (c *Client) toResults(resp *Response, hint core.MediaKind) []core.CatalogResult {
	out := make([]core.CatalogResult, 0, min(len(resp.Results), c.maxResults))
	for _, r := range resp.Results {
		if len(out) == c.maxResults {
			break
		}

		kind := core.MediaKind(r.MediaType)
		if r.MediaType == "" {
			kind = hint
		}
		if !kind.Valid() || r.ID <= 0 {
			continue
		}

		title, date := r.Title, r.ReleaseDate
		if kind == core.MediaTV {
			title, date = r.Name, r.FirstAirDate
		}
		if title == "" {
			title = firstNonEmpty(r.Title, r.Name)
		}

		out = append(out, core.CatalogResult{
			CatalogID:   r.ID,
			MediaKind:   kind,
			Title:       title,
			Year:        yearOf(firstNonEmpty(date, r.ReleaseDate, r.FirstAirDate)),
			PosterRef:   r.PosterPath,
			BackdropRef: r.BackdropPath,
			Overview:    r.Overview,
		})
	}
	return out
}

// yearOf extracts the year from a YYYY-MM-DD date.
func yearOf(date string) *int {
	if len(date) < 4 {
		return nil
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil || y <= 0 {
		return nil
	}
	return &y
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
