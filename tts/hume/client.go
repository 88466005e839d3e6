package hume

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the production API endpoint.
	DefaultBaseURL = "https://api.hume.ai"

	// DefaultTimeout bounds every request. Synthesis of a long utterance can
	// take tens of seconds, so this is deliberately generous.
	DefaultTimeout = 30 * time.Second

	// DefaultRequestsPerMinute is a conservative client-side rate limit.
	DefaultRequestsPerMinute = 50

	// DefaultPageSize is used when walking the full voice listing.
	DefaultPageSize = 100

	apiKeyHeader = "X-Hume-Api-Key"

	synthesisPath    = "/v0/tts"
	customVoicesPath = "/v0/evi/custom_voices"
	saveVoicePath    = "/v0/tts/voices"
)

// APIError is a non-2xx reply from the service. Both bodies are retained so
// callers can log exactly what was sent and what came back.
type APIError struct {
	Op           string
	StatusCode   int
	Status       string
	RequestBody  string
	ResponseBody string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hume: %s returned %s: %s", e.Op, e.Status, truncate(e.ResponseBody, 200))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Client is a minimal HTTP client for the Octave TTS API. It is safe for
// concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	logger     *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different endpoint. Used by tests and
// proxied deployments.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = base }
}

// WithHTTPClient replaces the underlying HTTP client entirely.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithRequestsPerMinute sets the client-side rate limit. Zero or negative
// disables limiting.
func WithRequestsPerMinute(rpm int) Option {
	return func(c *Client) {
		if rpm <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient builds a client authenticated with the given API key.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		limiter:    rate.NewLimiter(rate.Every(time.Minute/DefaultRequestsPerMinute), 1),
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Synthesize submits utterances for generation and returns the decoded
// response. On non-2xx the error is an *APIError.
func (c *Client) Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResponse, error) {
	data, err := c.do(ctx, http.MethodPost, synthesisPath, req)
	if err != nil {
		return nil, err
	}
	var resp SynthesisResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("hume: decode synthesis response: %w", err)
	}
	return &resp, nil
}

// CustomVoices fetches one page of the custom voice listing. Pages are
// numbered from zero.
func (c *Client) CustomVoices(ctx context.Context, pageNumber, pageSize int) (*CustomVoicesPage, error) {
	q := url.Values{}
	q.Set("page_number", strconv.Itoa(pageNumber))
	q.Set("page_size", strconv.Itoa(pageSize))
	data, err := c.do(ctx, http.MethodGet, customVoicesPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var page CustomVoicesPage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("hume: decode voice page: %w", err)
	}
	return &page, nil
}

// AllCustomVoices walks every page of the listing and returns the voices in
// service order.
func (c *Client) AllCustomVoices(ctx context.Context) ([]CustomVoice, error) {
	var all []CustomVoice
	for page := 0; ; page++ {
		p, err := c.CustomVoices(ctx, page, DefaultPageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, p.Voices...)
		if len(p.Voices) == 0 || page+1 >= p.TotalPages {
			break
		}
	}
	return all, nil
}

// SaveVoice names a previous generation, creating a reusable custom voice.
func (c *Client) SaveVoice(ctx context.Context, generationID, name string) (*SavedVoice, error) {
	data, err := c.do(ctx, http.MethodPost, saveVoicePath, saveVoiceRequest{
		GenerationID: generationID,
		Name:         name,
	})
	if err != nil {
		return nil, err
	}
	var saved SavedVoice
	if err := json.Unmarshal(data, &saved); err != nil {
		return nil, fmt.Errorf("hume: decode save voice response: %w", err)
	}
	return &saved, nil
}

// do runs one request against the API, honoring the rate limiter, and
// returns the raw response body.
func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("hume: rate limit wait cancelled: %w", err)
		}
	}

	var body []byte
	var reader io.Reader
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("hume: marshal request: %w", err)
		}
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("hume: build request: %w", err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hume: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("hume: read response: %w", err)
	}

	c.logger.Debug("api call",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"bytes", len(data),
		"elapsed", time.Since(start))

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &APIError{
			Op:           method + " " + path,
			StatusCode:   resp.StatusCode,
			Status:       resp.Status,
			RequestBody:  string(body),
			ResponseBody: string(data),
		}
	}
	return data, nil
}
