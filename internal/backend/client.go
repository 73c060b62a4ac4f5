package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rpggio/tasking/internal/auth"
	"github.com/rpggio/tasking/internal/domain/lookup"
	"github.com/rpggio/tasking/internal/domain/tasking"
	"github.com/rpggio/tasking/internal/domain/workspace"
	"golang.org/x/time/rate"
)

var (
	// ErrBackendStatus indicates a non-2xx response from the backend.
	ErrBackendStatus = errors.New("backend returned an error status")
	// ErrNotConfigured indicates a client without a base URL.
	ErrNotConfigured = errors.New("backend url not configured")
	// ErrResponseTooLarge indicates a response body over the client's limit.
	ErrResponseTooLarge = errors.New("backend response too large")
)

// StatusError describes a non-2xx backend response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *StatusError) Unwrap() error { return ErrBackendStatus }

const (
	maxErrorBody = 512
	// DefaultMaxResponseBytes caps response bodies when Options leaves it zero.
	DefaultMaxResponseBytes = 64 << 20
)

// Options configures a Client.
type Options struct {
	BaseURL string
	// Token is sent when the caller's context carries no bearer token.
	Token   string
	Timeout time.Duration
	// RatePerSecond limits outbound requests; zero disables limiting.
	RatePerSecond float64
	Burst         int
	// MaxResponseBytes caps response bodies; zero uses DefaultMaxResponseBytes.
	MaxResponseBytes int64
	HTTPClient       *http.Client
	Logger           *slog.Logger
}

// Client talks to the tasking backend over HTTP.
type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
	maxBody int64
}

// NewClient creates a backend client.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, ErrNotConfigured
	}
	base, err := url.Parse(strings.TrimSuffix(opts.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if opts.Timeout > 0 {
		clone := *httpClient
		clone.Timeout = opts.Timeout
		httpClient = &clone
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	maxBody := opts.MaxResponseBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxResponseBytes
	}

	return &Client{
		baseURL: base,
		token:   opts.Token,
		http:    httpClient,
		limiter: limiter,
		logger:  logger,
		maxBody: maxBody,
	}, nil
}

// FetchRecords downloads and decodes the record store of a view.
func (c *Client) FetchRecords(ctx context.Context, view workspace.ViewKind) (tasking.Store, []tasking.Warning, error) {
	data, err := c.do(ctx, http.MethodGet, "views/"+url.PathEscape(string(view))+"/records", nil)
	if err != nil {
		return nil, nil, err
	}
	return tasking.DecodeStore(data)
}

// FetchAssignees downloads the assignee options.
func (c *Client) FetchAssignees(ctx context.Context) ([]lookup.Option, error) {
	data, err := c.do(ctx, http.MethodGet, "assignees", nil)
	if err != nil {
		return nil, err
	}
	return DecodeOptions(data)
}

// FetchCategories downloads the category options.
func (c *Client) FetchCategories(ctx context.Context) ([]lookup.Option, error) {
	data, err := c.do(ctx, http.MethodGet, "categories", nil)
	if err != nil {
		return nil, err
	}
	return DecodeOptions(data)
}

// AssignTasks sends an assign-tasks payload.
func (c *Client) AssignTasks(ctx context.Context, payload tasking.TaskAssignments) error {
	_, err := c.do(ctx, http.MethodPost, "tasks/assign", payload)
	return err
}

// UpdatePriorities sends an update-priority payload.
func (c *Client) UpdatePriorities(ctx context.Context, payload tasking.PriorityUpdates) error {
	_, err := c.do(ctx, http.MethodPost, "images/priority", payload)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", path, err)
		}
		reader = bytes.NewReader(data)
	}

	endpoint := c.baseURL.ResolveReference(&url.URL{Path: path})
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.bearer(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}
	c.logger.Debug("backend call", "method", method, "path", path, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := truncateUTF8(strings.TrimSpace(string(data)), maxErrorBody)
		return nil, &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: snippet}
	}
	if int64(len(data)) > c.maxBody {
		return nil, fmt.Errorf("%w: %s %s over %d bytes", ErrResponseTooLarge, method, path, c.maxBody)
	}
	return data, nil
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func (c *Client) bearer(ctx context.Context) string {
	if token, ok := auth.TokenFromContext(ctx); ok {
		return token
	}
	return c.token
}
