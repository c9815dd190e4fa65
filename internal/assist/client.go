package assist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"emindy/internal/catalog"
	"emindy/internal/config"
	"emindy/internal/logging"
	"emindy/internal/store"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	userAgent          = "eMINDy-Go/0.1.0"
	maxErrorBody       = 4 << 10
)

// Nonce actions understood by the server.
const (
	ActionSign  = "sign"
	ActionEmail = "email"
)

var (
	// ErrRateLimited is returned when the server refuses an email because the
	// requester is over the limit.
	ErrRateLimited = errors.New("too many requests")
	// ErrRequestFailed wraps every other unsuccessful response.
	ErrRequestFailed = errors.New("request failed")
)

// StatusError carries the HTTP status and server message of a failed call.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned http %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned http %d: %s", e.StatusCode, e.Message)
}

// Config captures how to reach the server.
type Config struct {
	ServerURL      string
	TimeoutSeconds int
}

// ConfigFrom extracts client settings from the application config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{ServerURL: cfg.Client.ServerURL, TimeoutSeconds: cfg.Client.TimeoutSeconds}
}

// Client calls the eMINDy server.
type Client struct {
	base       *url.URL
	httpClient *http.Client
	logger     *slog.Logger

	mu     sync.Mutex
	nonces map[string]string
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client. A cookie jar is added
// when the client has none.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger sets the logger used for dropped analytics events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "assist")
	}
}

// New constructs a Client.
func New(cfg Config, opts ...Option) (*Client, error) {
	raw := strings.TrimRight(strings.TrimSpace(cfg.ServerURL), "/")
	base, err := url.Parse(raw)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid server url %q", cfg.ServerURL)
	}
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	c := &Client{
		base:       base,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewComponentLogger(nil, "assist"),
		nonces:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		c.httpClient.Jar = jar
	}
	return c, nil
}

// Nonce returns a nonce for action, fetching one on first use.
func (c *Client) Nonce(ctx context.Context, action string) (string, error) {
	c.mu.Lock()
	cached, ok := c.nonces[action]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	var resp struct {
		Nonce string `json:"nonce"`
	}
	query := url.Values{"action": []string{action}}
	if err := c.do(ctx, http.MethodGet, "/api/nonce?"+query.Encode(), nil, &resp); err != nil {
		return "", fmt.Errorf("fetch nonce: %w", err)
	}
	if resp.Nonce == "" {
		return "", fmt.Errorf("fetch nonce: %w: empty nonce", ErrRequestFailed)
	}
	c.mu.Lock()
	c.nonces[action] = resp.Nonce
	c.mu.Unlock()
	return resp.Nonce, nil
}

func (c *Client) forgetNonce(action string) {
	c.mu.Lock()
	delete(c.nonces, action)
	c.mu.Unlock()
}

// SignURL asks the server for a signed result link.
func (c *Client) SignURL(ctx context.Context, kind string, score int) (string, error) {
	var resp struct {
		URL string `json:"url"`
	}
	err := c.withNonce(ctx, ActionSign, func(nonce string) error {
		body := map[string]any{"type": kind, "score": score, "nonce": nonce}
		return c.do(ctx, http.MethodPost, "/api/sign", body, &resp)
	})
	if err != nil {
		return "", err
	}
	return resp.URL, nil
}

// EmailSummary asks the server to email summary to address.
func (c *Client) EmailSummary(ctx context.Context, kind, summary, address string) error {
	return c.withNonce(ctx, ActionEmail, func(nonce string) error {
		body := map[string]any{"kind": kind, "summary": summary, "email": address, "nonce": nonce}
		return c.do(ctx, http.MethodPost, "/api/email", body, nil)
	})
}

// Track sends an analytics event. Failures are logged and dropped.
func (c *Client) Track(ctx context.Context, event, label, entityID string) {
	body := map[string]any{"event": event, "label": label, "entity": entityID}
	if err := c.do(ctx, http.MethodPost, "/api/track", body, nil); err != nil {
		c.logger.Debug("analytics event dropped",
			logging.String("event", event),
			logging.Error(err))
	}
}

// Practices lists the server's practice catalog.
func (c *Client) Practices(ctx context.Context) ([]catalog.Practice, error) {
	var resp struct {
		Practices []catalog.Practice `json:"practices"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/practices", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Practices, nil
}

// Practice fetches one practice with its normalized steps.
func (c *Client) Practice(ctx context.Context, id string) (catalog.Practice, error) {
	var practice catalog.Practice
	if err := c.do(ctx, http.MethodGet, "/api/practices/"+url.PathEscape(id), nil, &practice); err != nil {
		return catalog.Practice{}, err
	}
	return practice, nil
}

// Stats returns analytics counts, limited to the trailing since window when
// it is positive. token is sent as a bearer token when set.
func (c *Client) Stats(ctx context.Context, token string, since time.Duration) ([]store.EventCount, error) {
	query := url.Values{}
	if since > 0 {
		query.Set("since", since.String())
	}
	var resp statsResponse
	if err := c.stats(ctx, token, query, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

// RecentEvents returns up to limit of the newest analytics events.
func (c *Client) RecentEvents(ctx context.Context, token string, limit int) ([]store.Event, error) {
	if limit <= 0 {
		return nil, nil
	}
	var resp statsResponse
	if err := c.stats(ctx, token, url.Values{"recent": []string{strconv.Itoa(limit)}}, &resp); err != nil {
		return nil, err
	}
	return resp.Recent, nil
}

type statsResponse struct {
	Events []store.EventCount `json:"events"`
	Recent []store.Event      `json:"recent"`
}

func (c *Client) stats(ctx context.Context, token string, query url.Values, out *statsResponse) error {
	path := "/api/stats"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if token = strings.TrimSpace(token); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.send(req, out)
}

// withNonce runs call with a cached nonce, retrying once with a fresh nonce
// when the server rejects the cached one.
func (c *Client) withNonce(ctx context.Context, action string, call func(nonce string) error) error {
	for attempt := 0; attempt < 2; attempt++ {
		nonce, err := c.Nonce(ctx, action)
		if err != nil {
			return err
		}
		err = call(nonce)
		var statusErr *StatusError
		if attempt == 0 && errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusForbidden {
			c.forgetNonce(action)
			continue
		}
		return err
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{StatusCode: resp.StatusCode, Message: readErrorMessage(resp.Body)}
		if resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%w: %w", ErrRateLimited, statusErr)
		}
		return fmt.Errorf("%w: %w", ErrRequestFailed, statusErr)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrRequestFailed, err)
	}
	return nil
}

func readErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil {
		return ""
	}
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(data))
}
