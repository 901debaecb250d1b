// internal/adapters/catalogapi/transport.go
package catalogapi

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

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/ammerola/sweetshop/internal/core/domain"
)

const (
	// RequestIDHeader carries the per-call correlation id.
	RequestIDHeader = "X-Request-ID"

	// Error bodies only carry a detail message.
	maxErrorBodyBytes = 64 << 10
)

// Config holds the catalog service connection settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// RateLimit is the sustained requests per second; zero disables limiting.
	RateLimit float64
	Burst     int

	// MaxResponseBytes caps a successful response body. Zero means no cap;
	// list responses embed inline images and grow with the catalog.
	MaxResponseBytes int64

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// transport is the JSON-over-HTTP plumbing shared by the catalog and auth
// clients.
type transport struct {
	baseURL *url.URL
	client  *http.Client
	limiter *rate.Limiter
	maxBody int64
	logger  *slog.Logger
}

func newTransport(cfg Config, logger *slog.Logger) (*transport, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("catalog base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid catalog base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid catalog base URL scheme %q", base.Scheme)
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &transport{
		baseURL: base,
		client:  client,
		limiter: limiter,
		maxBody: cfg.MaxResponseBytes,
		logger:  logger,
	}, nil
}

// call describes one request.
type call struct {
	op     domain.Operation
	method string
	path   string
	query  url.Values
	token  string
	body   any
}

// do performs c and decodes a successful response body into out, if given.
// Every failure is returned as a *domain.RequestError.
func (t *transport) do(ctx context.Context, c call, out any) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return &domain.RequestError{Op: c.op, Message: c.op.FallbackMessage(), Err: err}
	}

	req, err := t.newRequest(ctx, c)
	if err != nil {
		return &domain.RequestError{Op: c.op, Message: c.op.FallbackMessage(), Err: err}
	}
	requestID := req.Header.Get(RequestIDHeader)

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		t.logger.WarnContext(ctx, "catalog request failed",
			slog.String("request_id", requestID),
			slog.String("op", string(c.op)),
			slog.String("error", err.Error()))
		return &domain.RequestError{Op: c.op, Message: c.op.FallbackMessage(), Err: err}
	}
	defer resp.Body.Close()

	t.logger.DebugContext(ctx, "catalog request completed",
		slog.String("request_id", requestID),
		slog.String("op", string(c.op)),
		slog.String("method", c.method),
		slog.String("path", c.path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)))

	if resp.StatusCode >= http.StatusBadRequest {
		// A truncated error body only loses the detail; classify falls back.
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return classify(c.op, resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	return t.decode(ctx, c, resp, out)
}

// decode streams a successful body into out. When a cap is configured it
// reads one byte past it so an oversized body is reported rather than cut
// short.
func (t *transport) decode(ctx context.Context, c call, resp *http.Response, out any) error {
	body := &countingReader{r: resp.Body}
	if t.maxBody > 0 {
		body.r = io.LimitReader(resp.Body, t.maxBody+1)
	}

	err := json.NewDecoder(body).Decode(out)
	if t.maxBody > 0 && body.n > t.maxBody {
		t.logger.WarnContext(ctx, "catalog response exceeds limit",
			slog.String("op", string(c.op)),
			slog.Int64("limit", t.maxBody))
		return &domain.RequestError{
			Op:      c.op,
			Status:  resp.StatusCode,
			Message: c.op.FallbackMessage(),
			Err:     fmt.Errorf("%w: more than %d bytes", domain.ErrResponseTooLarge, t.maxBody),
		}
	}
	if errors.Is(err, io.EOF) {
		// Empty body.
		return nil
	}
	if err != nil {
		return &domain.RequestError{
			Op:      c.op,
			Status:  resp.StatusCode,
			Message: c.op.FallbackMessage(),
			Err:     fmt.Errorf("failed to decode response: %w", err),
		}
	}
	return nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func (t *transport) newRequest(ctx context.Context, c call) (*http.Request, error) {
	target := t.baseURL.JoinPath(c.path)
	if len(c.query) > 0 {
		target.RawQuery = c.query.Encode()
	}

	var body io.Reader
	if c.body != nil {
		payload, err := json.Marshal(c.body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, c.method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(RequestIDHeader, uuid.New().String())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// classify turns an error response into a RequestError whose message is the
// service's detail when it sent one.
func classify(op domain.Operation, status int, body []byte) *domain.RequestError {
	msg := errorDetail(body)
	if msg == "" {
		msg = op.FallbackMessage()
	}

	rerr := &domain.RequestError{Op: op, Status: status, Message: msg}
	switch {
	case status == http.StatusUnauthorized && op != domain.OpLogin && op != domain.OpRegister:
		rerr.Err = domain.ErrUnauthenticated
	case op == domain.OpPurchase && (status == http.StatusBadRequest || status == http.StatusConflict):
		// The stock bound the dialog snapshotted no longer holds.
		rerr.Stale = true
	}
	return rerr
}

type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

// errorDetail extracts the human-readable message from an error body. The
// detail field is either a string or a list of validation entries.
func errorDetail(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return ""
	}

	if len(eb.Detail) > 0 {
		var s string
		if err := json.Unmarshal(eb.Detail, &s); err == nil && strings.TrimSpace(s) != "" {
			return s
		}
		var entries []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(eb.Detail, &entries); err == nil {
			for _, e := range entries {
				if e.Msg != "" {
					return e.Msg
				}
			}
		}
	}
	if eb.Error != "" {
		return eb.Error
	}
	return eb.Message
}
