// Package gateway performs authenticated requests against the backend API.
//
// Every call fetches a fresh credential, stamps a request id and returns the
// raw response. Only two outcomes are interpreted here: a 401 becomes an
// auth error and a failure to obtain any response becomes a transport error.
// Everything else, non-2xx statuses included, is left to the caller.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"jobpilot/internal/auth"
	"jobpilot/internal/config"
	"jobpilot/internal/errors"
	"jobpilot/internal/observability"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// RequestIDHeader carries the per-call correlation id
const RequestIDHeader = "X-Request-ID"

// FilePart is a single file sent as multipart/form-data
type FilePart struct {
	Field       string
	Filename    string
	ContentType string
	Data        []byte
}

// Options describe one call
type Options struct {
	Method string
	Query  url.Values
	JSON   any
	File   *FilePart
}

// Response is an uninterpreted backend response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	RequestID  string
}

// OK reports a 2xx status
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode unmarshals the JSON body into v
func (r *Response) Decode(v any) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return errors.NewAPIError(errors.ErrCodeBadResponse, "empty response body", nil).
			WithContext("status", r.StatusCode)
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return errors.NewAPIError(errors.ErrCodeBadResponse, "malformed response body", err).
			WithContext("status", r.StatusCode)
	}
	return nil
}

// Gateway is the authenticated HTTP client for the backend
type Gateway struct {
	baseURL   string
	userAgent string
	maxBody   int64
	client    *http.Client
	creds     auth.Provider
	limiter   *rate.Limiter
	breaker   *Breaker
	metrics   *observability.Metrics
	logger    *errors.Logger
}

// Option customizes a Gateway
type Option func(*Gateway)

// WithHTTPClient replaces the HTTP client built from config
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) { g.client = c }
}

// WithMetrics records request counts on m
func WithMetrics(m *observability.Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// WithLogger sets the logger
func WithLogger(l *errors.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// WithTransport wraps the HTTP transport, e.g. with otelhttp instrumentation
func WithTransport(wrap func(http.RoundTripper) http.RoundTripper) Option {
	return func(g *Gateway) {
		g.client.Transport = wrap(g.client.Transport)
	}
}

// New builds a gateway from the backend configuration
func New(cfg config.BackendConfig, creds auth.Provider, opts ...Option) (*Gateway, error) {
	transport, err := newTransport(cfg.TLS)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "invalid backend TLS configuration", err)
	}

	g := &Gateway{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		maxBody:   cfg.MaxResponseBytes,
		client:    &http.Client{Timeout: cfg.Timeout, Transport: transport},
		creds:     creds,
	}
	if cfg.RateLimit.Enabled {
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), max(cfg.RateLimit.Burst, 1))
	}
	for _, opt := range opts {
		opt(g)
	}
	g.breaker = NewBreaker("backend", cfg.CircuitBreaker, g.logger)
	if g.maxBody <= 0 {
		g.maxBody = 8 << 20
	}
	return g, nil
}

// BaseURL returns the API base the gateway resolves endpoints against
func (g *Gateway) BaseURL() string { return g.baseURL }

// Breaker exposes the circuit breaker for diagnostics
func (g *Gateway) Breaker() *Breaker { return g.breaker }

// Call issues an authenticated request to endpoint, a path below the base URL
func (g *Gateway) Call(ctx context.Context, endpoint string, opts Options) (*Response, error) {
	token, err := g.creds.Token(ctx)
	if err != nil {
		if errors.IsType(err, errors.ErrorTypeAuth) {
			return nil, err
		}
		return nil, errors.NewAuthError(errors.ErrCodeMissingCredential, "failed to obtain credential", err)
	}

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, errors.NewTransportError(errors.ErrCodeRateLimited, "request not sent", err).
				WithContext("endpoint", endpoint)
		}
	}

	requestID := uuid.NewString()
	start := time.Now()

	resp, err := g.breaker.Execute(func() (*Response, error) {
		req, err := g.newRequest(ctx, endpoint, opts)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set(RequestIDHeader, requestID)
		return g.do(req, endpoint, requestID)
	})

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	g.metrics.RecordGatewayRequest(ctx, endpoint, status, err)
	g.logger.Debug("Backend call",
		"request_id", requestID,
		"method", methodOf(opts),
		"endpoint", endpoint,
		"status", status,
		"duration_ms", time.Since(start).Milliseconds())

	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, errors.NewAuthError(errors.ErrCodeUnauthorized, "backend rejected the credential", nil).
			WithContext("endpoint", endpoint).
			WithContext("request_id", requestID)
	}
	return resp, nil
}

func methodOf(opts Options) string {
	if opts.Method != "" {
		return opts.Method
	}
	if opts.JSON != nil || opts.File != nil {
		return http.MethodPost
	}
	return http.MethodGet
}

func (g *Gateway) newRequest(ctx context.Context, endpoint string, opts Options) (*http.Request, error) {
	target := g.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	if len(opts.Query) > 0 {
		target += "?" + opts.Query.Encode()
	}

	var body io.Reader
	contentType := ""
	switch {
	case opts.File != nil:
		buf, ct, err := encodeMultipart(opts.File)
		if err != nil {
			return nil, err
		}
		body, contentType = buf, ct
	case opts.JSON != nil:
		data, err := json.Marshal(opts.JSON)
		if err != nil {
			return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "cannot encode request body", err)
		}
		body, contentType = bytes.NewReader(data), "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, methodOf(opts), target, body)
	if err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "cannot build request", err).
			WithContext("endpoint", endpoint)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}
	return req, nil
}

func encodeMultipart(f *FilePart) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)

	field := f.Field
	if field == "" {
		field = "file"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, f.Filename))
	if f.ContentType != "" {
		h.Set("Content-Type", f.ContentType)
	} else {
		h.Set("Content-Type", "application/octet-stream")
	}

	part, err := mw.CreatePart(h)
	if err == nil {
		_, err = part.Write(f.Data)
	}
	if err == nil {
		err = mw.Close()
	}
	if err != nil {
		return nil, "", errors.NewIOError(errors.ErrCodeFileNotReadable, "cannot encode upload", err)
	}
	return buf, mw.FormDataContentType(), nil
}

func (g *Gateway) do(req *http.Request, endpoint, requestID string) (*Response, error) {
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, errors.NewTransportError(errors.ErrCodeRequestFailed, "backend unreachable", err).
			WithContext("endpoint", endpoint).
			WithContext("request_id", requestID)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, g.maxBody))
	if err != nil {
		return nil, errors.NewTransportError(errors.ErrCodeRequestFailed, "failed to read backend response", err).
			WithContext("endpoint", endpoint).
			WithContext("request_id", requestID)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		RequestID:  requestID,
	}, nil
}

// Download streams a generated document to w. Generated files are plain
// links on the files origin, so no credential is sent.
func (g *Gateway) Download(ctx context.Context, fileURL string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return 0, errors.NewValidationError(errors.ErrCodeInvalidRequest, "invalid download URL", err).
			WithContext("url", fileURL)
	}
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, errors.NewTransportError(errors.ErrCodeRequestFailed, "download failed", err).
			WithContext("url", fileURL)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, errors.NewAPIError(fmt.Sprint(resp.StatusCode), "download rejected by files origin", nil).
			WithContext("url", fileURL)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, errors.NewTransportError(errors.ErrCodeRequestFailed, "download interrupted", err).
			WithContext("url", fileURL)
	}
	return n, nil
}
