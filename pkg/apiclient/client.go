// Package apiclient performs authorized calls against the outbreak reporting
// backend. It is the single place where transport and status outcomes are
// classified: callers receive decoded bodies, an *domain.AuthError, or an
// *domain.RequestError, and never need their own classification logic.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/outbreak-reporting/report-client/internal/domain"
)

const (
	apiPrefix       = "/api"
	maxResponseSize = 10 << 20
	maxErrorDetail  = 512
)

// Response is a successful (2xx) backend reply
type Response struct {
	StatusCode int
	Body       []byte
	RequestID  string
}

// Client injects the bearer token held by the session store into every call.
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    domain.SessionStore
	timeout    time.Duration
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	logger     *logrus.Logger

	newRequestID   func() string
	missingURLOnce sync.Once
}

// Option customises a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRequestIDGenerator replaces the X-Request-ID generator
func WithRequestIDGenerator(gen func() string) Option {
	return func(c *Client) { c.newRequestID = gen }
}

// NewClient creates a client. A missing base URL does not fail construction;
// every call then returns a RequestError wrapping domain.ErrMissingBaseURL.
func NewClient(config domain.APIConfig, session domain.SessionStore, logger *logrus.Logger, opts ...Option) *Client {
	cb := config.CircuitBreaker
	if cb.MaxRequests == 0 {
		cb.MaxRequests = 3
	}
	if cb.Interval == 0 {
		cb.Interval = 30 * time.Second
	}
	if cb.Timeout == 0 {
		cb.Timeout = 30 * time.Second
	}
	if cb.FailureThreshold == 0 {
		cb.FailureThreshold = 5
	}

	limit := rate.Inf
	if config.RateLimit > 0 {
		limit = rate.Limit(config.RateLimit)
	}
	burst := config.Burst
	if burst <= 0 {
		burst = 1
	}

	c := &Client{
		baseURL:      strings.TrimRight(config.BaseURL, "/"),
		httpClient:   &http.Client{},
		session:      session,
		timeout:      config.Timeout,
		limiter:      rate.NewLimiter(limit, burst),
		logger:       logger,
		newRequestID: uuid.NewString,
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ReportsAPI",
		MaxRequests: cb.MaxRequests,
		Interval:    cb.Interval,
		Timeout:     cb.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cb.FailureThreshold
		},
		// Cancellation by the caller says nothing about backend health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"circuit_breaker": name,
				"from_state":      from.String(),
				"to_state":        to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get performs an authorized GET of an /api path and decodes the body into out.
func (c *Client) Get(ctx context.Context, path string, out interface{}) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

// Post performs an authorized POST of body to an /api path.
func (c *Client) Post(ctx context.Context, path string, body, out interface{}) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

// Put performs an authorized PUT of body to an /api path.
func (c *Client) Put(ctx context.Context, path string, body, out interface{}) (*Response, error) {
	return c.Do(ctx, http.MethodPut, path, body, out)
}

// Do performs one authorized request against an /api path. Only GET, POST
// and PUT are supported. body is JSON encoded when non-nil; out receives the
// decoded 2xx body when non-nil.
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}) (*Response, error) {
	// The token is read exactly once per call.
	token, _ := c.session.Get()

	method = strings.ToUpper(method)
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut:
	default:
		return nil, c.requestError(method, path, 0, "", fmt.Sprintf("unsupported method: %s", method), nil)
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, c.requestError(method, path, 0, "", "failed to encode request body", err)
		}
	}

	return c.send(ctx, outbound{
		method:      method,
		path:        path,
		url:         apiPrefix + path,
		contentType: "application/json",
		body:        payload,
		token:       token,
		authorized:  true,
	}, out)
}

type outbound struct {
	method      string
	path        string
	url         string
	contentType string
	body        []byte
	token       string
	authorized  bool
}

type rawResponse struct {
	status int
	body   []byte
}

// serverStatusError marks a 5xx reply so the circuit breaker counts it.
type serverStatusError struct {
	resp *rawResponse
}

func (e *serverStatusError) Error() string {
	return fmt.Sprintf("server returned status %d", e.resp.status)
}

func (c *Client) send(ctx context.Context, req outbound, out interface{}) (*Response, error) {
	requestID := c.newRequestID()
	log := c.logger.WithFields(logrus.Fields{
		"method":     req.method,
		"path":       req.path,
		"request_id": requestID,
	})

	if c.baseURL == "" {
		c.missingURLOnce.Do(func() {
			log.Error("Backend base URL is not configured; set REPORTS_API_URL")
		})
		return nil, c.requestError(req.method, req.path, 0, requestID, domain.ErrMissingBaseURL.Error(), domain.ErrMissingBaseURL)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, c.requestError(req.method, req.path, 0, requestID, "rate limit wait failed", err)
	}

	start := time.Now()
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.roundTrip(ctx, req, requestID)
	})
	duration := time.Since(start)

	if err != nil {
		var statusErr *serverStatusError
		switch {
		case errors.As(err, &statusErr):
			result = statusErr.resp
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			log.Warn("Backend circuit breaker is open")
			return nil, c.requestError(req.method, req.path, 0, requestID, "backend unavailable (circuit breaker open)", err)
		default:
			log.WithError(err).WithField("duration_ms", duration.Milliseconds()).Warn("Backend request failed")
			return nil, c.requestError(req.method, req.path, 0, requestID, transportMessage(err), err)
		}
	}

	raw := result.(*rawResponse)
	log = log.WithFields(logrus.Fields{
		"status":      raw.status,
		"duration_ms": duration.Milliseconds(),
	})

	switch {
	case raw.status == http.StatusUnauthorized || raw.status == http.StatusForbidden:
		if req.authorized {
			c.session.Clear()
		}
		log.Warn("Backend rejected credentials; session cleared")
		return nil, &domain.AuthError{
			StatusCode: raw.status,
			Method:     req.method,
			Path:       req.path,
			Message:    errorDetail(raw.body),
			RequestID:  requestID,
			Timestamp:  time.Now().UTC(),
		}
	case raw.status < 200 || raw.status > 299:
		log.Debug("Backend returned error status")
		return nil, c.requestError(req.method, req.path, raw.status, requestID, errorDetail(raw.body), nil)
	}

	log.Debug("Backend request completed")

	if out != nil && len(bytes.TrimSpace(raw.body)) > 0 {
		if err := json.Unmarshal(raw.body, out); err != nil {
			return nil, c.requestError(req.method, req.path, raw.status, requestID, "failed to decode response body", err)
		}
	}

	return &Response{StatusCode: raw.status, Body: raw.body, RequestID: requestID}, nil
}

func (c *Client) roundTrip(ctx context.Context, req outbound, requestID string) (*rawResponse, error) {
	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if req.body != nil {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if req.authorized && req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	raw := &rawResponse{status: resp.StatusCode, body: data}
	if resp.StatusCode >= 500 {
		return raw, &serverStatusError{resp: raw}
	}
	return raw, nil
}

func (c *Client) requestError(method, path string, status int, requestID, message string, cause error) *domain.RequestError {
	return &domain.RequestError{
		StatusCode: status,
		Method:     method,
		Path:       path,
		Message:    message,
		RequestID:  requestID,
		Timestamp:  time.Now().UTC(),
		Err:        cause,
	}
}

func transportMessage(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	case errors.Is(err, context.Canceled):
		return "request cancelled"
	default:
		return err.Error()
	}
}

// errorDetail extracts a readable message from an error body. The backend
// replies with either a bare JSON string or {"detail": ...}.
func errorDetail(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s
	}

	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err == nil && len(envelope.Detail) > 0 {
		if err := json.Unmarshal(envelope.Detail, &s); err == nil {
			return s
		}
		trimmed = envelope.Detail
	}

	if len(trimmed) > maxErrorDetail {
		return string(trimmed[:maxErrorDetail]) + "..."
	}
	return string(trimmed)
}

// BreakerState returns the current circuit breaker state
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}
