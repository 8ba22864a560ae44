// Package backend is the REST client for the interview-preparation API.
// Every call goes to one configured base URL.
package backend

import (
	"bytes"
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

	"github.com/prepmate/interview-client/internal/auth"
	"github.com/prepmate/interview-client/internal/config"
	"github.com/prepmate/interview-client/internal/observability"
	"github.com/prepmate/interview-client/internal/resilience"
	"github.com/rs/zerolog"
)

// Client calls the backend REST API
type Client struct {
	baseURL        string
	httpClient     *http.Client
	auth           auth.Store
	circuitBreaker *resilience.CircuitBreaker
	retry          *resilience.RetryConfig
	logger         zerolog.Logger
}

// NewClient creates a backend client. The HTTP client carries no timeout;
// callers bound requests through the context.
func NewClient(cfg *config.Config, store auth.Store) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.APIURL, "/"),
		httpClient: &http.Client{},
		auth:       store,
		circuitBreaker: resilience.NewCircuitBreaker(
			"backend",
			cfg.CircuitBreakerMaxFailures,
			time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
		),
		retry: &resilience.RetryConfig{
			MaxAttempts:       cfg.RetryMaxAttempts,
			InitialBackoff:    time.Duration(cfg.RetryInitialBackoff) * time.Millisecond,
			MaxBackoff:        5 * time.Second,
			BackoffMultiplier: 2.0,
			Jitter:            true,
		},
		logger: observability.WithComponent("backend"),
	}
}

// Login exchanges email and password for a token. The caller stores it.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", "/auth/login", false, req, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("login response did not include a token")
	}
	return &resp, nil
}

// Register creates an account
func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	return c.do(ctx, http.MethodPost, "/auth/register", "/auth/register", false, req, nil)
}

// CreateInterview asks the backend to generate questions for cfg
func (c *Client) CreateInterview(ctx context.Context, cfg InterviewConfig) (*CreateInterviewResponse, error) {
	var resp CreateInterviewResponse
	if err := c.do(ctx, http.MethodPost, "/interview/create", "/interview/create", true, cfg, &resp); err != nil {
		return nil, err
	}
	if resp.InterviewID == "" {
		return nil, fmt.Errorf("create interview response did not include an interviewId")
	}
	return &resp, nil
}

// History lists past interviews
func (c *Client) History(ctx context.Context) (*HistoryResponse, error) {
	var resp HistoryResponse
	if err := c.do(ctx, http.MethodGet, "/interview/history", "/interview/history", true, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, &RequestError{Method: http.MethodGet, Path: "/interview/history", Status: http.StatusOK, Message: resp.Error}
	}
	return &resp, nil
}

// Details fetches the scored answers of one interview
func (c *Client) Details(ctx context.Context, interviewID ID) (*InterviewDetails, error) {
	var resp InterviewDetails
	path := "/interview/" + url.PathEscape(interviewID.String()) + "/details"
	if err := c.do(ctx, http.MethodGet, path, "/interview/{id}/details", true, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CompleteInterview submits the answers of a finished interview
func (c *Client) CompleteInterview(ctx context.Context, req CompleteRequest) (*CompleteResponse, error) {
	var resp CompleteResponse
	if err := c.do(ctx, http.MethodPost, "/interview/complete", "/interview/complete", true, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RealtimeConfig fetches the transcription endpoint, sample rate and credential
func (c *Client) RealtimeConfig(ctx context.Context) (*RealtimeConfig, error) {
	var resp RealtimeConfig
	if err := c.do(ctx, http.MethodGet, "/transcription/realtime-config", "/transcription/realtime-config", true, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Ping checks that the backend answers at all; used by the readiness endpoint
func (c *Client) Ping(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	resp.Body.Close()
	return resp.StatusCode < 500, nil
}

// do sends one request. GETs are retried on transient failures; POSTs are sent once.
func (c *Client) do(ctx context.Context, method, path, endpoint string, authed bool, body, out any) error {
	var token string
	if authed {
		creds, err := auth.RequireSession(c.auth)
		if errors.Is(err, auth.ErrNoSession) {
			return ErrNotAuthenticated
		}
		if err != nil {
			return fmt.Errorf("failed to read stored credentials: %w", err)
		}
		token = creds.Token
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", endpoint, err)
		}
	}

	attempt := func(ctx context.Context) error {
		return c.circuitBreaker.CallIgnoring(func() error {
			return c.send(ctx, method, path, endpoint, token, payload, out)
		}, IsClientError)
	}

	var err error
	if method == http.MethodGet {
		err = resilience.Retry(ctx, c.retry, isRetryable, attempt)
	} else {
		err = attempt(ctx)
	}

	if errors.Is(err, ErrUnauthorized) {
		if clearErr := c.auth.Clear(); clearErr != nil {
			c.logger.Error().Err(clearErr).Msg("Failed to clear stored credentials")
		}
	}
	return err
}

func isRetryable(err error) bool {
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return false
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Temporary()
	}
	return resilience.IsRetryableNetworkError(err)
}

func (c *Client) send(ctx context.Context, method, path, endpoint, token string, payload []byte, out any) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", auth.AuthorizationHeader(token))
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		observability.RecordBackendRequest(endpoint, "error", time.Since(start))
		c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Backend request failed")
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	observability.RecordBackendRequest(endpoint, strconv.Itoa(resp.StatusCode), time.Since(start))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", endpoint, err)
	}

	if resp.StatusCode == http.StatusUnauthorized && token != "" {
		c.logger.Warn().Str("endpoint", endpoint).Msg("Backend rejected token")
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reqErr := &RequestError{
			Method:  method,
			Path:    endpoint,
			Status:  resp.StatusCode,
			Message: parseErrorMessage(resp.StatusCode, data),
		}
		c.logger.Warn().Int("status", resp.StatusCode).Str("endpoint", endpoint).Str("error", reqErr.Message).Msg("Backend returned error")
		return reqErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	return nil
}
