package mailchimp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/erauner12/listsync/internal/batchsync"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	// MaxRetries is the maximum number of retry attempts for rate limited requests
	MaxRetries = 3

	// DefaultBackoff is the initial backoff duration for exponential backoff
	DefaultBackoff = 1 * time.Second

	// DefaultRequestsPerSecond keeps well below the API's connection limit
	DefaultRequestsPerSecond = 5

	// maxArchiveBytes caps the size of a downloaded result archive
	maxArchiveBytes = 256 << 20
)

var _ batchsync.Transport = (*Client)(nil)

// Client talks to the Mailchimp Marketing API batch endpoints.
// Every request gets:
// - Authorization: Basic with the API key
// - X-Correlation-ID: <uuid>
//
// 429 Too Many Requests is retried with Retry-After or exponential backoff.
// Requests are throttled client-side by a token bucket.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a new API client.
// requestsPerSecond <= 0 selects DefaultRequestsPerSecond.
func NewClient(baseURL, apiKey string, requestsPerSecond float64) *Client {
	if requestsPerSecond <= 0 {
		requestsPerSecond = DefaultRequestsPerSecond
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

// BaseURLFromAPIKey derives the API root from the key's data center suffix
// ("<key>-us6" -> "https://us6.api.mailchimp.com/3.0")
func BaseURLFromAPIKey(apiKey string) (string, error) {
	i := strings.LastIndex(apiKey, "-")
	if i < 0 || i == len(apiKey)-1 {
		return "", ErrInvalidAPIKey
	}
	return fmt.Sprintf("https://%s.api.mailchimp.com/3.0", apiKey[i+1:]), nil
}

// batchOperation is the wire form of one operation; body is a JSON string
type batchOperation struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	OperationID string `json:"operation_id"`
	Body        string `json:"body,omitempty"`
}

type batchRequest struct {
	Operations []batchOperation `json:"operations"`
}

// SubmitBatch creates a batch with all operations in the given order
func (c *Client) SubmitBatch(ctx context.Context, ops []batchsync.Operation) (string, error) {
	wire := batchRequest{Operations: make([]batchOperation, 0, len(ops))}
	for _, op := range ops {
		bo := batchOperation{
			Method:      op.Method,
			Path:        "/" + strings.TrimLeft(op.Path, "/"),
			OperationID: op.ID,
		}
		if op.Body != nil {
			body, err := json.Marshal(op.Body)
			if err != nil {
				return "", fmt.Errorf("encode body of operation %s: %w", op.ID, err)
			}
			bo.Body = string(body)
		}
		wire.Operations = append(wire.Operations, bo)
	}

	payload, err := json.Marshal(wire)
	if err != nil {
		return "", fmt.Errorf("encode batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/batches", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var status batchsync.BatchStatus
	if err := c.doJSON(ctx, req, &status); err != nil {
		return "", err
	}
	if status.ID == "" {
		return "", fmt.Errorf("batch response without id")
	}
	return status.ID, nil
}

// CheckBatchStatus fetches the current state of a batch
func (c *Client) CheckBatchStatus(ctx context.Context, batchID string) (*batchsync.BatchStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/batches/"+batchID, nil)
	if err != nil {
		return nil, err
	}

	var status batchsync.BatchStatus
	if err := c.doJSON(ctx, req, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// FetchArchive downloads a result archive. The URL is pre-signed, so no
// credentials are sent.
func (c *Client) FetchArchive(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, req, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArchiveBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	if len(data) > maxArchiveBytes {
		return nil, fmt.Errorf("archive exceeds %d bytes", maxArchiveBytes)
	}
	return data, nil
}

// doJSON executes an authenticated request and decodes a 2xx JSON body into v
func (c *Client) doJSON(ctx context.Context, req *http.Request, v any) error {
	resp, err := c.do(ctx, req, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// do executes a request with correlation id, throttling and retry logic
func (c *Client) do(ctx context.Context, req *http.Request, authenticate bool) (*http.Response, error) {
	correlationID := uuid.New().String()

	logger := log.With().
		Str("method", req.Method).
		Str("url", req.URL.Redacted()).
		Str("correlationId", correlationID).
		Logger()

	return c.doWithRetry(ctx, req, &logger, correlationID, authenticate, 0)
}

func (c *Client) doWithRetry(ctx context.Context, req *http.Request, logger *zerolog.Logger, correlationID string, authenticate bool, retryCount int) (*http.Response, error) {
	// Clone request (body may need to be re-sent on retry)
	reqClone, err := cloneRequest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to clone request: %w", err)
	}

	reqClone.Header.Set("X-Correlation-ID", correlationID)
	if authenticate {
		reqClone.SetBasicAuth("listsync", c.apiKey)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(reqClone)
	duration := time.Since(start)

	if err != nil {
		logger.Error().Err(err).Dur("duration", duration).Msg("HTTP request failed")
		return nil, err
	}

	logger.Debug().
		Int("status", resp.StatusCode).
		Dur("duration", duration).
		Int("retryCount", retryCount).
		Msg("HTTP request completed")

	if resp.StatusCode == http.StatusTooManyRequests {
		return c.handleRateLimit(ctx, req, resp, logger, correlationID, authenticate, retryCount)
	}
	return resp, nil
}

// handleRateLimit handles 429 Too Many Requests with exponential backoff
func (c *Client) handleRateLimit(ctx context.Context, req *http.Request, resp *http.Response, logger *zerolog.Logger, correlationID string, authenticate bool, retryCount int) (*http.Response, error) {
	resp.Body.Close()

	retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))

	if retryCount >= MaxRetries {
		logger.Warn().Msg("Rate limited - max retries exceeded")
		return nil, ErrRateLimited{RetryAfter: int(retryAfter.Seconds())}
	}

	// Apply exponential backoff if no Retry-After header
	if retryAfter == 0 {
		retryAfter = DefaultBackoff * time.Duration(1<<retryCount)
	}

	logger.Warn().
		Dur("retryAfter", retryAfter).
		Int("retryCount", retryCount).
		Msg("Rate limited - backing off")

	timer := time.NewTimer(retryAfter)
	defer timer.Stop()
	select {
	case <-timer.C:
		return c.doWithRetry(ctx, req, logger, correlationID, authenticate, retryCount+1)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// checkStatus turns a non-2xx response into *APIError
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	if len(body) > 0 {
		_ = json.Unmarshal(body, apiErr)
		apiErr.StatusCode = resp.StatusCode
	}
	return apiErr
}

// cloneRequest creates a copy of an HTTP request for retry
// Preserves the request body by reading and restoring it
func cloneRequest(ctx context.Context, req *http.Request) (*http.Request, error) {
	var bodyBytes []byte
	if req.Body != nil {
		var err error
		bodyBytes, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body.Close()
		// Restore original request body
		req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	}

	var body io.Reader
	if bodyBytes != nil {
		body = bytes.NewReader(bodyBytes)
	}

	reqClone, err := http.NewRequestWithContext(ctx, req.Method, req.URL.String(), body)
	if err != nil {
		return nil, err
	}

	for k, v := range req.Header {
		if k == "Authorization" {
			continue // Re-injected per attempt
		}
		reqClone.Header[k] = v
	}

	return reqClone, nil
}

// parseRetryAfter parses the Retry-After header
// Supports both integer seconds and HTTP-date format
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(value); err == nil {
		duration := time.Until(t)
		if duration > 0 {
			return duration
		}
	}

	return 0
}
