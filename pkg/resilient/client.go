package resilient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"dinetrack/internal/apperrors"
)

const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 2
	DefaultRetryDelay = time.Second
)

// Client wraps outbound HTTP calls with a per-attempt timeout, a fixed
// number of retries with a fixed delay, and error classification into
// the shared taxonomy. Service names the logical destination (orders,
// menu, table-bill) so failures can be surfaced with service-specific
// messaging.
type Client struct {
	Service    string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	HTTPClient *http.Client
}

// Request describes a single logical call. Body, when non-nil, is
// JSON-encoded with Content-Type application/json.
type Request struct {
	Method string
	Path   string
	Query  string
	Body   interface{}
}

// Response carries the decoded outcome of a successful call. NoContent
// marks an explicit 204, distinct from a 200 with an empty body.
type Response struct {
	StatusCode int
	Body       []byte
	NoContent  bool
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v interface{}) error {
	if r.NoContent || len(r.Body) == 0 {
		return fmt.Errorf("no response body to decode")
	}
	return json.Unmarshal(r.Body, v)
}

func NewClient(service, baseURL string) *Client {
	return &Client{
		Service:    service,
		BaseURL:    baseURL,
		Timeout:    DefaultTimeout,
		MaxRetries: DefaultMaxRetries,
		RetryDelay: DefaultRetryDelay,
		HTTPClient: &http.Client{},
	}
}

// Do issues the request, retrying on 5xx, timeout and transport
// failures up to MaxRetries times. 4xx failures are never retried.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, apperrors.Timeout(c.Service, ctx.Err())
			case <-time.After(c.RetryDelay):
			}
		}

		resp, err := c.attempt(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !apperrors.Retryable(err) {
			return nil, err
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}

	return nil, apperrors.ServiceUnavailable(c.Service, lastErr)
}

func (c *Client) attempt(ctx context.Context, req Request) (*Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	var bodyReader io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, apperrors.ClientError(c.Service, "failed to encode request body: %v", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	url := c.BaseURL + req.Path
	if req.Query != "" {
		url += "?" + req.Query
	}

	httpReq, err := http.NewRequestWithContext(attemptCtx, req.Method, url, bodyReader)
	if err != nil {
		return nil, apperrors.ClientError(c.Service, "failed to create request: %v", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || attemptCtx.Err() == context.DeadlineExceeded {
			return nil, apperrors.Timeout(c.Service, err)
		}
		return nil, apperrors.ServiceUnavailable(c.Service, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, apperrors.ServiceUnavailable(c.Service, err)
	}

	switch {
	case httpResp.StatusCode == http.StatusNoContent:
		return &Response{StatusCode: httpResp.StatusCode, NoContent: true}, nil
	case httpResp.StatusCode >= 200 && httpResp.StatusCode < 300:
		return &Response{StatusCode: httpResp.StatusCode, Body: body}, nil
	case httpResp.StatusCode == http.StatusNotFound:
		return nil, apperrors.NotFound(c.Service, "%s", serverDetail(body, "resource not found"))
	case httpResp.StatusCode >= 400 && httpResp.StatusCode < 500:
		return nil, apperrors.ClientError(c.Service, "%s", serverDetail(body, httpResp.Status))
	default:
		return nil, apperrors.ServiceUnavailable(c.Service, fmt.Errorf("server returned %s", httpResp.Status))
	}
}

// serverDetail extracts the server-provided error message when present.
func serverDetail(body []byte, fallback string) string {
	var payload struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Detail != "" {
			return payload.Detail
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return fallback
}
