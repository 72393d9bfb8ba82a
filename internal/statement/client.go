package statement

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"fjacquet/statement-ledger/internal/logging"
	"fjacquet/statement-ledger/internal/parsererror"
)

const (
	DefaultBaseURL = "http://localhost:8000"
	DefaultTimeout = 60 * time.Second

	maxErrorBody = 4096
)

// Client calls POST {baseURL}/parse on the statement-parsing service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retry      RetryConfig
	logger     logging.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithTimeout bounds each attempt.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.httpClient.Timeout = d }
}

func WithRetryConfig(cfg RetryConfig) Option {
	return func(cl *Client) { cl.retry = cfg }
}

func WithLogger(l logging.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		retry:      DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.OrDefault(c.logger)
	return c
}

type parseRequest struct {
	StoragePath string `json:"storage_path"`
	Year        int    `json:"year"`
}

// Parse asks the service to parse the file at storagePath. Every failure is returned as a
// *parsererror.UpstreamParseError.
func (c *Client) Parse(ctx context.Context, storagePath string, year int) (*Result, error) {
	body, err := json.Marshal(parseRequest{StoragePath: storagePath, Year: year})
	if err != nil {
		return nil, &parsererror.UpstreamParseError{Message: "encode request", Cause: err}
	}

	start := time.Now()
	result, err := WithRetry(ctx, c.retry, func(ctx context.Context, attempt int) (*Result, error) {
		if attempt > 0 {
			c.logger.Warn("Retrying statement parse",
				logging.F(logging.FieldAttempt, attempt),
				logging.F(logging.FieldPath, storagePath))
		}
		return c.do(ctx, body)
	})
	if err != nil {
		var upErr *parsererror.UpstreamParseError
		if !errors.As(err, &upErr) {
			err = &parsererror.UpstreamParseError{Message: "request aborted", Cause: err}
		}
		c.logger.WithError(err).Error("Statement parse failed", logging.F(logging.FieldPath, storagePath))
		return nil, err
	}

	c.logger.Info("Statement parsed",
		logging.F(logging.FieldPath, storagePath),
		logging.F(logging.FieldCount, len(result.Transactions)),
		logging.F(logging.FieldDuration, time.Since(start).Milliseconds()))
	return result, nil
}

func (c *Client) do(ctx context.Context, body []byte) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/parse", bytes.NewReader(body))
	if err != nil {
		return nil, &parsererror.UpstreamParseError{Message: "build request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &parsererror.UpstreamParseError{
			Message:   "request failed",
			Retryable: isTransient(ctx, err),
			Cause:     err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &parsererror.UpstreamParseError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(msg)),
			Retryable:  resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests,
		}
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &parsererror.UpstreamParseError{
			StatusCode: resp.StatusCode,
			Message:    "decode response",
			Cause:      err,
		}
	}
	return &result, nil
}

// isTransient reports whether a transport error is worth another attempt. Cancellation by
// the caller is not.
func isTransient(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
