package statement

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fjacquet/statement-ledger/internal/logging"
	"fjacquet/statement-ledger/internal/parsererror"
)

func fastRetry() RetryConfig {
	return RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffFactor: 2}
}

const okBody = `{
  "bank": "CIH",
  "beginning_balance": 1520.75,
  "transactions": [
    {"date": "2025-03-02", "description": "PAIEMENT PAR CARTE MARJANE", "amount": 245.5, "type": "debit", "merchant": "MARJANE"},
    {"date": "2025-03-05", "description": "VIREMENT RECU", "amount": 8000, "type": "credit", "merchant": null}
  ]
}`

func TestClient_Parse(t *testing.T) {
	var got parseRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/parse", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(okBody))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", WithRetryConfig(fastRetry()), WithLogger(logging.NewMockLogger()))
	res, err := c.Parse(context.Background(), "user1/1700000000_statement.pdf", 2025)
	require.NoError(t, err)

	assert.Equal(t, parseRequest{StoragePath: "user1/1700000000_statement.pdf", Year: 2025}, got)
	assert.Equal(t, "CIH", res.BankName())
	require.NotNil(t, res.BeginningBalance)
	assert.True(t, decimal.RequireFromString("1520.75").Equal(*res.BeginningBalance))
	require.Len(t, res.Transactions, 2)

	recs := res.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, "245.5", recs[0].Amount)
	assert.Equal(t, "MARJANE", recs[0].Merchant)
	assert.Equal(t, "", recs[1].Merchant)
	assert.Equal(t, "credit", recs[1].Type)
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantCalls     int32
		wantRetryable bool
	}{
		{name: "server error is retried", status: http.StatusBadGateway, body: "upstream down", wantCalls: 3, wantRetryable: true},
		{name: "client error is not retried", status: http.StatusUnprocessableEntity, body: "not a CIH statement", wantCalls: 1},
		{name: "bad json is not retried", status: http.StatusOK, body: "{not json", wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(srv.URL, WithRetryConfig(fastRetry()), WithLogger(logging.NewMockLogger()))
			_, err := c.Parse(context.Background(), "p", 2025)
			require.Error(t, err)
			assert.ErrorIs(t, err, parsererror.ErrUpstreamParseFailure)

			var upErr *parsererror.UpstreamParseError
			require.True(t, errors.As(err, &upErr))
			assert.Equal(t, tt.wantRetryable, upErr.IsRetryable())
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}

func TestClient_RecoversAfterTransientFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(okBody))
	}))
	defer srv.Close()

	logger := logging.NewMockLogger()
	c := NewClient(srv.URL, WithRetryConfig(fastRetry()), WithLogger(logger))
	res, err := c.Parse(context.Background(), "p", 2025)
	require.NoError(t, err)
	assert.Len(t, res.Transactions, 2)
	assert.Equal(t, int32(2), calls.Load())
	assert.True(t, logger.HasEntry("WARN", "Retrying statement parse"))
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	cfg := fastRetry()
	cfg.MaxRetries = 0
	c := NewClient(srv.URL, WithRetryConfig(cfg), WithTimeout(20*time.Millisecond), WithLogger(logging.NewMockLogger()))
	_, err := c.Parse(context.Background(), "p", 2025)
	require.Error(t, err)

	var upErr *parsererror.UpstreamParseError
	require.True(t, errors.As(err, &upErr))
	assert.True(t, upErr.IsRetryable())
}

func TestWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{MaxRetries: 5, InitialDelay: time.Hour, MaxDelay: time.Hour, BackoffFactor: 1}

	_, err := WithRetry(ctx, cfg, func(ctx context.Context, attempt int) (int, error) {
		cancel()
		return 0, &parsererror.UpstreamParseError{Message: "flaky", Retryable: true}
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResult_NilSafe(t *testing.T) {
	var r *Result
	assert.Nil(t, r.Records())
	assert.Equal(t, "", r.BankName())
}
