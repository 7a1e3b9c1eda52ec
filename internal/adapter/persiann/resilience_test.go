package persiann

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoWithRetry(t *testing.T) {
	tests := []struct {
		name     string
		backoff  BackoffConfig
		failures int32
		wantHits int32
		wantErr  bool
	}{
		{"first attempt succeeds", BackoffConfig{MaxRetries: 3, InitialInterval: time.Millisecond}, 0, 1, false},
		{"recovers within budget", BackoffConfig{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}, 2, 3, false},
		{"zero max interval holds initial delay", BackoffConfig{MaxRetries: 2, InitialInterval: time.Millisecond}, 2, 3, false},
		{"no retries", BackoffConfig{InitialInterval: time.Millisecond}, 1, 1, true},
		{"budget exhausted", BackoffConfig{MaxRetries: 1, InitialInterval: time.Millisecond}, 5, 2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				if hits.Add(1) <= tt.failures {
					w.WriteHeader(http.StatusBadGateway)
					return
				}
				w.WriteHeader(http.StatusOK)
			}))
			t.Cleanup(srv.Close)

			resp, err := doWithRetry(context.Background(), srv.Client(), newBreaker(), tt.backoff, srv.URL)
			if tt.wantErr {
				require.ErrorIs(t, err, errServerError)
			} else {
				require.NoError(t, err)
				resp.Body.Close()
			}
			assert.Equal(t, tt.wantHits, hits.Load())
		})
	}
}

func TestDoWithRetry_CancelledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := doWithRetry(ctx, srv.Client(), newBreaker(), BackoffConfig{MaxRetries: 3, InitialInterval: time.Minute}, srv.URL)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 10*time.Second)
}
