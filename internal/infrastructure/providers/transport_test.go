package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/channelpilot/backend/internal/domain/integration"
)

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func getFactory(url string) func() (*http.Request, error) {
	return func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, url, nil)
	}
}

func TestDoWithRetry(t *testing.T) {
	client := &http.Client{Timeout: 5 * time.Second}

	t.Run("success passes body and headers through", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Link", `<https://next>; rel="next"`)
			fmt.Fprint(w, `{"ok": true}`)
		}))
		defer server.Close()

		body, header, err := doWithRetry(context.Background(), client, 0, getFactory(server.URL))
		require.NoError(t, err)
		assert.Equal(t, `{"ok": true}`, string(body))
		assert.Equal(t, `<https://next>; rel="next"`, header.Get("Link"))
	})

	t.Run("retries on 500 then succeeds", func(t *testing.T) {
		calls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls < 3 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			fmt.Fprint(w, "ok")
		}))
		defer server.Close()

		body, _, err := doWithRetry(context.Background(), client, 3, getFactory(server.URL))
		require.NoError(t, err)
		assert.Equal(t, "ok", string(body))
		assert.Equal(t, 3, calls)
	})

	t.Run("retries on 429", func(t *testing.T) {
		calls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		_, _, err := doWithRetry(context.Background(), client, 1, getFactory(server.URL))
		assert.ErrorIs(t, err, integration.ErrProviderRateLimited)
		assert.Equal(t, 2, calls)
	})

	t.Run("does not retry 401", func(t *testing.T) {
		calls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		_, _, err := doWithRetry(context.Background(), client, 3, getFactory(server.URL))
		assert.ErrorIs(t, err, integration.ErrProviderAuthFailed)
		assert.Equal(t, 1, calls)
	})

	t.Run("does not retry 404", func(t *testing.T) {
		calls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		_, _, err := doWithRetry(context.Background(), client, 3, getFactory(server.URL))
		assert.ErrorIs(t, err, integration.ErrProviderInvalidResponse)
		assert.Equal(t, 1, calls)
	})

	t.Run("request body replays on retry", func(t *testing.T) {
		var bodies []string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			buf := make([]byte, 64)
			n, _ := r.Body.Read(buf)
			bodies = append(bodies, string(buf[:n]))
			if len(bodies) < 2 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			fmt.Fprint(w, "ok")
		}))
		defer server.Close()

		_, _, err := doWithRetry(context.Background(), client, 2, func() (*http.Request, error) {
			return http.NewRequest(http.MethodPost, server.URL, strings.NewReader(`{"page": 1}`))
		})
		require.NoError(t, err)
		assert.Equal(t, []string{`{"page": 1}`, `{"page": 1}`}, bodies)
	})

	t.Run("cancelled context stops the backoff", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, _, err := doWithRetry(ctx, client, 5, getFactory(server.URL))
		assert.Error(t, err)
		assert.Less(t, time.Since(start), 2*time.Second)
	})
}
