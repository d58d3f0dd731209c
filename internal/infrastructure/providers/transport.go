package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/channelpilot/backend/internal/domain/integration"
)

// maxResponseSize is the maximum allowed provider response size (10MB)
const maxResponseSize = 10 * 1024 * 1024

// retryBaseDelay is the first backoff step; each retry doubles it
const retryBaseDelay = 500 * time.Millisecond

// doWithRetry performs an idempotent request with exponential backoff. The
// request is rebuilt per attempt so bodies replay correctly. Only transport
// failures, 429 and 5xx responses are retried; everything else surfaces
// immediately.
func doWithRetry(ctx context.Context, client *http.Client, maxRetries int, newReq func() (*http.Request, error)) ([]byte, http.Header, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay << (attempt - 1)
			// Jitter keeps synchronized workers from hammering in lockstep
			delay += time.Duration(rand.Int63n(int64(delay / 2)))
			select {
			case <-ctx.Done():
				return nil, nil, fmt.Errorf("%w: %v", integration.ErrProviderTimeout, ctx.Err())
			case <-time.After(delay):
			}
		}

		req, err := newReq()
		if err != nil {
			return nil, nil, err
		}
		body, header, retryable, err := doOnce(client, req.WithContext(ctx))
		if err == nil {
			return body, header, nil
		}
		lastErr = err
		if !retryable {
			return nil, nil, err
		}
	}
	return nil, nil, lastErr
}

// doOnce performs one request and classifies the outcome
func doOnce(client *http.Client, req *http.Request) (body []byte, header http.Header, retryable bool, err error) {
	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, nil, true, fmt.Errorf("%w: %v", integration.ErrProviderTimeout, err)
		}
		return nil, nil, true, fmt.Errorf("%w: %v", integration.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, nil, true, fmt.Errorf("%w: failed to read response: %v", integration.ErrProviderUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, nil, false, fmt.Errorf("%w: HTTP %d", integration.ErrProviderAuthFailed, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, nil, true, fmt.Errorf("%w: HTTP %d", integration.ErrProviderRateLimited, resp.StatusCode)
	case resp.StatusCode >= 500:
		return nil, nil, true, fmt.Errorf("%w: HTTP %d", integration.ErrProviderUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, nil, false, fmt.Errorf("%w: HTTP %d", integration.ErrProviderInvalidResponse, resp.StatusCode)
	}
	return body, resp.Header, false, nil
}
