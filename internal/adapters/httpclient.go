// DisasterFeed - Multi-Source Disaster and Safety Event Aggregator
// SPDX-License-Identifier: AGPL-3.0-or-later

package adapters

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
	"golang.org/x/time/rate"

	"disasterfeed/internal/logging"
)

// resilientClient wraps an http.Client with a circuit breaker and a fetch
// rate limiter, so a misbehaving upstream degrades this adapter's polling
// instead of hammering it or cascading failures into the worker pool.
type resilientClient struct {
	client  *http.Client
	cb      *gobreaker.CircuitBreaker[[]byte]
	limiter *rate.Limiter
	name    string
}

func newResilientClient(name string, timeout time.Duration) *resilientClient {
	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("adapter", name).Str("from", from.String()).Str("to", to.String()).
				Msg("adapter circuit breaker state change")
		},
	})

	return &resilientClient{
		client:  &http.Client{Timeout: timeout},
		cb:      cb,
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		name:    name,
	}
}

// get performs a rate-limited, circuit-breaker-guarded GET and returns the
// response body and the response headers (callers like the PEWS adapter
// need the Date/ST headers for clock-offset estimation).
func (c *resilientClient) get(ctx context.Context, url string) ([]byte, http.Header, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	var headers http.Header
	body, err := c.cb.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		headers = resp.Header
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("%s: unexpected status %d", url, resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	})
	return body, headers, err
}

// decodeIfEUCKR transcodes body to UTF-8 when it isn't already valid
// UTF-8. Several upstream Korean HTML/CSV sources omit a charset header
// and serve EUC-KR; callers that parse a response as text run it through
// this first. It must never be applied to the PEWS adapter's binary
// frames, which are not text at all.
func decodeIfEUCKR(body []byte) []byte {
	if utf8.Valid(body) {
		return body
	}
	decoded, _, err := transform.Bytes(korean.EUCKR.NewDecoder(), body)
	if err != nil {
		return body
	}
	return decoded
}
