// Package httputil holds HTTP helpers shared by the NCBI and backend clients.
package httputil

import (
	"context"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// RetryBaseDelay is the first backoff step after a 429. Tests shrink it.
var RetryBaseDelay = 2 * time.Second

const defaultMaxRetries = 4

// DoWithRetry executes req and retries on HTTP 429 with exponential backoff
// (RetryBaseDelay, doubled each attempt). E-utilities throttles clients that
// exceed three requests per second without an API key.
//
// maxRetries <= 0 selects the default. After the last attempt the 429
// response is returned unchanged so callers can report it. A cancelled
// context during backoff returns ctx.Err().
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	log := zerolog.Ctx(ctx)

	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusTooManyRequests || attempt >= maxRetries {
			return resp, nil
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		backoff := time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
		log.Debug().
			Str("url", req.URL.Redacted()).
			Dur("backoff", backoff).
			Int("attempt", attempt+1).
			Msg("rate limited, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}
