package scraper

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/regwatch/internal/resilience"
)

// Fetcher retrieves raw source documents (feeds) over HTTP with a polite
// rate limit and bounded retry on transient failures.
type Fetcher struct {
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// NewFetcher creates a Fetcher. perSec caps outbound requests per second.
func NewFetcher(timeout time.Duration, perSec float64, userAgent string) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if perSec <= 0 {
		perSec = 1
	}
	return &Fetcher{
		http:      &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(rate.Limit(perSec), 1),
		userAgent: userAgent,
	}
}

// FetchText GETs a URL and returns the response body as text. Transient
// upstream statuses are retried; any other non-2xx fails the fetch.
func (f *Fetcher) FetchText(ctx context.Context, url string) (string, error) {
	cfg := resilience.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Second,
		OnRetry:        resilience.RetryLogger("fetcher", "get"),
	}

	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (string, error) {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", eris.Wrap(err, "fetcher: rate limit wait")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return "", eris.Wrap(err, "fetcher: create request")
		}
		if f.userAgent != "" {
			req.Header.Set("User-Agent", f.userAgent)
		}

		resp, err := f.http.Do(req)
		if err != nil {
			return "", eris.Wrapf(err, "fetcher: get %s", url)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", eris.Wrapf(err, "fetcher: read %s", url)
		}

		if resp.StatusCode != http.StatusOK {
			err := eris.Errorf("fetcher: status %d from %s", resp.StatusCode, url)
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return "", resilience.NewTransientError(err, resp.StatusCode)
			}
			return "", err
		}

		return string(body), nil
	})
}
