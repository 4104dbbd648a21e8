package gateway

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/pkg/errors"
)

// RetryPolicy bounds the retries of transient API failures.
type RetryPolicy struct {
	Attempts   int
	Backoff    time.Duration
	MaxBackoff time.Duration
}

// DefaultRetryPolicy is used when no policy is configured.
var DefaultRetryPolicy = RetryPolicy{Attempts: 5, Backoff: 2 * time.Second, MaxBackoff: time.Minute}

// StatusError is returned for unexpected HTTP status codes.
type StatusError struct {
	URL        string
	StatusCode int
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return "unexpected status " + http.StatusText(e.StatusCode) + " from " + e.URL
}

// Do runs fn until it succeeds, fails with a permanent error, or the attempts
// are used up. Rate limit errors wait for the advertised reset, capped at MaxBackoff.
func (p RetryPolicy) Do(ctx context.Context, logger *slog.Logger, op string, fn func() error) error {
	attempts := max(p.Attempts, 1)
	backoff := p.Backoff
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		wait, ok := retryAfter(err, backoff)
		if !ok || attempt == attempts {
			break
		}
		if p.MaxBackoff > 0 && wait > p.MaxBackoff {
			wait = p.MaxBackoff
		}
		logger.Warn("retrying after transient error", "op", op, "attempt", attempt, "wait", wait, "err", err)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), op)
		}
		backoff = time.Duration(float64(backoff) * 1.5)
		if p.MaxBackoff > 0 && backoff > p.MaxBackoff {
			backoff = p.MaxBackoff
		}
	}
	return errors.Wrapf(err, "%s failed", op)
}

// retryAfter reports whether err is transient and how long to wait before retrying.
func retryAfter(err error, backoff time.Duration) (time.Duration, bool) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return max(time.Until(rateErr.Rate.Reset.Time), backoff), true
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		if d := abuseErr.GetRetryAfter(); d > 0 {
			return d, true
		}
		return backoff, true
	}
	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		return backoff, transientStatus(respErr.Response.StatusCode)
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if statusErr.RetryAfter > 0 {
			return statusErr.RetryAfter, transientStatus(statusErr.StatusCode)
		}
		return backoff, transientStatus(statusErr.StatusCode)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return backoff, true
	}
	return 0, false
}

func transientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
