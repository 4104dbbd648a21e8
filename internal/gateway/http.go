package gateway

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// jsonClient fetches JSON documents from a throttled public API.
type jsonClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      RetryPolicy
	logger     *slog.Logger
}

func newJSONClient(limit rate.Limit, burst int, retry RetryPolicy, logger *slog.Logger) *jsonClient {
	return &jsonClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(limit, burst),
		retry:      retry,
		logger:     logger,
	}
}

// getJSON decodes the document at url into v, retrying transient failures.
func (c *jsonClient) getJSON(ctx context.Context, url string, v any) error {
	return c.retry.Do(ctx, c.logger, "GET "+url, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return errors.Wrap(err, "rate limiter")
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return errors.Wrap(err, "could not build request")
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			_, _ = io.Copy(io.Discard, resp.Body)
			statusErr := &StatusError{URL: url, StatusCode: resp.StatusCode}
			if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
				statusErr.RetryAfter = time.Duration(secs) * time.Second
			}
			return statusErr
		}
		return errors.Wrapf(json.NewDecoder(resp.Body).Decode(v), "could not decode response from %s", url)
	})
}
