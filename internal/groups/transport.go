package groups

import (
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// keyTransport attaches the developer API key to every request, throttles
// outgoing calls and logs them at debug level.
type keyTransport struct {
	base    http.RoundTripper
	apiKey  string
	limiter *rate.Limiter
	logger  *slog.Logger
}

func (t *keyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}

	// RoundTrippers must not modify the caller's request.
	req = req.Clone(req.Context())
	if t.apiKey != "" {
		q := req.URL.Query()
		q.Set("key", t.apiKey)
		req.URL.RawQuery = q.Encode()
	}

	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		t.logger.Debug("request failed", "method", req.Method, "path", req.URL.Path, "error", err)
		return nil, err
	}
	t.logger.Debug("request",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)
	return resp, nil
}

func newLimiter(qps float64) *rate.Limiter {
	if qps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(qps), 1)
}
