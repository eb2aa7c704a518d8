package groups

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestNewLimiter(t *testing.T) {
	assert.Equal(t, rate.Inf, newLimiter(0).Limit())
	assert.Equal(t, rate.Inf, newLimiter(-1).Limit())

	l := newLimiter(2.5)
	assert.Equal(t, rate.Limit(2.5), l.Limit())
	assert.Equal(t, 1, l.Burst())
}

func TestKeyTransport_DoesNotModifyCallerRequest(t *testing.T) {
	var gotKey, gotOther string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("key")
		gotOther = r.URL.Query().Get("view")
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	rt := &keyTransport{
		base:    http.DefaultTransport,
		apiKey:  "k1",
		limiter: newLimiter(0),
		logger:  slog.New(slog.DiscardHandler),
	}
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/v1/groups?view=BASIC", nil)
	require.NoError(t, err)

	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, "k1", gotKey)
	assert.Equal(t, "BASIC", gotOther)
	assert.Equal(t, "view=BASIC", req.URL.RawQuery)
}
