package health

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheck(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, DefaultPath, r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	}))
	defer healthy.Close()

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer broken.Close()

	gone := httptest.NewServer(http.NotFoundHandler())
	goneURL := gone.URL
	gone.Close()

	ctx := context.Background()
	assert.Equal(t, Connected, NewChecker(healthy.URL+DefaultPath, 0, nil, logger).Check(ctx))
	assert.Equal(t, Unhealthy, NewChecker(broken.URL+DefaultPath, 0, nil, logger).Check(ctx))
	assert.Equal(t, Unreachable, NewChecker(goneURL+DefaultPath, 0, nil, logger).Check(ctx))
	assert.Equal(t, Unreachable, NewChecker("://bad", 0, nil, logger).Check(ctx))
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "connected", Connected.String())
	assert.Equal(t, "checking", Unknown.String())
}
