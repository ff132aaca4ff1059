package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecommerce-dashboard/internal/config"
	"ecommerce-dashboard/internal/filter"
	"ecommerce-dashboard/internal/services"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer() *Server {
	dashboard := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, "<html></html>")
	}
	return NewServer(services.NewAnalytics(), filter.DefaultSentinel, testLogger(), &TemplateHandlers{Dashboard: dashboard})
}

func TestServer_Route(t *testing.T) {
	srv := newTestServer()

	tests := []struct {
		method string
		path   string
		want   string
	}{
		{http.MethodGet, "/", "GET /{$}"},
		{http.MethodGet, "/api/report?start=2018-01-01", "GET /api/report"},
		{http.MethodGet, "/sse/refresh", "GET /sse/refresh"},
		{http.MethodGet, "/metrics", "GET /metrics"},
		{http.MethodGet, "/favicon.ico", "unmatched"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, srv.Route(httptest.NewRequest(tt.method, tt.path, nil)))
		})
	}
}

func TestServer_MethodNotAllowed(t *testing.T) {
	srv := newTestServer()

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/report", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestServer_EmptyDatasetStillServes(t *testing.T) {
	srv := newTestServer()

	for _, path := range []string{"/", "/api/filters", "/api/report", "/api/map", "/health"} {
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func testConfig() *config.Config {
	return &config.Config{Server: config.ServerConfig{ShutdownTimeout: 2 * time.Second}}
}

func TestGracefulServer_ShutdownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	httpServer := &http.Server{Handler: newTestServer()}
	gs := NewGracefulServer(httpServer, testLogger(), testConfig())

	var hookCalls atomic.Int32
	gs.RegisterShutdownHook(func(ctx context.Context) error {
		hookCalls.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- gs.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.Equal(t, int32(1), hookCalls.Load())
}

func TestGracefulServer_HookError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	gs := NewGracefulServer(&http.Server{Handler: http.NotFoundHandler()}, testLogger(), testConfig())
	hookErr := errors.New("flush failed")
	gs.RegisterShutdownHook(func(ctx context.Context) error { return hookErr })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, gs.Serve(ctx, ln), hookErr)
}

func TestGracefulServer_ListenError(t *testing.T) {
	gs := NewGracefulServer(&http.Server{Addr: "127.0.0.1:-1"}, testLogger(), testConfig())
	assert.Error(t, gs.ListenAndServe(context.Background()))
}
