package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Togather-Foundation/serendipity/internal/metrics"
	"github.com/Togather-Foundation/serendipity/internal/storage/memory"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthz(t *testing.T) {
	checker := NewHealthChecker(nil, "memory", "v1", "abc")
	rec := httptest.NewRecorder()
	checker.Healthz().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestReadyz(t *testing.T) {
	tests := []struct {
		name       string
		store      Pinger
		wantStatus int
		wantState  string
		wantCheck  string
	}{
		{name: "store reachable", store: memory.New(), wantStatus: http.StatusOK, wantState: "ready", wantCheck: "pass"},
		{name: "store down", store: pingFunc(func(context.Context) error { return errors.New("dial tcp: connection refused") }), wantStatus: http.StatusServiceUnavailable, wantState: "unavailable", wantCheck: "fail"},
		{name: "ping timeout", store: pingFunc(func(ctx context.Context) error { <-ctx.Done(); return ctx.Err() }), wantStatus: http.StatusServiceUnavailable, wantState: "unavailable", wantCheck: "fail"},
		{name: "no store", store: nil, wantStatus: http.StatusServiceUnavailable, wantState: "unavailable", wantCheck: "fail"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewHealthChecker(tt.store, "memory", "v1", "abc")
			ctx, cancel := context.WithCancel(context.Background())
			if tt.name == "ping timeout" {
				cancel()
			} else {
				defer cancel()
			}

			rec := httptest.NewRecorder()
			checker.Readyz().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil).WithContext(ctx))

			require.Equal(t, tt.wantStatus, rec.Code)
			body := decode[HealthCheck](t, rec)
			require.Equal(t, tt.wantState, body.Status)
			require.Equal(t, "v1", body.Version)
			require.Equal(t, tt.wantCheck, body.Checks["memory"].Status)

			want := 0.0
			if tt.wantCheck == "pass" {
				want = 1
			}
			require.Equal(t, want, testutil.ToFloat64(metrics.StoreUp))
		})
	}
}
