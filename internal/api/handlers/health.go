package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Togather-Foundation/serendipity/internal/metrics"
)

const storeCheckTimeout = 2 * time.Second

// Pinger is satisfied by storage.Store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthCheck is the readiness report.
type HealthCheck struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	GitCommit string                 `json:"git_commit"`
	Checks    map[string]CheckResult `json:"checks"`
	Timestamp string                 `json:"timestamp"`
}

type CheckResult struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
}

type HealthChecker struct {
	store     Pinger
	driver    string
	version   string
	gitCommit string
}

func NewHealthChecker(store Pinger, driver, version, gitCommit string) *HealthChecker {
	return &HealthChecker{store: store, driver: driver, version: version, gitCommit: gitCommit}
}

// Healthz is the liveness probe; it never touches the store.
func (h *HealthChecker) Healthz() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

// Readyz reports ready only when the store answers a ping in time.
func (h *HealthChecker) Readyz() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		check := h.checkStore(r.Context())

		status, code := "ready", http.StatusOK
		if check.Status != "pass" {
			status, code = "unavailable", http.StatusServiceUnavailable
			metrics.StoreUp.Set(0)
		} else {
			metrics.StoreUp.Set(1)
		}

		writeJSON(w, code, HealthCheck{
			Status:    status,
			Version:   h.version,
			GitCommit: h.gitCommit,
			Checks:    map[string]CheckResult{h.driver: check},
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	})
}

func (h *HealthChecker) checkStore(ctx context.Context) CheckResult {
	if h.store == nil {
		return CheckResult{Status: "fail", Message: "store not initialized"}
	}

	ctx, cancel := context.WithTimeout(ctx, storeCheckTimeout)
	defer cancel()

	start := time.Now()
	err := h.store.Ping(ctx)
	latency := time.Since(start).Milliseconds()

	switch {
	case err == nil:
		return CheckResult{Status: "pass", LatencyMs: latency}
	case errors.Is(err, context.DeadlineExceeded):
		return CheckResult{Status: "fail", Message: "store ping timed out", LatencyMs: latency}
	default:
		return CheckResult{Status: "fail", Message: "store ping failed", LatencyMs: latency}
	}
}
