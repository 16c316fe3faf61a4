package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	healthcheckCmd = &cobra.Command{
		Use:   "healthcheck",
		Short: "Check if the server is ready",
		Long: `Calls the /readyz endpoint of a running server.

Used as the container HEALTHCHECK. Exit codes:
  0 - server is ready
  1 - server is not ready or unreachable
  2 - invalid response from server`,
		RunE: runHealthcheck,
	}

	healthcheckTimeout time.Duration
	healthcheckURL     string
)

func init() {
	healthcheckCmd.Flags().DurationVar(&healthcheckTimeout, "timeout", 5*time.Second, "request timeout")
	healthcheckCmd.Flags().StringVar(&healthcheckURL, "url", "", "readiness URL (default: http://localhost:{SERVER_PORT}/readyz)")
}

// HealthResponse is the subset of the /readyz body the probe reads.
type HealthResponse struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks,omitempty"`
}

type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type healthResult struct {
	Ready     bool
	Status    string
	Invalid   bool
	Error     string
	LatencyMs int64
}

func runHealthcheck(cmd *cobra.Command, args []string) error {
	url := healthcheckURL
	if url == "" {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "5000"
		}
		url = fmt.Sprintf("http://localhost:%s/readyz", port)
	}

	result := performHealthCheck(cmd.Context(), url, healthcheckTimeout)
	if result.Ready {
		fmt.Fprintf(cmd.OutOrStdout(), "ready (%dms)\n", result.LatencyMs)
		return nil
	}

	if result.Error != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Health check failed: %s\n", result.Error)
	} else {
		fmt.Fprintf(cmd.ErrOrStderr(), "Server status: %s\n", result.Status)
	}
	if result.Invalid {
		os.Exit(2)
	}
	os.Exit(1)
	return nil
}

func performHealthCheck(ctx context.Context, url string, timeout time.Duration) healthResult {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return healthResult{Error: err.Error()}
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return healthResult{Error: err.Error(), LatencyMs: time.Since(start).Milliseconds()}
	}
	defer func() { _ = resp.Body.Close() }()

	result := healthResult{LatencyMs: time.Since(start).Milliseconds()}

	var body HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		result.Invalid = true
		result.Error = fmt.Sprintf("invalid response (status %d): %v", resp.StatusCode, err)
		return result
	}
	result.Status = body.Status
	result.Ready = resp.StatusCode == http.StatusOK && body.Status == "ready"
	return result
}
