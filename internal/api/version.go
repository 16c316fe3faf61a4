package api

import (
	"encoding/json"
	"net/http"
	"runtime"
)

// BuildInfo is stamped into the binary with -ldflags.
type BuildInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
}

type versionResponse struct {
	BuildInfo
	GoVersion string `json:"go_version"`
}

// VersionHandler serves the build metadata as JSON. Empty fields fall back to
// "dev" and "unknown".
func VersionHandler(build BuildInfo) http.Handler {
	if build.Version == "" {
		build.Version = "dev"
	}
	if build.GitCommit == "" {
		build.GitCommit = "unknown"
	}
	if build.BuildDate == "" {
		build.BuildDate = "unknown"
	}
	body, _ := json.Marshal(versionResponse{BuildInfo: build, GoVersion: runtime.Version()})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	})
}
