package cmd

import (
	"runtime"
	"strings"
	"testing"
)

func stampVersion(t *testing.T) {
	t.Helper()
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	t.Cleanup(func() {
		Version, GitCommit, BuildDate = origVersion, origCommit, origDate
		versionShort = false
	})
	Version = "1.2.0"
	GitCommit = "c0ffee1"
	BuildDate = "2026-10-01T08:00:00Z"
}

func TestVersionCommand(t *testing.T) {
	stampVersion(t)

	output, err := executeCommand(t, "version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}

	for _, want := range []string{
		"Serendipity server 1.2.0",
		"commit: c0ffee1",
		"built:  2026-10-01T08:00:00Z",
		runtime.Version(),
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, output)
		}
	}
}

func TestVersionCommandShort(t *testing.T) {
	stampVersion(t)

	output, err := executeCommand(t, "version", "--short")
	if err != nil {
		t.Fatalf("version --short failed: %v", err)
	}
	if output != "1.2.0\n" {
		t.Errorf("expected bare version, got %q", output)
	}
}
