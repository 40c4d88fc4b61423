package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runArgs(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(context.Background(), append([]string{appName}, args...), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRun_Modes(t *testing.T) {
	for _, mode := range modes {
		t.Run(mode, func(t *testing.T) {
			code, out, errOut := runArgs(t, "run",
				"--workers", "4", "--keys", "2",
				"--duration", "100ms", "--hold", "50us", "--timeout", "2ms",
				"--mode", mode, "--report-interval", "0", "--log-level", "error")

			require.Equal(t, 0, code, errOut)
			assert.Contains(t, out, "mode:            "+mode)
			assert.Contains(t, out, "violations:      0")
			assert.Contains(t, out, "lock stats:")
		})
	}
}

func TestRun_ReentrantRecordsSpans(t *testing.T) {
	code, out, errOut := runArgs(t, "run", "-w", "3", "-k", "1", "-d", "100ms",
		"--reentrant", "--report-interval", "20ms", "--log-level", "warn")

	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "reentrant=true")
	assert.Contains(t, out, "violations:      0")
	assert.Contains(t, out, "otel lock/ok:")
}

func TestRun_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown_mode", []string{"run", "--mode", "spin"}},
		{"zero_workers", []string{"run", "--workers", "0"}},
		{"negative_keys", []string{"run", "--keys", "-1"}},
		{"bad_level", []string{"run", "--log-level", "loud"}},
		{"timed_without_timeout", []string{"run", "--mode", "timed", "--timeout", "0s"}},
		{"unknown_flag", []string{"run", "--bogus"}},
		{"bad_duration", []string{"run", "--duration", "soon"}},
		{"missing_config", []string{"run", "--config", "/nonexistent/bench.yaml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, errOut := runArgs(t, tt.args...)
			assert.Equal(t, 2, code)
			assert.Contains(t, errOut, "usage error")
		})
	}
}

func TestRun_ConfigFileWithFlagOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.yaml")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join([]string{
		"workers: 2",
		"keys: 3",
		"duration: 80ms",
		"mode: try",
		"report_interval: 0s",
		"log:",
		"  level: error",
	}, "\n")), 0o600))

	code, out, errOut := runArgs(t, "run", "--config", path, "--mode", "backoff")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "mode:            backoff")
	assert.Contains(t, out, "workers/keys:    2/3")
	assert.Contains(t, out, "retries:")
}

func TestRun_LogFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bench.json")
	logFile := filepath.Join(dir, "logs", "bench.log")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"duration": "50ms",
		"workers": 2,
		"report_interval": "0s",
		"log": {"level": "info", "format": "json", "file": "`+logFile+`", "rotate": {"max_size_mb": 1, "max_backups": 1}}
	}`), 0o600))

	code, _, errOut := runArgs(t, "run", "-c", path)
	require.Equal(t, 0, code, errOut)

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"bench started"`)
}

func TestRun_UnknownCommand(t *testing.T) {
	code, _, errOut := runArgs(t, "explode")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "explode")
}
