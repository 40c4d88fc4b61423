package xlog_test

import (
	"testing"

	"github.com/omeyang/xlockkit/pkg/observability/xlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want xlog.Level
	}{
		{"debug", xlog.LevelDebug},
		{" INFO ", xlog.LevelInfo},
		{"Warn", xlog.LevelWarn},
		{"warning", xlog.LevelWarn},
		{"error", xlog.LevelError},
	}
	for _, tt := range tests {
		got, err := xlog.ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := xlog.ParseLevel("trace")
	assert.Error(t, err)
}

func TestLevel_Text(t *testing.T) {
	assert.Equal(t, "DEBUG", xlog.LevelDebug.String())
	assert.Equal(t, "INFO+2", (xlog.LevelInfo + 2).String())

	b, err := xlog.LevelWarn.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "WARN", string(b))

	var l xlog.Level
	require.NoError(t, l.UnmarshalText([]byte("error")))
	assert.Equal(t, xlog.LevelError, l)
	assert.Error(t, l.UnmarshalText([]byte("nope")))
}
