package xlog_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/omeyang/xlockkit/pkg/observability/xlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobal_DefaultAndReplace(t *testing.T) {
	t.Cleanup(xlog.ResetDefault)

	first := xlog.Default()
	require.NotNil(t, first)
	assert.Same(t, first, xlog.Default(), "惰性创建后复用")

	var buf bytes.Buffer
	logger, _, err := xlog.New().SetOutput(&buf).SetLevel(xlog.LevelDebug).SetAddSource(true).Build()
	require.NoError(t, err)
	xlog.SetDefault(logger)
	xlog.SetDefault(nil)

	ctx := context.Background()
	xlog.Debug(ctx, "g-debug")
	xlog.Info(ctx, "g-info")
	xlog.Warn(ctx, "g-warn")
	xlog.Error(ctx, "g-error")
	xlog.Stack(ctx, "g-stack")

	out := buf.String()
	for _, want := range []string{"g-debug", "g-info", "g-warn", "g-error", "g-stack", "stack="} {
		assert.Contains(t, out, want)
	}
	assert.Contains(t, out, "global_test.go", "全局函数的 source 指向调用方")

	xlog.ResetDefault()
	assert.NotSame(t, logger, xlog.Default())
}

func TestDiscard(t *testing.T) {
	l := xlog.Discard()
	assert.False(t, l.Enabled(context.Background(), xlog.LevelError))
	assert.NotPanics(t, func() { l.Error(context.Background(), "dropped") })
}
