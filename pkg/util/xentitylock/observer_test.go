package xentitylock_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/mock/gomock"

	"github.com/omeyang/xlockkit/pkg/context/xctx"
	"github.com/omeyang/xlockkit/pkg/observability/xlog"
	"github.com/omeyang/xlockkit/pkg/observability/xmetrics"
	"github.com/omeyang/xlockkit/pkg/observability/xmetrics/xmetricsmock"
	"github.com/omeyang/xlockkit/pkg/util/xentitylock"
)

func debugLogger(t *testing.T, buf *bytes.Buffer) xlog.Logger {
	t.Helper()
	logger, cleanup, err := xlog.New().
		SetOutput(buf).
		SetFormat(xlog.FormatJSON).
		SetLevel(xlog.LevelDebug).
		Build()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, cleanup()) })
	return logger
}

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		m := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestLogging_IgnoredUnlock(t *testing.T) {
	var buf bytes.Buffer
	l := xentitylock.New[string](xentitylock.WithLogger(debugLogger(t, &buf)), xentitylock.WithName("orders"))

	require.NoError(t, l.Lock(as(t, "a"), "order-1"))
	require.NoError(t, l.Unlock(as(t, "b"), "order-1"))

	lines := logLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "unlock ignored: caller is not the owner", lines[0]["msg"])
	assert.Equal(t, "DEBUG", lines[0]["level"])
	assert.Equal(t, "orders", lines[0][xlog.KeyComponent])
	assert.Equal(t, "order-1", lines[0][xlog.KeyLockKey])
	assert.Equal(t, "a", lines[0]["holder"])
	assert.Equal(t, "b", lines[0][xlog.KeyOwner], "调用方身份由 ctx 注入")
}

func TestLogging_Timeout(t *testing.T) {
	var buf bytes.Buffer
	l := xentitylock.New[string](xentitylock.WithLogger(debugLogger(t, &buf)))

	require.NoError(t, l.Lock(as(t, "a"), "k"))
	ok, err := l.TryLockTimeout(as(t, "b"), "k", 10*time.Millisecond)
	require.NoError(t, err)
	require.False(t, ok)

	lines := logLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "lock wait timed out", lines[0]["msg"])
	assert.Equal(t, "try_lock_timeout", lines[0][xlog.KeyOperation])
	assert.Equal(t, "xentitylock", lines[0][xlog.KeyComponent])
}

func TestLogging_ContendedAcquire(t *testing.T) {
	var buf bytes.Buffer
	l := xentitylock.New[string](xentitylock.WithLogger(debugLogger(t, &buf)))
	a := as(t, "a")

	require.NoError(t, l.Lock(a, "k"))
	done := make(chan error, 1)
	go func() { done <- l.Lock(as(t, "b"), "k") }()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, l.Unlock(a, "k"))
	require.NoError(t, <-done)

	lines := logLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "lock acquired after contention", lines[0]["msg"])
	assert.Equal(t, "lock", lines[0][xlog.KeyOperation])
	assert.EqualValues(t, 1, lines[0][xlog.KeyDepth])
}

func TestLogging_QuietOnUncontendedPath(t *testing.T) {
	var buf bytes.Buffer
	l := xentitylock.New[string](xentitylock.WithLogger(debugLogger(t, &buf)))
	ctx := as(t, "a")

	require.NoError(t, l.Lock(ctx, "k"))
	require.NoError(t, l.Lock(ctx, "k"))
	require.NoError(t, l.Unlock(ctx, "k"))
	require.NoError(t, l.Unlock(ctx, "k"))

	assert.Empty(t, buf.String())
}

func TestObserver_Mock(t *testing.T) {
	ctrl := gomock.NewController(t)
	obs := xmetricsmock.NewMockObserver(ctrl)
	span := xmetricsmock.NewMockSpan(ctrl)

	obs.EXPECT().
		Start(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, opts xmetrics.SpanOptions) (context.Context, xmetrics.Span) {
			assert.Equal(t, "xentitylock", opts.Component)
			assert.Equal(t, "lock", opts.Operation)
			assert.Contains(t, opts.Attrs, xmetrics.String(xlog.KeyLockKey, "k"))
			return ctx, span
		})
	span.EXPECT().
		End(gomock.Any()).
		Do(func(r xmetrics.Result) {
			assert.NoError(t, r.Err)
			assert.Empty(t, r.Status)
			assert.Contains(t, r.Attrs, xmetrics.Bool("acquired", true))
			assert.Contains(t, r.Attrs, xmetrics.Int64("depth", 1))
		})

	l := xentitylock.New[string](xentitylock.WithObserver(obs))
	require.NoError(t, l.Lock(as(t, "a"), "k"))

	// TryLock 与 Unlock 不开启跨度
	ok, err := l.TryLock(as(t, "a"), "k")
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, l.Unlock(as(t, "a"), "k"))
}

func TestObserver_MockTimeoutStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	obs := xmetricsmock.NewMockObserver(ctrl)
	span := xmetricsmock.NewMockSpan(ctrl)

	obs.EXPECT().Start(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ xmetrics.SpanOptions) (context.Context, xmetrics.Span) {
			return ctx, span
		}).Times(2)
	gomock.InOrder(
		span.EXPECT().End(gomock.Any()),
		span.EXPECT().End(gomock.Any()).Do(func(r xmetrics.Result) {
			assert.Equal(t, xmetrics.StatusTimeout, r.Status)
			assert.NoError(t, r.Err)
			assert.Contains(t, r.Attrs, xmetrics.Bool("acquired", false))
			assert.Contains(t, r.Attrs, xmetrics.Bool("waited", true))
		}),
	)

	l := xentitylock.New[string](xentitylock.WithObserver(obs))
	require.NoError(t, l.Lock(as(t, "a"), "k"))
	ok, err := l.TryLockTimeout(as(t, "b"), "k", 10*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestObserver_NotStartedOnPrecheckFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	obs := xmetricsmock.NewMockObserver(ctrl)

	l := xentitylock.New[*string](xentitylock.WithObserver(obs))
	assert.ErrorIs(t, l.Lock(as(t, "a"), nil), xentitylock.ErrNilKey)
	assert.ErrorIs(t, l.Lock(context.Background(), new(string)), xctx.ErrMissingOwner)

	cancelledCtx, cancel := context.WithCancel(as(t, "a"))
	cancel()
	_, err := l.TryLockTimeout(cancelledCtx, new(string), time.Second)
	assert.ErrorIs(t, err, xentitylock.ErrCancelled)

	ok, err := l.TryLockTimeout(as(t, "a"), new(string), 0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestObserver_OTel(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})

	obs, err := xmetrics.NewOTelObserver(xmetrics.WithTracerProvider(tp), xmetrics.WithMeterProvider(mp))
	require.NoError(t, err)

	l := xentitylock.New[string](xentitylock.WithObserver(obs))
	a := as(t, "a")
	require.NoError(t, l.Lock(a, "k"))
	ok, err := l.TryLockTimeout(as(t, "b"), "k", 5*time.Millisecond)
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, l.Unlock(a, "k"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "xentitylock.lock", spans[0].Name)
	assert.Equal(t, "xentitylock.try_lock_timeout", spans[1].Name)
	assert.Contains(t, spans[1].Attributes, attribute.String("status", "timeout"))
	assert.Contains(t, spans[1].Attributes, attribute.Bool("acquired", false))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != xmetrics.MetricOperationTotal {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	assert.Equal(t, int64(2), total)
}
