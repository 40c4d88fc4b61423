package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xlockkit/pkg/config/xconf"
	"github.com/omeyang/xlockkit/pkg/context/xctx"
	"github.com/omeyang/xlockkit/pkg/observability/xlog"
	"github.com/omeyang/xlockkit/pkg/util/xentitylock"
)

func newTestBench(t *testing.T, mutate func(*benchConfig)) *bench {
	t.Helper()
	cfg := defaultConfig()
	cfg.Keys = 1
	cfg.Hold = 0
	if mutate != nil {
		mutate(&cfg)
	}
	require.NoError(t, cfg.validate())
	return newBench(cfg, xentitylock.New[string](), xlog.Discard())
}

func ownerCtx(t *testing.T, owner string) context.Context {
	t.Helper()
	ctx, err := xctx.WithOwner(context.Background(), xctx.Owner(owner))
	require.NoError(t, err)
	return ctx
}

func TestBench_RoundReleasesEveryLevel(t *testing.T) {
	b := newTestBench(t, func(c *benchConfig) { c.Reentrant = true })
	ctx := ownerCtx(t, "w")

	require.NoError(t, b.round(ctx, 0))

	locked, err := b.locker.IsLocked(b.keys[0])
	require.NoError(t, err)
	assert.False(t, locked)

	c := b.counts.snapshot()
	assert.Equal(t, uint64(1), c.Acquired)
	assert.Zero(t, c.Violations)
	assert.Equal(t, uint64(2), b.locker.Stats().Releases)
}

func TestBench_RoundDetectsDoubleOccupancy(t *testing.T) {
	b := newTestBench(t, nil)
	b.occupancy[0].Store(1)

	require.NoError(t, b.round(ownerCtx(t, "w"), 0))
	assert.Equal(t, uint64(1), b.counts.snapshot().Violations)
}

func TestBench_TryModeRefused(t *testing.T) {
	b := newTestBench(t, func(c *benchConfig) { c.Mode = modeTry })
	require.NoError(t, b.locker.Lock(ownerCtx(t, "holder"), b.keys[0]))

	require.NoError(t, b.round(ownerCtx(t, "w"), 0))
	c := b.counts.snapshot()
	assert.Equal(t, uint64(1), c.Refused)
	assert.Zero(t, c.Acquired)
}

func TestBench_BackoffExhausted(t *testing.T) {
	b := newTestBench(t, func(c *benchConfig) {
		c.Mode = modeBackoff
		c.Backoff = backoffConfig{Attempts: 3, Delay: time.Microsecond, MaxDelay: time.Millisecond}
	})
	require.NoError(t, b.locker.Lock(ownerCtx(t, "holder"), b.keys[0]))

	ok, err := b.acquireWithBackoff(ownerCtx(t, "w"), b.keys[0])
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, uint64(3), b.locker.Stats().Contended, "每次尝试调用一次 TryLock")
	assert.GreaterOrEqual(t, b.counts.snapshot().Retries, uint64(2))
}

func TestBench_BackoffAcquiresAfterRelease(t *testing.T) {
	b := newTestBench(t, func(c *benchConfig) {
		c.Mode = modeBackoff
		c.Backoff = backoffConfig{Attempts: 50, Delay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	})
	holder := ownerCtx(t, "holder")
	require.NoError(t, b.locker.Lock(holder, b.keys[0]))
	time.AfterFunc(10*time.Millisecond, func() { _ = b.locker.Unlock(holder, b.keys[0]) })

	ok, err := b.acquireWithBackoff(ownerCtx(t, "w"), b.keys[0])
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBench_BackoffCancelled(t *testing.T) {
	b := newTestBench(t, func(c *benchConfig) {
		c.Mode = modeBackoff
		c.Backoff = backoffConfig{Attempts: 1000, Delay: time.Millisecond, MaxDelay: time.Millisecond}
	})
	require.NoError(t, b.locker.Lock(ownerCtx(t, "holder"), b.keys[0]))

	ctx, cancel := context.WithTimeout(ownerCtx(t, "w"), 20*time.Millisecond)
	defer cancel()
	_, err := b.acquireWithBackoff(ctx, b.keys[0])
	assert.ErrorIs(t, err, xentitylock.ErrCancelled)
}

func TestBench_WorkerStopsOnCancel(t *testing.T) {
	b := newTestBench(t, func(c *benchConfig) { c.Hold = time.Millisecond })
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	done := make(chan error, 2)
	for i := range 2 {
		go func() { done <- b.worker(i)(ctx) }()
	}
	for range 2 {
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("worker did not stop")
		}
	}
	assert.Positive(t, b.counts.snapshot().Acquired)
	assert.Zero(t, b.counts.snapshot().Violations)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*benchConfig)
	}{
		{"workers", func(c *benchConfig) { c.Workers = 0 }},
		{"keys", func(c *benchConfig) { c.Keys = 0 }},
		{"duration", func(c *benchConfig) { c.Duration = 0 }},
		{"hold", func(c *benchConfig) { c.Hold = -time.Second }},
		{"mode", func(c *benchConfig) { c.Mode = "spin" }},
		{"timed_timeout", func(c *benchConfig) { c.Mode = modeTimed; c.Timeout = 0 }},
		{"backoff_attempts", func(c *benchConfig) { c.Mode = modeBackoff; c.Backoff.Attempts = 0 }},
		{"report_interval", func(c *benchConfig) { c.ReportInterval = -1 }},
		{"log_format", func(c *benchConfig) { c.Log.Format = "xml" }},
		{"log_level", func(c *benchConfig) { c.Log.Level = "loud" }},
		{"log_rotate", func(c *benchConfig) { c.Log.File = "bench.log"; c.Log.Rotate.MaxSizeMB = 0 }},
	}
	require.NoError(t, defaultConfig().validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(&cfg)
			err := cfg.validate()
			var usageErr *usageError
			assert.True(t, errors.As(err, &usageErr), "got %v", err)
		})
	}
}

func TestWatchLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: info\n"), 0o600))
	src, err := xconf.New(path)
	require.NoError(t, err)

	logger, cleanup, err := xlog.New().SetOutput(&discardWriter{}).Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = cleanup() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watchLevel(src, logger)(ctx) }()

	// 等待监视生效后再修改
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o600)
		return logger.GetLevel() == xlog.LevelDebug
	}, 5*time.Second, 150*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watchLevel did not stop")
	}
}

type discardWriter struct{}

func (*discardWriter) Write(p []byte) (int, error) { return len(p), nil }
