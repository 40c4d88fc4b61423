package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go/v5"

	"github.com/omeyang/xlockkit/pkg/context/xctx"
	"github.com/omeyang/xlockkit/pkg/observability/xlog"
	"github.com/omeyang/xlockkit/pkg/util/xentitylock"
)

// errBusy backoff 模式下 TryLock 被拒绝，触发重试
var errBusy = errors.New("xlockbench: key busy")

// counts 所有 worker 共享的结果计数
type counts struct {
	acquired   atomic.Uint64
	refused    atomic.Uint64
	retries    atomic.Uint64
	violations atomic.Uint64
	failures   atomic.Uint64
}

// counters 快照
type counters struct {
	Acquired   uint64
	Refused    uint64
	Retries    uint64
	Violations uint64
	Failures   uint64
}

func (c *counts) snapshot() counters {
	return counters{
		Acquired:   c.acquired.Load(),
		Refused:    c.refused.Load(),
		Retries:    c.retries.Load(),
		Violations: c.violations.Load(),
		Failures:   c.failures.Load(),
	}
}

// bench 在一张锁表上运行多个 worker
type bench struct {
	cfg    benchConfig
	locker *xentitylock.EntityLocker[string]
	logger xlog.Logger

	keys      []string
	occupancy []atomic.Int32
	counts    counts
}

func newBench(cfg benchConfig, locker *xentitylock.EntityLocker[string], logger xlog.Logger) *bench {
	keys := make([]string, cfg.Keys)
	for i := range keys {
		keys[i] = fmt.Sprintf("entity-%d", i)
	}
	return &bench{
		cfg:       cfg,
		locker:    locker,
		logger:    logger,
		keys:      keys,
		occupancy: make([]atomic.Int32, cfg.Keys),
	}
}

// worker 返回第 id 个 worker 的服务函数。ctx 取消时正常返回 nil。
func (b *bench) worker(id int) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		ctx, err := xctx.WithOwner(ctx, xctx.Owner(fmt.Sprintf("worker-%d", id)))
		if err != nil {
			return err
		}
		ctx, err = xctx.EnsureTrace(ctx)
		if err != nil {
			return err
		}

		for ctx.Err() == nil {
			idx := rand.IntN(len(b.keys))
			if err := b.round(ctx, idx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
		return nil
	}
}

// round 对 keys[idx] 完成一次加锁、持有、释放。
func (b *bench) round(ctx context.Context, idx int) error {
	key := b.keys[idx]

	ok, err := b.acquire(ctx, key)
	if err != nil {
		if errors.Is(err, xentitylock.ErrCancelled) {
			return err
		}
		b.counts.failures.Add(1)
		return fmt.Errorf("acquire %s: %w", key, err)
	}
	if !ok {
		b.counts.refused.Add(1)
		return nil
	}
	b.counts.acquired.Add(1)

	depth := 1
	if b.cfg.Reentrant {
		again, err := b.locker.TryLock(ctx, key)
		if err != nil || !again {
			b.violation(ctx, key, "reentrant acquire refused")
		} else {
			depth++
		}
	}

	if n := b.occupancy[idx].Add(1); n != 1 {
		b.violation(ctx, key, "key held by more than one worker", xlog.Count(int64(n)))
	}
	hold(ctx, b.cfg.Hold)
	b.occupancy[idx].Add(-1)

	for range depth {
		if err := b.locker.Unlock(ctx, key); err != nil {
			b.counts.failures.Add(1)
			return fmt.Errorf("unlock %s: %w", key, err)
		}
	}
	return nil
}

func (b *bench) acquire(ctx context.Context, key string) (bool, error) {
	switch b.cfg.Mode {
	case modeTry:
		return b.locker.TryLock(ctx, key)
	case modeTimed:
		return b.locker.TryLockTimeout(ctx, key, b.cfg.Timeout)
	case modeBackoff:
		return b.acquireWithBackoff(ctx, key)
	default:
		if err := b.locker.Lock(ctx, key); err != nil {
			return false, err
		}
		return true, nil
	}
}

// acquireWithBackoff 以指数退避重试 TryLock，用尽次数返回 false。
func (b *bench) acquireWithBackoff(ctx context.Context, key string) (bool, error) {
	err := retry.New(
		retry.Context(ctx),
		retry.Attempts(b.cfg.Backoff.Attempts),
		retry.Delay(b.cfg.Backoff.Delay),
		retry.MaxDelay(b.cfg.Backoff.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return errors.Is(err, errBusy) }),
		retry.OnRetry(func(uint, error) { b.counts.retries.Add(1) }),
	).Do(func() error {
		ok, err := b.locker.TryLock(ctx, key)
		if err != nil {
			return retry.Unrecoverable(err)
		}
		if !ok {
			return errBusy
		}
		return nil
	})

	switch {
	case err == nil:
		return true, nil
	case ctx.Err() != nil:
		return false, fmt.Errorf("%w: %w", xentitylock.ErrCancelled, context.Cause(ctx))
	case errors.Is(err, errBusy):
		return false, nil
	default:
		return false, err
	}
}

func (b *bench) violation(ctx context.Context, key, msg string, attrs ...slog.Attr) {
	b.counts.violations.Add(1)
	b.logger.Error(ctx, msg, append(attrs, xlog.LockKey(key))...)
}

// report 周期性输出计数
func (b *bench) report(ctx context.Context) error {
	c := b.counts.snapshot()
	st := b.locker.Stats()
	b.logger.Info(ctx, "progress",
		slog.Uint64("acquired", c.Acquired),
		slog.Uint64("refused", c.Refused),
		slog.Uint64("violations", c.Violations),
		slog.Uint64("waits", st.Waits),
		slog.Uint64("timeouts", st.Timeouts),
		slog.Int("keys", st.Keys),
	)
	return nil
}

// hold 持有锁 d，ctx 取消时提前结束
func hold(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
