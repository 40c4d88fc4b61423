package xentitylock

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/omeyang/xlockkit/pkg/context/xctx"
	"github.com/omeyang/xlockkit/pkg/observability/xlog"
	"github.com/omeyang/xlockkit/pkg/observability/xmetrics"
)

// Locker 按实体 key 的可重入互斥锁。所有方法并发安全。
type Locker[K comparable] interface {
	// Lock 阻塞直到调用方（ctx 中的 Owner）持有 key。
	// 已持有时重入并加深一层。只有等待期间 ctx 取消才返回 ErrCancelled。
	Lock(ctx context.Context, key K) error

	// TryLock 不等待：空闲或已由调用方持有时加锁并返回 true，否则返回 false。
	TryLock(ctx context.Context, key K) (bool, error)

	// TryLockTimeout 最多等待 timeout。到期返回 false, nil；
	// timeout <= 0 时只检查一次 ctx，然后直接返回 false。
	TryLockTimeout(ctx context.Context, key K, timeout time.Duration) (bool, error)

	// Unlock 调用方持有 key 时释放一层；否则是空操作，返回 nil。
	Unlock(ctx context.Context, key K) error

	// IsLocked 报告 key 是否被任何人持有。
	IsLocked(key K) (bool, error)
}

var _ Locker[string] = (*EntityLocker[string])(nil)

// 观测的操作名
const (
	opLock           = "lock"
	opTryLockTimeout = "try_lock_timeout"
)

// entry 单个 key 的持有记录。depth == 0 表示空闲，此时 owner 为空。
type entry struct {
	owner xctx.Owner
	depth uint32
}

// EntityLocker Locker 的实现：一把 mutex + 一个 cond 守护整张表。
//
// 零值不可用，使用 New 创建。
type EntityLocker[K comparable] struct {
	mu      sync.Mutex
	cond    *sync.Cond
	entries map[K]*entry

	isNil    func(K) bool
	name     string
	logger   xlog.Logger
	observer xmetrics.Observer
	stats    counters
}

// New 创建空锁表
func New[K comparable](opts ...Option) *EntityLocker[K] {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	l := &EntityLocker[K]{
		entries:  make(map[K]*entry),
		isNil:    nilCheck[K](),
		name:     o.name,
		observer: o.observer,
	}
	l.cond = sync.NewCond(&l.mu)
	if o.logger != nil {
		l.logger = o.logger.With(xlog.Component(o.name))
	}
	return l
}

// nilCheck 按 K 的种类返回 nil 判定函数。只有指针、chan 与接口类型有 nil，
// 其余类型的任何值（包括 ""、0）都是合法 key。
func nilCheck[K comparable]() func(K) bool {
	switch reflect.TypeFor[K]().Kind() {
	case reflect.Interface:
		return func(key K) bool { return any(key) == nil }
	case reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return func(key K) bool { return reflect.ValueOf(key).IsNil() }
	default:
		return func(K) bool { return false }
	}
}

// acquirePrecheck 校验加锁操作的前置条件并取出调用方身份。
func (l *EntityLocker[K]) acquirePrecheck(ctx context.Context, key K) (xctx.Owner, error) {
	if l.isNil(key) {
		return "", ErrNilKey
	}
	return xctx.RequireOwner(ctx)
}

func cancelled(ctx context.Context) error {
	return fmt.Errorf("%w: %w", ErrCancelled, context.Cause(ctx))
}

// entryLocked 返回 key 的条目，不存在时创建。调用方必须持有 mu。
func (l *EntityLocker[K]) entryLocked(key K) *entry {
	e, ok := l.entries[key]
	if !ok {
		e = &entry{}
		l.entries[key] = e
	}
	return e
}

// grantLocked 空闲或已由 owner 持有时加深一层并返回新深度。调用方必须持有 mu。
func (l *EntityLocker[K]) grantLocked(e *entry, owner xctx.Owner) (uint32, bool) {
	if e.depth > 0 && e.owner != owner {
		return 0, false
	}
	e.owner = owner
	e.depth++
	l.stats.acquires.Add(1)
	return e.depth, true
}

// wakeAll 在 mu 下 Broadcast：等待者在检查完 ctx 之后、进入 Wait 之前一直持有 mu，
// 因此取消通知不会丢失。
func (l *EntityLocker[K]) wakeAll() {
	l.mu.Lock()
	l.cond.Broadcast()
	l.mu.Unlock()
}

type outcome struct {
	acquired bool
	waited   bool
	depth    uint32
	wait     time.Duration
	err      error
}

// wait 等待直到获得 key、ctx 取消或 waitCtx 到期。
//
// 每轮按顺序检查：可获取 → ctx 取消 → waitCtx 到期 → 继续等待。
// 只有需要挂起时才看 ctx，因此空闲 key 与重入不受已取消的 ctx 影响。
// Lock 传入的 waitCtx 就是 ctx；TryLockTimeout 传入带超时的子 context，
// 父 ctx 的取消（包括父 ctx 自身的 deadline）报告为 ErrCancelled，
// 只有 timeout 本身到期才返回 acquired=false, err=nil。
func (l *EntityLocker[K]) wait(ctx, waitCtx context.Context, key K, owner xctx.Owner) outcome {
	stop := context.AfterFunc(waitCtx, l.wakeAll)
	defer stop()

	var (
		out   outcome
		start time.Time
	)

	l.mu.Lock()
	e := l.entryLocked(key)
	for {
		if depth, ok := l.grantLocked(e, owner); ok {
			out.acquired, out.depth = true, depth
			break
		}
		if ctx.Err() != nil {
			out.err = cancelled(ctx)
			break
		}
		if waitCtx.Err() != nil {
			break
		}
		if !out.waited {
			out.waited = true
			start = time.Now()
		}
		l.cond.Wait()
	}
	l.mu.Unlock()

	if out.waited {
		l.stats.waits.Add(1)
		out.wait = time.Since(start)
	}
	switch {
	case out.err != nil:
		l.stats.cancellations.Add(1)
	case !out.acquired:
		l.stats.timeouts.Add(1)
	}
	return out
}

// Lock 阻塞直到调用方持有 key。
//
// 错误：ErrNilKey、xctx.ErrNilContext、xctx.ErrMissingOwner、ErrCancelled。
// 只有需要等待时才检查 ctx：key 空闲或已由调用方持有时，
// 即使 ctx 已取消也会成功加锁。
func (l *EntityLocker[K]) Lock(ctx context.Context, key K) error {
	owner, err := l.acquirePrecheck(ctx, key)
	if err != nil {
		return err
	}

	ctx, span := l.startSpan(ctx, opLock, key)
	out := l.wait(ctx, ctx, key, owner)
	l.endSpan(span, out)
	l.logOutcome(ctx, opLock, key, out)
	return out.err
}

// TryLock 不等待地尝试加锁，重入总是成功。
func (l *EntityLocker[K]) TryLock(ctx context.Context, key K) (bool, error) {
	if l.isNil(key) {
		return false, ErrNilKey
	}
	owner, err := xctx.RequireOwner(ctx)
	if err != nil {
		return false, err
	}

	l.mu.Lock()
	_, ok := l.grantLocked(l.entryLocked(key), owner)
	l.mu.Unlock()

	if !ok {
		l.stats.contended.Add(1)
	}
	return ok, nil
}

// TryLockTimeout 最多等待 timeout 尝试加锁。
//
// 进入时 ctx 已取消直接返回 ErrCancelled，重入也不例外。
// timeout <= 0 视为已经到期：检查过 ctx 后返回 false, nil，不访问锁表。
func (l *EntityLocker[K]) TryLockTimeout(ctx context.Context, key K, timeout time.Duration) (bool, error) {
	owner, err := l.acquirePrecheck(ctx, key)
	if err != nil {
		return false, err
	}
	if ctx.Err() != nil {
		l.stats.cancellations.Add(1)
		return false, cancelled(ctx)
	}
	if timeout <= 0 {
		l.stats.timeouts.Add(1)
		return false, nil
	}

	ctx, span := l.startSpan(ctx, opTryLockTimeout, key)
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	out := l.wait(ctx, waitCtx, key, owner)
	cancel()

	l.endSpan(span, out)
	l.logOutcome(ctx, opTryLockTimeout, key, out)
	return out.acquired, out.err
}

// Unlock 调用方持有 key 时释放一层并唤醒所有等待者。
//
// 非持有者、从未加锁的 key、已完全释放的 key、ctx 中没有 Owner：
// 都是空操作并返回 nil。唯一的错误是 ErrNilKey。
func (l *EntityLocker[K]) Unlock(ctx context.Context, key K) error {
	if l.isNil(key) {
		return ErrNilKey
	}
	owner := xctx.OwnerOf(ctx)

	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok || owner.IsZero() || e.depth == 0 || e.owner != owner {
		var holder xctx.Owner
		if ok {
			holder = e.owner
		}
		l.mu.Unlock()

		l.stats.ignoredUnlocks.Add(1)
		l.debug(ctx, "unlock ignored: caller is not the owner", key, slog.String("holder", string(holder)))
		return nil
	}
	e.depth--
	if e.depth == 0 {
		e.owner = ""
	}
	l.cond.Broadcast()
	l.mu.Unlock()

	l.stats.releases.Add(1)
	return nil
}

// IsLocked 报告 key 是否被持有（深度 > 0），不创建条目。
func (l *EntityLocker[K]) IsLocked(key K) (bool, error) {
	if l.isNil(key) {
		return false, ErrNilKey
	}
	l.mu.Lock()
	e, ok := l.entries[key]
	locked := ok && e.depth > 0
	l.mu.Unlock()
	return locked, nil
}

// HoldCount 返回调用方在 key 上的重入深度，非持有者为 0。
func (l *EntityLocker[K]) HoldCount(ctx context.Context, key K) (int, error) {
	if l.isNil(key) {
		return 0, ErrNilKey
	}
	owner := xctx.OwnerOf(ctx)
	if owner.IsZero() {
		return 0, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.entries[key]; ok && e.owner == owner {
		return int(e.depth), nil
	}
	return 0, nil
}

// OwnerOf 返回 key 当前的持有者；未被持有时 ok 为 false。
func (l *EntityLocker[K]) OwnerOf(key K) (owner xctx.Owner, ok bool, err error) {
	if l.isNil(key) {
		return "", false, ErrNilKey
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, found := l.entries[key]; found && e.depth > 0 {
		return e.owner, true, nil
	}
	return "", false, nil
}

// Len 表中的条目数，包括已释放但未删除的条目。
func (l *EntityLocker[K]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Keys 表中所有 key 的快照，顺序不确定，仅用于调试。
func (l *EntityLocker[K]) Keys() []K {
	l.mu.Lock()
	defer l.mu.Unlock()
	keys := make([]K, 0, len(l.entries))
	for k := range l.entries {
		keys = append(keys, k)
	}
	return keys
}

// Stats 返回计数快照
func (l *EntityLocker[K]) Stats() Stats {
	return l.stats.snapshot(l.Len())
}

// startSpan 未配置 observer 时不构造属性
func (l *EntityLocker[K]) startSpan(ctx context.Context, op string, key K) (context.Context, xmetrics.Span) {
	if l.observer == nil {
		return ctx, nil
	}
	return xmetrics.Start(ctx, l.observer, xmetrics.SpanOptions{
		Component: l.name,
		Operation: op,
		Attrs:     []xmetrics.Attr{xmetrics.String(xlog.KeyLockKey, fmt.Sprint(key))},
	})
}

func (l *EntityLocker[K]) endSpan(span xmetrics.Span, out outcome) {
	if span == nil {
		return
	}
	r := xmetrics.Result{
		Err: out.err,
		Attrs: []xmetrics.Attr{
			xmetrics.Bool("acquired", out.acquired),
			xmetrics.Bool("waited", out.waited),
		},
	}
	if out.acquired {
		r.Attrs = append(r.Attrs, xmetrics.Int64("depth", int64(out.depth)))
	}
	if out.waited {
		r.Attrs = append(r.Attrs, xmetrics.Duration("wait_ns", out.wait))
	}
	if out.err == nil && !out.acquired {
		r.Status = xmetrics.StatusTimeout
	}
	span.End(r)
}

func (l *EntityLocker[K]) logOutcome(ctx context.Context, op string, key K, out outcome) {
	switch {
	case out.err != nil:
		l.debug(ctx, "lock wait cancelled", key, xlog.Operation(op), xlog.Err(out.err))
	case !out.acquired:
		l.debug(ctx, "lock wait timed out", key, xlog.Operation(op), xlog.Duration(out.wait))
	case out.waited:
		l.debug(ctx, "lock acquired after contention", key,
			xlog.Operation(op), xlog.Depth(out.depth), xlog.Duration(out.wait))
	}
}

func (l *EntityLocker[K]) debug(ctx context.Context, msg string, key K, attrs ...slog.Attr) {
	if l.logger == nil {
		return
	}
	l.logger.Debug(ctx, msg, append(attrs, xlog.LockKey(key))...)
}
