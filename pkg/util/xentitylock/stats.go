package xentitylock

import "sync/atomic"

// Stats 锁表计数快照。各计数器分别原子读取，彼此之间不保证一致。
type Stats struct {
	// Acquires 成功加锁次数（含重入）
	Acquires uint64
	// Releases 有效释放次数（含重入层）
	Releases uint64
	// Waits 进入过等待的加锁调用次数
	Waits uint64
	// Timeouts TryLockTimeout 到期返回 false 的次数
	Timeouts uint64
	// Cancellations 因 ctx 取消返回 ErrCancelled 的次数
	Cancellations uint64
	// Contended TryLock 因被他人持有返回 false 的次数
	Contended uint64
	// IgnoredUnlocks 非持有者或无锁可放的 Unlock 次数
	IgnoredUnlocks uint64
	// Keys 当前表中的条目数（只增不减）
	Keys int
}

type counters struct {
	acquires       atomic.Uint64
	releases       atomic.Uint64
	waits          atomic.Uint64
	timeouts       atomic.Uint64
	cancellations  atomic.Uint64
	contended      atomic.Uint64
	ignoredUnlocks atomic.Uint64
}

func (c *counters) snapshot(keys int) Stats {
	return Stats{
		Acquires:       c.acquires.Load(),
		Releases:       c.releases.Load(),
		Waits:          c.waits.Load(),
		Timeouts:       c.timeouts.Load(),
		Cancellations:  c.cancellations.Load(),
		Contended:      c.contended.Load(),
		IgnoredUnlocks: c.ignoredUnlocks.Load(),
		Keys:           keys,
	}
}
