// Package xentitylock 提供按实体 key 的进程内可重入互斥锁。
//
// 不同 key 相互独立，同一 key 同一时刻至多一个持有者。
// 持有者身份来自 context（见 xctx.WithOwner / xctx.EnsureOwner）：
// Go 没有线程标识，同一 Owner 的调用被视为同一持有者，可重复加锁，
// 需要相同次数的 Unlock 才会真正释放。
//
// # 操作
//
//	Lock            阻塞直到获得锁，等待期间 ctx 取消时返回 ErrCancelled
//	TryLock         非阻塞，被他人持有时返回 false
//	TryLockTimeout  最多等待 timeout，到期返回 false；timeout <= 0 不等待
//	Unlock          持有者释放一层；非持有者调用是静默的空操作
//	IsLocked        是否被任何人持有
//
// nil key（空指针、nil 接口）视为缺失，所有操作返回 ErrNilKey。
// ""、0 与零值结构体是普通 key。
//
// # 实现
//
// 所有 key 共用一把 sync.Mutex 和一个 sync.Cond：元数据操作都是 O(1)，
// 串行化只作用于记账，实体本身仍然各自独立互斥。
// 每次释放都会 Broadcast 唤醒全部等待者，各自重新检查自己的 key
// （惊群：每次释放 O(等待者数) 次唤醒），适合低到中等争用。
// 等待者之间没有公平性保证，可能饥饿。
//
// ctx 取消与超时通过 context.AfterFunc 在持有 mu 的情况下 Broadcast，
// 等待者不会睡过期限。
//
// 条目在首次加锁时创建，之后不会删除：表的大小随出现过的 key 数单调增长，
// Len/Keys 可观察到这一点。key 集合无界的场景应在外层做分桶。
//
// 不提供多 key 死锁检测、锁升级降级、跨进程锁。
package xentitylock
