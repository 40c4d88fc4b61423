// Package xctx 提供锁调用方身份与追踪信息的 context 存取。
//
// Go 没有线程标识，xentitylock 以 context 中携带的 Owner 作为"持有者"身份：
// 同一 Owner 值的两次调用被视为同一持有者，可重入同一个 key。
//
// # 核心字段
//
// 持有者（Owner）:
//   - owner        : 锁持有者标识（调用方自定义，或由 EnsureOwner 生成 UUID）
//
// 追踪信息（Trace）:
//   - trace_id     : 追踪标识（W3C 规范，128-bit）
//   - span_id      : 跨度标识（W3C 规范，64-bit）
//   - trace_flags  : 追踪标志（可选，采样决策）
//
// # 命名约定
//
//	WithXxx(ctx, value)    - 注入：将 value 写入 context
//	Xxx(ctx)               - 读取：缺失时返回零值
//	RequireXxx(ctx)        - 强制读取：缺失时返回错误
//	EnsureXxx(ctx)         - 确保存在：若已存在则返回，否则自动生成
//	GetXxx(ctx)            - 批量读取：返回结构体
//
// # 哨兵错误
//
//	ErrNilContext     - context 为 nil
//	ErrEmptyOwner     - WithOwner 传入空 Owner
//	ErrMissingOwner   - owner 缺失
//	ErrMissingTraceID - trace_id 缺失
//	ErrMissingSpanID  - span_id 缺失
//
// xctx 是纯存取层，不校验 trace_id 等字段的格式。
package xctx
