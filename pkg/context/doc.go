// Package context 提供上下文身份管理相关的子包。
//
// 子包列表：
//   - xctx: Context 增强，注入/提取锁持有者与追踪信息
//
// 所有上下文信息通过 context.Context 传递，不使用全局变量。
package context
