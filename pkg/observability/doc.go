// Package observability 提供可观测性相关的子包。
//
// 子包列表：
//   - xlog: 结构化日志，基于 log/slog 扩展
//   - xmetrics: 统一观测接口（指标、追踪）与 OpenTelemetry 实现
//   - xrotate: 日志文件轮转
//
// 自动从 context 中提取持有者与追踪信息注入日志。
package observability
