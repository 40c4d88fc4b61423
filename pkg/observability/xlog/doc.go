// Package xlog 基于 log/slog 的结构化日志。
//
// 所有日志方法都要求 context.Context，EnrichHandler 会从中提取
// xctx 的持有者（owner）与追踪字段（trace_id/span_id/trace_flags）自动附加到日志。
//
// # 构建
//
//	logger, cleanup, err := xlog.New().
//		SetLevelString("debug").
//		SetFormat("json").
//		SetRotation("/var/log/app.log", xrotate.WithMaxSize(100)).
//		Build()
//	if err != nil {
//		return err
//	}
//	defer cleanup()
//
// Builder 采用"首个错误生效"策略：链式调用中出现的第一个配置错误会在 Build 时返回。
//
// # 动态级别
//
// Build 返回 LoggerWithLevel，派生 logger（With/WithGroup）共享同一个级别变量，
// SetLevel 对所有派生 logger 立即生效。
//
// # 全局 Logger
//
// Default/SetDefault 以及包级 Debug/Info/Warn/Error/Stack 面向命令行工具等简单场景；
// 库代码应通过依赖注入持有 Logger。
package xlog
