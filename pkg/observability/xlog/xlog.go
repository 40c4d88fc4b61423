package xlog

import (
	"context"
	"log/slog"
)

// Logger 日志接口
//
// 方法只接受 slog.Attr，避免隐式 key-value 转换。
type Logger interface {
	Debug(ctx context.Context, msg string, attrs ...slog.Attr)
	Info(ctx context.Context, msg string, attrs ...slog.Attr)
	Warn(ctx context.Context, msg string, attrs ...slog.Attr)
	Error(ctx context.Context, msg string, attrs ...slog.Attr)

	// Stack 记录 Error 级别日志并附带当前 goroutine 的调用栈
	Stack(ctx context.Context, msg string, attrs ...slog.Attr)

	// With 返回带额外属性的派生 Logger，共享父级的级别变量
	With(attrs ...slog.Attr) Logger

	// WithGroup 返回带分组的派生 Logger
	WithGroup(name string) Logger
}

// Leveler 级别控制接口
type Leveler interface {
	// SetLevel 运行时调整级别
	SetLevel(level Level)

	// GetLevel 当前级别
	GetLevel() Level

	// Enabled 在构造昂贵的日志参数前检查级别
	Enabled(ctx context.Context, level Level) bool
}

// LoggerWithLevel Logger + Leveler，Build 的返回类型
type LoggerWithLevel interface {
	Logger
	Leveler
}
