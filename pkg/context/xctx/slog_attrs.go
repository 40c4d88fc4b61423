package xctx

import (
	"context"
	"log/slog"
)

// AppendOwnerAttrs 将 context 中的持有者追加到 attrs。
func AppendOwnerAttrs(attrs []slog.Attr, ctx context.Context) []slog.Attr {
	if v := OwnerOf(ctx); !v.IsZero() {
		attrs = append(attrs, slog.String(KeyOwner, string(v)))
	}
	return attrs
}

// AppendTraceAttrs 将 context 中的追踪信息追加到现有切片，只追加非空字段。
func AppendTraceAttrs(attrs []slog.Attr, ctx context.Context) []slog.Attr {
	if ctx == nil {
		return attrs
	}
	if v := TraceID(ctx); v != "" {
		attrs = append(attrs, slog.String(KeyTraceID, v))
	}
	if v := SpanID(ctx); v != "" {
		attrs = append(attrs, slog.String(KeySpanID, v))
	}
	if v := TraceFlags(ctx); v != "" {
		attrs = append(attrs, slog.String(KeyTraceFlags, v))
	}
	return attrs
}

// TraceAttrs 从 context 提取追踪信息，都为空时返回 nil。
// 每次调用会分配新切片，热路径建议使用 AppendTraceAttrs。
func TraceAttrs(ctx context.Context) []slog.Attr {
	attrs := AppendTraceAttrs(make([]slog.Attr, 0, traceFieldCount), ctx)
	if len(attrs) == 0 {
		return nil
	}
	return attrs
}

// LogAttrs 从 context 提取持有者与追踪信息，都为空时返回 nil。
func LogAttrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	attrs := make([]slog.Attr, 0, 1+traceFieldCount)
	attrs = AppendOwnerAttrs(attrs, ctx)
	attrs = AppendTraceAttrs(attrs, ctx)
	if len(attrs) == 0 {
		return nil
	}
	return attrs
}
