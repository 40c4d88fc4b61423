package xctx

import (
	"context"
	"crypto/rand"
	"encoding/hex"
)

// ID 长度（W3C Trace Context）
const (
	// TraceIDSize 128-bit -> 32 hex chars
	TraceIDSize = 16

	// SpanIDSize 64-bit -> 16 hex chars
	SpanIDSize = 8
)

// Trace 日志属性 key
const (
	KeyTraceID    = "trace_id"
	KeySpanID     = "span_id"
	KeyTraceFlags = "trace_flags"

	traceFieldCount = 3
)

const (
	keyTraceID    = contextKey("xctx:trace_id")
	keySpanID     = contextKey("xctx:span_id")
	keyTraceFlags = contextKey("xctx:trace_flags")
)

// WithTraceID 将 trace ID 注入 context
//
// 如果 ctx 为 nil，返回 ErrNilContext。
func WithTraceID(ctx context.Context, traceID string) (context.Context, error) {
	return withString(ctx, keyTraceID, traceID)
}

// TraceID 从 context 提取 trace ID，不存在返回空字符串
func TraceID(ctx context.Context) string {
	return stringValue(ctx, keyTraceID)
}

// WithSpanID 将 span ID 注入 context
func WithSpanID(ctx context.Context, spanID string) (context.Context, error) {
	return withString(ctx, keySpanID, spanID)
}

// SpanID 从 context 提取 span ID，不存在返回空字符串
func SpanID(ctx context.Context) string {
	return stringValue(ctx, keySpanID)
}

// WithTraceFlags 将 trace flags 注入 context
//
// 格式为 2 位十六进制字符串（"01" 已采样，"00" 未采样）。
func WithTraceFlags(ctx context.Context, flags string) (context.Context, error) {
	return withString(ctx, keyTraceFlags, flags)
}

// TraceFlags 从 context 提取 trace flags，不存在返回空字符串
func TraceFlags(ctx context.Context) string {
	return stringValue(ctx, keyTraceFlags)
}

// RequireTraceID 从 context 获取 trace ID，不存在返回 ErrMissingTraceID。
func RequireTraceID(ctx context.Context) (string, error) {
	if ctx == nil {
		return "", ErrNilContext
	}
	v := TraceID(ctx)
	if v == "" {
		return "", ErrMissingTraceID
	}
	return v, nil
}

// RequireSpanID 从 context 获取 span ID，不存在返回 ErrMissingSpanID。
func RequireSpanID(ctx context.Context) (string, error) {
	if ctx == nil {
		return "", ErrNilContext
	}
	v := SpanID(ctx)
	if v == "" {
		return "", ErrMissingSpanID
	}
	return v, nil
}

func withString(ctx context.Context, key contextKey, value string) (context.Context, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	return context.WithValue(ctx, key, value), nil
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// W3C 规范禁止全零的 trace-id 和 span-id
func isAllZeros(buf []byte) bool {
	for _, b := range buf {
		if b != 0 {
			return false
		}
	}
	return true
}

func randomHex(buf []byte) string {
	for {
		if _, err := rand.Read(buf); err != nil {
			panic("xctx: crypto/rand.Read failed: " + err.Error())
		}
		if !isAllZeros(buf) {
			return hex.EncodeToString(buf)
		}
	}
}

// GenerateTraceID 生成 32 位小写十六进制 TraceID。
//
// 熵源不可用时 panic（系统级故障，与 OpenTelemetry SDK 行为一致）。
func GenerateTraceID() string {
	var buf [TraceIDSize]byte
	return randomHex(buf[:])
}

// GenerateSpanID 生成 16 位小写十六进制 SpanID。
func GenerateSpanID() string {
	var buf [SpanIDSize]byte
	return randomHex(buf[:])
}

// EnsureTrace 确保 context 中存在 TraceID 和 SpanID。
//
// 已存在的字段原样保留，仅补全缺失字段。TraceFlags 是上游传播的采样决策，
// 不会被自动生成。
func EnsureTrace(ctx context.Context) (context.Context, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	var tr Trace
	if TraceID(ctx) == "" {
		tr.TraceID = GenerateTraceID()
	}
	if SpanID(ctx) == "" {
		tr.SpanID = GenerateSpanID()
	}
	return WithTrace(ctx, tr)
}

// Trace 追踪信息结构体
type Trace struct {
	TraceID    string
	SpanID     string
	TraceFlags string
}

// GetTrace 从 context 批量获取追踪信息，字段可能为空。
func GetTrace(ctx context.Context) Trace {
	return Trace{
		TraceID:    TraceID(ctx),
		SpanID:     SpanID(ctx),
		TraceFlags: TraceFlags(ctx),
	}
}

// Validate 按 TraceID → SpanID 顺序返回第一个缺失字段的错误。
// TraceFlags 不参与校验。
func (t Trace) Validate() error {
	if t.TraceID == "" {
		return ErrMissingTraceID
	}
	if t.SpanID == "" {
		return ErrMissingSpanID
	}
	return nil
}

// IsComplete TraceID 与 SpanID 均非空时返回 true
func (t Trace) IsComplete() bool {
	return t.TraceID != "" && t.SpanID != ""
}

// WithTrace 将 Trace 中的非空字段批量注入 context，空字段跳过。
func WithTrace(ctx context.Context, tr Trace) (context.Context, error) {
	return applyOptionalFields(ctx, []contextFieldSetter{
		{value: tr.TraceID, set: WithTraceID},
		{value: tr.SpanID, set: WithSpanID},
		{value: tr.TraceFlags, set: WithTraceFlags},
	})
}
