package xlog

import (
	"context"
	"log/slog"

	"github.com/omeyang/xlockkit/pkg/context/xctx"
)

var _ slog.Handler = (*EnrichHandler)(nil)

// owner 1 + trace 3
const maxEnrichAttrs = 4

// EnrichHandler 从 context 提取 owner 与 trace 字段并追加到每条记录。
//
// 字段缺失时不影响日志写入。调用 WithGroup 后注入的字段也会归入该分组。
type EnrichHandler struct {
	base slog.Handler
}

// NewEnrichHandler 包装 base handler，base 为 nil 返回 ErrNilHandler
func NewEnrichHandler(base slog.Handler) (*EnrichHandler, error) {
	if base == nil {
		return nil, ErrNilHandler
	}
	return &EnrichHandler{base: base}, nil
}

// Enabled 委托给底层 handler
func (h *EnrichHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

// Handle 先 Clone 再追加属性（slog.Handler 契约要求不修改共享的 record）。
func (h *EnrichHandler) Handle(ctx context.Context, r slog.Record) error {
	var buf [maxEnrichAttrs]slog.Attr
	attrs := xctx.AppendOwnerAttrs(buf[:0], ctx)
	attrs = xctx.AppendTraceAttrs(attrs, ctx)
	if len(attrs) > 0 {
		r = r.Clone()
		r.AddAttrs(attrs...)
	}
	return h.base.Handle(ctx, r)
}

// WithAttrs 返回带额外属性的新 handler
func (h *EnrichHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &EnrichHandler{base: h.base.WithAttrs(attrs)}
}

// WithGroup 返回带分组的新 handler
func (h *EnrichHandler) WithGroup(name string) slog.Handler {
	return &EnrichHandler{base: h.base.WithGroup(name)}
}
