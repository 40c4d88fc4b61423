package xmetrics

//go:generate mockgen -source=observer.go -destination=xmetricsmock/observer_mock.go -package=xmetricsmock

import (
	"context"
	"strconv"
)

// Kind 观测跨度类型
type Kind int

const (
	KindInternal Kind = iota
	KindServer
	KindClient
)

// String 返回可读名称
func (k Kind) String() string {
	switch k {
	case KindInternal:
		return "Internal"
	case KindServer:
		return "Server"
	case KindClient:
		return "Client"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Status 观测结果状态
type Status string

const (
	StatusOK Status = "ok"

	StatusError Status = "error"

	// StatusTimeout 操作在期限内未完成（不视为错误）
	StatusTimeout Status = "timeout"
)

// Attr 观测属性
type Attr struct {
	Key   string
	Value any
}

// SpanOptions 跨度创建参数
type SpanOptions struct {
	Component string
	Operation string
	Kind      Kind
	Attrs     []Attr
}

// Result 跨度结束时的结果
type Result struct {
	// Status 为空时根据 Err 推导
	Status Status
	Err    error
	Attrs  []Attr
}

// Span 一次观测跨度
type Span interface {
	// End 结束观测并记录结果
	End(result Result)
}

// Observer 观测接口
type Observer interface {
	Start(ctx context.Context, opts SpanOptions) (context.Context, Span)
}

var (
	_ Observer = NoopObserver{}
	_ Span     = NoopSpan{}
)

// NoopObserver 空实现
type NoopObserver struct{}

// Start 返回 ctx（nil 时为 context.Background()）与空跨度
func (NoopObserver) Start(ctx context.Context, _ SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx, NoopSpan{}
}

// NoopSpan 空跨度
type NoopSpan struct{}

// End 空实现
func (NoopSpan) End(Result) {}

// Start 使用 observer 开始观测，保证返回非 nil 的 ctx 与 Span。
//
// observer 为 nil 或自定义实现返回 nil 时，兜底为 ctx 与 [NoopSpan]。
func Start(ctx context.Context, observer Observer, opts SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	if observer == nil {
		return ctx, NoopSpan{}
	}
	retCtx, span := observer.Start(ctx, opts)
	if retCtx == nil {
		retCtx = ctx
	}
	if span == nil {
		span = NoopSpan{}
	}
	return retCtx, span
}
