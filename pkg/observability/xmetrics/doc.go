// Package xmetrics 提供最小化的观测接口（metrics + tracing）。
//
// 业务代码只依赖 Observer/Span/Attr；默认实现基于 OpenTelemetry。
//
//	obs, _ := xmetrics.NewOTelObserver()
//	ctx, span := xmetrics.Start(ctx, obs, xmetrics.SpanOptions{
//		Component: "xentitylock",
//		Operation: "lock",
//	})
//	defer func() { span.End(xmetrics.Result{Err: err}) }()
//
// # 指标
//
//   - xlockkit.operation.total     计数（1）
//   - xlockkit.operation.duration  耗时直方图（s）
//
// 公共属性：component / operation / status。
// Result.Attrs 只写入 span，不进入指标维度，避免基数膨胀。
package xmetrics
