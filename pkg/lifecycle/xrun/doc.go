// Package xrun 基于 errgroup + context 管理进程内多个服务的并发运行与协调关闭。
//
// 任一服务返回错误、收到终止信号或调用 Cancel 时，Group 的 context 被取消，
// 所有服务应监听 ctx.Done() 并退出。
//
//	g, ctx := xrun.NewGroup(ctx, xrun.WithName("bench"), xrun.WithLogger(logger))
//	g.GoWithName("reporter", xrun.Ticker(time.Second, false, report))
//	g.GoWithName("deadline", xrun.Timer(30*time.Second, func(context.Context) error {
//	    g.Cancel(errDone)
//	    return nil
//	}))
//	err := g.Wait()
//
// # 信号
//
// Run / RunWithOptions 自动监听 DefaultSignals，收到信号时以 *SignalError
// 作为取消原因，Wait 返回该错误，可用 errors.Is(err, ErrSignal) 判断。
//
// # 退出原因
//
// Cancel(cause) 的 cause 会由 Wait 返回；没有显式原因的普通取消返回 nil。
// cause 不应包装 context.Canceled，否则会被视为普通取消。
package xrun
