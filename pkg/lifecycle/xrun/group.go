package xrun

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"

	"golang.org/x/sync/errgroup"

	"github.com/omeyang/xlockkit/pkg/observability/xlog"
)

// Group 一组协同运行的服务。Go、GoWithName、Cancel 可并发调用，Wait 只调用一次。
type Group struct {
	eg       *errgroup.Group
	ctx      context.Context
	causeCtx context.Context
	cancel   context.CancelCauseFunc
	logger   xlog.Logger
	opts     *groupOptions
}

// NewGroup 创建 Group 并返回其 context。nil ctx 视为 context.Background()。
func NewGroup(ctx context.Context, opts ...Option) (*Group, context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	options := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}
	logger := options.logger
	if logger == nil {
		logger = xlog.Default()
	}

	causeCtx, cancel := context.WithCancelCause(ctx)
	eg, egCtx := errgroup.WithContext(causeCtx)

	return &Group{
		eg:       eg,
		ctx:      egCtx,
		causeCtx: causeCtx,
		cancel:   cancel,
		logger:   logger.With(slog.String("group", options.name)),
		opts:     options,
	}, egCtx
}

// Go 启动 fn。fn 返回非 nil 错误时取消其他服务。
func (g *Group) Go(fn func(ctx context.Context) error) {
	g.eg.Go(func() error {
		if fn == nil {
			return ErrNilFunc
		}
		return fn(g.ctx)
	})
}

// GoWithName 与 Go 相同，并以 service=name 记录启动与退出。
func (g *Group) GoWithName(name string, fn func(ctx context.Context) error) {
	g.eg.Go(func() error {
		if fn == nil {
			return ErrNilFunc
		}
		svc := slog.String("service", name)
		g.logger.Debug(g.ctx, "service starting", svc)
		err := fn(g.ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			g.logger.Warn(g.ctx, "service exited with error", svc, xlog.Err(err))
		} else {
			g.logger.Debug(g.ctx, "service stopped", svc)
		}
		return err
	})
}

// Wait 等待所有服务退出并返回退出原因：
//   - 服务返回的第一个错误；
//   - 若该错误是 context.Canceled 且 Group 被取消，返回 Cancel 的 cause（无则 nil）；
//   - 所有服务返回 nil 但 Group 被 Cancel(cause)，仍返回 cause。
func (g *Group) Wait() error {
	defer g.cancel(nil)

	err := g.eg.Wait()
	g.logger.Debug(context.Background(), "all services stopped")

	if errors.Is(err, context.Canceled) {
		// causeCtx 未取消时 Canceled 来自服务内部，原样返回
		if g.causeCtx.Err() == nil {
			return err
		}
		return g.explicitCause()
	}
	if err == nil && g.causeCtx.Err() != nil {
		return g.explicitCause()
	}
	return err
}

func (g *Group) explicitCause() error {
	if cause := context.Cause(g.causeCtx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	return nil
}

// Cancel 以 cause 取消所有服务，Wait 会返回 cause。
func (g *Group) Cancel(cause error) {
	g.cancel(cause)
}

// Context Group 的 context
func (g *Group) Context() context.Context {
	return g.ctx
}

// Run 监听 DefaultSignals 并运行 services，收到信号时返回 *SignalError。
func Run(ctx context.Context, services ...func(ctx context.Context) error) error {
	return RunWithOptions(ctx, nil, services...)
}

// RunWithOptions 与 Run 相同，支持配置选项。
func RunWithOptions(ctx context.Context, opts []Option, services ...func(ctx context.Context) error) error {
	g, _ := NewGroup(ctx, opts...)
	if !g.opts.noSignalHandler {
		g.Go(g.signalHandler())
	}
	for _, svc := range services {
		g.Go(svc)
	}
	return g.Wait()
}

func (g *Group) signalHandler() func(ctx context.Context) error {
	signals := g.opts.signals
	// signal.Notify 不带信号会订阅全部信号
	if len(signals) == 0 {
		signals = DefaultSignals()
	}

	return func(ctx context.Context) error {
		testc := testSigChan(ctx)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, signals...)
		defer signal.Stop(sigCh)

		var sig os.Signal
		select {
		case sig = <-testc:
		case sig = <-sigCh:
		case <-ctx.Done():
			return ctx.Err()
		}

		g.logger.Info(ctx, "received signal", slog.String("signal", sig.String()))
		g.cancel(&SignalError{Signal: sig})
		return nil
	}
}
