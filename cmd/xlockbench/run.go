package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/omeyang/xlockkit/pkg/config/xconf"
	"github.com/omeyang/xlockkit/pkg/lifecycle/xrun"
	"github.com/omeyang/xlockkit/pkg/observability/xlog"
	"github.com/omeyang/xlockkit/pkg/observability/xmetrics"
	"github.com/omeyang/xlockkit/pkg/observability/xrotate"
	"github.com/omeyang/xlockkit/pkg/util/xentitylock"
)

const appName = "xlockbench"

var (
	// errRunComplete 运行时长到期，作为 Group 的正常退出原因
	errRunComplete = errors.New("xlockbench: run complete")

	// errViolations 发现互斥违例
	errViolations = errors.New("xlockbench: mutual exclusion violated")
)

// runBench 运行一次压测并向 stdout 输出汇总。src 非 nil 时监视配置文件以热更新日志级别。
func runBench(ctx context.Context, cfg benchConfig, src xconf.Config, stdout, stderr io.Writer) (err error) {
	logger, closeLog, err := newLogger(cfg.Log, stderr)
	if err != nil {
		return usageErrorf("log: %v", err)
	}
	defer func() { err = errors.Join(err, closeLog()) }()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { err = errors.Join(err, provider.Shutdown(context.WithoutCancel(ctx))) }()

	observer, err := xmetrics.NewOTelObserver(
		xmetrics.WithInstrumentationName(appName),
		xmetrics.WithMeterProvider(provider),
	)
	if err != nil {
		return err
	}

	locker := xentitylock.New[string](
		xentitylock.WithName(appName),
		xentitylock.WithLogger(logger),
		xentitylock.WithObserver(observer),
	)
	b := newBench(cfg, locker, logger)

	services := make([]func(context.Context) error, 0, cfg.Workers+3)
	for i := range cfg.Workers {
		services = append(services, b.worker(i))
	}
	services = append(services, xrun.Timer(cfg.Duration, func(context.Context) error {
		return errRunComplete
	}))
	if cfg.ReportInterval > 0 {
		services = append(services, xrun.Ticker(cfg.ReportInterval, false, b.report))
	}
	if src != nil {
		services = append(services, watchLevel(src, logger))
	}

	logger.Info(ctx, "bench started",
		slog.Int("workers", cfg.Workers),
		slog.Int("keys", cfg.Keys),
		slog.String("mode", cfg.Mode),
		slog.Bool("reentrant", cfg.Reentrant),
		xlog.Duration(cfg.Duration),
	)
	runErr := xrun.RunWithOptions(ctx, []xrun.Option{xrun.WithName(appName), xrun.WithLogger(logger)}, services...)

	switch {
	case runErr == nil, errors.Is(runErr, errRunComplete):
	case errors.Is(runErr, xrun.ErrSignal):
		logger.Warn(ctx, "bench interrupted", xlog.Err(runErr))
	default:
		return fmt.Errorf("bench: %w", runErr)
	}

	totals, err := operationTotals(ctx, reader)
	if err != nil {
		return err
	}
	c := b.counts.snapshot()
	printSummary(stdout, cfg, c, locker.Stats(), totals)

	if c.Violations > 0 {
		return fmt.Errorf("%w: %d violations", errViolations, c.Violations)
	}
	return nil
}

func newLogger(cfg logConfig, stderr io.Writer) (xlog.LoggerWithLevel, func() error, error) {
	b := xlog.New().
		SetOutput(stderr).
		SetLevelString(cfg.Level).
		SetFormat(cfg.Format)
	if cfg.File != "" {
		b = b.SetRotation(cfg.File, xrotate.WithConfig(cfg.Rotate))
	}
	return b.Build()
}

// watchLevel 监视配置文件，log.level 变化时调整日志级别。
func watchLevel(src xconf.Config, logger xlog.LoggerWithLevel) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		w, err := xconf.Watch(src, func(cfg xconf.Config, err error) {
			if err != nil {
				logger.Warn(ctx, "config reload failed", xlog.Err(err))
				return
			}
			s := cfg.Client().String("log.level")
			if s == "" {
				return
			}
			level, err := xlog.ParseLevel(s)
			if err != nil {
				logger.Warn(ctx, "invalid log level in config", xlog.Err(err))
				return
			}
			if level != logger.GetLevel() {
				logger.SetLevel(level)
				logger.Info(ctx, "log level reloaded", slog.String("level", level.String()))
			}
		})
		if err != nil {
			return err
		}
		w.Start()
		<-ctx.Done()
		return w.Stop()
	}
}

// operationTotals 按 operation/status 汇总 xlockkit.operation.total
func operationTotals(ctx context.Context, reader *sdkmetric.ManualReader) (map[string]int64, error) {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.WithoutCancel(ctx), &rm); err != nil {
		return nil, fmt.Errorf("collect metrics: %w", err)
	}

	totals := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != xmetrics.MetricOperationTotal {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				op, _ := dp.Attributes.Value(attribute.Key("operation"))
				status, _ := dp.Attributes.Value(attribute.Key("status"))
				totals[op.AsString()+"/"+status.AsString()] += dp.Value
			}
		}
	}
	return totals, nil
}

func printSummary(w io.Writer, cfg benchConfig, c counters, st xentitylock.Stats, totals map[string]int64) {
	fmt.Fprintf(w, "mode:            %s (reentrant=%t)\n", cfg.Mode, cfg.Reentrant)
	fmt.Fprintf(w, "workers/keys:    %d/%d\n", cfg.Workers, cfg.Keys)
	fmt.Fprintf(w, "acquired:        %d\n", c.Acquired)
	fmt.Fprintf(w, "refused:         %d\n", c.Refused)
	if cfg.Mode == modeBackoff {
		fmt.Fprintf(w, "retries:         %d\n", c.Retries)
	}
	fmt.Fprintf(w, "violations:      %d\n", c.Violations)
	fmt.Fprintf(w, "lock stats:      acquires=%d releases=%d waits=%d timeouts=%d cancellations=%d contended=%d ignored_unlocks=%d keys=%d\n",
		st.Acquires, st.Releases, st.Waits, st.Timeouts, st.Cancellations, st.Contended, st.IgnoredUnlocks, st.Keys)
	for _, k := range slices.Sorted(maps.Keys(totals)) {
		fmt.Fprintf(w, "otel %-24s %d\n", k+":", totals[k])
	}
}
