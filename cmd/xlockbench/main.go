// xlockbench 在进程内对 xentitylock 施加争用，验证互斥并输出统计。
//
// 用法:
//
//	xlockbench run [--config FILE] [--workers N] [--keys N] [--duration D]
//	               [--hold D] [--timeout D] [--mode lock|try|timed|backoff]
//	               [--reentrant] [--report-interval D] [--log-level L]
//
// 模式:
//
//	lock     Lock 阻塞加锁
//	try      TryLock，被占用时计为 refused
//	timed    TryLockTimeout(--timeout)，到期计为 refused
//	backoff  TryLock + 指数退避重试（backoff.attempts / delay / max_delay）
//
// 配置文件（yaml / json）与参数一一对应，参数优先；log.level 支持热更新。
//
// 退出码:
//
//	0: 运行完成且未发现互斥违例
//	1: 运行失败或发现违例
//	2: 参数或配置错误
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
)

// 版本信息，可通过 -ldflags "-X main.Version=..." 注入
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
)

const (
	flagConfig         = "config"
	flagWorkers        = "workers"
	flagKeys           = "keys"
	flagDuration       = "duration"
	flagHold           = "hold"
	flagTimeout        = "timeout"
	flagMode           = "mode"
	flagReentrant      = "reentrant"
	flagReportInterval = "report-interval"
	flagLogLevel       = "log-level"
)

func main() {
	os.Exit(run(context.Background(), os.Args, os.Stdout, os.Stderr))
}

func createApp(stdout, stderr io.Writer) *cli.Command {
	def := defaultConfig()
	return &cli.Command{
		Name:      "xlockbench",
		Usage:     "xentitylock 争用压测",
		Version:   fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		Writer:    stdout,
		ErrWriter: stderr,
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "运行压测并输出统计",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagConfig, Aliases: []string{"c"}, Usage: "配置文件（yaml/json）"},
					&cli.IntFlag{Name: flagWorkers, Aliases: []string{"w"}, Usage: "并发 worker 数", Value: def.Workers},
					&cli.IntFlag{Name: flagKeys, Aliases: []string{"k"}, Usage: "实体 key 数", Value: def.Keys},
					&cli.DurationFlag{Name: flagDuration, Aliases: []string{"d"}, Usage: "运行时长", Value: def.Duration},
					&cli.DurationFlag{Name: flagHold, Usage: "每次持有锁的时长", Value: def.Hold},
					&cli.DurationFlag{Name: flagTimeout, Usage: "timed 模式的等待上限", Value: def.Timeout},
					&cli.StringFlag{Name: flagMode, Aliases: []string{"m"}, Usage: "lock | try | timed | backoff", Value: def.Mode},
					&cli.BoolFlag{Name: flagReentrant, Usage: "持有期间再重入一次"},
					&cli.DurationFlag{Name: flagReportInterval, Usage: "进度输出间隔，0 关闭", Value: def.ReportInterval},
					&cli.StringFlag{Name: flagLogLevel, Usage: "debug | info | warn | error", Value: def.Log.Level},
				},
				OnUsageError: onUsageError,
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, src, err := loadConfig(cmd)
					if err != nil {
						return err
					}
					return runBench(ctx, cfg, src, stdout, stderr)
				},
			},
		},
		OnUsageError: onUsageError,
		// 退出码由 run 统一映射，不让 cli 直接 os.Exit
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	err := createApp(stdout, stderr).Run(ctx, args)
	if err == nil {
		return 0
	}

	var usageErr *usageError
	if errors.As(err, &usageErr) {
		fmt.Fprintf(stderr, "usage error: %v\n", usageErr)
		return 2
	}
	if isCLIUsageError(err) {
		fmt.Fprintf(stderr, "usage error: %v\n", err)
		return 2
	}
	fmt.Fprintf(stderr, "error: %v\n", err)
	return 1
}

// onUsageError 把 cli 的参数解析错误转为 usageError
func onUsageError(_ context.Context, _ *cli.Command, err error, _ bool) error {
	return &usageError{msg: err.Error()}
}

// isCLIUsageError cli 自身返回的 ExitCoder（如未知命令）按参数错误处理
func isCLIUsageError(err error) bool {
	var exitCoder cli.ExitCoder
	return errors.As(err, &exitCoder)
}
