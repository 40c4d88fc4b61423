package main

import (
	"fmt"
	"slices"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xlockkit/pkg/config/xconf"
	"github.com/omeyang/xlockkit/pkg/observability/xlog"
	"github.com/omeyang/xlockkit/pkg/observability/xrotate"
)

// 加锁模式
const (
	modeLock    = "lock"
	modeTry     = "try"
	modeTimed   = "timed"
	modeBackoff = "backoff"
)

var modes = []string{modeLock, modeTry, modeTimed, modeBackoff}

// benchConfig 压测配置。配置文件与命令行参数一一对应，命令行优先。
type benchConfig struct {
	Workers        int           `koanf:"workers"`
	Keys           int           `koanf:"keys"`
	Duration       time.Duration `koanf:"duration"`
	Hold           time.Duration `koanf:"hold"`
	Timeout        time.Duration `koanf:"timeout"`
	Mode           string        `koanf:"mode"`
	Reentrant      bool          `koanf:"reentrant"`
	ReportInterval time.Duration `koanf:"report_interval"`
	Backoff        backoffConfig `koanf:"backoff"`
	Log            logConfig     `koanf:"log"`
}

// backoffConfig backoff 模式下 TryLock 的重试参数
type backoffConfig struct {
	Attempts uint          `koanf:"attempts"`
	Delay    time.Duration `koanf:"delay"`
	MaxDelay time.Duration `koanf:"max_delay"`
}

type logConfig struct {
	Level  string         `koanf:"level"`
	Format string         `koanf:"format"`
	File   string         `koanf:"file"`
	Rotate xrotate.Config `koanf:"rotate"`
}

func defaultConfig() benchConfig {
	return benchConfig{
		Workers:        8,
		Keys:           4,
		Duration:       5 * time.Second,
		Hold:           100 * time.Microsecond,
		Timeout:        10 * time.Millisecond,
		Mode:           modeLock,
		ReportInterval: time.Second,
		Backoff: backoffConfig{
			Attempts: 5,
			Delay:    100 * time.Microsecond,
			MaxDelay: 5 * time.Millisecond,
		},
		Log: logConfig{
			Level:  "info",
			Format: xlog.FormatText,
			Rotate: xrotate.DefaultConfig(),
		},
	}
}

// loadConfig 依次叠加默认值、配置文件与显式设置的命令行参数。
func loadConfig(cmd *cli.Command) (benchConfig, xconf.Config, error) {
	cfg := defaultConfig()

	var src xconf.Config
	if path := cmd.String(flagConfig); path != "" {
		var err error
		src, err = xconf.New(path)
		if err != nil {
			return cfg, nil, usageErrorf("load config: %v", err)
		}
		cfg, err = xconf.Load(src, "", cfg)
		if err != nil {
			return cfg, nil, usageErrorf("load config: %v", err)
		}
	}

	if cmd.IsSet(flagWorkers) {
		cfg.Workers = cmd.Int(flagWorkers)
	}
	if cmd.IsSet(flagKeys) {
		cfg.Keys = cmd.Int(flagKeys)
	}
	if cmd.IsSet(flagDuration) {
		cfg.Duration = cmd.Duration(flagDuration)
	}
	if cmd.IsSet(flagHold) {
		cfg.Hold = cmd.Duration(flagHold)
	}
	if cmd.IsSet(flagTimeout) {
		cfg.Timeout = cmd.Duration(flagTimeout)
	}
	if cmd.IsSet(flagMode) {
		cfg.Mode = cmd.String(flagMode)
	}
	if cmd.IsSet(flagReentrant) {
		cfg.Reentrant = cmd.Bool(flagReentrant)
	}
	if cmd.IsSet(flagReportInterval) {
		cfg.ReportInterval = cmd.Duration(flagReportInterval)
	}
	if cmd.IsSet(flagLogLevel) {
		cfg.Log.Level = cmd.String(flagLogLevel)
	}

	if err := cfg.validate(); err != nil {
		return cfg, nil, err
	}
	return cfg, src, nil
}

func (c benchConfig) validate() error {
	switch {
	case c.Workers <= 0:
		return usageErrorf("workers must be positive, got %d", c.Workers)
	case c.Keys <= 0:
		return usageErrorf("keys must be positive, got %d", c.Keys)
	case c.Duration <= 0:
		return usageErrorf("duration must be positive, got %s", c.Duration)
	case c.Hold < 0:
		return usageErrorf("hold must not be negative, got %s", c.Hold)
	case !slices.Contains(modes, c.Mode):
		return usageErrorf("unknown mode %q (want one of %v)", c.Mode, modes)
	case c.Mode == modeTimed && c.Timeout <= 0:
		return usageErrorf("timed mode needs a positive timeout, got %s", c.Timeout)
	case c.Mode == modeBackoff && c.Backoff.Attempts == 0:
		return usageErrorf("backoff mode needs at least one attempt")
	case c.ReportInterval < 0:
		return usageErrorf("report interval must not be negative, got %s", c.ReportInterval)
	}
	switch c.Log.Format {
	case "", xlog.FormatText, xlog.FormatJSON:
	default:
		return usageErrorf("unknown log format %q", c.Log.Format)
	}
	if _, err := xlog.ParseLevel(c.Log.Level); err != nil {
		return usageErrorf("log level: %v", err)
	}
	if c.Log.File != "" {
		if err := c.Log.Rotate.Validate(); err != nil {
			return usageErrorf("log rotate: %v", err)
		}
	}
	return nil
}

// usageError 参数或配置错误，退出码 2
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usageErrorf(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}
