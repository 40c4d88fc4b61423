package xentitylock

import (
	"github.com/omeyang/xlockkit/pkg/observability/xlog"
	"github.com/omeyang/xlockkit/pkg/observability/xmetrics"
)

const defaultName = "xentitylock"

// Option 配置 EntityLocker
type Option func(*options)

type options struct {
	name     string
	logger   xlog.Logger
	observer xmetrics.Observer
}

func defaultOptions() options {
	return options{name: defaultName}
}

// WithName 设置日志 component 与观测 component 名称，空值忽略。
// 同一进程内有多张锁表时用于区分。
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithLogger 设置日志。默认不记录日志。
//
// 争用、超时、取消与被忽略的 Unlock 以 Debug 级别记录，日志在 mu 之外写出。
func WithLogger(logger xlog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver 设置观测。Lock 与 TryLockTimeout 各开启一个跨度，
// 结果属性包含 acquired / waited / depth。
func WithObserver(observer xmetrics.Observer) Option {
	return func(o *options) {
		if observer != nil {
			o.observer = observer
		}
	}
}
