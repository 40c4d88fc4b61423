package xconf

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 100 * time.Millisecond

// WatchCallback 配置变更回调，err 非 nil 表示重载失败（旧配置仍然生效）
// 或监视本身出错。
type WatchCallback func(cfg Config, err error)

// WatchOption 监视选项
type WatchOption func(*watchOptions)

type watchOptions struct {
	debounce time.Duration
}

// WithDebounce 设置防抖时间，时间窗口内的多次变更只触发一次重载。
// 非正值忽略，默认 100ms。
func WithDebounce(d time.Duration) WatchOption {
	return func(o *watchOptions) {
		if d > 0 {
			o.debounce = d
		}
	}
}

// Watcher 配置文件监视器
type Watcher struct {
	cfg      *koanfConfig
	fs       *fsnotify.Watcher
	callback WatchCallback
	debounce time.Duration
	filename string

	mu      sync.Mutex
	started bool
	stopped bool
	stop    chan struct{}
	done    chan struct{}

	// runGoroutine 监视 goroutine 的 id，回调只在该 goroutine 上执行
	runGoroutine atomic.Uint64
}

// Watch 创建监视器，调用 Start 后开始监视。
//
// 监视的是配置文件所在目录而非文件本身：编辑器保存时可能先删除再创建，
// 直接监视文件会丢失后续事件。
func Watch(cfg Config, callback WatchCallback, opts ...WatchOption) (*Watcher, error) {
	kc, ok := cfg.(*koanfConfig)
	if !ok {
		return nil, ErrUnsupportedConfig
	}
	if kc.path == "" {
		return nil, ErrNotReloadable
	}

	o := &watchOptions{debounce: defaultDebounce}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("xconf: create watcher: %w", err)
	}
	dir := filepath.Dir(kc.path)
	if err := fs.Add(dir); err != nil {
		return nil, errors.Join(fmt.Errorf("xconf: watch directory %s: %w", dir, err), fs.Close())
	}

	return &Watcher{
		cfg:      kc,
		fs:       fs,
		callback: callback,
		debounce: o.debounce,
		filename: filepath.Base(kc.path),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start 在后台 goroutine 中开始监视并立即返回。重复调用或 Stop 之后调用无效果。
func (w *Watcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started || w.stopped {
		return
	}
	w.started = true
	go w.run()
}

// Stop 停止监视并释放 fsnotify 资源，可重复调用。
//
// 返回后不会再有回调执行：正在执行的回调会先结束。
// 在回调内调用 Stop 不会等待当前回调返回。
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	started := w.started
	close(w.stop)
	w.mu.Unlock()

	err := w.fs.Close()
	if started && goroutineID() != w.runGoroutine.Load() {
		<-w.done
	}
	return err
}

func (w *Watcher) run() {
	defer close(w.done)
	w.runGoroutine.Store(goroutineID())

	// 防抖定时器只在本 goroutine 中使用
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-w.stop:
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if w.relevant(event) {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.notify(fmt.Errorf("xconf: watch error: %w", err))

		case <-timer.C:
			w.notify(w.cfg.Reload())
		}
	}
}

// relevant 只关心目标文件的写入、创建与 rename（原子写入）事件
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Base(event.Name) != w.filename {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

func (w *Watcher) notify(err error) {
	select {
	case <-w.stop:
		return
	default:
	}
	if w.callback == nil {
		return
	}
	w.callback(w.cfg, err)
}

// goroutineID 从 runtime.Stack 的首行 "goroutine N [running]:" 解析当前 goroutine id
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	fields := bytes.Fields(buf[:n])
	if len(fields) < 2 {
		return 0
	}
	id, err := strconv.ParseUint(string(fields[1]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// Watch 等价于 xconf.Watch(c, ...)
func (c *koanfConfig) Watch(callback WatchCallback, opts ...WatchOption) (*Watcher, error) {
	return Watch(c, callback, opts...)
}
