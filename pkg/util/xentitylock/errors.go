package xentitylock

import "errors"

var (
	// ErrNilKey key 为 nil 指针或 nil 接口
	ErrNilKey = errors.New("xentitylock: nil key")

	// ErrCancelled 等待期间 ctx 被取消或到期。
	// 返回的错误同时包装 context.Cause(ctx)，
	// errors.Is(err, context.Canceled) / context.DeadlineExceeded 同样成立。
	ErrCancelled = errors.New("xentitylock: cancelled")
)
