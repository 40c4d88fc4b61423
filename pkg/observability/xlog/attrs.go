package xlog

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/omeyang/xlockkit/pkg/context/xctx"
)

// 标准字段名
const (
	KeyError     = "error"
	KeyStack     = "stack"
	KeyDuration  = "duration"
	KeyCount     = "count"
	KeyComponent = "component"
	KeyOperation = "operation"

	// KeyOwner 与 xctx 保持一致
	KeyOwner = xctx.KeyOwner

	// KeyLockKey 被锁定的实体 key
	KeyLockKey = "lock_key"

	// KeyDepth 重入深度
	KeyDepth = "depth"
)

// Err 创建错误属性，err 为 nil 时返回会被 slog 忽略的空属性
//
//	if err != nil {
//	    logger.Error(ctx, "acquire failed", xlog.Err(err))
//	}
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Duration 创建耗时属性
func Duration(d time.Duration) slog.Attr {
	return slog.String(KeyDuration, d.String())
}

// Component 创建组件名属性
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

// Operation 创建操作名属性
func Operation(name string) slog.Attr {
	return slog.String(KeyOperation, name)
}

// Count 创建计数属性
func Count(n int64) slog.Attr {
	return slog.Int64(KeyCount, n)
}

// Owner 创建持有者属性
func Owner(o xctx.Owner) slog.Attr {
	return slog.String(KeyOwner, string(o))
}

// LockKey 创建实体 key 属性，非字符串 key 使用 %v 格式化
func LockKey(key any) slog.Attr {
	switch k := key.(type) {
	case string:
		return slog.String(KeyLockKey, k)
	case fmt.Stringer:
		return slog.String(KeyLockKey, k.String())
	default:
		return slog.String(KeyLockKey, fmt.Sprintf("%v", k))
	}
}

// Depth 创建重入深度属性
func Depth(n uint32) slog.Attr {
	return slog.Uint64(KeyDepth, uint64(n))
}
