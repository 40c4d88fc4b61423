package xctx

import (
	"context"

	"github.com/google/uuid"
)

// KeyOwner 持有者日志属性 key
const KeyOwner = "owner"

const keyOwner = contextKey("xctx:owner")

// Owner 锁持有者标识。
//
// 零值（空字符串）表示"无持有者"，不能作为持有者注入。
type Owner string

// String 实现 fmt.Stringer
func (o Owner) String() string { return string(o) }

// IsZero 判断是否为空持有者
func (o Owner) IsZero() bool { return o == "" }

// NewOwner 生成一个随机持有者标识（UUID v4）。
func NewOwner() Owner {
	return Owner(uuid.NewString())
}

// WithOwner 将持有者注入 context。
//
// ctx 为 nil 返回 ErrNilContext；owner 为空返回 ErrEmptyOwner。
// 与其他字段不同，空 owner 会被拒绝：空值在锁表中表示"未持有"，
// 注入后会让调用方与空闲状态无法区分。
func WithOwner(ctx context.Context, owner Owner) (context.Context, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if owner.IsZero() {
		return nil, ErrEmptyOwner
	}
	return context.WithValue(ctx, keyOwner, owner), nil
}

// OwnerOf 从 context 提取持有者，不存在返回空 Owner。
func OwnerOf(ctx context.Context) Owner {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(keyOwner).(Owner); ok {
		return v
	}
	return ""
}

// RequireOwner 从 context 获取持有者，不存在则返回 ErrMissingOwner。
//
// 如果 ctx 为 nil，返回 ErrNilContext。
func RequireOwner(ctx context.Context) (Owner, error) {
	if ctx == nil {
		return "", ErrNilContext
	}
	v := OwnerOf(ctx)
	if v.IsZero() {
		return "", ErrMissingOwner
	}
	return v, nil
}

// EnsureOwner 确保 context 中存在持有者。
//
// 已存在时原样返回；否则生成新的 UUID 持有者并注入。
// 典型用法：每个 goroutine 在入口处调用一次，之后的加解锁都使用返回的 ctx。
func EnsureOwner(ctx context.Context) (context.Context, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if !OwnerOf(ctx).IsZero() {
		return ctx, nil
	}
	return WithOwner(ctx, NewOwner())
}
