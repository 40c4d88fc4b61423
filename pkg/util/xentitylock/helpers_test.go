package xentitylock_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/omeyang/xlockkit/pkg/context/xctx"
)

// as 返回携带指定持有者的 context
func as(t testing.TB, owner string) context.Context {
	t.Helper()
	return asCtx(t, context.Background(), owner)
}

func asCtx(t testing.TB, parent context.Context, owner string) context.Context {
	t.Helper()
	ctx, err := xctx.WithOwner(parent, xctx.Owner(owner))
	require.NoError(t, err)
	return ctx
}

// result 在 goroutine 中收集的加锁结果
type result struct {
	ok  bool
	err error
}
