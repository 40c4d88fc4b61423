package xctx_test

import (
	"context"
	"fmt"

	"github.com/omeyang/xlockkit/pkg/context/xctx"
)

// 每个 goroutine 在入口处确定自己的持有者身份。
func Example_owner() {
	ctx, _ := xctx.WithOwner(context.Background(), "order-worker-1")
	fmt.Println(xctx.OwnerOf(ctx))

	_, err := xctx.RequireOwner(context.Background())
	fmt.Println(err)

	ctx, _ = xctx.EnsureOwner(context.Background())
	fmt.Println(!xctx.OwnerOf(ctx).IsZero())

	// Output:
	// order-worker-1
	// xctx: missing owner
	// true
}

func ExampleEnsureTrace() {
	ctx, _ := xctx.EnsureTrace(context.Background())
	fmt.Println(xctx.GetTrace(ctx).IsComplete())
	// Output: true
}
