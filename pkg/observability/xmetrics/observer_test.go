package xmetrics_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/omeyang/xlockkit/pkg/observability/xmetrics"
	"github.com/omeyang/xlockkit/pkg/observability/xmetrics/xmetricsmock"
)

func TestStart_NilObserver(t *testing.T) {
	//nolint:staticcheck // 测试 nil context
	ctx, span := xmetrics.Start(nil, nil, xmetrics.SpanOptions{})
	assert.NotNil(t, ctx)
	assert.Equal(t, xmetrics.NoopSpan{}, span)
}

func TestStart_NilReturnsFallback(t *testing.T) {
	ctrl := gomock.NewController(t)
	obs := xmetricsmock.NewMockObserver(ctrl)
	opts := xmetrics.SpanOptions{Component: "c", Operation: "o"}

	obs.EXPECT().Start(gomock.Any(), opts).Return(nil, nil)

	ctx := context.Background()
	gotCtx, span := xmetrics.Start(ctx, obs, opts)
	assert.Equal(t, ctx, gotCtx)
	assert.Equal(t, xmetrics.NoopSpan{}, span)
}

func TestStart_DelegatesToObserver(t *testing.T) {
	ctrl := gomock.NewController(t)
	obs := xmetricsmock.NewMockObserver(ctrl)
	span := xmetricsmock.NewMockSpan(ctrl)

	type key struct{}
	derived := context.WithValue(context.Background(), key{}, "v")
	obs.EXPECT().Start(gomock.Any(), gomock.Any()).Return(derived, span)
	span.EXPECT().End(xmetrics.Result{Status: xmetrics.StatusTimeout})

	ctx, got := xmetrics.Start(context.Background(), obs, xmetrics.SpanOptions{})
	assert.Equal(t, "v", ctx.Value(key{}))
	got.End(xmetrics.Result{Status: xmetrics.StatusTimeout})
}

func TestNoopObserver(t *testing.T) {
	//nolint:staticcheck // 测试 nil context
	ctx, span := xmetrics.NoopObserver{}.Start(nil, xmetrics.SpanOptions{})
	assert.NotNil(t, ctx)
	assert.NotPanics(t, func() { span.End(xmetrics.Result{}) })
}
