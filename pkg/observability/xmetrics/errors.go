package xmetrics

import "errors"

var (
	// ErrCreateCounter 创建 OTel Counter 失败
	ErrCreateCounter = errors.New("xmetrics: create counter failed")

	// ErrCreateHistogram 创建 OTel Histogram 失败
	ErrCreateHistogram = errors.New("xmetrics: create histogram failed")

	// ErrInvalidBuckets 直方图桶边界为空或非严格递增
	ErrInvalidBuckets = errors.New("xmetrics: invalid histogram buckets")
)
