package xlog

import "errors"

var (
	// ErrNilHandler NewEnrichHandler 的 base handler 为 nil
	ErrNilHandler = errors.New("xlog: base handler is nil")

	// ErrNilOutput SetOutput 传入 nil writer
	ErrNilOutput = errors.New("xlog: nil output writer")
)
