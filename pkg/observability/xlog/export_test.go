package xlog

// ErrorCount 返回 logger 的内部错误计数（仅测试使用）
func ErrorCount(l Logger) uint64 {
	if xl, ok := l.(*xlogger); ok {
		return xl.errorCount.Load()
	}
	return 0
}
