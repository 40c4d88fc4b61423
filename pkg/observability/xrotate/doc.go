// Package xrotate 提供按大小轮转的日志文件写入器。
//
// Rotator 是 io.WriteCloser 的超集，附加 Rotate 手动轮转。
// 当前实现 [NewLumberjack] 基于 gopkg.in/natefinch/lumberjack.v2，
// 供 xlog.Builder.SetRotation 与 xlockbench 的 log.file 配置使用。
package xrotate
