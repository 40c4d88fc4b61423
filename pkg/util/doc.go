// Package util 提供通用工具相关的子包。
//
// 子包列表：
//   - xentitylock: 按实体 key 的进程内可重入互斥锁，持有者身份来自 context
package util
