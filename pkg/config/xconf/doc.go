// Package xconf 基于 koanf 的最小化配置加载器：文件或字节数据加载、
// 反序列化与热重载。
//
// 支持 YAML（.yaml / .yml）与 JSON（.json）。
//
// # 快照语义
//
// Reload 成功后原子替换底层 koanf 实例，解析失败时保留旧配置。
// Client() 返回的是当前快照，Reload 之后旧指针仍可用但数据过期，
// 需要最新配置时重新调用 Client()。
//
// # 默认值
//
// Load 在 defaults 的副本上反序列化，文件中缺失的字段保留默认值：
//
//	cfg, _ := xconf.New("/etc/xlockbench.yaml")
//	bench, err := xconf.Load(cfg, "", DefaultBenchConfig())
//
// # 监视
//
// Watch 基于 fsnotify 监视配置文件所在目录（兼容编辑器的原子写入），
// 内置防抖。回调只在监视 goroutine 中串行执行；
// Stop 返回后不会再有回调开始执行。
package xconf
