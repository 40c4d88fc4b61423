package xconf

import "github.com/knadh/koanf/v2"

// Format 配置格式
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Config 配置接口。基础读取直接使用 Client() 返回的 koanf 实例。
type Config interface {
	// Client 返回当前配置快照
	Client() *koanf.Koanf

	// Unmarshal 将 path 下的配置反序列化到 target，path 为空时反序列化整个配置。
	// 字符串与数字之间允许弱类型转换（"8080" → 8080），
	// time.Duration 字段可以写成 "250ms" 这样的字符串。
	Unmarshal(path string, target any) error

	// Reload 重新读取文件。并发安全；解析失败时保留旧配置。
	// 从字节数据创建的 Config 返回 ErrNotReloadable。
	Reload() error

	// Path 配置文件路径，从字节数据创建时为空
	Path() string

	// Format 配置格式
	Format() Format
}

// MustUnmarshal 与 Config.Unmarshal 相同，失败时 panic。用于启动阶段的必需配置。
func MustUnmarshal(cfg Config, path string, target any) {
	if err := cfg.Unmarshal(path, target); err != nil {
		panic(err)
	}
}

// Load 在 defaults 的副本上反序列化 path 下的配置并返回结果。
// 配置中缺失的字段保留 defaults 中的值。
func Load[T any](cfg Config, path string, defaults T) (T, error) {
	out := defaults
	if err := cfg.Unmarshal(path, &out); err != nil {
		return defaults, err
	}
	return out, nil
}
