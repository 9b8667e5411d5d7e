// Package store 提供 core.Store / core.KeyValueStore 的实现。
//
// 注意：此包只包含实现，接口定义在 core 包。
//
// 示例：
//
//	var kv core.KeyValueStore = store.NewMemoryStore()
//	kv, err := store.NewBadgerStore(store.BadgerConfig{Path: "/var/lib/hybridrec"})
//	kv, err := store.NewRedisStore(store.RedisConfig{Addr: "localhost:6379"})
package store

import (
	"fmt"

	"github.com/rushteam/hybridrec/core"
)

// 后端名称
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
	BackendRedis  = "redis"
)

// Config 选择并配置存储后端。
type Config struct {
	Backend string       `koanf:"backend" validate:"oneof=memory badger redis"`
	Badger  BadgerConfig `koanf:"badger"`
	Redis   RedisConfig  `koanf:"redis"`
}

// Open 按配置打开存储后端。
func Open(cfg Config) (core.KeyValueStore, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendBadger:
		return NewBadgerStore(cfg.Badger)
	case BackendRedis:
		return NewRedisStore(cfg.Redis)
	default:
		return nil, core.NewValidationError(core.ModuleStore, "store: unknown backend %q", cfg.Backend)
	}
}

func wrapErr(op string, err error) error {
	return &core.DomainError{
		Module:  core.ModuleStore,
		Code:    core.ErrorCodeUnavailable,
		Message: fmt.Sprintf("store: %s failed", op),
		Err:     err,
	}
}
