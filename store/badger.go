package store

import (
	"context"
	"encoding/binary"
	"errors"

	"github.com/dgraph-io/badger/v4"

	"github.com/rushteam/hybridrec/core"
)

// BadgerConfig 本地持久化存储配置。
type BadgerConfig struct {
	// Path 数据目录；InMemory 为 true 时忽略
	Path string `koanf:"path"`

	// InMemory 使用 badger 的纯内存模式（测试用）
	InMemory bool `koanf:"in_memory"`

	// SyncWrites 每次写入都 fsync
	SyncWrites bool `koanf:"sync_writes"`
}

// key 布局：
//
//	k\x00{key}            普通 key
//	h\x00{key}\x00{field} hash 字段
//	c\x00{key}            计数器（8 字节大端）
const sep = "\x00"

func plainKey(key string) []byte       { return []byte("k" + sep + key) }
func hashPrefix(key string) []byte     { return []byte("h" + sep + key + sep) }
func hashKey(key, field string) []byte { return []byte("h" + sep + key + sep + field) }
func counterKey(key string) []byte     { return []byte("c" + sep + key) }

// BadgerStore 是基于 BadgerDB 的 KeyValueStore，交互日志在进程重启后仍然保留。
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore 打开（或创建）数据库。
func NewBadgerStore(cfg BadgerConfig) (*BadgerStore, error) {
	if cfg.Path == "" && !cfg.InMemory {
		return nil, core.NewValidationError(core.ModuleStore, "store: badger path is required")
	}
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, wrapErr("badger open", err)
	}
	return &BadgerStore{db: db}, nil
}

// NewBadgerStoreFromDB 复用已打开的数据库，Close 会关闭该数据库。
func NewBadgerStoreFromDB(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func (b *BadgerStore) Name() string { return BackendBadger }

func (b *BadgerStore) Get(ctx context.Context, key string) ([]byte, error) {
	var out []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(plainKey(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, core.ErrStoreNotFound
	}
	if err != nil {
		return nil, wrapErr("badger get", err)
	}
	return out, nil
}

func (b *BadgerStore) Set(ctx context.Context, key string, value []byte) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(plainKey(key), value)
	})
	if err != nil {
		return wrapErr("badger set", err)
	}
	return nil
}

func (b *BadgerStore) HSet(ctx context.Context, key, field string, value []byte) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(hashKey(key, field), value)
	})
	if err != nil {
		return wrapErr("badger hset", err)
	}
	return nil
}

func (b *BadgerStore) HGetAll(ctx context.Context, key string) (map[string][]byte, error) {
	result := make(map[string][]byte)
	prefix := hashPrefix(key)

	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			field := string(item.Key()[len(prefix):])
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			result[field] = val
		}
		return nil
	})
	if err != nil {
		return nil, wrapErr("badger hgetall", err)
	}
	return result, nil
}

// HLen 只遍历 key，不加载 value。
func (b *BadgerStore) HLen(ctx context.Context, key string) (int64, error) {
	var n int64
	prefix := hashPrefix(key)

	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, wrapErr("badger hlen", err)
	}
	return n, nil
}

func (b *BadgerStore) Incr(ctx context.Context, key string) (int64, error) {
	var n int64
	k := counterKey(key)

	// 事务冲突时重试，保证并发自增不丢失
	for {
		err := b.db.Update(func(txn *badger.Txn) error {
			n = 0
			item, err := txn.Get(k)
			switch {
			case errors.Is(err, badger.ErrKeyNotFound):
			case err != nil:
				return err
			default:
				if err := item.Value(func(val []byte) error {
					if len(val) == 8 {
						n = int64(binary.BigEndian.Uint64(val))
					}
					return nil
				}); err != nil {
					return err
				}
			}
			n++
			buf := make([]byte, 8)
			binary.BigEndian.PutUint64(buf, uint64(n))
			return txn.Set(k, buf)
		})
		if errors.Is(err, badger.ErrConflict) {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			continue
		}
		if err != nil {
			return 0, wrapErr("badger incr", err)
		}
		return n, nil
	}
}

func (b *BadgerStore) Close() error {
	return b.db.Close()
}

var _ core.KeyValueStore = (*BadgerStore)(nil)
