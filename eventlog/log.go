// Package eventlog 是只追加的用户交互日志。
//
// 日志是交互矩阵的唯一数据来源：矩阵总是由日志全量重建，
// 因此事件写入成功即视为持久化完成，后续的训练失败不会回滚事件。
package eventlog

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/store"
)

// Log 是交互日志的抽象。
type Log interface {
	// Append 校验并追加一条事件；校验失败不产生任何记录
	Append(ctx context.Context, ev core.InteractionEvent) error

	// Events 按写入顺序返回全部事件
	Events(ctx context.Context) ([]core.InteractionEvent, error)

	// Len 返回事件条数
	Len(ctx context.Context) (int, error)

	Close() error
}

// DefaultPrefix 是 StoreLog 的默认 key 前缀。
const DefaultPrefix = "hybridrec"

// seqWidth 是序号字段的定长宽度，保证字典序与数值序一致。
const seqWidth = 20

// StoreLog 把事件以 JSON 文档写入 KeyValueStore 的一个 hash：
//
//	{prefix}:events  field=零填充序号  value=JSON 事件
//	{prefix}:seq     原子计数器
type StoreLog struct {
	kv     core.KeyValueStore
	prefix string
	now    func() time.Time

	mu sync.Mutex
}

// Option 配置 StoreLog。
type Option func(*StoreLog)

// WithPrefix 设置 key 前缀，多个引擎共享同一个 Redis 时用它隔离。
func WithPrefix(prefix string) Option {
	return func(l *StoreLog) {
		if prefix != "" {
			l.prefix = prefix
		}
	}
}

// WithClock 设置补全时间戳用的时钟。
func WithClock(now func() time.Time) Option {
	return func(l *StoreLog) {
		if now != nil {
			l.now = now
		}
	}
}

// NewStoreLog 在给定存储上打开交互日志。已有记录保持可见。
func NewStoreLog(kv core.KeyValueStore, opts ...Option) *StoreLog {
	l := &StoreLog{
		kv:     kv,
		prefix: DefaultPrefix,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewMemoryLog 返回内存日志，测试与单进程场景使用。
func NewMemoryLog(opts ...Option) *StoreLog {
	return NewStoreLog(store.NewMemoryStore(), opts...)
}

func (l *StoreLog) eventsKey() string { return l.prefix + ":events" }
func (l *StoreLog) seqKey() string    { return l.prefix + ":seq" }

// Backend 返回底层存储名称。
func (l *StoreLog) Backend() string { return l.kv.Name() }

func (l *StoreLog) Append(ctx context.Context, ev core.InteractionEvent) error {
	if err := core.ValidateEvent(ev); err != nil {
		return err
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = l.now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("eventlog: marshal event: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	seq, err := l.kv.Incr(ctx, l.seqKey())
	if err != nil {
		return fmt.Errorf("eventlog: allocate sequence: %w", err)
	}
	if err := l.kv.HSet(ctx, l.eventsKey(), formatSeq(seq), data); err != nil {
		return fmt.Errorf("eventlog: write event %d: %w", seq, err)
	}
	return nil
}

func (l *StoreLog) Events(ctx context.Context) ([]core.InteractionEvent, error) {
	raw, err := l.kv.HGetAll(ctx, l.eventsKey())
	if err != nil {
		return nil, fmt.Errorf("eventlog: read events: %w", err)
	}

	fields := make([]string, 0, len(raw))
	for f := range raw {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	events := make([]core.InteractionEvent, 0, len(fields))
	for _, f := range fields {
		var ev core.InteractionEvent
		if err := json.Unmarshal(raw[f], &ev); err != nil {
			return nil, &core.DomainError{
				Module:  core.ModuleEventLog,
				Code:    core.ErrorCodeInternalError,
				Message: fmt.Sprintf("eventlog: corrupt record %s", f),
				Err:     err,
			}
		}
		events = append(events, ev)
	}
	return events, nil
}

func (l *StoreLog) Len(ctx context.Context) (int, error) {
	n, err := l.kv.HLen(ctx, l.eventsKey())
	if err != nil {
		return 0, fmt.Errorf("eventlog: count events: %w", err)
	}
	return int(n), nil
}

// Close 关闭底层存储。
func (l *StoreLog) Close() error {
	return l.kv.Close()
}

func formatSeq(seq int64) string {
	return fmt.Sprintf("%0*d", seqWidth, seq)
}

var _ Log = (*StoreLog)(nil)
