package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/eventlog"
)

type options struct {
	logger     *zerolog.Logger
	log        eventlog.Log
	kv         core.KeyValueStore
	registerer prometheus.Registerer
	now        func() time.Time
}

// Option 配置 Engine。
type Option func(*options)

// WithLogger 替换按 logging 配置创建的 logger。
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = &logger }
}

// WithEventLog 注入交互日志，Engine 不负责关闭它。
// 未设置时在 WithStore 指定的存储上创建，两者都未设置则按 store 配置打开存储。
func WithEventLog(log eventlog.Log) Option {
	return func(o *options) { o.log = log }
}

// WithStore 指定交互日志使用的存储，Engine 不负责关闭它。
func WithStore(kv core.KeyValueStore) Option {
	return func(o *options) { o.kv = kv }
}

// WithRegisterer 指定指标注册表，默认每个 Engine 使用独立的 prometheus.Registry。
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithClock 替换时钟，测试使用。
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
