// Package engine 组装混合推荐引擎：文本索引、交互日志、ALS 模型与推荐 Pipeline。
//
// Engine 在进程启动时构造一次，作为显式的上下文对象传给各请求处理方，
// 包内没有全局可变状态。
//
// 写路径（追加事件、重建矩阵、重训模型）由单个互斥锁串行化；
// 读路径通过 atomic.Pointer 读取不可变的状态快照，
// 永远不会看到正在重建的矩阵或正在训练的模型。
package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/rushteam/hybridrec/config"
	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/eventlog"
	"github.com/rushteam/hybridrec/lexical"
	"github.com/rushteam/hybridrec/matrix"
	"github.com/rushteam/hybridrec/model"
	"github.com/rushteam/hybridrec/pipeline"
	"github.com/rushteam/hybridrec/pkg/logging"
	"github.com/rushteam/hybridrec/store"
)

// 重训触发来源
const (
	triggerStartup   = "startup"
	triggerEager     = "eager"
	triggerThreshold = "threshold"
	triggerInterval  = "interval"
	triggerStale     = "stale"
	triggerManual    = "manual"
)

// ErrClosed 在 Engine 关闭后调用任何操作时返回。
var ErrClosed = core.NewDomainError(core.ModuleEngine, core.ErrorCodeUnavailable, "engine: closed")

// Engine 是混合推荐引擎。所有方法都可以并发调用。
type Engine struct {
	settings *config.Settings
	index    lexical.Index
	log      eventlog.Log
	kv       core.KeyValueStore
	ownsLog  bool

	logger   zerolog.Logger
	metrics  *metrics
	pipeline *pipeline.Pipeline
	now      func() time.Time
	train    func(ctx context.Context, m *matrix.Matrix, cfg model.ALSConfig) (*model.MF, error)

	current atomic.Pointer[state]
	writeMu sync.Mutex
	stale   singleflight.Group
	closed  atomic.Bool
}

// New 构建引擎：建立文本索引，打开交互日志，并用日志中已有的事件训练初始模型。
//
// settings 为 nil 时使用 config.Default()。目录为空或目录非法时返回错误，
// 文本索引是启动期依赖，不在请求期降级。
func New(ctx context.Context, items []core.CatalogItem, settings *config.Settings, opts ...Option) (*Engine, error) {
	if settings == nil {
		settings = config.Default()
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	o := &options{now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	logger := logging.New(settings.Logging)
	if o.logger != nil {
		logger = *o.logger
	}
	if o.registerer == nil {
		o.registerer = prometheus.NewRegistry()
	}

	index, err := lexical.New(settings.Lexical.Strategy, items, settings.Lexical.Options()...)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		settings: settings,
		index:    index,
		log:      o.log,
		kv:       o.kv,
		logger:   logging.Component(logger, "engine"),
		metrics:  newMetrics(o.registerer),
		now:      o.now,
		train:    model.Train,
	}

	if e.log == nil {
		if e.kv == nil {
			kv, err := store.Open(settings.Store)
			if err != nil {
				return nil, err
			}
			e.kv = kv
			e.ownsLog = true
		}
		e.log = eventlog.NewStoreLog(e.kv,
			eventlog.WithPrefix(settings.EventLog.Prefix),
			eventlog.WithClock(o.now),
		)
	}

	empty := matrix.Empty()
	e.current.Store(&state{
		snapshot: &Snapshot{ID: uuid.NewString(), Matrix: empty, TrainedAt: e.now()},
		live:     empty,
	})

	if err := e.recover(ctx); err != nil {
		e.closeLog()
		return nil, err
	}

	p, err := e.buildPipeline()
	if err != nil {
		e.closeLog()
		return nil, err
	}
	e.pipeline = p

	e.logger.Info().
		Str("lexical", index.Name()).
		Int("items", len(index.IDs())).
		Str("retrain_policy", settings.Retrain.Policy).
		Msg("engine started")
	return e, nil
}

// recover 用日志中已有的事件训练初始模型；空日志不是错误。
func (e *Engine) recover(ctx context.Context) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	_, err := e.retrainLocked(ctx, triggerStartup)
	if core.IsInsufficientData(err) {
		return nil
	}
	return err
}

// Settings 返回引擎使用的配置，调用方不应修改。
func (e *Engine) Settings() *config.Settings { return e.settings }

// Index 返回文本索引。
func (e *Engine) Index() lexical.Index { return e.index }

// Snapshot 返回当前发布的模型快照。
func (e *Engine) Snapshot() *Snapshot { return e.current.Load().snapshot }

// Pending 返回上次成功重训之后追加的事件数。
func (e *Engine) Pending() int { return e.current.Load().pending }

// ResolveTitle 按标题精确匹配物品 ID（区分大小写与空白），
// 无法解析时返回 core.UnresolvedItemID（-1）。
func (e *Engine) ResolveTitle(title string) int64 {
	if id, ok := e.index.Lookup(title); ok {
		return id
	}
	return core.UnresolvedItemID
}

func (e *Engine) inCatalog(id int64) bool {
	_, ok := e.index.Title(id)
	return ok
}

// LogEvent 校验并追加一条交互事件，然后按重训策略更新模型。
//
// 非法事件（字段缺失、未知 action、物品不在目录中）返回 INVALID_INPUT，不落盘。
// 追加成功后重训失败只记录日志，事件保持待训练状态，调用仍然成功。
func (e *Engine) LogEvent(ctx context.Context, ev core.InteractionEvent) error {
	if e.closed.Load() {
		return ErrClosed
	}
	action := string(ev.Action)
	if !ev.Action.Valid() {
		action = "unknown"
	}
	if err := core.ValidateEvent(ev); err != nil {
		e.metrics.events.WithLabelValues(action, "invalid").Inc()
		return err
	}
	if !e.inCatalog(ev.ItemID) {
		e.metrics.events.WithLabelValues(action, "invalid").Inc()
		return core.NewValidationError(core.ModuleEngine, "engine: item %d is not in the catalog", ev.ItemID)
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	if err := e.log.Append(ctx, ev); err != nil {
		e.metrics.events.WithLabelValues(action, "error").Inc()
		return err
	}
	e.metrics.events.WithLabelValues(action, "ok").Inc()

	prev := e.current.Load()
	next := &state{snapshot: prev.snapshot, live: prev.live, pending: prev.pending + 1}
	m, events, err := e.rebuildLocked(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Msg("rebuild interaction matrix failed")
	} else {
		next.live = m
	}
	e.current.Store(next)
	e.metrics.pendingEvents.Set(float64(next.pending))

	trigger, ok := e.retrainTrigger(next.pending)
	if !ok || err != nil {
		return nil
	}
	if _, err := e.trainLocked(ctx, trigger, m, events); err != nil {
		e.logger.Warn().Err(err).Str("trigger", trigger).Int("pending", next.pending).Msg("retrain failed, events left pending")
	}
	return nil
}

// LogEventByTitle 先把标题解析为物品 ID 再记录事件。
// 标题无法解析或 action 无法识别时返回 INVALID_INPUT。
func (e *Engine) LogEventByTitle(
	ctx context.Context,
	userID int64,
	title, action, source string,
	ts time.Time,
) error {
	itemID := e.ResolveTitle(title)
	if itemID == core.UnresolvedItemID {
		return core.NewValidationError(core.ModuleEngine, "engine: unresolved title %q", title)
	}
	a, err := core.ParseAction(action)
	if err != nil {
		return err
	}
	return e.LogEvent(ctx, core.InteractionEvent{
		Timestamp:     ts,
		UserID:        userID,
		ItemID:        itemID,
		Action:        a,
		SourceContext: source,
	})
}

func (e *Engine) retrainTrigger(pending int) (string, bool) {
	switch e.settings.Retrain.Policy {
	case config.RetrainEager:
		return triggerEager, true
	case config.RetrainThreshold:
		return triggerThreshold, pending >= e.settings.Retrain.Threshold
	default:
		return "", false
	}
}

// Retrain 立即用完整日志重训并发布新快照。日志为空时返回 INSUFFICIENT_DATA。
func (e *Engine) Retrain(ctx context.Context) (*Snapshot, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	return e.retrainLocked(ctx, triggerManual)
}

// RetrainPending 仅在有待训练事件时重训，返回是否发生了重训。
// interval 策略下由 RetrainService 周期调用。
func (e *Engine) RetrainPending(ctx context.Context) (bool, error) {
	if e.closed.Load() {
		return false, ErrClosed
	}
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	if e.current.Load().pending == 0 {
		return false, nil
	}
	if _, err := e.retrainLocked(ctx, triggerInterval); err != nil {
		return false, err
	}
	return true, nil
}

// rebuildLocked 由完整日志构建矩阵，同时返回日志中的事件数。
func (e *Engine) rebuildLocked(ctx context.Context) (*matrix.Matrix, int, error) {
	events, err := e.log.Events(ctx)
	if err != nil {
		return nil, 0, err
	}
	m, err := matrix.Build(events)
	if err != nil {
		return nil, 0, err
	}
	return m, len(events), nil
}

// retrainLocked 重建矩阵、训练模型并原子发布新状态。调用方必须持有 writeMu。
func (e *Engine) retrainLocked(ctx context.Context, trigger string) (*Snapshot, error) {
	m, events, err := e.rebuildLocked(ctx)
	if err != nil {
		e.metrics.retrains.WithLabelValues(trigger, outcome(err)).Inc()
		return nil, err
	}
	return e.trainLocked(ctx, trigger, m, events)
}

// trainLocked 在已构建的矩阵上训练并发布快照，events 是构建 m 时的日志事件数。
func (e *Engine) trainLocked(ctx context.Context, trigger string, m *matrix.Matrix, events int) (snap *Snapshot, err error) {
	start := time.Now()
	defer func() {
		if core.IsInsufficientData(err) {
			return
		}
		e.metrics.retrains.WithLabelValues(trigger, outcome(err)).Inc()
		e.metrics.retrainDuration.Observe(time.Since(start).Seconds())
	}()

	if m.IsEmpty() {
		return nil, core.NewInsufficientDataError("engine: interaction log is empty")
	}

	mf, err := e.train(ctx, m, e.settings.ALS)
	if err != nil {
		return nil, err
	}

	snap = &Snapshot{
		ID:        uuid.NewString(),
		Matrix:    m,
		Model:     mf,
		Events:    events,
		TrainedAt: e.now(),
	}
	e.current.Store(&state{snapshot: snap, live: m})
	e.metrics.observeSnapshot(snap, 0)

	e.logger.Info().
		Str("snapshot", snap.ID).
		Str("trigger", trigger).
		Int("events", snap.Events).
		Int("users", m.Rows()).
		Int("items", m.Cols()).
		Dur("cost", time.Since(start)).
		Msg("model retrained")
	return snap, nil
}

// Collaborative 实现 recall.CollaborativeScorer。
//
// 有待训练事件时用最新矩阵打分：新用户返回 OUT_OF_RANGE，
// 新物品使矩阵列数与模型不一致，此时同步重训一次并重试；
// 并发请求共享同一次重训。重试后仍不一致返回 STALE_MODEL。
func (e *Engine) Collaborative(ctx context.Context, userID int64, topN int) ([]core.Scored, error) {
	scored, err := e.current.Load().score(userID, topN, e.inCatalog)
	if core.IsStaleModel(err) {
		e.logger.Debug().Err(err).Int64("user_id", userID).Msg("stale model, retraining before retry")
		st, rerr := e.retrainStale(ctx)
		if rerr != nil {
			e.metrics.fallbacks.WithLabelValues(fallbackRecallError).Inc()
			return nil, rerr
		}
		scored, err = st.score(userID, topN, e.inCatalog)
	}

	switch {
	case err == nil:
	case core.IsOutOfRange(err):
		e.metrics.fallbacks.WithLabelValues(fallbackOutOfRange).Inc()
	case core.IsInsufficientData(err):
		e.metrics.fallbacks.WithLabelValues(fallbackInsufficientData).Inc()
	case core.IsStaleModel(err):
		e.logger.Error().Err(err).Int64("user_id", userID).Msg("model still stale after retrain")
	default:
		e.metrics.fallbacks.WithLabelValues(fallbackRecallError).Inc()
	}
	return scored, err
}

// retrainStale 在写锁内确认当前状态仍然过期后重训，返回用于重试的状态。
// 其他写入者已经发布了一致的状态时不再重训。
func (e *Engine) retrainStale(ctx context.Context) (*state, error) {
	v, err, _ := e.stale.Do(triggerStale, func() (any, error) {
		e.writeMu.Lock()
		defer e.writeMu.Unlock()

		if st := e.current.Load(); !st.stale() {
			return st, nil
		}
		if _, err := e.retrainLocked(ctx, triggerStale); err != nil {
			return nil, err
		}
		return e.current.Load(), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*state), nil
}

// Close 关闭引擎；只关闭引擎自己打开的存储。
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	return e.closeLog()
}

func (e *Engine) closeLog() error {
	if !e.ownsLog || e.log == nil {
		return nil
	}
	return e.log.Close()
}
