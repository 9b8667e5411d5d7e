package engine

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/rushteam/hybridrec/config"
	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/eventlog"
	"github.com/rushteam/hybridrec/matrix"
	"github.com/rushteam/hybridrec/model"
	"github.com/rushteam/hybridrec/store"
)

var testCatalog = []core.CatalogItem{
	{ID: 0, Title: "Go Concurrency", Body: "goroutines channels select concurrency in go"},
	{ID: 1, Title: "Go Channels", Body: "channels buffered unbuffered go"},
	{ID: 2, Title: "Pasta", Body: "boil pasta water salt"},
	{ID: 3, Title: "Rust", Body: "ownership borrow checker rust"},
	{ID: 4, Title: "Pizza", Body: "pizza dough cheese oven"},
	{ID: 5, Title: "Go Channels", Body: "channel patterns in go pipelines"},
}

func testSettings() *config.Settings {
	s := config.Default()
	s.ALS.Iterations = 5
	s.ALS.Factors = 4
	return s
}

func newTestEngine(t *testing.T, mutate func(*config.Settings), opts ...Option) *Engine {
	t.Helper()
	s := testSettings()
	if mutate != nil {
		mutate(s)
	}
	opts = append([]Option{WithLogger(zerolog.Nop())}, opts...)
	e, err := New(context.Background(), testCatalog, s, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func event(user, item int64, action core.Action) core.InteractionEvent {
	return core.InteractionEvent{UserID: user, ItemID: item, Action: action}
}

func mustLog(t *testing.T, e *Engine, evs ...core.InteractionEvent) {
	t.Helper()
	for _, ev := range evs {
		if err := e.LogEvent(context.Background(), ev); err != nil {
			t.Fatalf("LogEvent(%+v): %v", ev, err)
		}
	}
}

func TestNew_Errors(t *testing.T) {
	invalid := testSettings()
	invalid.Fusion.LexicalWeight = 0
	invalid.Fusion.CollaborativeWeight = 0

	tests := []struct {
		name     string
		items    []core.CatalogItem
		settings *config.Settings
	}{
		{"empty catalog", nil, testSettings()},
		{"duplicate item", []core.CatalogItem{{ID: 1, Body: "a"}, {ID: 1, Body: "b"}}, testSettings()},
		{"invalid settings", testCatalog, invalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(context.Background(), tt.items, tt.settings, WithLogger(zerolog.Nop())); !core.IsValidation(err) {
				t.Errorf("New = %v, want validation error", err)
			}
		})
	}
}

func TestRecommend_EmptyLogIsLexicalOnly(t *testing.T) {
	e := newTestEngine(t, nil)

	for _, user := range []int64{core.AnonymousUser, 0, 7} {
		got, err := e.Recommend(context.Background(), Request{UserID: user, Keyword: "channels"})
		if err != nil {
			t.Fatalf("user %d: Recommend: %v", user, err)
		}
		if len(got) != 3 || got[0] != 1 || got[1] != 0 {
			t.Errorf("user %d: Recommend = %v, want [1 0 ...]", user, got)
		}
	}
	if e.Snapshot().Model != nil {
		t.Error("empty log must not produce a model")
	}
	if got := testutil.ToFloat64(e.metrics.fallbacks.WithLabelValues(fallbackInsufficientData)); got != 2 {
		t.Errorf("insufficient_data fallbacks = %v, want 2", got)
	}
	if got := testutil.ToFloat64(e.metrics.fallbacks.WithLabelValues(fallbackAnonymous)); got != 1 {
		t.Errorf("anonymous fallbacks = %v, want 1", got)
	}
}

func TestRecommend_QueryTitleExcluded(t *testing.T) {
	e := newTestEngine(t, nil)

	got, err := e.Recommend(context.Background(), Request{UserID: core.AnonymousUser, Keyword: "Pasta", TopN: 10})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	for _, id := range got {
		if id == 2 {
			t.Errorf("Recommend = %v, item titled like the keyword must be excluded", got)
		}
	}
	if len(got) != len(testCatalog)-1 {
		t.Errorf("len = %d, want %d", len(got), len(testCatalog)-1)
	}
}

func TestRecommend_TopNAndDedup(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	if _, err := e.Recommend(ctx, Request{TopN: -1}); !core.IsValidation(err) {
		t.Errorf("negative TopN = %v, want validation error", err)
	}

	all, err := e.Recommend(ctx, Request{UserID: core.AnonymousUser, Keyword: "go channels", TopN: 10})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	deduped, err := e.Recommend(ctx, Request{UserID: core.AnonymousUser, Keyword: "go channels", TopN: 10, DedupTitles: true})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(deduped) != len(all)-1 {
		t.Errorf("dedup = %v, all = %v; want one duplicate title collapsed", deduped, all)
	}
	// 1 与 5 同名，保留分数高的 1
	if !containsID(deduped, 1) || containsID(deduped, 5) {
		t.Errorf("dedup = %v, want 1 kept and 5 dropped", deduped)
	}
}

func TestLogEvent_MatrixCellAccumulates(t *testing.T) {
	e := newTestEngine(t, nil)
	mustLog(t, e,
		event(1, 5, core.ActionClick),
		event(1, 5, core.ActionBookmark),
	)

	snap := e.Snapshot()
	if snap.Model == nil {
		t.Fatal("eager policy must train after every event")
	}
	if got := snap.Matrix.At(1, 5); got != 4.0 {
		t.Errorf("cell (1,5) = %v, want 4.0", got)
	}
	if snap.Events != 2 || e.Pending() != 0 {
		t.Errorf("Events = %d, Pending = %d", snap.Events, e.Pending())
	}
	if snap.Model.ItemCount() != snap.Matrix.Cols() || snap.Model.UserCount() != snap.Matrix.Rows() {
		t.Errorf("model %dx%d does not match matrix %dx%d",
			snap.Model.UserCount(), snap.Model.ItemCount(), snap.Matrix.Rows(), snap.Matrix.Cols())
	}
}

func TestLogEvent_NewUserGrowsRows(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()
	mustLog(t, e,
		event(0, 0, core.ActionClick),
		event(0, 1, core.ActionNavigate),
		event(1, 1, core.ActionBookmark),
	)
	before := e.Snapshot().Matrix.Rows()

	mustLog(t, e, event(2, 3, core.ActionClick))
	if after := e.Snapshot().Matrix.Rows(); after != before+1 {
		t.Fatalf("rows = %d, want %d", after, before+1)
	}

	if _, err := e.Collaborative(ctx, 2, 10); err != nil {
		t.Errorf("Collaborative for the new user: %v", err)
	}
	if _, err := e.Recommend(ctx, Request{UserID: 2, Keyword: "go"}); err != nil {
		t.Errorf("Recommend for the new user: %v", err)
	}
}

func TestLogEvent_Invalid(t *testing.T) {
	e := newTestEngine(t, nil)
	tests := []struct {
		name string
		ev   core.InteractionEvent
	}{
		{"unknown action", event(0, 1, core.Action("like"))},
		{"missing action", event(0, 1, "")},
		{"negative user", event(-1, 1, core.ActionClick)},
		{"negative item", event(0, -1, core.ActionClick)},
		{"item not in catalog", event(0, 99, core.ActionClick)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := e.LogEvent(context.Background(), tt.ev); !core.IsValidation(err) {
				t.Errorf("LogEvent = %v, want validation error", err)
			}
		})
	}

	n, err := e.log.Len(context.Background())
	if err != nil {
		t.Fatalf("Len: %v", err)
	}
	if n != 0 || e.Pending() != 0 {
		t.Errorf("rejected events reached the log: len = %d, pending = %d", n, e.Pending())
	}
}

func TestLogEventByTitle(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	if got := e.ResolveTitle("Pasta"); got != 2 {
		t.Errorf("ResolveTitle(Pasta) = %d, want 2", got)
	}
	// 重复标题解析为最小 ID
	if got := e.ResolveTitle("Go Channels"); got != 1 {
		t.Errorf("ResolveTitle(Go Channels) = %d, want 1", got)
	}
	for _, title := range []string{"pasta", " Pasta", "Lasagna"} {
		if got := e.ResolveTitle(title); got != core.UnresolvedItemID {
			t.Errorf("ResolveTitle(%q) = %d, want -1", title, got)
		}
	}

	if err := e.LogEventByTitle(ctx, 3, "Pizza", "BOOKMARK", "search", time.Time{}); err != nil {
		t.Fatalf("LogEventByTitle: %v", err)
	}
	if got := e.Snapshot().Matrix.At(3, 4); got != 3.0 {
		t.Errorf("cell (3,4) = %v, want 3.0", got)
	}

	if err := e.LogEventByTitle(ctx, 3, "Lasagna", "click", "", time.Time{}); !core.IsValidation(err) {
		t.Errorf("unresolved title = %v, want validation error", err)
	}
	if err := e.LogEventByTitle(ctx, 3, "Pizza", "like", "", time.Time{}); !core.IsValidation(err) {
		t.Errorf("unknown action = %v, want validation error", err)
	}
}

func TestThresholdPolicy(t *testing.T) {
	e := newTestEngine(t, func(s *config.Settings) {
		s.Retrain.Policy = config.RetrainThreshold
		s.Retrain.Threshold = 3
	})

	mustLog(t, e, event(0, 0, core.ActionClick), event(0, 1, core.ActionClick))
	if e.Pending() != 2 || e.Snapshot().Model != nil {
		t.Fatalf("below threshold: pending = %d, model = %v", e.Pending(), e.Snapshot().Model)
	}
	// 新用户在重训前降级为文本召回
	if _, err := e.Collaborative(context.Background(), 0, 10); !core.IsInsufficientData(err) {
		t.Errorf("Collaborative before first retrain = %v, want insufficient data", err)
	}

	mustLog(t, e, event(1, 2, core.ActionClick))
	if e.Pending() != 0 || e.Snapshot().Model == nil {
		t.Fatalf("at threshold: pending = %d", e.Pending())
	}
	if got := testutil.ToFloat64(e.metrics.retrains.WithLabelValues(triggerThreshold, "ok")); got != 1 {
		t.Errorf("threshold retrains = %v, want 1", got)
	}

	mustLog(t, e, event(4, 2, core.ActionClick))
	if _, err := e.Collaborative(context.Background(), 4, 10); !core.IsOutOfRange(err) {
		t.Errorf("Collaborative for an untrained user = %v, want out of range", err)
	}
}

func TestCollaborative_StaleModelRetrainsOnce(t *testing.T) {
	e := newTestEngine(t, func(s *config.Settings) {
		s.Retrain.Policy = config.RetrainThreshold
		s.Retrain.Threshold = 100
	})
	ctx := context.Background()
	mustLog(t, e,
		event(0, 0, core.ActionClick),
		event(0, 1, core.ActionClick),
		event(1, 1, core.ActionClick),
		event(1, 2, core.ActionClick),
	)
	if _, err := e.Retrain(ctx); err != nil {
		t.Fatalf("Retrain: %v", err)
	}

	// 新物品扩展了矩阵列，模型过期
	mustLog(t, e, event(1, 4, core.ActionClick))
	if e.Pending() != 1 {
		t.Fatalf("Pending = %d, want 1", e.Pending())
	}

	got, err := e.Recommend(ctx, Request{UserID: 0, Keyword: "pizza"})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(got) == 0 {
		t.Error("Recommend returned nothing")
	}
	if e.Pending() != 0 || e.Snapshot().Matrix.Cols() != 5 {
		t.Errorf("after stale retrain: pending = %d, cols = %d", e.Pending(), e.Snapshot().Matrix.Cols())
	}
	if n := testutil.ToFloat64(e.metrics.retrains.WithLabelValues(triggerStale, "ok")); n != 1 {
		t.Errorf("stale retrains = %v, want 1", n)
	}
}

func TestCollaborative_PersistentStaleFails(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	small, err := matrix.Build([]core.InteractionEvent{event(0, 0, core.ActionClick)})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	stale, err := model.Train(ctx, small, e.settings.ALS)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	var calls int
	e.train = func(context.Context, *matrix.Matrix, model.ALSConfig) (*model.MF, error) {
		calls++
		return stale, nil
	}

	mustLog(t, e, event(0, 0, core.ActionClick), event(0, 3, core.ActionClick))
	calls = 0

	_, err = e.Recommend(ctx, Request{UserID: 0, Keyword: "go"})
	if !core.IsStaleModel(err) {
		t.Fatalf("Recommend = %v, want stale model error", err)
	}
	if calls != 1 {
		t.Errorf("retrained %d times, want exactly once", calls)
	}

	// 匿名请求不走协同，不受影响
	if _, err := e.Recommend(ctx, Request{UserID: core.AnonymousUser, Keyword: "go"}); err != nil {
		t.Errorf("anonymous Recommend = %v", err)
	}
}

func TestRecommend_OutOfRangeFallsBackToLexical(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()
	mustLog(t, e, event(0, 3, core.ActionBookmark), event(1, 4, core.ActionClick))

	anon, err := e.Recommend(ctx, Request{UserID: core.AnonymousUser, Keyword: "channels"})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	got, err := e.Recommend(ctx, Request{UserID: 42, Keyword: "channels"})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if !reflect.DeepEqual(got, anon) {
		t.Errorf("unknown user = %v, want lexical-only %v", got, anon)
	}
	if n := testutil.ToFloat64(e.metrics.fallbacks.WithLabelValues(fallbackOutOfRange)); n != 1 {
		t.Errorf("out_of_range fallbacks = %v, want 1", n)
	}
	if n := testutil.ToFloat64(e.metrics.recommendations.WithLabelValues("fallback")); n != 1 {
		t.Errorf("fallback recommendations = %v, want 1", n)
	}
}

func TestRecommend_CollaborativeOnlyWeights(t *testing.T) {
	e := newTestEngine(t, func(s *config.Settings) {
		s.Fusion.LexicalWeight = 0
		s.Fusion.CollaborativeWeight = 1
		s.Fusion.TopN = 10
	})
	ctx := context.Background()
	mustLog(t, e,
		event(0, 0, core.ActionClick),
		event(0, 1, core.ActionClick),
		event(1, 0, core.ActionClick),
		event(1, 1, core.ActionClick),
		event(1, 2, core.ActionBookmark),
	)

	got, err := e.Recommend(ctx, Request{UserID: 0, Keyword: "rust"})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	// 文本权重为 0 时排名只由协同分数决定，已交互的物品没有协同分数
	if len(got) == 0 || got[0] == 0 || got[0] == 1 {
		t.Errorf("Recommend = %v, want an item user 0 has not interacted with first", got)
	}
	scored, err := e.Collaborative(ctx, 0, 10)
	if err != nil {
		t.Fatalf("Collaborative: %v", err)
	}
	for _, s := range scored {
		if s.ID == 0 || s.ID == 1 {
			t.Errorf("Collaborative = %v contains an item user 0 already interacted with", scored)
		}
	}
}

func TestRecommend_SparseCatalogIDs(t *testing.T) {
	catalog := []core.CatalogItem{
		{ID: 0, Title: "Go", Body: "goroutines channels"},
		{ID: 10, Title: "Pasta", Body: "boil pasta water"},
		{ID: 20, Title: "Pizza", Body: "pizza dough oven"},
	}
	inCatalog := map[int64]bool{0: true, 10: true, 20: true}

	e, err := New(context.Background(), catalog, testSettings(), WithLogger(zerolog.Nop()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = e.Close() })
	ctx := context.Background()
	mustLog(t, e,
		event(0, 0, core.ActionClick),
		event(1, 0, core.ActionClick),
		event(1, 20, core.ActionBookmark),
	)
	if cols := e.Snapshot().Matrix.Cols(); cols != 21 {
		t.Fatalf("matrix cols = %d, want 21", cols)
	}

	scored, err := e.Collaborative(ctx, 0, 50)
	if err != nil {
		t.Fatalf("Collaborative: %v", err)
	}
	if len(scored) != 2 {
		t.Errorf("Collaborative = %v, want the two unseen catalog items", scored)
	}
	for _, s := range scored {
		if !inCatalog[s.ID] || s.ID == 0 {
			t.Errorf("Collaborative returned item %d", s.ID)
		}
	}

	got, err := e.Recommend(ctx, Request{UserID: 0, Keyword: "pasta", TopN: 10})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(got) == 0 || len(got) > len(catalog) {
		t.Errorf("Recommend = %v", got)
	}
	for _, id := range got {
		if !inCatalog[id] {
			t.Errorf("Recommend = %v contains item %d outside the catalog", got, id)
		}
	}
}

// countingLog 统计全量读取日志的次数。
type countingLog struct {
	eventlog.Log
	reads atomic.Int32
}

func (l *countingLog) Events(ctx context.Context) ([]core.InteractionEvent, error) {
	l.reads.Add(1)
	return l.Log.Events(ctx)
}

func TestLogEvent_ReadsLogOncePerEvent(t *testing.T) {
	for _, policy := range []string{config.RetrainEager, config.RetrainThreshold} {
		t.Run(policy, func(t *testing.T) {
			log := &countingLog{Log: eventlog.NewMemoryLog()}
			e := newTestEngine(t, func(s *config.Settings) {
				s.Retrain.Policy = policy
				s.Retrain.Threshold = 1
			}, WithEventLog(log))

			before := log.reads.Load()
			mustLog(t, e, event(0, 1, core.ActionClick))
			if n := log.reads.Load() - before; n != 1 {
				t.Errorf("log read %d times for one event, want 1", n)
			}
			snap := e.Snapshot()
			if snap.Model == nil || snap.Events != 1 || e.Pending() != 0 {
				t.Errorf("snapshot events = %d, pending = %d, model = %v", snap.Events, e.Pending(), snap.Model != nil)
			}
		})
	}
}

func TestRetrain_EmptyLog(t *testing.T) {
	e := newTestEngine(t, func(s *config.Settings) { s.Retrain.Policy = config.RetrainInterval })
	ctx := context.Background()

	if _, err := e.Retrain(ctx); !core.IsInsufficientData(err) {
		t.Errorf("Retrain = %v, want insufficient data", err)
	}
	retrained, err := e.RetrainPending(ctx)
	if err != nil || retrained {
		t.Errorf("RetrainPending = %v, %v; want false, nil", retrained, err)
	}

	mustLog(t, e, event(0, 1, core.ActionClick))
	if e.Pending() != 1 {
		t.Fatalf("interval policy must not retrain inline: pending = %d", e.Pending())
	}
	retrained, err = e.RetrainPending(ctx)
	if err != nil || !retrained || e.Pending() != 0 {
		t.Errorf("RetrainPending = %v, %v; pending = %d", retrained, err, e.Pending())
	}
}

func TestConcurrentLogAndRecommend(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()
	mustLog(t, e, event(0, 0, core.ActionClick))

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for w := 0; w < 4; w++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < 5; i++ {
				ev := event(int64(w), int64((w+i)%len(testCatalog)), core.ActionClick)
				if err := e.LogEvent(ctx, ev); err != nil {
					errs <- err
				}
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				if _, err := e.Recommend(ctx, Request{UserID: int64(w), Keyword: "go"}); err != nil {
					errs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent call: %v", err)
	}

	snap := e.Snapshot()
	if snap.Events != 21 {
		t.Errorf("Events = %d, want 21", snap.Events)
	}
	if snap.Model.ItemCount() != snap.Matrix.Cols() {
		t.Errorf("snapshot model items %d != matrix cols %d", snap.Model.ItemCount(), snap.Matrix.Cols())
	}
}

func TestRecoverFromBadger(t *testing.T) {
	dir := t.TempDir()
	mutate := func(s *config.Settings) {
		s.Store.Backend = store.BackendBadger
		s.Store.Badger.Path = dir
	}
	ctx := context.Background()

	e := newTestEngine(t, mutate)
	mustLog(t, e, event(0, 1, core.ActionClick), event(1, 2, core.ActionNavigate))
	want := e.Snapshot()
	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := e.Recommend(ctx, Request{}); err != ErrClosed {
		t.Errorf("Recommend after Close = %v, want ErrClosed", err)
	}

	reopened := newTestEngine(t, mutate)
	got := reopened.Snapshot()
	if !got.Matrix.Equal(want.Matrix) || got.Events != 2 || got.Model == nil {
		t.Errorf("recovered snapshot = %+v, want matrix of %+v", got, want)
	}
	if got.ID == want.ID {
		t.Error("recovered snapshot must get a fresh id")
	}
}

func TestWithStore_SharedNotClosed(t *testing.T) {
	kv := store.NewMemoryStore()
	ctx := context.Background()

	e := newTestEngine(t, nil, WithStore(kv))
	mustLog(t, e, event(0, 2, core.ActionClick))
	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// 外部传入的存储仍然可用，另一个引擎能读到同一份日志
	other := newTestEngine(t, nil, WithStore(kv))
	if other.Snapshot().Events != 1 {
		t.Errorf("Events = %d, want 1", other.Snapshot().Events)
	}
	if err := other.LogEvent(ctx, event(1, 2, core.ActionClick)); err != nil {
		t.Errorf("LogEvent on shared store: %v", err)
	}
}

func TestPipelineFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	yaml := `
pipeline:
  name: hybrid
  nodes:
    - type: recall.fanout
      config:
        sources:
          - type: lexical
          - type: collaborative
    - type: rank.fusion
      config:
        lexical_weight: 1
        collaborative_weight: 0
        top_n: 10
    - type: rerank.diversity
    - type: rerank.topn
      config:
        n: 2
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	e := newTestEngine(t, func(s *config.Settings) { s.Pipeline.Path = path })

	got, err := e.Recommend(context.Background(), Request{UserID: core.AnonymousUser, Keyword: "go channels"})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	// diversity 去掉同名的 5，topn 截断为 2
	if len(got) != 2 || containsID(got, 5) {
		t.Errorf("Recommend = %v", got)
	}
}

func TestMetricsRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()
	e := newTestEngine(t, nil, WithRegisterer(reg))
	mustLog(t, e, event(0, 1, core.ActionClick))
	if _, err := e.Recommend(context.Background(), Request{UserID: 0, Keyword: "go"}); err != nil {
		t.Fatalf("Recommend: %v", err)
	}

	n, err := testutil.GatherAndCount(reg,
		"hybridrec_events_total",
		"hybridrec_recommendations_total",
		"hybridrec_pipeline_node_duration_seconds",
	)
	if err != nil {
		t.Fatalf("GatherAndCount: %v", err)
	}
	if n == 0 {
		t.Error("no metrics gathered")
	}
	if got := testutil.ToFloat64(e.metrics.events.WithLabelValues("click", "ok")); got != 1 {
		t.Errorf("events{click,ok} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(e.metrics.modelItems); got != 2 {
		t.Errorf("model_items = %v, want 2", got)
	}
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
