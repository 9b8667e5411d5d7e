package recall

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pipeline"
	"github.com/rushteam/hybridrec/pkg/utils"
)

// 合并策略
const (
	MergeUnion = "union" // 保留所有来源的 Item（同一 ID 可出现多次），默认
	MergeFirst = "first" // 按 ID 去重，保留先出现的并合并 Features / Labels
)

// Fanout 是一个 Recall Node：并发执行多个召回源，并合并结果。
//
// 单个召回源失败时降级为空结果，不影响其他召回源；
// 只有 Fatal 判定为致命的错误才会中止整个请求。
// 被降级的召回源写入请求级 label recall_fallback。
// 输出顺序与 Sources 顺序一致，不受并发调度影响。
type Fanout struct {
	Sources       []Source
	Timeout       time.Duration // 每个召回源的超时时间
	MaxConcurrent int           // 最大并发数（0 表示无限制）
	MergeStrategy string        // union / first

	// Fatal 判定错误是否致命，nil 表示全部降级
	Fatal func(error) bool

	Logger zerolog.Logger
}

func (n *Fanout) Name() string        { return "recall.fanout" }
func (n *Fanout) Kind() pipeline.Kind { return pipeline.KindRecall }

func (n *Fanout) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	if len(n.Sources) == 0 {
		return nil, nil
	}

	results := make([][]*core.Item, len(n.Sources))
	errs := make([]error, len(n.Sources))

	eg, egCtx := errgroup.WithContext(ctx)
	if n.MaxConcurrent > 0 {
		eg.SetLimit(n.MaxConcurrent)
	}

	for i, src := range n.Sources {
		eg.Go(func() error {
			recallCtx := egCtx
			if n.Timeout > 0 {
				var cancel context.CancelFunc
				recallCtx, cancel = context.WithTimeout(egCtx, n.Timeout)
				defer cancel()
			}

			items, err := src.Recall(recallCtx, rctx)
			if err != nil {
				if n.Fatal != nil && n.Fatal(err) {
					return err
				}
				errs[i] = err
				return nil
			}

			// 记录召回来源 label，方便 explain / 观测
			for _, it := range items {
				if it != nil {
					it.PutLabel(utils.LabelRecallSource, utils.RecallLabel(src.Name()))
				}
			}
			results[i] = items
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	for i, err := range errs {
		if err == nil {
			continue
		}
		name := n.Sources[i].Name()
		n.Logger.Debug().Err(err).Str("source", name).Msg("recall source degraded")
		if rctx != nil {
			rctx.PutLabel(utils.LabelFallback, utils.Label{Value: name, Source: "recall"})
		}
	}

	var all []*core.Item
	for _, items := range results {
		all = append(all, items...)
	}

	if n.MergeStrategy == MergeFirst {
		return mergeFirst(all), nil
	}
	return all, nil
}

// mergeFirst 按 ID 去重，保留第一个出现的，并把后续同 ID 的 Features / Labels 合并进来。
func mergeFirst(all []*core.Item) []*core.Item {
	seen := make(map[int64]*core.Item, len(all))
	out := make([]*core.Item, 0, len(all))
	for _, it := range all {
		if it == nil {
			continue
		}
		if old, ok := seen[it.ID]; ok {
			if old.Features == nil {
				old.Features = make(map[string]float64)
			}
			for k, v := range it.Features {
				old.Features[k] = v
			}
			for k, v := range it.Labels {
				old.PutLabel(k, v)
			}
			continue
		}
		seen[it.ID] = it
		out = append(out, it)
	}
	return out
}
