package filter

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pipeline"
	"github.com/rushteam/hybridrec/pkg/utils"
)

// LabelFiltered 是 FilterNode 写在被过滤 item 上的 label。
const LabelFiltered = "filtered"

// FilterNode 是过滤 Node，可以组合多个过滤器进行过滤。
// 如果任何一个过滤器返回 true，该物品就会被过滤掉。
//
// 过滤器出错时跳过该过滤器，不中断请求。
type FilterNode struct {
	Filters []Filter
	Logger  zerolog.Logger
}

func (n *FilterNode) Name() string        { return "filter.node" }
func (n *FilterNode) Kind() pipeline.Kind { return pipeline.KindFilter }

func (n *FilterNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(n.Filters) == 0 || len(items) == 0 {
		return items, nil
	}

	out := make([]*core.Item, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		if reason := n.match(ctx, rctx, item); reason != "" {
			item.PutLabel(LabelFiltered, utils.Label{Value: "true", Source: reason})
			continue
		}
		out = append(out, item)
	}
	if dropped := len(items) - len(out); dropped > 0 {
		n.Logger.Debug().Int("dropped", dropped).Int("kept", len(out)).Msg("items filtered")
	}
	return out, ctx.Err()
}

// match 返回命中的过滤器名称，未命中返回空串。
func (n *FilterNode) match(ctx context.Context, rctx *core.RecommendContext, item *core.Item) string {
	for _, f := range n.Filters {
		ok, err := f.ShouldFilter(ctx, rctx, item)
		if err != nil {
			n.Logger.Warn().Err(err).Str("filter", f.Name()).Int64("item_id", item.ID).Msg("filter failed, skipped")
			continue
		}
		if ok {
			return f.Name()
		}
	}
	return ""
}
