package rank

import (
	"context"
	"fmt"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pipeline"
	"github.com/rushteam/hybridrec/pkg/utils"
)

// FusionNode 是融合排序的 Pipeline 适配：
//   - 按 Features 拆出两路原始分数（同一物品可能由两路各产出一个 Item）
//   - 调用 FuseScored 融合、去重、截断
//   - 输出按融合分数排序的 Item，写入 rank_fusion label
//
// 请求参数 top_n / dedup_titles 覆盖节点上的默认值。
type FusionNode struct {
	Options FuseOptions
}

func (n *FusionNode) Name() string        { return "rank.fusion" }
func (n *FusionNode) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *FusionNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	lexical := make(map[int64]float64)
	collaborative := make(map[int64]float64)
	merged := make(map[int64]*core.Item, len(items))

	for _, it := range items {
		if it == nil {
			continue
		}
		if s, ok := it.Features[core.FeatureLexical]; ok {
			lexical[it.ID] = s
		}
		if s, ok := it.Features[core.FeatureCollaborative]; ok {
			collaborative[it.ID] = s
		}
		if prev, ok := merged[it.ID]; ok {
			mergeItem(prev, it)
			continue
		}
		merged[it.ID] = it
	}

	opts := n.Options
	opts.TopN = rctx.IntParam(core.ParamTopN, opts.TopN)
	opts.DedupTitles = rctx.BoolParam(core.ParamDedupTitles, opts.DedupTitles)
	if opts.DedupTitles && opts.Title == nil {
		opts.Title = metaTitles(merged)
	}

	scored, err := FuseScored(lexical, collaborative, opts)
	if err != nil {
		return nil, err
	}

	lbl := utils.Label{
		Value:  fmt.Sprintf("%g*lexical+%g*collaborative", opts.LexicalWeight, opts.CollaborativeWeight),
		Source: "rank",
	}
	out := make([]*core.Item, 0, len(scored))
	for _, s := range scored {
		it := merged[s.ID]
		it.Score = s.Score
		it.PutLabel(utils.LabelRankFusion, lbl)
		out = append(out, it)
	}
	return out, nil
}

func mergeItem(dst, src *core.Item) {
	if dst.Features == nil {
		dst.Features = make(map[string]float64, len(src.Features))
	}
	if dst.Meta == nil {
		dst.Meta = make(map[string]any, len(src.Meta))
	}
	for k, v := range src.Features {
		dst.Features[k] = v
	}
	for k, v := range src.Meta {
		if _, ok := dst.Meta[k]; !ok {
			dst.Meta[k] = v
		}
	}
	for k, v := range src.Labels {
		dst.PutLabel(k, v)
	}
}

func metaTitles(items map[int64]*core.Item) TitleFunc {
	return func(id int64) (string, bool) {
		it, ok := items[id]
		if !ok {
			return "", false
		}
		return it.Title()
	}
}
