package rerank

import (
	"context"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pipeline"
	"github.com/rushteam/hybridrec/pkg/utils"
)

// Diversity 是多样性 ReRank：按分组键去重，每组只保留首个出现的 item。
// 输入应已按分数降序排列，因此保留的是组内最高分。
//
// 分组键来源优先级：
//   - Key 为空或 "title"：Item.Title()
//   - label[Key].Value
//   - meta[Key] (string)
//
// 分组键为空的 item 不参与去重。
type Diversity struct {
	Key string // 默认 "title"
}

func (n *Diversity) Name() string        { return "rerank.diversity" }
func (n *Diversity) Kind() pipeline.Kind { return pipeline.KindReRank }

func (n *Diversity) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	key := n.Key
	if key == "" {
		key = core.MetaTitle
	}

	seen := make(map[string]struct{}, len(items))
	out := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		group := groupKey(it, key)
		if group == "" {
			out = append(out, it)
			continue
		}
		if _, dup := seen[group]; dup {
			continue
		}
		seen[group] = struct{}{}
		it.PutLabel(utils.LabelRerankDedup, utils.Label{Value: key, Source: "rerank"})
		out = append(out, it)
	}
	return out, nil
}

func groupKey(it *core.Item, key string) string {
	if key == core.MetaTitle {
		title, _ := it.Title()
		return title
	}
	if lbl, ok := it.Labels[key]; ok && lbl.Value != "" {
		return lbl.Value
	}
	if s, ok := it.Meta[key].(string); ok {
		return s
	}
	return ""
}
