package recall

import (
	"context"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/lexical"
)

// LexicalRecall 用文本索引对请求关键词打分。
//
// 目录中的每个物品都会产出一个 Item（包括 0 分），
// 融合阶段需要完整的分数向量做归一化。
type LexicalRecall struct {
	Index lexical.Index

	// MinScore 大于 0 时丢弃原始分数低于它的物品
	MinScore float64
}

func (r *LexicalRecall) Name() string { return core.FeatureLexical }

func (r *LexicalRecall) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if r.Index == nil {
		return nil, nil
	}
	query := ""
	if rctx != nil {
		query = rctx.Query
	}

	scores := r.Index.Score(query)
	ids := r.Index.IDs()
	out := make([]*core.Item, 0, len(ids))
	for _, id := range ids {
		s := scores[id]
		if r.MinScore > 0 && s < r.MinScore {
			continue
		}
		it := core.NewItem(id)
		it.Features[core.FeatureLexical] = s
		if title, ok := r.Index.Title(id); ok {
			it.Meta[core.MetaTitle] = title
		}
		out = append(out, it)
	}
	return out, ctx.Err()
}
