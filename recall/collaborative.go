package recall

import (
	"context"

	"github.com/rushteam/hybridrec/core"
)

// DefaultCandidatePool 是协同召回的默认候选数。
const DefaultCandidatePool = 50

// CollaborativeScorer 为用户产出协同过滤候选（分数已在候选集内归一化）。
//
// 实现方负责矩阵/模型快照的一致性：
//   - 用户不在矩阵中返回 OUT_OF_RANGE
//   - 尚无交互数据返回 INSUFFICIENT_DATA
//   - 矩阵与模型维度不一致且重训后仍不一致返回 STALE_MODEL
type CollaborativeScorer interface {
	Collaborative(ctx context.Context, userID int64, topN int) ([]core.Scored, error)
}

// CollaborativeScorerFunc 适配普通函数。
type CollaborativeScorerFunc func(ctx context.Context, userID int64, topN int) ([]core.Scored, error)

func (f CollaborativeScorerFunc) Collaborative(ctx context.Context, userID int64, topN int) ([]core.Scored, error) {
	return f(ctx, userID, topN)
}

// CollaborativeRecall 是基于隐式反馈矩阵分解的召回源。
//
// 匿名请求（没有用户）直接返回空结果。
type CollaborativeRecall struct {
	Scorer CollaborativeScorer

	// TopK 候选数，默认 50
	TopK int

	// Title 可选，用于给 Item 补充标题；设置后无法解析标题的物品被丢弃
	Title func(id int64) (string, bool)
}

func (r *CollaborativeRecall) Name() string { return core.FeatureCollaborative }

func (r *CollaborativeRecall) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if r.Scorer == nil || !rctx.HasUser() {
		return nil, nil
	}
	topK := r.TopK
	if topK <= 0 {
		topK = DefaultCandidatePool
	}

	scored, err := r.Scorer.Collaborative(ctx, rctx.UserID, topK)
	if err != nil {
		return nil, err
	}

	out := make([]*core.Item, 0, len(scored))
	for _, s := range scored {
		it := core.NewItem(s.ID)
		it.Features[core.FeatureCollaborative] = s.Score
		if r.Title != nil {
			title, ok := r.Title(s.ID)
			if !ok {
				continue
			}
			it.Meta[core.MetaTitle] = title
		}
		out = append(out, it)
	}
	return out, nil
}
