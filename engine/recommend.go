package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rushteam/hybridrec/config"
	_ "github.com/rushteam/hybridrec/config/builders"
	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/filter"
	"github.com/rushteam/hybridrec/pipeline"
	"github.com/rushteam/hybridrec/pkg/logging"
	"github.com/rushteam/hybridrec/pkg/utils"
	"github.com/rushteam/hybridrec/rank"
	"github.com/rushteam/hybridrec/recall"
)

// Request 是一次推荐请求。
type Request struct {
	// UserID 为 core.AnonymousUser 时只做文本召回
	UserID  int64
	Keyword string

	// TopN 为 0 时使用 fusion.top_n
	TopN int

	// DedupTitles 与 fusion.dedup_titles 任一为 true 即按标题去重
	DedupTitles bool
}

// Recommend 返回按融合分数排序的物品 ID。
//
// 协同信号不可用（匿名、新用户、尚无交互数据）时降级为纯文本排序，
// 结果可能为空但不报错；只有重训后模型仍与矩阵不一致时才返回 STALE_MODEL。
func (e *Engine) Recommend(ctx context.Context, req Request) ([]int64, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}
	if req.TopN < 0 {
		return nil, core.NewValidationError(core.ModuleEngine, "engine: negative top_n %d", req.TopN)
	}
	topN := req.TopN
	if topN == 0 {
		topN = e.settings.Fusion.TopN
	}

	rctx := &core.RecommendContext{
		UserID: req.UserID,
		Query:  req.Keyword,
		Params: map[string]any{
			core.ParamTopN:        topN,
			core.ParamDedupTitles: req.DedupTitles || e.settings.Fusion.DedupTitles,
		},
	}
	if !rctx.HasUser() {
		e.metrics.fallbacks.WithLabelValues(fallbackAnonymous).Inc()
	}

	requestID := uuid.NewString()
	items, err := e.pipeline.Run(ctx, rctx, nil)
	if err != nil {
		e.metrics.recommendations.WithLabelValues("error").Inc()
		e.logger.Error().Err(err).Str("request_id", requestID).Int64("user_id", req.UserID).Msg("recommend failed")
		return nil, err
	}

	out := make([]int64, 0, len(items))
	for _, it := range items {
		if it != nil {
			out = append(out, it.ID)
		}
	}

	result := "ok"
	if lbl, ok := rctx.GetLabel(utils.LabelFallback); ok {
		result = "fallback"
		e.logger.Debug().Str("request_id", requestID).Str("degraded", lbl.Value).Msg("collaborative signal unavailable")
	}
	e.metrics.recommendations.WithLabelValues(result).Inc()
	e.logger.Debug().
		Str("request_id", requestID).
		Int64("user_id", req.UserID).
		Str("keyword", req.Keyword).
		Ints64("items", out).
		Msg("recommend")
	return out, nil
}

func (e *Engine) resources() pipeline.Resources {
	res := pipeline.Resources{
		pipeline.ResourceLexical:       e.index,
		pipeline.ResourceCollaborative: recall.CollaborativeScorer(e),
	}
	if e.kv != nil {
		res[pipeline.ResourceStore] = core.Store(e.kv)
	}
	return res
}

// buildPipeline 使用 pipeline.path 指定的 YAML，否则使用内置 pipeline：
// recall.fanout(lexical, collaborative) -> filter(query_title) -> rank.fusion。
func (e *Engine) buildPipeline() (*pipeline.Pipeline, error) {
	var p *pipeline.Pipeline
	if path := e.settings.Pipeline.Path; path != "" {
		cfg, err := pipeline.LoadFromYAML(path)
		if err != nil {
			return nil, err
		}
		if err := config.ValidatePipelineConfig(cfg); err != nil {
			return nil, err
		}
		if p, err = cfg.BuildPipeline(config.DefaultFactory(), e.resources()); err != nil {
			return nil, err
		}
		e.logger.Info().Str("path", path).Int("nodes", len(p.Nodes)).Msg("pipeline loaded")
	} else {
		p = e.defaultPipeline()
	}

	for _, node := range p.Nodes {
		switch n := node.(type) {
		case *recall.Fanout:
			n.Logger = logging.Component(e.logger, "recall")
			// 重训后仍不一致的模型不能静默降级
			if n.Fatal == nil {
				n.Fatal = core.IsStaleModel
			}
		case *filter.FilterNode:
			n.Logger = logging.Component(e.logger, "filter")
		}
	}
	p.Hooks = append(p.Hooks, e.metrics.observeNode, e.traceNode)
	return p, nil
}

func (e *Engine) defaultPipeline() *pipeline.Pipeline {
	fuse := e.settings.Fusion.Options()
	fuse.Title = e.index.Title

	return &pipeline.Pipeline{
		Nodes: []pipeline.Node{
			&recall.Fanout{
				Sources: []recall.Source{
					&recall.LexicalRecall{Index: e.index},
					&recall.CollaborativeRecall{
						Scorer: e,
						TopK:   e.settings.Collaborative.CandidatePool,
						Title:  e.index.Title,
					},
				},
				Timeout: e.settings.Collaborative.Timeout,
			},
			&filter.FilterNode{Filters: []filter.Filter{&filter.QueryTitleFilter{}}},
			&rank.FusionNode{Options: fuse},
		},
	}
}

func (e *Engine) traceNode(node pipeline.Node, in, out int, cost time.Duration, err error) {
	e.logger.Trace().
		Str("node", node.Name()).
		Str("kind", string(node.Kind())).
		Int("in", in).
		Int("out", out).
		Dur("cost", cost).
		AnErr("error", err).
		Msg("pipeline node")
}
