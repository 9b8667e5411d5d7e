// Package builders 注册内置 Node 的配置构建器。
package builders

import (
	"fmt"
	"slices"
	"time"

	"github.com/rushteam/hybridrec/config"
	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/filter"
	"github.com/rushteam/hybridrec/lexical"
	"github.com/rushteam/hybridrec/pipeline"
	"github.com/rushteam/hybridrec/pkg/conv"
	"github.com/rushteam/hybridrec/rank"
	"github.com/rushteam/hybridrec/recall"
	"github.com/rushteam/hybridrec/rerank"
)

func init() {
	config.Register("recall.fanout", BuildFanoutNode)
	config.Register("filter", BuildFilterNode)
	config.Register("rank.fusion", BuildFusionNode)
	config.Register("rerank.diversity", BuildDiversityNode)
	config.Register("rerank.topn", BuildTopNNode)
}

// BuildFanoutNode
//
//	type: recall.fanout
//	config:
//	  timeout: 200ms        # 或整数秒
//	  max_concurrent: 2
//	  merge_strategy: union # union / first
//	  fatal: [STALE_MODEL]  # 这些错误码中止请求，其余降级
//	  sources:
//	    - type: lexical
//	      min_score: 0
//	    - type: collaborative
//	      top_k: 50
func BuildFanoutNode(cfg map[string]any, res pipeline.Resources) (pipeline.Node, error) {
	sourcesConfig := conv.ConfigGetSlice(cfg, "sources")
	if len(sourcesConfig) == 0 {
		return nil, fmt.Errorf("sources not found or invalid")
	}

	sources := make([]recall.Source, 0, len(sourcesConfig))
	for _, sc := range sourcesConfig {
		sourceType := conv.ConfigGet(sc, "type", "")
		switch sourceType {
		case core.FeatureLexical:
			idx, err := pipeline.Lookup[lexical.Index](res, pipeline.ResourceLexical)
			if err != nil {
				return nil, err
			}
			sources = append(sources, &recall.LexicalRecall{
				Index:    idx,
				MinScore: conv.ConfigGetFloat64(sc, "min_score", 0),
			})
		case core.FeatureCollaborative:
			scorer, err := pipeline.Lookup[recall.CollaborativeScorer](res, pipeline.ResourceCollaborative)
			if err != nil {
				return nil, err
			}
			src := &recall.CollaborativeRecall{
				Scorer: scorer,
				TopK:   conv.ConfigGetInt(sc, "top_k", recall.DefaultCandidatePool),
			}
			if idx, err := pipeline.Lookup[lexical.Index](res, pipeline.ResourceLexical); err == nil {
				src.Title = idx.Title
			}
			sources = append(sources, src)
		default:
			return nil, fmt.Errorf("unknown source type: %s", sourceType)
		}
	}

	timeout, err := durationOf(cfg, "timeout")
	if err != nil {
		return nil, err
	}
	fanout := &recall.Fanout{
		Sources:       sources,
		Timeout:       timeout,
		MaxConcurrent: conv.ConfigGetInt(cfg, "max_concurrent", 0),
		MergeStrategy: conv.ConfigGet(cfg, "merge_strategy", recall.MergeUnion),
	}
	switch fanout.MergeStrategy {
	case recall.MergeUnion, recall.MergeFirst:
	default:
		return nil, fmt.Errorf("unknown merge_strategy: %s", fanout.MergeStrategy)
	}

	if raw, ok := cfg["fatal"].([]any); ok {
		codes := conv.ConvertSlice(raw, func(v any) (string, bool) {
			s, ok := v.(string)
			return s, ok
		})
		fanout.Fatal = func(err error) bool {
			return slices.Contains(codes, core.CodeOf(err))
		}
	}
	return fanout, nil
}

// BuildFilterNode
//
//	type: filter
//	config:
//	  filters:
//	    - type: query_title
//	    - type: expr
//	      expr: 'item.features.lexical == 0.0 && label.recall_source == "lexical"'
//	    - type: blacklist
//	      item_ids: [3, 4]
//	      key: blacklist         # 可选，从 store 资源读取
//	    - type: user_block
//	      key_prefix: user:block
func BuildFilterNode(cfg map[string]any, res pipeline.Resources) (pipeline.Node, error) {
	filtersConfig := conv.ConfigGetSlice(cfg, "filters")
	if len(filtersConfig) == 0 {
		return nil, fmt.Errorf("filters not found or invalid")
	}

	var adapter *filter.StoreAdapter
	if s, err := pipeline.Lookup[core.Store](res, pipeline.ResourceStore); err == nil {
		adapter = filter.NewStoreAdapter(s)
	}

	filters := make([]filter.Filter, 0, len(filtersConfig))
	for _, fc := range filtersConfig {
		filterType := conv.ConfigGet(fc, "type", "")
		switch filterType {
		case "query_title":
			filters = append(filters, &filter.QueryTitleFilter{})
		case "expr":
			f, err := filter.NewExprFilter(conv.ConfigGet(fc, "expr", ""))
			if err != nil {
				return nil, err
			}
			filters = append(filters, f)
		case "blacklist":
			key := conv.ConfigGet(fc, "key", "")
			if key != "" && adapter == nil {
				return nil, fmt.Errorf("blacklist key %q needs the %q resource", key, pipeline.ResourceStore)
			}
			filters = append(filters, filter.NewBlacklistFilter(conv.ConfigGetInt64Slice(fc, "item_ids"), adapter, key))
		case "user_block":
			if adapter == nil {
				return nil, fmt.Errorf("user_block needs the %q resource", pipeline.ResourceStore)
			}
			filters = append(filters, filter.NewUserBlockFilter(adapter, conv.ConfigGet(fc, "key_prefix", "")))
		default:
			return nil, fmt.Errorf("unknown filter type: %s", filterType)
		}
	}
	return &filter.FilterNode{Filters: filters}, nil
}

// BuildFusionNode
//
//	type: rank.fusion
//	config:
//	  lexical_weight: 0.7
//	  collaborative_weight: 0.3
//	  top_n: 3
//	  dedup_titles: false
func BuildFusionNode(cfg map[string]any, res pipeline.Resources) (pipeline.Node, error) {
	opts := rank.FuseOptions{
		LexicalWeight:       conv.ConfigGetFloat64(cfg, "lexical_weight", rank.DefaultLexicalWeight),
		CollaborativeWeight: conv.ConfigGetFloat64(cfg, "collaborative_weight", rank.DefaultCollaborativeWeight),
		TopN:                conv.ConfigGetInt(cfg, "top_n", rank.DefaultTopN),
		DedupTitles:         conv.ConfigGet(cfg, "dedup_titles", false),
	}
	if idx, err := pipeline.Lookup[lexical.Index](res, pipeline.ResourceLexical); err == nil {
		opts.Title = idx.Title
	}
	// 没有文本索引时 FusionNode 用 Item 上的标题去重，这里只校验权重
	weights := opts
	weights.DedupTitles = false
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return &rank.FusionNode{Options: opts}, nil
}

// BuildDiversityNode key 默认 title。
func BuildDiversityNode(cfg map[string]any, _ pipeline.Resources) (pipeline.Node, error) {
	return &rerank.Diversity{Key: conv.ConfigGet(cfg, "key", core.MetaTitle)}, nil
}

func BuildTopNNode(cfg map[string]any, _ pipeline.Resources) (pipeline.Node, error) {
	n := conv.ConfigGetInt(cfg, "n", 0)
	if n < 0 {
		return nil, fmt.Errorf("rerank.topn: n must be >= 0, got %d", n)
	}
	return &rerank.TopNNode{N: n}, nil
}

// durationOf 兼容 "200ms" 字符串与整数秒。
func durationOf(cfg map[string]any, key string) (time.Duration, error) {
	switch v := cfg[key].(type) {
	case nil:
		return 0, nil
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", key, err)
		}
		return d, nil
	default:
		sec, ok := conv.ToInt64(v)
		if !ok {
			return 0, fmt.Errorf("%s: unsupported value %v", key, v)
		}
		return time.Duration(sec) * time.Second, nil
	}
}
