// Package rank 是混合推荐的融合排序：两路信号分别归一化后线性加权。
package rank

import (
	"sort"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pkg/norm"
)

// 默认融合权重
const (
	DefaultLexicalWeight       = 0.7
	DefaultCollaborativeWeight = 0.3
	DefaultTopN                = 3
)

// TitleFunc 返回物品标题；ok 为 false 或标题为空的物品不参与去重。
type TitleFunc func(id int64) (string, bool)

// FuseOptions 融合参数。权重不要求和为 1，但不能为负。
type FuseOptions struct {
	LexicalWeight       float64 `koanf:"lexical_weight" validate:"gte=0"`
	CollaborativeWeight float64 `koanf:"collaborative_weight" validate:"gte=0"`

	// TopN <= 0 表示不截断
	TopN int `koanf:"top_n"`

	// DedupTitles 为 true 时相同标题只保留分数最高的一个（需要 Title）
	DedupTitles bool      `koanf:"dedup_titles"`
	Title       TitleFunc `koanf:"-"`
}

// DefaultFuseOptions 返回 0.7 / 0.3、Top 3 的默认参数。
func DefaultFuseOptions() FuseOptions {
	return FuseOptions{
		LexicalWeight:       DefaultLexicalWeight,
		CollaborativeWeight: DefaultCollaborativeWeight,
		TopN:                DefaultTopN,
	}
}

// Validate 校验参数。
func (o FuseOptions) Validate() error {
	if o.LexicalWeight < 0 || o.CollaborativeWeight < 0 {
		return core.NewValidationError(core.ModuleRank, "rank: fusion weights must be non-negative (lexical=%v, collaborative=%v)",
			o.LexicalWeight, o.CollaborativeWeight)
	}
	if o.DedupTitles && o.Title == nil {
		return core.NewValidationError(core.ModuleRank, "rank: title dedup requires a title lookup")
	}
	return nil
}

// Combine 对两路原始分数分别做 min-max 归一化，在候选并集上加权求和，
// 按融合分数降序、ID 升序排序。某一路缺失的物品该路记 0。
func Combine(lexical, collaborative map[int64]float64, wLex, wCF float64) []core.Scored {
	nl := norm.MinMax(lexical)
	nc := norm.MinMax(collaborative)

	out := make([]core.Scored, 0, len(nl)+len(nc))
	for id, s := range nl {
		out = append(out, core.Scored{ID: id, Score: wLex*s + wCF*nc[id]})
	}
	for id, s := range nc {
		if _, ok := nl[id]; ok {
			continue
		}
		out = append(out, core.Scored{ID: id, Score: wCF * s})
	}
	SortScored(out)
	return out
}

// SortScored 按分数降序、ID 升序原地排序。
func SortScored(s []core.Scored) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].Score != s[j].Score {
			return s[i].Score > s[j].Score
		}
		return s[i].ID < s[j].ID
	})
}

// DedupByTitle 保留每个标题的第一次出现（输入已排序时即最高分）。
func DedupByTitle(s []core.Scored, title TitleFunc) []core.Scored {
	if title == nil {
		return s
	}
	seen := make(map[string]struct{}, len(s))
	out := make([]core.Scored, 0, len(s))
	for _, it := range s {
		t, ok := title(it.ID)
		if !ok || t == "" {
			out = append(out, it)
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, it)
	}
	return out
}

// FuseScored 是 Fuse 的带分数版本。
func FuseScored(lexical, collaborative map[int64]float64, opts FuseOptions) ([]core.Scored, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	out := Combine(lexical, collaborative, opts.LexicalWeight, opts.CollaborativeWeight)
	if opts.DedupTitles {
		out = DedupByTitle(out, opts.Title)
	}
	if opts.TopN > 0 && len(out) > opts.TopN {
		out = out[:opts.TopN]
	}
	return out, nil
}

// Fuse 融合两路分数并返回排序后的物品 ID：
// 归一化 → 加权求和 → （可选）标题去重 → 截断 TopN。纯函数。
func Fuse(lexical, collaborative map[int64]float64, opts FuseOptions) ([]int64, error) {
	scored, err := FuseScored(lexical, collaborative, opts)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(scored))
	for i, s := range scored {
		ids[i] = s.ID
	}
	return ids, nil
}
