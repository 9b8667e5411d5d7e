// Package lexical 是目录文本的相关度打分。
//
// 索引在启动时由目录一次性构建，之后只读，可被并发请求共享。
// 构建失败（空目录、重复 ID）在启动时即报错，不会出现在请求路径上。
package lexical

import (
	"sort"

	"github.com/rushteam/hybridrec/core"
)

// 可选策略
const (
	StrategyBM25    = "bm25"
	StrategyJaccard = "jaccard"
)

// Index 是文本相关度索引。
type Index interface {
	// Name 返回策略名
	Name() string

	// Score 返回目录中每个物品对 query 的原始相关度。
	// 空查询或查询词全部不在词表中时，所有物品得分为 0。
	Score(query string) map[int64]float64

	// Title 返回物品标题，仅用于去重与解析，不参与打分
	Title(id int64) (string, bool)

	// Lookup 精确匹配标题（区分大小写与空白），重复标题返回最小 ID
	Lookup(title string) (int64, bool)

	// IDs 返回全部物品 ID（升序）
	IDs() []int64
}

type options struct {
	tokenizer   Tokenizer
	k1, b       float64
	maxKeywords int
	graphWeight float64
}

// Option 配置索引构建。
type Option func(*options)

// WithTokenizer 替换分词器。
func WithTokenizer(t Tokenizer) Option {
	return func(o *options) {
		if t != nil {
			o.tokenizer = t
		}
	}
}

// WithBM25Params 设置 BM25 的 k1、b。
func WithBM25Params(k1, b float64) Option {
	return func(o *options) {
		o.k1, o.b = k1, b
	}
}

// WithMaxKeywords 设置关键词图中每个物品保留的关键词数。
func WithMaxKeywords(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxKeywords = n
		}
	}
}

// WithGraphWeight 设置关键词图中邻居相似度的权重。
func WithGraphWeight(w float64) Option {
	return func(o *options) {
		if w >= 0 {
			o.graphWeight = w
		}
	}
}

func defaultOptions() *options {
	return &options{
		tokenizer:   NewFieldsTokenizer(DefaultStopwords...),
		k1:          DefaultK1,
		b:           DefaultB,
		maxKeywords: DefaultMaxKeywords,
		graphWeight: DefaultGraphWeight,
	}
}

// New 按策略名构建索引；未知策略返回 INVALID_INPUT。
func New(strategy string, items []core.CatalogItem, opts ...Option) (Index, error) {
	switch strategy {
	case "", StrategyBM25:
		return NewBM25(items, opts...)
	case StrategyJaccard:
		return NewKeywordGraph(items, opts...)
	default:
		return nil, core.NewValidationError(core.ModuleLexical, "lexical: unknown strategy %q", strategy)
	}
}

// catalog 是各策略共享的标题表。
type catalog struct {
	ids     []int64
	titles  map[int64]string
	byTitle map[string]int64
}

func newCatalog(items []core.CatalogItem) (*catalog, error) {
	if len(items) == 0 {
		return nil, core.NewValidationError(core.ModuleLexical, "lexical: empty catalog")
	}
	c := &catalog{
		ids:     make([]int64, 0, len(items)),
		titles:  make(map[int64]string, len(items)),
		byTitle: make(map[string]int64, len(items)),
	}
	for _, it := range items {
		if it.ID < 0 {
			return nil, core.NewValidationError(core.ModuleLexical, "lexical: negative item id %d", it.ID)
		}
		if _, dup := c.titles[it.ID]; dup {
			return nil, core.NewValidationError(core.ModuleLexical, "lexical: duplicate item id %d", it.ID)
		}
		c.titles[it.ID] = it.Title
		c.ids = append(c.ids, it.ID)
		if prev, ok := c.byTitle[it.Title]; !ok || it.ID < prev {
			c.byTitle[it.Title] = it.ID
		}
	}
	sort.Slice(c.ids, func(i, j int) bool { return c.ids[i] < c.ids[j] })
	return c, nil
}

func (c *catalog) Title(id int64) (string, bool) {
	t, ok := c.titles[id]
	return t, ok
}

func (c *catalog) Lookup(title string) (int64, bool) {
	id, ok := c.byTitle[title]
	return id, ok
}

func (c *catalog) IDs() []int64 {
	return append([]int64(nil), c.ids...)
}

func (c *catalog) zeroScores() map[int64]float64 {
	out := make(map[int64]float64, len(c.ids))
	for _, id := range c.ids {
		out[id] = 0
	}
	return out
}
