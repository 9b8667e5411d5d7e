package lexical

import (
	"sort"

	"github.com/rushteam/hybridrec/core"
)

// 关键词图默认参数
const (
	DefaultMaxKeywords = 10
	DefaultGraphWeight = 0.5
)

// KeywordGraph 是基于关键词集合的 Jaccard 相关度，叠加关键词共现图的邻居加成：
//
//	score(d, q) = J(Q, K_d) + graphWeight * sum_n w(d,n)*J(Q, K_n) / sum_n w(d,n)
//
// K_d 是物品正文中前 maxKeywords 个不同词项；两个物品共享的关键词数即边权 w。
// 没有邻居的物品只有 Jaccard 部分。
type KeywordGraph struct {
	*catalog
	tok         Tokenizer
	graphWeight float64

	keywords  map[int64]map[string]struct{}
	neighbors map[int64][]edge
}

type edge struct {
	to     int64
	weight float64
}

// NewKeywordGraph 抽取关键词并建图。
func NewKeywordGraph(items []core.CatalogItem, opts ...Option) (*KeywordGraph, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	cat, err := newCatalog(items)
	if err != nil {
		return nil, err
	}

	g := &KeywordGraph{
		catalog:     cat,
		tok:         o.tokenizer,
		graphWeight: o.graphWeight,
		keywords:    make(map[int64]map[string]struct{}, len(items)),
		neighbors:   make(map[int64][]edge, len(items)),
	}
	for _, it := range items {
		g.keywords[it.ID] = extractKeywords(g.tok.Tokenize(it.Body), o.maxKeywords)
	}

	// 按 ID 升序建边，保证邻居顺序稳定
	for i, a := range cat.ids {
		for _, b := range cat.ids[i+1:] {
			shared := intersectCount(g.keywords[a], g.keywords[b])
			if shared == 0 {
				continue
			}
			w := float64(shared)
			g.neighbors[a] = append(g.neighbors[a], edge{to: b, weight: w})
			g.neighbors[b] = append(g.neighbors[b], edge{to: a, weight: w})
		}
	}
	return g, nil
}

func extractKeywords(tokens []string, limit int) map[string]struct{} {
	out := make(map[string]struct{}, limit)
	for _, t := range tokens {
		if len(out) >= limit {
			break
		}
		out[t] = struct{}{}
	}
	return out
}

func (g *KeywordGraph) Name() string { return StrategyJaccard }

// Keywords 返回物品的关键词（升序）。
func (g *KeywordGraph) Keywords(id int64) []string {
	kw := g.keywords[id]
	out := make([]string, 0, len(kw))
	for k := range kw {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (g *KeywordGraph) Score(query string) map[int64]float64 {
	scores := g.zeroScores()
	q := make(map[string]struct{})
	for _, t := range g.tok.Tokenize(query) {
		q[t] = struct{}{}
	}
	if len(q) == 0 {
		return scores
	}

	direct := make(map[int64]float64, len(g.ids))
	for _, id := range g.ids {
		direct[id] = jaccard(q, g.keywords[id])
	}

	for _, id := range g.ids {
		s := direct[id]
		if edges := g.neighbors[id]; len(edges) > 0 && g.graphWeight > 0 {
			var num, den float64
			for _, e := range edges {
				num += e.weight * direct[e.to]
				den += e.weight
			}
			s += g.graphWeight * num / den
		}
		scores[id] = s
	}
	return scores
}

func intersectCount(a, b map[string]struct{}) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}

func jaccard(a, b map[string]struct{}) float64 {
	inter := intersectCount(a, b)
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

var _ Index = (*KeywordGraph)(nil)
