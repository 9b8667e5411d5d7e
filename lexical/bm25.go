package lexical

import (
	"math"

	"github.com/rushteam/hybridrec/core"
)

// BM25 默认参数
const (
	DefaultK1 = 1.5
	DefaultB  = 0.75
)

// BM25 是 Okapi BM25 打分：
//
//	score(d, q) = sum_t idf(t) * tf(t,d)*(k1+1) / (tf(t,d) + k1*(1 - b + b*|d|/avgdl))
//	idf(t)      = ln((N - df + 0.5)/(df + 0.5) + 1)
//
// 查询中重复出现的词项会重复计分。
type BM25 struct {
	*catalog
	tok   Tokenizer
	k1, b float64

	docs  []bm25Doc
	df    map[string]int
	avgdl float64
}

type bm25Doc struct {
	id     int64
	tf     map[string]int
	length int
}

// NewBM25 对目录正文建索引。
func NewBM25(items []core.CatalogItem, opts ...Option) (*BM25, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.k1 < 0 || o.b < 0 || o.b > 1 {
		return nil, core.NewValidationError(core.ModuleLexical, "lexical: invalid bm25 params k1=%v b=%v", o.k1, o.b)
	}
	cat, err := newCatalog(items)
	if err != nil {
		return nil, err
	}

	idx := &BM25{
		catalog: cat,
		tok:     o.tokenizer,
		k1:      o.k1,
		b:       o.b,
		docs:    make([]bm25Doc, 0, len(items)),
		df:      make(map[string]int),
	}

	var total int
	for _, it := range items {
		tokens := idx.tok.Tokenize(it.Body)
		tf := make(map[string]int, len(tokens))
		for _, t := range tokens {
			tf[t]++
		}
		for t := range tf {
			idx.df[t]++
		}
		idx.docs = append(idx.docs, bm25Doc{id: it.ID, tf: tf, length: len(tokens)})
		total += len(tokens)
	}
	idx.avgdl = float64(total) / float64(len(idx.docs))
	return idx, nil
}

func (idx *BM25) Name() string { return StrategyBM25 }

// IDF 返回词项的逆文档频率，不在词表中返回 0。
func (idx *BM25) IDF(term string) float64 {
	df, ok := idx.df[term]
	if !ok {
		return 0
	}
	n := float64(len(idx.docs))
	return math.Log((n-float64(df)+0.5)/(float64(df)+0.5) + 1)
}

func (idx *BM25) Score(query string) map[int64]float64 {
	scores := idx.zeroScores()
	terms := idx.tok.Tokenize(query)
	if len(terms) == 0 {
		return scores
	}

	for _, term := range terms {
		idf := idx.IDF(term)
		if idf == 0 {
			continue
		}
		for _, d := range idx.docs {
			f := float64(d.tf[term])
			if f == 0 {
				continue
			}
			lenNorm := 1.0
			if idx.avgdl > 0 {
				lenNorm = 1 - idx.b + idx.b*float64(d.length)/idx.avgdl
			}
			scores[d.id] += idf * f * (idx.k1 + 1) / (f + idx.k1*lenNorm)
		}
	}
	return scores
}

var _ Index = (*BM25)(nil)
