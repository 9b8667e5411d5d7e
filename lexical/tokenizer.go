package lexical

import (
	"strings"
	"unicode"
)

// Tokenizer 把文本切分为词项。分词属于外部能力，可替换为任意实现。
type Tokenizer interface {
	Tokenize(text string) []string
}

// TokenizerFunc 适配普通函数。
type TokenizerFunc func(text string) []string

func (f TokenizerFunc) Tokenize(text string) []string { return f(text) }

// FieldsTokenizer 小写化后按非字母数字字符切分，并丢弃停用词。
type FieldsTokenizer struct {
	Stopwords map[string]struct{}
}

// NewFieldsTokenizer 创建分词器，停用词小写化后匹配。
func NewFieldsTokenizer(stopwords ...string) *FieldsTokenizer {
	set := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		set[strings.ToLower(w)] = struct{}{}
	}
	return &FieldsTokenizer{Stopwords: set}
}

func (t *FieldsTokenizer) Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(t.Stopwords) == 0 {
		return fields
	}
	out := fields[:0]
	for _, f := range fields {
		if _, stop := t.Stopwords[f]; !stop {
			out = append(out, f)
		}
	}
	return out
}

// DefaultStopwords 是默认停用词。
var DefaultStopwords = []string{
	"a", "an", "and", "are", "as", "at", "be", "by", "for", "from",
	"in", "is", "it", "of", "on", "or", "that", "the", "to", "with",
}
