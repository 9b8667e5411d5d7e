package core

import "github.com/rushteam/hybridrec/pkg/utils"

// CatalogItem 是目录中的一条内容：ID 唯一，Body 用于构建文本索引，
// Title 只用于去重与标题解析，不参与打分。进程内不可变。
type CatalogItem struct {
	ID    int64  `json:"id" yaml:"id"`
	Title string `json:"title" yaml:"title"`
	Body  string `json:"body" yaml:"body"`
}

// UnresolvedItemID 是标题无法解析时返回的哨兵值。
const UnresolvedItemID int64 = -1

// MetaTitle 是 Item.Meta 中存放标题的 key。
const MetaTitle = "title"

// 召回节点写入 Item.Features 的原始分数 key，同时也是召回源名称
const (
	FeatureLexical       = "lexical"
	FeatureCollaborative = "collaborative"
)

// Item 是推荐链路中的统一承载结构：分数、元信息、标签。
// Labels 用于解释与策略驱动；Score 用于排序决策。
type Item struct {
	ID       int64
	Score    float64
	Features map[string]float64
	Meta     map[string]any
	Labels   map[string]utils.Label
}

func NewItem(id int64) *Item {
	return &Item{
		ID:       id,
		Score:    0,
		Features: make(map[string]float64),
		Meta:     make(map[string]any),
		Labels:   make(map[string]utils.Label),
	}
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

// Title 返回 Meta 中的标题。
func (it *Item) Title() (string, bool) {
	if it == nil || it.Meta == nil {
		return "", false
	}
	s, ok := it.Meta[MetaTitle].(string)
	return s, ok && s != ""
}

// Source 返回 recall_source 标签的值（lexical / collaborative）。
func (it *Item) Source() string {
	if it == nil || it.Labels == nil {
		return ""
	}
	return it.Labels[utils.LabelRecallSource].Value
}

// Scored 是带分数的物品 ID，用于各路打分结果的有序输出。
type Scored struct {
	ID    int64   `json:"id"`
	Score float64 `json:"score"`
}
