package core

import (
	"github.com/rushteam/hybridrec/pkg/conv"
	"github.com/rushteam/hybridrec/pkg/utils"
)

// AnonymousUser 表示请求没有携带用户（只做文本召回）。
// 用户 ID 0 是合法 ID，不能用零值表示“无用户”。
const AnonymousUser int64 = -1

// 常用的请求参数 key
const (
	ParamTopN        = "top_n"
	ParamDedupTitles = "dedup_titles"
)

// RecommendContext 承载用户/查询/请求参数，贯穿整个 Pipeline 透传。
type RecommendContext struct {
	UserID int64
	Query  string

	// Labels 是请求级标签，可驱动整个 Pipeline 行为
	Labels map[string]utils.Label

	// Params 请求级参数：top_n、dedup_titles 等
	Params map[string]any
}

// HasUser 判断请求是否携带了用户。
func (rctx *RecommendContext) HasUser() bool {
	return rctx != nil && rctx.UserID >= 0
}

// PutLabel 写入请求级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取请求级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}

// IntParam 读取整型参数，缺失或类型不符时返回 def。
func (rctx *RecommendContext) IntParam(key string, def int) int {
	if rctx == nil || rctx.Params == nil {
		return def
	}
	if v, ok := conv.ToInt(rctx.Params[key]); ok {
		return v
	}
	return def
}

// BoolParam 读取布尔参数，缺失或类型不符时返回 def。
func (rctx *RecommendContext) BoolParam(key string, def bool) bool {
	if rctx == nil || rctx.Params == nil {
		return def
	}
	return conv.ConfigGet(rctx.Params, key, def)
}
