// Package hybridrec 是一个混合推荐引擎：BM25（或关键词图）文本相关度
// 与隐式反馈 ALS 协同过滤按权重融合。
//
// 设计要点：
// - Pipeline-first: 推荐逻辑通过 Node 串联（Recall → Filter → Rank → ReRank）
// - Labels-first: labels 全链路透传与标准化 merge，记录召回来源、融合权重与降级原因
// - Snapshot: 矩阵与模型作为不可变快照整体发布，写路径单写者串行
package hybridrec

import (
	"context"

	"github.com/rushteam/hybridrec/config"
	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/engine"
	"github.com/rushteam/hybridrec/pipeline"
)

// 轻量 facade：便于用户直接 import "hybridrec" 使用核心抽象。
type (
	Engine           = engine.Engine
	Request          = engine.Request
	Option           = engine.Option
	Settings         = config.Settings
	CatalogItem      = core.CatalogItem
	InteractionEvent = core.InteractionEvent
	Action           = core.Action
	Pipeline         = pipeline.Pipeline
	Node             = pipeline.Node
	Kind             = pipeline.Kind
)

const (
	ActionClick    = core.ActionClick
	ActionNavigate = core.ActionNavigate
	ActionBookmark = core.ActionBookmark

	AnonymousUser    = core.AnonymousUser
	UnresolvedItemID = core.UnresolvedItemID
)

const (
	KindRecall      = pipeline.KindRecall
	KindFilter      = pipeline.KindFilter
	KindRank        = pipeline.KindRank
	KindReRank      = pipeline.KindReRank
	KindPostProcess = pipeline.KindPostProcess
)

// New 等价于 engine.New。
func New(ctx context.Context, items []CatalogItem, settings *Settings, opts ...Option) (*Engine, error) {
	return engine.New(ctx, items, settings, opts...)
}
