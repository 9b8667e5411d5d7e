package filter

import (
	"context"

	"github.com/rushteam/hybridrec/core"
)

// QueryTitleFilter 过滤标题与请求关键词完全相同的物品：
// 用户按标题搜索时，不再把这条内容本身推荐回去。
// 关键词为空时不过滤。
type QueryTitleFilter struct{}

func (f *QueryTitleFilter) Name() string { return "filter.query_title" }

func (f *QueryTitleFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if rctx == nil || rctx.Query == "" {
		return false, nil
	}
	title, ok := item.Title()
	return ok && title == rctx.Query, nil
}
