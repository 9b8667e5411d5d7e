package filter

import (
	"context"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pkg/dsl"
)

// ExprFilter 用 CEL 表达式过滤，表达式为 true 的物品被移除。
//
// 示例：
//
//	label.recall_source == "collaborative" && item.score < 0.1
type ExprFilter struct {
	prg *dsl.Program
}

// NewExprFilter 编译表达式，语法错误在构建期返回。
func NewExprFilter(expr string) (*ExprFilter, error) {
	if expr == "" {
		return nil, core.NewValidationError(core.ModuleFilter, "filter: empty expression")
	}
	prg, err := dsl.Compile(expr)
	if err != nil {
		return nil, core.NewValidationError(core.ModuleFilter, "filter: %v", err)
	}
	return &ExprFilter{prg: prg}, nil
}

func (f *ExprFilter) Name() string { return "filter.expr" }

// Expr 返回表达式原文。
func (f *ExprFilter) Expr() string { return f.prg.String() }

func (f *ExprFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	return f.prg.Eval(item, rctx)
}
