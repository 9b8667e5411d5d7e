package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rushteam/hybridrec/core"
)

// Hook 在每个 Node 执行后被调用，用于打点与日志。
type Hook func(node Node, in, out int, cost time.Duration, err error)

// Pipeline 把推荐逻辑拆成可组合的 Node 链。
type Pipeline struct {
	Nodes []Node

	// Hooks 可选
	Hooks []Hook
}

// Run 顺序执行各 Node；任一 Node 出错即中止并返回带 Node 名的错误。
func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	cur := items
	for _, node := range p.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		next, err := node.Process(ctx, rctx, cur)
		for _, h := range p.Hooks {
			h(node, len(cur), len(next), time.Since(start), err)
		}
		if err != nil {
			return nil, fmt.Errorf("pipeline node %s: %w", node.Name(), err)
		}
		cur = next
	}
	return cur, nil
}
