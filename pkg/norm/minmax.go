// Package norm 提供分数归一化。
package norm

import (
	"github.com/rushteam/hybridrec/core"
)

// MinMax 将分数线性缩放到 [0,1]：(x-min)/(max-min)。
//
//   - 空输入返回空 map
//   - 全部分数相等（max==min）时全部映射为 0
//
// 纯函数，不修改入参。
func MinMax(scores map[int64]float64) map[int64]float64 {
	out := make(map[int64]float64, len(scores))
	if len(scores) == 0 {
		return out
	}

	lo, hi := bounds(scores)
	span := hi - lo
	for id, s := range scores {
		if span == 0 {
			out[id] = 0
			continue
		}
		out[id] = (s - lo) / span
	}
	return out
}

// MinMaxScored 对有序结果做同样的缩放，保持原顺序。
func MinMaxScored(items []core.Scored) []core.Scored {
	out := make([]core.Scored, len(items))
	if len(items) == 0 {
		return out
	}

	lo, hi := items[0].Score, items[0].Score
	for _, it := range items[1:] {
		lo = min(lo, it.Score)
		hi = max(hi, it.Score)
	}
	span := hi - lo
	for i, it := range items {
		out[i] = core.Scored{ID: it.ID}
		if span != 0 {
			out[i].Score = (it.Score - lo) / span
		}
	}
	return out
}

func bounds(scores map[int64]float64) (lo, hi float64) {
	first := true
	for _, s := range scores {
		if first {
			lo, hi = s, s
			first = false
			continue
		}
		lo = min(lo, s)
		hi = max(hi, s)
	}
	return lo, hi
}
