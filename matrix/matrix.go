// Package matrix 由交互日志构建用户×物品的稀疏交互矩阵。
//
// 矩阵维度为 (max(user_id)+1, max(item_id)+1)，覆盖日志中出现过的全部 ID；
// 每个单元格是该 (user, item) 上所有事件权重之和，与事件顺序无关。
package matrix

import (
	"sort"

	"github.com/rushteam/hybridrec/core"
)

// Entry 是一行（或一列）中的一个非零单元格。
type Entry struct {
	Index int
	Value float64
}

// Matrix 是不可变的稀疏矩阵，构建完成后可并发读取。
type Matrix struct {
	rows, cols int
	byRow      [][]Entry // 每行按列号升序
	byCol      [][]Entry // 转置视图，每列按行号升序
	nnz        int
}

// Empty 返回 0×0 矩阵。
func Empty() *Matrix {
	return &Matrix{}
}

// Build 累加事件权重构建矩阵。空日志返回 0×0 矩阵而不是错误。
// 非法事件（负 ID、未知行为）返回 INVALID_INPUT。
func Build(events []core.InteractionEvent) (*Matrix, error) {
	if len(events) == 0 {
		return Empty(), nil
	}

	type cell struct{ r, c int }
	sums := make(map[cell]float64, len(events))
	rows, cols := 0, 0

	for _, ev := range events {
		w, ok := ev.Action.Weight()
		if !ok {
			return nil, core.NewValidationError(core.ModuleMatrix, "matrix: unknown action %q", string(ev.Action))
		}
		if ev.UserID < 0 || ev.ItemID < 0 {
			return nil, core.NewValidationError(core.ModuleMatrix, "matrix: negative id (user=%d, item=%d)", ev.UserID, ev.ItemID)
		}
		r, c := int(ev.UserID), int(ev.ItemID)
		sums[cell{r, c}] += w
		if r+1 > rows {
			rows = r + 1
		}
		if c+1 > cols {
			cols = c + 1
		}
	}

	m := &Matrix{
		rows:  rows,
		cols:  cols,
		byRow: make([][]Entry, rows),
		byCol: make([][]Entry, cols),
		nnz:   len(sums),
	}
	for k, v := range sums {
		m.byRow[k.r] = append(m.byRow[k.r], Entry{Index: k.c, Value: v})
		m.byCol[k.c] = append(m.byCol[k.c], Entry{Index: k.r, Value: v})
	}
	for _, es := range m.byRow {
		sortEntries(es)
	}
	for _, es := range m.byCol {
		sortEntries(es)
	}
	return m, nil
}

func sortEntries(es []Entry) {
	sort.Slice(es, func(i, j int) bool { return es[i].Index < es[j].Index })
}

// Rows 返回行数（用户维度）。
func (m *Matrix) Rows() int { return m.rows }

// Cols 返回列数（物品维度）。
func (m *Matrix) Cols() int { return m.cols }

// NNZ 返回非零单元格数量。
func (m *Matrix) NNZ() int { return m.nnz }

// IsEmpty 表示没有任何协同信号。
func (m *Matrix) IsEmpty() bool { return m.nnz == 0 }

// At 返回单元格的值，越界或不存在时为 0。
func (m *Matrix) At(r, c int) float64 {
	if r < 0 || r >= m.rows {
		return 0
	}
	es := m.byRow[r]
	i := sort.Search(len(es), func(i int) bool { return es[i].Index >= c })
	if i < len(es) && es[i].Index == c {
		return es[i].Value
	}
	return 0
}

// Row 返回第 r 行的非零单元格（按列号升序），越界返回 nil。
// 返回的切片只读。
func (m *Matrix) Row(r int) []Entry {
	if r < 0 || r >= m.rows {
		return nil
	}
	return m.byRow[r]
}

// Col 返回第 c 列的非零单元格（按行号升序），越界返回 nil。
// 返回的切片只读。
func (m *Matrix) Col(c int) []Entry {
	if c < 0 || c >= m.cols {
		return nil
	}
	return m.byCol[c]
}

// Seen 返回用户交互过的物品集合。
func (m *Matrix) Seen(r int) map[int]struct{} {
	row := m.Row(r)
	seen := make(map[int]struct{}, len(row))
	for _, e := range row {
		seen[e.Index] = struct{}{}
	}
	return seen
}

// Equal 比较维度与全部单元格。
func (m *Matrix) Equal(o *Matrix) bool {
	if m == nil || o == nil {
		return m == o
	}
	if m.rows != o.rows || m.cols != o.cols || m.nnz != o.nnz {
		return false
	}
	for r := 0; r < m.rows; r++ {
		a, b := m.byRow[r], o.byRow[r]
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
	}
	return true
}
