package model

import (
	"sort"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/matrix"
	"github.com/rushteam/hybridrec/pkg/norm"
)

// MF 是训练完成的矩阵分解模型，不可变，可并发读取。
type MF struct {
	factors     int
	userFactors [][]float64 // rows x factors
	itemFactors [][]float64 // cols x factors
	losses      []float64
}

// UserCount 返回用户因子行数（等于训练时矩阵的行数）。
func (mf *MF) UserCount() int { return len(mf.userFactors) }

// ItemCount 返回物品因子行数（等于训练时矩阵的列数）。
func (mf *MF) ItemCount() int { return len(mf.itemFactors) }

// Factors 返回隐向量维度。
func (mf *MF) Factors() int { return mf.factors }

// Losses 返回每轮迭代结束后的目标函数值。
func (mf *MF) Losses() []float64 {
	return append([]float64(nil), mf.losses...)
}

// UserVector 返回用户隐向量的拷贝，越界返回 nil。
func (mf *MF) UserVector(u int) []float64 {
	if u < 0 || u >= len(mf.userFactors) {
		return nil
	}
	return append([]float64(nil), mf.userFactors[u]...)
}

// ItemVector 返回物品隐向量的拷贝，越界返回 nil。
func (mf *MF) ItemVector(i int) []float64 {
	if i < 0 || i >= len(mf.itemFactors) {
		return nil
	}
	return append([]float64(nil), mf.itemFactors[i]...)
}

// Predict 返回用户对物品的原始偏好（隐向量内积）。
func (mf *MF) Predict(u, i int) float64 {
	if u < 0 || u >= len(mf.userFactors) || i < 0 || i >= len(mf.itemFactors) {
		return 0
	}
	return dot(mf.userFactors[u], mf.itemFactors[i])
}

// Check 校验模型能否为该用户在矩阵 m 上打分。
//
// 检查顺序：
//  1. user 不在矩阵行范围内 => OUT_OF_RANGE
//  2. 模型物品数 != 矩阵列数 => STALE_MODEL
//  3. 模型没有该用户的因子 => OUT_OF_RANGE
func (mf *MF) Check(m *matrix.Matrix, userID int64) error {
	if userID < 0 || userID >= int64(m.Rows()) {
		return core.NewOutOfRangeError(userID, m.Rows())
	}
	if mf.ItemCount() != m.Cols() {
		return core.NewStaleModelError(mf.ItemCount(), m.Cols())
	}
	if userID >= int64(mf.UserCount()) {
		return core.NewOutOfRangeError(userID, mf.UserCount())
	}
	return nil
}

// Score 为用户打分并返回 topN 个未交互过的物品。
//
// 结果按原始分数降序，分数相同按物品 ID 升序；
// 返回前在结果集合内做 min-max 归一化（全部相等时为 0）。
func (mf *MF) Score(m *matrix.Matrix, userID int64, topN int) ([]core.Scored, error) {
	return mf.ScoreWhere(m, userID, topN, nil)
}

// ScoreWhere 同 Score，但只保留 keep 返回 true 的物品，keep 为 nil 时不过滤。
// 截断与归一化都在过滤之后进行。
func (mf *MF) ScoreWhere(m *matrix.Matrix, userID int64, topN int, keep func(id int64) bool) ([]core.Scored, error) {
	if err := mf.Check(m, userID); err != nil {
		return nil, err
	}
	if topN <= 0 {
		return []core.Scored{}, nil
	}

	u := int(userID)
	seen := m.Seen(u)
	x := mf.userFactors[u]

	candidates := make([]core.Scored, 0, len(mf.itemFactors)-len(seen))
	for i, y := range mf.itemFactors {
		if _, ok := seen[i]; ok {
			continue
		}
		if keep != nil && !keep(int64(i)) {
			continue
		}
		candidates = append(candidates, core.Scored{ID: int64(i), Score: dot(x, y)})
	}

	sort.Slice(candidates, func(a, b int) bool {
		if candidates[a].Score != candidates[b].Score {
			return candidates[a].Score > candidates[b].Score
		}
		return candidates[a].ID < candidates[b].ID
	})
	if len(candidates) > topN {
		candidates = candidates[:topN]
	}
	return norm.MinMaxScored(candidates), nil
}
