package engine

import (
	"time"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/matrix"
	"github.com/rushteam/hybridrec/model"
)

// Snapshot 是一次训练的结果：模型与训练它的矩阵，维度一致，发布后不可变。
type Snapshot struct {
	ID        string
	Matrix    *matrix.Matrix
	Model     *model.MF // 没有交互数据时为 nil
	Events    int       // 训练时日志中的事件数
	TrainedAt time.Time
}

// state 是读路径看到的一致视图，整体原子替换。
//
// live 是由最新日志构建的矩阵：pending == 0 时就是 snapshot.Matrix，
// 否则可能比模型多出新的用户或物品。
type state struct {
	snapshot *Snapshot
	live     *matrix.Matrix
	pending  int
}

// stale 报告模型的物品数是否与最新矩阵的列数不一致。
func (s *state) stale() bool {
	mf := s.snapshot.Model
	return mf != nil && mf.ItemCount() != s.live.Cols()
}

// score 只返回 keep 接受的物品；矩阵列号覆盖 [0, 最大物品 ID]，
// 目录 ID 不连续时其中会有不存在的物品。
func (s *state) score(userID int64, topN int, keep func(id int64) bool) ([]core.Scored, error) {
	if s.snapshot.Model == nil {
		return nil, core.NewInsufficientDataError("engine: no trained model")
	}
	return s.snapshot.Model.ScoreWhere(s.live, userID, topN, keep)
}
