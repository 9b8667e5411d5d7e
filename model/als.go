package model

import (
	"context"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/matrix"
)

// ALSConfig 隐式反馈 ALS 的超参数。
type ALSConfig struct {
	// Factors 隐向量维度
	Factors int `koanf:"factors" validate:"gte=1"`

	// Regularization L2 正则系数，必须为正
	Regularization float64 `koanf:"regularization" validate:"gt=0"`

	// Iterations 交替优化的轮数
	Iterations int `koanf:"iterations" validate:"gte=1"`

	// Alpha 置信度缩放：c = 1 + alpha * r
	Alpha float64 `koanf:"alpha" validate:"gte=0"`

	// Seed 初始化随机种子，相同种子 + 相同矩阵 => 相同模型
	Seed int64 `koanf:"seed"`

	// Workers 单个半步内并行求解的 goroutine 数
	Workers int `koanf:"workers" validate:"gte=0"`
}

// DefaultALSConfig 返回默认超参数。
func DefaultALSConfig() ALSConfig {
	return ALSConfig{
		Factors:        20,
		Regularization: 0.1,
		Iterations:     20,
		Alpha:          1.0,
		Seed:           42,
		Workers:        4,
	}
}

func (c ALSConfig) withDefaults() ALSConfig {
	d := DefaultALSConfig()
	if c.Factors <= 0 {
		c.Factors = d.Factors
	}
	if c.Regularization <= 0 {
		c.Regularization = d.Regularization
	}
	if c.Iterations <= 0 {
		c.Iterations = d.Iterations
	}
	if c.Alpha < 0 {
		c.Alpha = d.Alpha
	}
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	return c
}

// Train 用隐式反馈 ALS（Hu, Koren, Volinsky 2008）分解交互矩阵。
//
// 目标函数：
//
//	sum_{u,i} c_ui * (p_ui - x_u·y_i)^2 + lambda * (sum ||x_u||^2 + sum ||y_i||^2)
//
// 其中 p_ui = 1（有交互）或 0，c_ui = 1 + alpha * r_ui。
// 每个半步都精确求解正规方程，目标函数随迭代单调不增。
// 输出的用户/物品因子行数与矩阵的行/列数严格相等。
//
// 矩阵没有非零元素时返回 INSUFFICIENT_DATA。
func Train(ctx context.Context, m *matrix.Matrix, cfg ALSConfig) (*MF, error) {
	if m == nil || m.NNZ() == 0 {
		return nil, core.NewInsufficientDataError("model: interaction matrix has no entries")
	}
	cfg = cfg.withDefaults()

	rng := rand.New(rand.NewSource(cfg.Seed))
	mf := &MF{
		factors:     cfg.Factors,
		userFactors: randomFactors(rng, m.Rows(), cfg.Factors),
		itemFactors: randomFactors(rng, m.Cols(), cfg.Factors),
	}

	s := &solver{cfg: cfg, m: m}
	for iter := 0; iter < cfg.Iterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// 固定 Y 求 X
		if err := s.halfStep(ctx, mf.userFactors, mf.itemFactors, m.Row); err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// 固定 X 求 Y
		if err := s.halfStep(ctx, mf.itemFactors, mf.userFactors, m.Col); err != nil {
			return nil, err
		}
		mf.losses = append(mf.losses, Objective(m, mf, cfg))
	}
	return mf, nil
}

func randomFactors(rng *rand.Rand, n, k int) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, k)
		for f := range out[i] {
			out[i][f] = 0.1 * (rng.Float64() - 0.5)
		}
	}
	return out
}

type solver struct {
	cfg ALSConfig
	m   *matrix.Matrix
}

// halfStep 在 other 固定的情况下重新求解 target 的每一行。
// entries(i) 返回第 i 行在 other 方向上的观测值。
func (s *solver) halfStep(ctx context.Context, target, other [][]float64, entries func(int) []matrix.Entry) error {
	k := s.cfg.Factors
	lambda := s.cfg.Regularization
	gram := gramMatrix(other, k)

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)

	chunk := (len(target) + s.cfg.Workers - 1) / s.cfg.Workers
	for start := 0; start < len(target); start += chunk {
		end := min(start+chunk, len(target))
		g.Go(func() error {
			for i := start; i < end; i++ {
				target[i] = s.solveOne(entries(i), other, gram, k, lambda)
			}
			return nil
		})
	}
	return g.Wait()
}

// solveOne 求解 (OtO + O^T (C-I) O + lambda I) x = O^T C p。
func (s *solver) solveOne(obs []matrix.Entry, other, gram [][]float64, k int, lambda float64) []float64 {
	A := make([][]float64, k)
	for f := range A {
		A[f] = make([]float64, k)
		copy(A[f], gram[f])
		A[f][f] += lambda
	}

	b := make([]float64, k)
	for _, e := range obs {
		y := other[e.Index]
		conf := 1.0 + s.cfg.Alpha*e.Value
		cMinus1 := conf - 1.0

		for f1 := 0; f1 < k; f1++ {
			for f2 := f1; f2 < k; f2++ {
				delta := cMinus1 * y[f1] * y[f2]
				A[f1][f2] += delta
				if f1 != f2 {
					A[f2][f1] += delta
				}
			}
			b[f1] += conf * y[f1]
		}
	}
	return solveLinearSystem(A, b)
}

// gramMatrix 计算 V^T V。
func gramMatrix(v [][]float64, k int) [][]float64 {
	g := make([][]float64, k)
	for f := range g {
		g[f] = make([]float64, k)
	}
	for _, row := range v {
		for f1 := 0; f1 < k; f1++ {
			for f2 := f1; f2 < k; f2++ {
				g[f1][f2] += row[f1] * row[f2]
			}
		}
	}
	for f1 := 0; f1 < k; f1++ {
		for f2 := 0; f2 < f1; f2++ {
			g[f1][f2] = g[f2][f1]
		}
	}
	return g
}

// Objective 计算当前因子下的正则化加权重构误差。
//
// 未观测单元格的贡献通过 sum_u x_u^T (Y^T Y) x_u 一次性计算，
// 再对观测单元格做修正，避免遍历整个稠密矩阵。
func Objective(m *matrix.Matrix, mf *MF, cfg ALSConfig) float64 {
	cfg = cfg.withDefaults()
	k := mf.factors
	gram := gramMatrix(mf.itemFactors, k)

	var loss float64
	for u, x := range mf.userFactors {
		// 假设所有单元格 p=0, c=1
		for f1 := 0; f1 < k; f1++ {
			var row float64
			for f2 := 0; f2 < k; f2++ {
				row += gram[f1][f2] * x[f2]
			}
			loss += x[f1] * row
		}
		// 修正观测单元格
		for _, e := range m.Row(u) {
			pred := dot(x, mf.itemFactors[e.Index])
			conf := 1.0 + cfg.Alpha*e.Value
			loss += conf*(1-pred)*(1-pred) - pred*pred
		}
	}

	var reg float64
	for _, x := range mf.userFactors {
		reg += dot(x, x)
	}
	for _, y := range mf.itemFactors {
		reg += dot(y, y)
	}
	return loss + cfg.Regularization*reg
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
