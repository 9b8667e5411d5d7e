package model

import (
	"context"
	"testing"

	"github.com/rushteam/hybridrec/core"
)

func trainedSample(t *testing.T) *MF {
	t.Helper()
	mf, err := Train(context.Background(), sampleMatrix(t), smallConfig())
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	return mf
}

func TestMF_ScoreExcludesSeen(t *testing.T) {
	m := sampleMatrix(t)
	mf := trainedSample(t)

	for u := int64(0); u < int64(m.Rows()); u++ {
		got, err := mf.Score(m, u, m.Cols())
		if err != nil {
			t.Fatalf("Score(%d): %v", u, err)
		}
		seen := m.Seen(int(u))
		if len(got) != m.Cols()-len(seen) {
			t.Errorf("user %d: %d results, want %d", u, len(got), m.Cols()-len(seen))
		}
		for _, s := range got {
			if _, ok := seen[int(s.ID)]; ok {
				t.Errorf("user %d: returned already-seen item %d", u, s.ID)
			}
		}
	}
}

func TestMF_ScoreOrderingAndNormalization(t *testing.T) {
	m := sampleMatrix(t)
	mf := trainedSample(t)

	got, err := mf.Score(m, 0, 3)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		prev, cur := got[i-1], got[i]
		if cur.Score > prev.Score || (cur.Score == prev.Score && cur.ID < prev.ID) {
			t.Errorf("results not ordered: %v", got)
		}
	}
	if got[0].Score != 1 || got[len(got)-1].Score != 0 {
		t.Errorf("scores not min-max normalized: %v", got)
	}
}

func TestMF_ScoreTiesByAscendingID(t *testing.T) {
	// 手工构造因子：物品 1、2、3 与用户的内积相同
	mf := &MF{
		factors:     1,
		userFactors: [][]float64{{1}},
		itemFactors: [][]float64{{5}, {2}, {2}, {2}},
	}
	m := buildMatrix(t, click(0, 0), core.InteractionEvent{UserID: 0, ItemID: 3, Action: core.ActionNavigate})
	// 矩阵列数 = 4，与模型一致；用户已看过 0 和 3
	got, err := mf.Score(m, 0, 5)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 2 {
		t.Errorf("Score = %v, want items [1 2]", got)
	}
	for _, s := range got {
		if s.Score != 0 {
			t.Errorf("equal raw scores should normalize to 0, got %v", got)
		}
	}
}

func TestMF_ScoreErrors(t *testing.T) {
	m := sampleMatrix(t)
	mf := trainedSample(t)

	grown := buildMatrix(t, click(0, 0), click(0, 9))

	tests := []struct {
		name  string
		user  int64
		check func(error) bool
	}{
		{"negative user", -1, core.IsOutOfRange},
		{"user beyond rows", int64(m.Rows()), core.IsOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := mf.Score(m, tt.user, 3); !tt.check(err) {
				t.Errorf("Score = %v", err)
			}
		})
	}

	t.Run("stale model", func(t *testing.T) {
		if _, err := mf.Score(grown, 0, 3); !core.IsStaleModel(err) {
			t.Errorf("Score = %v, want stale model", err)
		}
	})

	t.Run("user unknown to model", func(t *testing.T) {
		// 列数相同，但矩阵多出一个用户行
		wider := buildMatrix(t, click(9, 5))
		if _, err := mf.Score(wider, 8, 3); !core.IsOutOfRange(err) {
			t.Errorf("Score = %v, want out of range", err)
		}
	})
}

func TestMF_ScoreZeroTopN(t *testing.T) {
	m := sampleMatrix(t)
	got, err := trainedSample(t).Score(m, 0, 0)
	if err != nil || len(got) != 0 {
		t.Errorf("Score(topN=0) = %v, %v", got, err)
	}
}

func TestMF_ScoreWhere(t *testing.T) {
	m := sampleMatrix(t)
	mf := trainedSample(t)
	even := func(id int64) bool { return id%2 == 0 }

	seen := m.Seen(0)
	want := 0
	for i := 0; i < m.Cols(); i++ {
		if _, ok := seen[i]; !ok && i%2 == 0 {
			want++
		}
	}

	got, err := mf.ScoreWhere(m, 0, m.Cols(), even)
	if err != nil {
		t.Fatalf("ScoreWhere: %v", err)
	}
	if len(got) != want {
		t.Fatalf("len = %d, want %d", len(got), want)
	}
	for _, s := range got {
		if !even(s.ID) {
			t.Errorf("ScoreWhere returned rejected item %d", s.ID)
		}
	}

	// 截断在过滤之后：topN 个名额不会被过滤掉的物品占用
	top, err := mf.ScoreWhere(m, 0, 1, even)
	if err != nil || len(top) != 1 || !even(top[0].ID) {
		t.Errorf("ScoreWhere(topN=1) = %v, %v", top, err)
	}
}
