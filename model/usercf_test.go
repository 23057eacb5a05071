package model

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/seqrec/seqrec/core"
)

// usercfFixture 构建一个 4 用户 4 物品的小评分数据集并完成 Fit。
//
//	      i0  i1  i2  i3
//	 u0    5   4   -   1
//	 u1    5   4   -   -
//	 u2    1   -   5   4
//	 u3    -   1   5   5
func usercfFixture(t *testing.T, cfg UserCFConfig) *UserCF {
	t.Helper()
	users := []int{0, 0, 0, 1, 1, 2, 2, 2, 3, 3, 3}
	items := []int{0, 1, 3, 0, 1, 0, 2, 3, 1, 2, 3}
	labels := []float64{5, 4, 1, 5, 4, 1, 5, 4, 1, 5, 5}

	info := &core.DataInfo{
		NUsers:     4,
		NItems:     4,
		GlobalMean: 3.5,
		UserConsumed: [][]int{
			{0, 1, 3}, {0, 1}, {0, 2, 3}, {1, 2, 3},
		},
	}
	data, err := core.NewTransformedSet(users, items, labels, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	m, err := NewUserCF(info, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Fit(context.Background(), data); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestNewUserCFValidation(t *testing.T) {
	info := &core.DataInfo{NUsers: 1, NItems: 1}
	if _, err := NewUserCF(info, UserCFConfig{SimType: "euclidean"}, nil); !core.IsInvalidConfig(err) {
		t.Errorf("want INVALID_CONFIG for unknown sim_type, got %v", err)
	}
	m, err := NewUserCF(info, UserCFConfig{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if m.cfg.SimType != "cosine" || m.cfg.K != 20 {
		t.Errorf("defaults not applied: %+v", m.cfg)
	}
}

func TestUserCFSimMatrixRowsSortedDescending(t *testing.T) {
	m := usercfFixture(t, UserCFConfig{Task: TaskRating, SimType: "cosine", K: 2})
	for u := 0; u < 4; u++ {
		_, sims := m.simMatrix.Row(u)
		for i := 1; i < len(sims); i++ {
			if sims[i-1] < sims[i] {
				t.Errorf("user %d sim row not descending: %v", u, sims)
			}
		}
		for _, s := range sims {
			if s <= 0 {
				t.Errorf("user %d keeps non-positive similarity %v", u, s)
			}
		}
	}
	// u0 与 u1 在 i0/i1 上评分完全一致，应互为最相似邻居
	nb, _ := m.simMatrix.Row(0)
	if len(nb) == 0 || nb[0] != 1 {
		t.Errorf("user 0 top neighbor = %v, want user 1 first", nb)
	}
}

func TestUserCFRatingPrediction(t *testing.T) {
	m := usercfFixture(t, UserCFConfig{Task: TaskRating, SimType: "cosine", K: 2, LowerBound: 1, UpperBound: 5})
	preds, err := m.PredictBatch(context.Background(), &core.Batch{
		Users:  []int{0, 0},
		Items:  []int{2, 0},
		Labels: []float64{0, 0},
	})
	if err != nil {
		t.Fatal(err)
	}
	for i, p := range preds {
		if p < 1 || p > 5 {
			t.Errorf("pred[%d] = %v outside clip bounds [1, 5]", i, p)
		}
	}
	// u0 对 i2 的预测来自评过 i2 的邻居 u2/u3，其评分都是 5，加权平均仍是 5
	if math.Abs(preds[0]-5) > 1e-9 {
		t.Errorf("pred for (u0, i2) = %v, want 5", preds[0])
	}
}

func TestUserCFDefaultPrediction(t *testing.T) {
	m := usercfFixture(t, UserCFConfig{Task: TaskRating, SimType: "cosine", K: 2})
	preds, err := m.PredictBatch(context.Background(), &core.Batch{
		Users:  []int{99},
		Items:  []int{0},
		Labels: []float64{0},
	})
	if err != nil {
		t.Fatal(err)
	}
	if preds[0] != m.info.GlobalMean {
		t.Errorf("unknown user pred = %v, want global mean %v", preds[0], m.info.GlobalMean)
	}
}

func TestUserCFPredictBeforeFit(t *testing.T) {
	info := &core.DataInfo{NUsers: 2, NItems: 2}
	m, err := NewUserCF(info, UserCFConfig{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.PredictBatch(context.Background(), &core.Batch{Users: []int{0}, Items: []int{0}, Labels: []float64{1}}); err == nil {
		t.Error("expected error before Fit")
	}
}

func TestUserCFRecommendUser(t *testing.T) {
	m := usercfFixture(t, UserCFConfig{Task: TaskRating, SimType: "cosine", K: 3})
	ctx := context.Background()

	t.Run("filters consumed and sorts", func(t *testing.T) {
		recos, err := m.RecommendUser(ctx, 0, 10, true)
		if err != nil {
			t.Fatal(err)
		}
		for i, r := range recos {
			if r.Item == 0 || r.Item == 1 || r.Item == 3 {
				t.Errorf("recommended consumed item %d", r.Item)
			}
			if i > 0 && recos[i-1].Score < r.Score {
				t.Errorf("scores not descending: %+v", recos)
			}
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		if _, err := m.RecommendUser(ctx, 42, 5, false); !errors.Is(err, core.ErrNoRecommendation) {
			t.Errorf("want ErrNoRecommendation, got %v", err)
		}
	})

	t.Run("k truncates", func(t *testing.T) {
		recos, err := m.RecommendUser(ctx, 0, 1, false)
		if err != nil {
			t.Fatal(err)
		}
		if len(recos) != 1 {
			t.Errorf("got %d recommendations, want 1", len(recos))
		}
	})
}

func TestSimilarityFunctions(t *testing.T) {
	t.Run("cosine identical vectors", func(t *testing.T) {
		a := []float64{1, 2, 3}
		if got := cosineSim(a, a, norm(a), norm(a)); math.Abs(got-1) > 1e-9 {
			t.Errorf("cosine(a, a) = %v, want 1", got)
		}
	})
	t.Run("cosine zero norm", func(t *testing.T) {
		if got := cosineSim([]float64{0}, []float64{1}, 0, 1); got != 0 {
			t.Errorf("cosine with zero norm = %v, want 0", got)
		}
	})
	t.Run("pearson perfect negative", func(t *testing.T) {
		got := pearsonSim([]float64{1, 2, 3}, []float64{3, 2, 1})
		if math.Abs(got+1) > 1e-9 {
			t.Errorf("pearson = %v, want -1", got)
		}
	})
	t.Run("pearson constant vector", func(t *testing.T) {
		if got := pearsonSim([]float64{2, 2, 2}, []float64{1, 2, 3}); got != 0 {
			t.Errorf("pearson with zero variance = %v, want 0", got)
		}
	})
	t.Run("jaccard", func(t *testing.T) {
		if got := jaccardSim(2, 3, 4); math.Abs(got-2.0/5.0) > 1e-9 {
			t.Errorf("jaccard = %v, want 0.4", got)
		}
	})
}
