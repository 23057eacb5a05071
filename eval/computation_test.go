package eval

import (
	"context"
	"math"
	"reflect"
	"testing"

	"github.com/seqrec/seqrec/core"
	"github.com/seqrec/seqrec/model"
	"github.com/seqrec/seqrec/nn"
)

// echoRanker 把物品 inner id 直接当作原始分数输出，便于核对变换与顺序。
type echoRanker struct{}

func (echoRanker) Name() string { return "echo" }

func (echoRanker) PredictBatch(_ context.Context, batch *core.Batch) ([]float64, error) {
	out := make([]float64, batch.Len())
	for i, it := range batch.Items {
		out[i] = float64(it)
	}
	return out, nil
}

type fixedRecommender struct {
	known map[int][]model.Scored
}

func (r fixedRecommender) RecommendUser(_ context.Context, user, k int, _ bool) ([]model.Scored, error) {
	reco, ok := r.known[user]
	if !ok {
		return nil, core.ErrNoRecommendation
	}
	if len(reco) > k {
		reco = reco[:k]
	}
	return reco, nil
}

func TestBuildTransformedData(t *testing.T) {
	info := &core.DataInfo{
		NUsers:  2,
		NItems:  3,
		User2ID: map[int]int{100: 0, 200: 1},
		Item2ID: map[int]int{10: 0, 20: 1, 30: 2},
	}
	data, err := BuildTransformedData(info,
		[]int{100, 200, 999},
		[]int{30, 10, 20},
		[]float64{1, 0, 1},
		nil, nil, false, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(data.UserIndices, []int{0, 1, 2}) {
		t.Errorf("user indices = %v, unknown user should map to sentinel 2", data.UserIndices)
	}
	if !reflect.DeepEqual(data.ItemIndices, []int{2, 0, 1}) {
		t.Errorf("item indices = %v", data.ItemIndices)
	}
}

func TestBuildTransformedDataNegSample(t *testing.T) {
	info := &core.DataInfo{
		NUsers:  1,
		NItems:  50,
		User2ID: map[int]int{1: 0},
		Item2ID: func() map[int]int {
			m := make(map[int]int, 50)
			for i := 0; i < 50; i++ {
				m[i] = i
			}
			return m
		}(),
	}
	data, err := BuildTransformedData(info,
		[]int{1, 1}, []int{3, 4}, []float64{1, 1},
		nil, nil, true, 2, 11)
	if err != nil {
		t.Fatal(err)
	}
	if data.Len() != 6 {
		t.Errorf("len after neg sampling = %d, want 6", data.Len())
	}
}

func TestComputePredsRankingAppliesSigmoid(t *testing.T) {
	data, err := core.NewTransformedSet(
		[]int{0, 0, 0, 0, 0},
		[]int{0, 1, 2, 3, 4},
		[]float64{1, 0, 1, 0, 1},
		nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	// BatchSize 2 强制多批并行，校验结果仍按原始样本顺序
	preds, labels, err := ComputePreds(context.Background(), echoRanker{}, data, Config{
		Task: model.TaskRanking, BatchSize: 2, Parallelism: 4,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(labels, []float64{1, 0, 1, 0, 1}) {
		t.Errorf("labels out of order: %v", labels)
	}
	for i, p := range preds {
		want := nn.Sigmoid(float64(i))
		if math.Abs(p-want) > 1e-12 {
			t.Errorf("preds[%d] = %v, want sigmoid(%d) = %v", i, p, i, want)
		}
	}
}

func TestComputePredsRatingClips(t *testing.T) {
	data, err := core.NewTransformedSet(
		[]int{0, 0, 0},
		[]int{0, 3, 9},
		[]float64{1, 3, 5},
		nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	preds, _, err := ComputePreds(context.Background(), echoRanker{}, data, Config{
		Task: model.TaskRating, LowerBound: 1, UpperBound: 5,
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{1, 3, 5} // 0 clipped up, 3 unchanged, 9 clipped down
	if !reflect.DeepEqual(preds, want) {
		t.Errorf("preds = %v, want %v", preds, want)
	}
}

func TestComputeProbsForcesRanking(t *testing.T) {
	data, _ := core.NewTransformedSet([]int{0}, []int{2}, []float64{1}, nil, nil)
	probs, _, err := ComputeProbs(context.Background(), echoRanker{}, data, Config{Task: model.TaskRating})
	if err != nil {
		t.Fatal(err)
	}
	if want := nn.Sigmoid(2); math.Abs(probs[0]-want) > 1e-12 {
		t.Errorf("probs[0] = %v, want %v", probs[0], want)
	}
}

func TestComputeRecommendsSkipsNoRec(t *testing.T) {
	rec := fixedRecommender{known: map[int][]model.Scored{
		0: {{Item: 5, Score: 0.9}, {Item: 2, Score: 0.8}},
		2: {{Item: 1, Score: 0.7}},
	}}
	out, err := ComputeRecommends(context.Background(), rec, []int{0, 1, 2}, 1, true, nil)
	if err != nil {
		t.Fatal(err)
	}
	if out.NoRec != 1 {
		t.Errorf("no_rec = %d, want 1", out.NoRec)
	}
	if !reflect.DeepEqual(out.Served, []int{0, 2}) {
		t.Errorf("served = %v, want [0 2]", out.Served)
	}
	if len(out.ByUser[0]) != 1 || out.ByUser[0][0].Item != 5 {
		t.Errorf("user 0 reco = %v, want top-1 item 5", out.ByUser[0])
	}
	if !reflect.DeepEqual(out.SortedUsers(), []int{0, 2}) {
		t.Errorf("sorted users = %v", out.SortedUsers())
	}
}
