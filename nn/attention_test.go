package nn

import (
	"math"
	"testing"
)

func TestAttentionAllMaskedYieldsZeroVector(t *testing.T) {
	query := []float64{1, 2}
	keys := [][]float64{{3, 4}, {5, 6}}
	mask := []bool{false, false}

	out := Attention(query, keys, mask)
	for i, v := range out {
		if v != 0 {
			t.Errorf("out[%d] = %v, want 0", i, v)
		}
	}
}

func TestAttentionSingleValidReturnsThatValue(t *testing.T) {
	query := []float64{1, 0}
	keys := [][]float64{{3, 4}, {5, 6}, {7, 8}}
	mask := []bool{false, true, false}

	out := Attention(query, keys, mask)
	want := keys[1]
	for i := range want {
		if math.Abs(out[i]-want[i]) > 1e-12 {
			t.Errorf("out = %v, want %v", out, want)
		}
	}
}

func TestAttentionWeightsSumToOne(t *testing.T) {
	query := []float64{0.5, -1, 2}
	keys := [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 1, 1}}
	mask := []bool{true, true, false, true}

	weights := AttentionWeights(query, keys, mask)
	var sum float64
	for i, w := range weights {
		if !mask[i] && w != 0 {
			t.Errorf("masked weight[%d] = %v, want 0", i, w)
		}
		if w < 0 {
			t.Errorf("weight[%d] = %v, want >= 0", i, w)
		}
		sum += w
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("weights sum = %v, want 1", sum)
	}
}

func TestAttentionFavorsAlignedKey(t *testing.T) {
	query := []float64{10, 0}
	keys := [][]float64{{1, 0}, {0, 1}}
	mask := []bool{true, true}

	weights := AttentionWeights(query, keys, mask)
	if weights[0] <= weights[1] {
		t.Errorf("aligned key weight %v should exceed orthogonal key weight %v",
			weights[0], weights[1])
	}
}
