package nn

import (
	"math"
	"math/rand"
	"testing"
)

func TestFeedForwardDeterministicGivenSeed(t *testing.T) {
	x := []float64{0.1, -0.5, 2, 0.3}
	a := NewFeedForward(4, []int{8, 4}, false, 0, rand.New(rand.NewSource(7)))
	b := NewFeedForward(4, []int{8, 4}, false, 0, rand.New(rand.NewSource(7)))

	ya, yb := a.Forward(x, false), b.Forward(x, false)
	if ya != yb {
		t.Errorf("same seed forward differs: %v vs %v", ya, yb)
	}
	if math.IsNaN(ya) || math.IsInf(ya, 0) {
		t.Errorf("forward output not finite: %v", ya)
	}
}

func TestFeedForwardInferenceIgnoresDropout(t *testing.T) {
	x := []float64{1, 1, 1}
	ff := NewFeedForward(3, []int{6}, true, 0.5, rand.New(rand.NewSource(1)))

	// 推理模式下 dropout 不生效，多次前向结果必须一致
	y1 := ff.Forward(x, false)
	y2 := ff.Forward(x, false)
	if y1 != y2 {
		t.Errorf("inference forward not stable: %v vs %v", y1, y2)
	}
}

func TestFeedForwardInputDim(t *testing.T) {
	ff := NewFeedForward(12, []int{5}, false, 0, rand.New(rand.NewSource(1)))
	if got := ff.InputDim(); got != 12 {
		t.Errorf("InputDim = %d, want 12", got)
	}
}

func TestClipAndSigmoid(t *testing.T) {
	if got := Clip(10, 1, 5); got != 5 {
		t.Errorf("Clip(10,1,5) = %v", got)
	}
	if got := Clip(-3, 1, 5); got != 1 {
		t.Errorf("Clip(-3,1,5) = %v", got)
	}
	if got := Sigmoid(0); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("Sigmoid(0) = %v, want 0.5", got)
	}
}
