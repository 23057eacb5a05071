package nn

import (
	"math"
	"math/rand"
)

// FeedForward 是可配置的前馈网络：若干 ReLU 隐层 + 一个标量输出层。
// 可选 batch normalization 与 dropout，dropout 只在训练模式生效。
//
// 权重由带种子的 Glorot uniform 初始化，实际数值由外部训练流程更新（库外）。
type FeedForward struct {
	layers []*linear
	norms  []*batchNorm
	out    *linear

	useBN       bool
	dropoutRate float64
	rng         *rand.Rand
}

type linear struct {
	in, out int
	w       [][]float64 // w[j][k]：输出神经元 j 对输入 k 的权重
	b       []float64
}

// batchNorm 保存推理用的 running statistics；初始均值 0、方差 1。
type batchNorm struct {
	gamma, beta []float64
	mean, vari  []float64
}

const bnEpsilon = 1e-5

// NewFeedForward 构建网络。inputDim 是输入维度，hiddenUnits 是各隐层宽度，
// 输出层固定为 1 个标量。
func NewFeedForward(inputDim int, hiddenUnits []int, useBN bool, dropoutRate float64, rng *rand.Rand) *FeedForward {
	ff := &FeedForward{
		useBN:       useBN,
		dropoutRate: dropoutRate,
		rng:         rng,
	}
	prev := inputDim
	for _, units := range hiddenUnits {
		ff.layers = append(ff.layers, newLinear(prev, units, rng))
		if useBN {
			ff.norms = append(ff.norms, newBatchNorm(units))
		}
		prev = units
	}
	ff.out = newLinear(prev, 1, rng)
	return ff
}

func newLinear(in, out int, rng *rand.Rand) *linear {
	l := &linear{in: in, out: out, b: make([]float64, out), w: make([][]float64, out)}
	limit := math.Sqrt(6.0 / float64(in+out))
	for j := 0; j < out; j++ {
		l.w[j] = make([]float64, in)
		for k := 0; k < in; k++ {
			l.w[j][k] = (rng.Float64()*2 - 1) * limit
		}
	}
	return l
}

func newBatchNorm(dim int) *batchNorm {
	bn := &batchNorm{
		gamma: make([]float64, dim),
		beta:  make([]float64, dim),
		mean:  make([]float64, dim),
		vari:  make([]float64, dim),
	}
	for i := 0; i < dim; i++ {
		bn.gamma[i] = 1
		bn.vari[i] = 1
	}
	return bn
}

func (l *linear) forward(x []float64) []float64 {
	y := make([]float64, l.out)
	for j := 0; j < l.out; j++ {
		s := l.b[j]
		row := l.w[j]
		for k := 0; k < l.in && k < len(x); k++ {
			s += row[k] * x[k]
		}
		y[j] = s
	}
	return y
}

func (bn *batchNorm) forward(x []float64) []float64 {
	y := make([]float64, len(x))
	for i := range x {
		y[i] = bn.gamma[i]*(x[i]-bn.mean[i])/math.Sqrt(bn.vari[i]+bnEpsilon) + bn.beta[i]
	}
	return y
}

// Forward 前向计算，返回标量输出。training 为 true 时启用 dropout
// （inverted dropout，保持期望不变）。
func (ff *FeedForward) Forward(x []float64, training bool) float64 {
	cur := x
	for i, l := range ff.layers {
		cur = l.forward(cur)
		if ff.useBN {
			cur = ff.norms[i].forward(cur)
		}
		for j := range cur {
			cur[j] = relu(cur[j])
		}
		if training && ff.dropoutRate > 0 {
			keep := 1 - ff.dropoutRate
			for j := range cur {
				if ff.rng.Float64() < ff.dropoutRate {
					cur[j] = 0
				} else {
					cur[j] /= keep
				}
			}
		}
	}
	return ff.out.forward(cur)[0]
}

// InputDim 返回网络期望的输入维度。
func (ff *FeedForward) InputDim() int {
	if len(ff.layers) > 0 {
		return ff.layers[0].in
	}
	return ff.out.in
}
