// Package nn 提供序列模型依赖的前向计算原语：masked attention 与全连接网络。
// 只有 forward，不包含梯度计算与优化器。
package nn

import "math"

// maskedNegInf 是被掩码位置的分数哨兵，保证 top-k 与 softmax 永远不选中 padding。
const maskedNegInf = -1e9

// Dot 计算两个等长向量的点积。
func Dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

// Sigmoid 把分数映射为 (0, 1) 概率。
func Sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Clip 把值裁剪到 [lo, hi]。
func Clip(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func relu(x float64) float64 {
	if x < 0 {
		return 0
	}
	return x
}

// softmaxMasked 对 scores 做 softmax，mask 为 false 的位置权重恒为 0。
// 全部位置无效时返回全零权重，避免零和归一化产生 NaN。
func softmaxMasked(scores []float64, mask []bool) []float64 {
	weights := make([]float64, len(scores))
	maxScore := math.Inf(-1)
	valid := 0
	for i, s := range scores {
		if mask[i] {
			valid++
			if s > maxScore {
				maxScore = s
			}
		}
	}
	if valid == 0 {
		return weights
	}

	var sum float64
	for i, s := range scores {
		if !mask[i] {
			continue
		}
		weights[i] = math.Exp(s - maxScore)
		sum += weights[i]
	}
	for i := range weights {
		weights[i] /= sum
	}
	return weights
}
