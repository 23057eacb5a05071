package nn

// Attention 是共享的 masked attention 池化原语：
// 以 query（候选物品向量）对 keys（序列各位置向量）做点积打分，
// 无效位置（mask 为 false）在归一化前清零，有效权重归一化到和为 1，
// 返回 keys 的加权和。
//
// 退化情形：mask 全 false（空历史用户）时输出零向量，而不是 NaN。
// 同一原语被 ESU（top-k 长序列）与短兴趣 DIN 两处复用。
func Attention(query []float64, keys [][]float64, mask []bool) []float64 {
	out := make([]float64, len(query))
	if len(keys) == 0 {
		return out
	}

	scores := make([]float64, len(keys))
	for i, k := range keys {
		if mask[i] {
			scores[i] = Dot(query, k)
		} else {
			scores[i] = maskedNegInf
		}
	}

	weights := softmaxMasked(scores, mask)
	for i, k := range keys {
		w := weights[i]
		if w == 0 {
			continue
		}
		for j := range out {
			out[j] += w * k[j]
		}
	}
	return out
}

// AttentionWeights 返回归一化后的注意力权重，便于测试与解释。
func AttentionWeights(query []float64, keys [][]float64, mask []bool) []float64 {
	scores := make([]float64, len(keys))
	for i, k := range keys {
		if mask[i] {
			scores[i] = Dot(query, k)
		} else {
			scores[i] = maskedNegInf
		}
	}
	return softmaxMasked(scores, mask)
}
