package core

import (
	"fmt"
	"math/rand"
)

// TransformedSet 是转换后的训练/评估数据集：
// 平行数组按样本对齐，全部使用 inner id 表示。
type TransformedSet struct {
	UserIndices []int
	ItemIndices []int
	Labels      []float64

	// SparseIndices / DenseValues 为 nil 表示数据不带该类特征；
	// 非 nil 时每行长度必须与 DataInfo 的字段 schema 一致（由 Fusion 层校验）。
	SparseIndices [][]int
	DenseValues   [][]float64

	interaction *CSRMatrix
}

// NewTransformedSet 构建数据集并检查平行数组长度一致。
func NewTransformedSet(
	userIndices, itemIndices []int,
	labels []float64,
	sparseIndices [][]int,
	denseValues [][]float64,
) (*TransformedSet, error) {
	n := len(labels)
	if len(userIndices) != n || len(itemIndices) != n {
		return nil, NewDomainError(ModuleEval, ErrorCodeSchemaMismatch,
			fmt.Sprintf("length mismatch: users=%d items=%d labels=%d",
				len(userIndices), len(itemIndices), n))
	}
	if sparseIndices != nil && len(sparseIndices) != n {
		return nil, NewDomainError(ModuleEval, ErrorCodeSchemaMismatch,
			fmt.Sprintf("sparse rows=%d, want %d", len(sparseIndices), n))
	}
	if denseValues != nil && len(denseValues) != n {
		return nil, NewDomainError(ModuleEval, ErrorCodeSchemaMismatch,
			fmt.Sprintf("dense rows=%d, want %d", len(denseValues), n))
	}
	return &TransformedSet{
		UserIndices:   userIndices,
		ItemIndices:   itemIndices,
		Labels:        labels,
		SparseIndices: sparseIndices,
		DenseValues:   denseValues,
	}, nil
}

// Len 返回样本数。
func (s *TransformedSet) Len() int { return len(s.Labels) }

// Batch 截取 [lo, hi) 区间的样本切片（共享底层数组）。
func (s *TransformedSet) Batch(lo, hi int) *Batch {
	if lo < 0 {
		lo = 0
	}
	if hi > s.Len() {
		hi = s.Len()
	}
	b := &Batch{
		Users:  s.UserIndices[lo:hi],
		Items:  s.ItemIndices[lo:hi],
		Labels: s.Labels[lo:hi],
	}
	if s.SparseIndices != nil {
		b.Sparse = s.SparseIndices[lo:hi]
	}
	if s.DenseValues != nil {
		b.Dense = s.DenseValues[lo:hi]
	}
	return b
}

// Interaction 返回 user×item 交互 CSR 矩阵（懒构建，之后缓存）。
// 注意：并发调用前应先触发一次构建。
func (s *TransformedSet) Interaction(nUsers, nItems int) *CSRMatrix {
	if s.interaction == nil {
		s.interaction = NewCSRMatrix(nUsers, nItems, s.UserIndices, s.ItemIndices, s.Labels)
	}
	return s.interaction
}

// PositiveConsumed 按用户聚合正样本物品（label != 0；全 0 标签视为全正）。
func (s *TransformedSet) PositiveConsumed() map[int][]int {
	allZero := true
	for _, lb := range s.Labels {
		if lb != 0 {
			allZero = false
			break
		}
	}
	consumed := make(map[int][]int)
	seen := make(map[int]map[int]struct{})
	for k, u := range s.UserIndices {
		if !allZero && s.Labels[k] == 0 {
			continue
		}
		i := s.ItemIndices[k]
		if seen[u] == nil {
			seen[u] = make(map[int]struct{})
		}
		if _, dup := seen[u][i]; dup {
			continue
		}
		seen[u][i] = struct{}{}
		consumed[u] = append(consumed[u], i)
	}
	return consumed
}

// BuildNegatives 对每个正样本随机采样 numNeg 个该用户未消费过的物品作为负样本。
// 采样后数据按 (正, 负*numNeg) 交错排列，labels 同步改写为 1/0。
// 特征列（sparse/dense）按原正样本行复制，负样本沿用用户侧特征。
func (s *TransformedSet) BuildNegatives(nItems, numNeg int, seed int64) {
	if numNeg <= 0 || s.Len() == 0 {
		return
	}
	rng := rand.New(rand.NewSource(seed))
	consumed := s.PositiveConsumed()
	consumedSet := make(map[int]map[int]struct{}, len(consumed))
	for u, items := range consumed {
		set := make(map[int]struct{}, len(items))
		for _, i := range items {
			set[i] = struct{}{}
		}
		consumedSet[u] = set
	}

	n := s.Len()
	users := make([]int, 0, n*(numNeg+1))
	items := make([]int, 0, n*(numNeg+1))
	labels := make([]float64, 0, n*(numNeg+1))
	var sparse [][]int
	var dense [][]float64
	if s.SparseIndices != nil {
		sparse = make([][]int, 0, n*(numNeg+1))
	}
	if s.DenseValues != nil {
		dense = make([][]float64, 0, n*(numNeg+1))
	}

	appendRow := func(k, u, i int, label float64) {
		users = append(users, u)
		items = append(items, i)
		labels = append(labels, label)
		if sparse != nil {
			sparse = append(sparse, s.SparseIndices[k])
		}
		if dense != nil {
			dense = append(dense, s.DenseValues[k])
		}
	}

	for k := 0; k < n; k++ {
		u := s.UserIndices[k]
		appendRow(k, u, s.ItemIndices[k], 1)
		for j := 0; j < numNeg; j++ {
			// 拒绝采样：避开用户已消费物品；尝试次数封顶防止死循环
			neg := rng.Intn(nItems)
			for tries := 0; tries < 10; tries++ {
				if _, ok := consumedSet[u][neg]; !ok {
					break
				}
				neg = rng.Intn(nItems)
			}
			appendRow(k, u, neg, 0)
		}
	}

	s.UserIndices = users
	s.ItemIndices = items
	s.Labels = labels
	s.SparseIndices = sparse
	s.DenseValues = dense
	s.interaction = nil
}

// Batch 是一个前向计算批次：模型输入的统一承载结构。
type Batch struct {
	Users  []int
	Items  []int
	Labels []float64
	Sparse [][]int
	Dense  [][]float64

	// Training 控制 dropout 等只在训练期生效的算子。
	Training bool
}

// Len 返回批次大小。
func (b *Batch) Len() int { return len(b.Users) }
