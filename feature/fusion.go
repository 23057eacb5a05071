package feature

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/seqrec/seqrec/core"
)

// Combiner 是多值 sparse 字段的合并方式。
type Combiner string

const (
	CombinerSum   Combiner = "sum"
	CombinerMean  Combiner = "mean"
	CombinerSqrtN Combiner = "sqrtn" // sum / sqrt(count)
)

func (c Combiner) valid() bool {
	switch c {
	case CombinerSum, CombinerMean, CombinerSqrtN:
		return true
	}
	return false
}

// Config 是融合层配置，构造后不可变。
type Config struct {
	EmbedSize int
	Combiner  Combiner
	Seed      int64
}

// Fusion 把 user/item/sparse/dense 特征融合为逐样本的拼接向量。
//
// flatten 语义：每个逻辑字段产出各自的 EmbedSize 向量后按字段顺序拼接，
// 而不是把所有字段求和成单个向量。dense 字段的 embedding 逐元素乘以字段取值。
//
// 字段数校验在构造期完成，批次计算期只在行级检查长度一致。
type Fusion struct {
	info     *core.DataInfo
	combiner Combiner

	User   *Table
	Item   *Table
	Sparse *Table // nil 表示无 sparse 特征
	Dense  *Table // nil 表示无 dense 特征

	groups [][]int
}

// NewFusion 校验配置并构建各 embedding 表。
// 校验失败属于配置错误，构造期即返回，不留到批次计算。
func NewFusion(info *core.DataInfo, cfg Config) (*Fusion, error) {
	if cfg.EmbedSize <= 0 {
		return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeInvalidConfig,
			fmt.Sprintf("embed_size must be positive, got %d", cfg.EmbedSize))
	}
	combiner := cfg.Combiner
	if combiner == "" {
		combiner = CombinerSqrtN
	}
	if !combiner.valid() {
		return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeInvalidConfig,
			fmt.Sprintf("unsupported multi_sparse_combiner: %q", combiner))
	}

	f := &Fusion{info: info, combiner: combiner}
	rng := rand.New(rand.NewSource(cfg.Seed))
	f.User = NewTable(info.NUsers+1, cfg.EmbedSize, rng)
	f.Item = NewTable(info.NItems+1, cfg.EmbedSize, rng)

	if info.HasSparse() {
		if info.SparseVocab <= 0 {
			return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeInvalidConfig,
				fmt.Sprintf("sparse_fields=%d but sparse_vocab=%d", info.SparseFields, info.SparseVocab))
		}
		f.groups = info.SparseFieldGroups()
		cols := 0
		for _, g := range f.groups {
			cols += len(g)
		}
		if cols != info.SparseFields {
			return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeSchemaMismatch,
				fmt.Sprintf("multi-sparse groups cover %d columns, schema has %d fields", cols, info.SparseFields))
		}
		f.Sparse = NewTable(info.SparseVocab, cfg.EmbedSize, rng)
	}
	if info.HasDense() {
		f.Dense = NewTable(info.DenseFields, cfg.EmbedSize, rng)
	}
	return f, nil
}

// EmbedSize 返回单个实体向量的维度。
func (f *Fusion) EmbedSize() int { return f.User.Dim }

// UserEmbed 返回用户向量，未知用户落到哨兵行。
func (f *Fusion) UserEmbed(user int) []float64 { return f.User.Lookup(user) }

// ItemEmbed 返回物品向量，未知物品（含序列 padding 哨兵）落到哨兵行。
func (f *Fusion) ItemEmbed(item int) []float64 { return f.Item.Lookup(item) }

// SparseEmbeds 把一行 sparse 字段索引融合为 len(groups)*EmbedSize 的拼接向量（flatten 模式）。
// 多值字段按 combiner 合并组内各列的 embedding。
func (f *Fusion) SparseEmbeds(indices []int) ([]float64, error) {
	if f.Sparse == nil {
		return nil, nil
	}
	if len(indices) != f.info.SparseFields {
		return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeSchemaMismatch,
			fmt.Sprintf("sparse row has %d fields, schema expects %d", len(indices), f.info.SparseFields))
	}
	dim := f.EmbedSize()
	out := make([]float64, 0, len(f.groups)*dim)
	for _, group := range f.groups {
		field := make([]float64, dim)
		for _, col := range group {
			emb := f.Sparse.Lookup(indices[col])
			for j := 0; j < dim; j++ {
				field[j] += emb[j]
			}
		}
		switch f.combiner {
		case CombinerMean:
			for j := range field {
				field[j] /= float64(len(group))
			}
		case CombinerSqrtN:
			norm := math.Sqrt(float64(len(group)))
			for j := range field {
				field[j] /= norm
			}
		}
		out = append(out, field...)
	}
	return out, nil
}

// DenseEmbeds 把一行 dense 取值融合为 DenseFields*EmbedSize 的拼接向量：
// 字段 embedding 逐元素乘以该字段取值（field-wise scaling, flatten 模式）。
func (f *Fusion) DenseEmbeds(values []float64) ([]float64, error) {
	if f.Dense == nil {
		return nil, nil
	}
	if len(values) != f.info.DenseFields {
		return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeSchemaMismatch,
			fmt.Sprintf("dense row has %d fields, schema expects %d", len(values), f.info.DenseFields))
	}
	dim := f.EmbedSize()
	out := make([]float64, 0, f.info.DenseFields*dim)
	for field, v := range values {
		emb := f.Dense.Lookup(field)
		for j := 0; j < dim; j++ {
			out = append(out, emb[j]*v)
		}
	}
	return out, nil
}

// Combined 拼接一个样本的全部融合特征：user + item + sparse + dense。
func (f *Fusion) Combined(user, item int, sparse []int, dense []float64) ([]float64, error) {
	dim := f.EmbedSize()
	out := make([]float64, 0, f.CombinedDim())
	out = append(out, f.User.Lookup(user)[:dim]...)
	out = append(out, f.Item.Lookup(item)[:dim]...)
	if f.Sparse != nil {
		se, err := f.SparseEmbeds(sparse)
		if err != nil {
			return nil, err
		}
		out = append(out, se...)
	}
	if f.Dense != nil {
		de, err := f.DenseEmbeds(dense)
		if err != nil {
			return nil, err
		}
		out = append(out, de...)
	}
	return out, nil
}

// CombinedDim 返回 Combined 输出的维度。
func (f *Fusion) CombinedDim() int {
	dim := 2 * f.EmbedSize()
	if f.Sparse != nil {
		dim += len(f.groups) * f.EmbedSize()
	}
	if f.Dense != nil {
		dim += f.info.DenseFields * f.EmbedSize()
	}
	return dim
}
