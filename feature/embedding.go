// Package feature 实现特征融合层：user/item/sparse/dense 的 embedding 查表与拼接，
// 以及从在线特征存储（Feast）取数的适配。
package feature

import (
	"math"
	"math/rand"
)

// Table 是一张 embedding 表：实体 ID → 定长向量。
// 表由 Fusion 层独占持有，训练期的更新视为外部不透明操作；
// 前向计算要求观察到一致的快照。
type Table struct {
	Rows, Dim int
	W         [][]float64
}

// NewTable 创建并以 Glorot uniform 初始化一张表。
func NewTable(rows, dim int, rng *rand.Rand) *Table {
	t := &Table{Rows: rows, Dim: dim, W: make([][]float64, rows)}
	limit := math.Sqrt(6.0 / float64(rows+dim))
	for i := 0; i < rows; i++ {
		row := make([]float64, dim)
		for j := 0; j < dim; j++ {
			row[j] = (rng.Float64()*2 - 1) * limit
		}
		t.W[i] = row
	}
	return t
}

// Lookup 返回 id 对应的向量；越界 id 落到最后一行（哨兵行）。
// 返回值共享底层存储，调用方不得修改。
func (t *Table) Lookup(id int) []float64 {
	if id < 0 || id >= t.Rows {
		id = t.Rows - 1
	}
	return t.W[id]
}

// LookupSeq 批量查表，用于序列位置 embedding。
func (t *Table) LookupSeq(ids []int) [][]float64 {
	out := make([][]float64, len(ids))
	for i, id := range ids {
		out[i] = t.Lookup(id)
	}
	return out
}
