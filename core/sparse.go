package core

import "sort"

// CSRMatrix 是 Compressed Sparse Row 格式的稀疏矩阵。
// 用于承载 user×item 交互矩阵与 UserCF 的相似度矩阵。
//
// 不变量：每行的 Indices 按列号升序排列（构造后即保证）。
type CSRMatrix struct {
	Rows, Cols int
	Indptr     []int // 长度 Rows+1，行 i 的数据区间为 [Indptr[i], Indptr[i+1])
	Indices    []int
	Data       []float64
}

// NewCSRMatrix 从三元组 (rowIdx[k], colIdx[k], data[k]) 构建 CSR 矩阵。
// 同一 (row, col) 出现多次时保留最后一次的值。
func NewCSRMatrix(rows, cols int, rowIdx, colIdx []int, data []float64) *CSRMatrix {
	type cell struct {
		col int
		val float64
	}
	byRow := make([]map[int]float64, rows)
	for k := range rowIdx {
		r := rowIdx[k]
		if r < 0 || r >= rows || colIdx[k] < 0 || colIdx[k] >= cols {
			continue
		}
		if byRow[r] == nil {
			byRow[r] = make(map[int]float64)
		}
		byRow[r][colIdx[k]] = data[k]
	}

	m := &CSRMatrix{Rows: rows, Cols: cols, Indptr: make([]int, rows+1)}
	for r := 0; r < rows; r++ {
		cells := make([]cell, 0, len(byRow[r]))
		for c, v := range byRow[r] {
			cells = append(cells, cell{col: c, val: v})
		}
		sort.Slice(cells, func(i, j int) bool { return cells[i].col < cells[j].col })
		for _, c := range cells {
			m.Indices = append(m.Indices, c.col)
			m.Data = append(m.Data, c.val)
		}
		m.Indptr[r+1] = len(m.Indices)
	}
	return m
}

// NewCSRFromRows 按给定的行内顺序拼装 CSR 矩阵，不重排行内元素。
// 用于相似度矩阵这类需要"行内按分数降序"不变量的场景。
func NewCSRFromRows(rows, cols int, rowIndices [][]int, rowData [][]float64) *CSRMatrix {
	m := &CSRMatrix{Rows: rows, Cols: cols, Indptr: make([]int, rows+1)}
	for r := 0; r < rows; r++ {
		if r < len(rowIndices) {
			m.Indices = append(m.Indices, rowIndices[r]...)
			m.Data = append(m.Data, rowData[r]...)
		}
		m.Indptr[r+1] = len(m.Indices)
	}
	return m
}

// Row 返回第 i 行的列号与取值切片（共享底层存储，调用方不可修改）。
func (m *CSRMatrix) Row(i int) (indices []int, data []float64) {
	if i < 0 || i >= m.Rows {
		return nil, nil
	}
	lo, hi := m.Indptr[i], m.Indptr[i+1]
	return m.Indices[lo:hi], m.Data[lo:hi]
}

// NNZ 返回非零元素数量。
func (m *CSRMatrix) NNZ() int { return len(m.Data) }

// Transpose 返回转置矩阵（同样是行内列号升序的 CSR）。
func (m *CSRMatrix) Transpose() *CSRMatrix {
	t := &CSRMatrix{
		Rows:    m.Cols,
		Cols:    m.Rows,
		Indptr:  make([]int, m.Cols+1),
		Indices: make([]int, len(m.Indices)),
		Data:    make([]float64, len(m.Data)),
	}
	// 两趟计数法：先统计每列非零数，再散列填充
	counts := make([]int, m.Cols)
	for _, c := range m.Indices {
		counts[c]++
	}
	for c := 0; c < m.Cols; c++ {
		t.Indptr[c+1] = t.Indptr[c] + counts[c]
	}
	next := make([]int, m.Cols)
	copy(next, t.Indptr[:m.Cols])
	for r := 0; r < m.Rows; r++ {
		for k := m.Indptr[r]; k < m.Indptr[r+1]; k++ {
			c := m.Indices[k]
			pos := next[c]
			t.Indices[pos] = r
			t.Data[pos] = m.Data[k]
			next[c]++
		}
	}
	return t
}
