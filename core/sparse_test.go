package core

import (
	"reflect"
	"testing"
)

func TestNewCSRMatrix(t *testing.T) {
	//      c0  c1  c2
	// r0    1   -   2
	// r1    -   3   -
	// r2    -   -   -
	m := NewCSRMatrix(3, 3,
		[]int{0, 1, 0},
		[]int{2, 1, 0},
		[]float64{2, 3, 1},
	)
	if m.NNZ() != 3 {
		t.Fatalf("nnz = %d, want 3", m.NNZ())
	}
	cols, vals := m.Row(0)
	if !reflect.DeepEqual(cols, []int{0, 2}) || !reflect.DeepEqual(vals, []float64{1, 2}) {
		t.Errorf("row 0 = (%v, %v), want column-ascending ([0 2], [1 2])", cols, vals)
	}
	if cols, _ := m.Row(2); len(cols) != 0 {
		t.Errorf("empty row 2 has entries: %v", cols)
	}
	if cols, _ := m.Row(-1); cols != nil {
		t.Error("out-of-range row should be nil")
	}
}

func TestNewCSRMatrixDuplicateKeepsLast(t *testing.T) {
	m := NewCSRMatrix(1, 2,
		[]int{0, 0},
		[]int{1, 1},
		[]float64{7, 9},
	)
	_, vals := m.Row(0)
	if !reflect.DeepEqual(vals, []float64{9}) {
		t.Errorf("duplicate cell = %v, want last value 9", vals)
	}
}

func TestNewCSRMatrixSkipsOutOfRange(t *testing.T) {
	m := NewCSRMatrix(2, 2,
		[]int{0, 5, 1},
		[]int{0, 0, 3},
		[]float64{1, 2, 3},
	)
	if m.NNZ() != 1 {
		t.Errorf("nnz = %d, want 1 (out-of-range triplets dropped)", m.NNZ())
	}
}

func TestNewCSRFromRowsPreservesOrder(t *testing.T) {
	// 行内顺序按分数降序给入，构造后必须原样保留
	m := NewCSRFromRows(2, 4,
		[][]int{{3, 0, 2}, nil},
		[][]float64{{0.9, 0.5, 0.1}, nil},
	)
	cols, vals := m.Row(0)
	if !reflect.DeepEqual(cols, []int{3, 0, 2}) {
		t.Errorf("row order changed: %v", cols)
	}
	if !reflect.DeepEqual(vals, []float64{0.9, 0.5, 0.1}) {
		t.Errorf("row data changed: %v", vals)
	}
	if cols, _ := m.Row(1); len(cols) != 0 {
		t.Errorf("nil row has entries: %v", cols)
	}
}

func TestCSRTranspose(t *testing.T) {
	m := NewCSRMatrix(2, 3,
		[]int{0, 0, 1},
		[]int{0, 2, 2},
		[]float64{1, 2, 3},
	)
	tr := m.Transpose()
	if tr.Rows != 3 || tr.Cols != 2 {
		t.Fatalf("transpose shape = %dx%d, want 3x2", tr.Rows, tr.Cols)
	}
	rows, vals := tr.Row(2)
	if !reflect.DeepEqual(rows, []int{0, 1}) || !reflect.DeepEqual(vals, []float64{2, 3}) {
		t.Errorf("transpose row 2 = (%v, %v), want ([0 1], [2 3])", rows, vals)
	}
	if rows, _ := tr.Row(1); len(rows) != 0 {
		t.Errorf("transpose row 1 should be empty, got %v", rows)
	}
}
