package core

// DataInfo 汇总一次训练运行的全局数据信息：实体规模、ID 映射、消费历史与特征 schema。
// 模型构造时传入，训练与 serving 期间只读。
//
// ID 约定：
//   - inner user id ∈ [0, NUsers]，其中 NUsers 保留给 "unknown user"
//   - inner item id ∈ [0, NItems]，其中 NItems 保留给 "unknown item"（同时作为序列 padding 哨兵）
type DataInfo struct {
	NUsers int
	NItems int

	// UserConsumed 按 inner user id 索引，物品按消费时间先后（旧 → 新）排列。
	UserConsumed [][]int

	// User2ID / Item2ID 是原始 ID → inner ID 的映射，缺失时落到哨兵 ID。
	User2ID map[int]int
	Item2ID map[int]int

	// GlobalMean 是训练集 label 均值，rating 任务下作为默认预测值。
	GlobalMean float64

	// Sparse 特征 schema。SparseFields == 0 表示无 sparse 特征。
	// 所有 sparse 字段共享一张大小为 SparseVocab 的 embedding 表，
	// 各字段的取值在表中占据互不重叠的 index 区间。
	SparseFields int
	SparseVocab  int

	// MultiSparseGroups 把多值 sparse 字段展开后的列分组：
	// 每个分组内的列属于同一个逻辑字段，由 combiner 合并为一个向量。
	// 为 nil 时每列即一个逻辑字段。
	MultiSparseGroups [][]int

	// DenseFields 是稠密数值字段数。0 表示无 dense 特征。
	DenseFields int
}

// InnerUserID 把原始 user id 映射为 inner id，未知用户返回哨兵 NUsers。
func (d *DataInfo) InnerUserID(raw int) int {
	if id, ok := d.User2ID[raw]; ok {
		return id
	}
	return d.NUsers
}

// InnerItemID 把原始 item id 映射为 inner id，未知物品返回哨兵 NItems。
func (d *DataInfo) InnerItemID(raw int) int {
	if id, ok := d.Item2ID[raw]; ok {
		return id
	}
	return d.NItems
}

// HasSparse 报告数据是否带 sparse 特征。
func (d *DataInfo) HasSparse() bool { return d.SparseFields > 0 }

// HasDense 报告数据是否带 dense 特征。
func (d *DataInfo) HasDense() bool { return d.DenseFields > 0 }

// SparseFieldGroups 返回逻辑字段分组；未配置多值字段时退化为每列一组。
func (d *DataInfo) SparseFieldGroups() [][]int {
	if d.MultiSparseGroups != nil {
		return d.MultiSparseGroups
	}
	groups := make([][]int, d.SparseFields)
	for i := 0; i < d.SparseFields; i++ {
		groups[i] = []int{i}
	}
	return groups
}

// Consumed 返回用户的消费历史；未知用户（含哨兵）返回 nil。
func (d *DataInfo) Consumed(user int) []int {
	if user < 0 || user >= len(d.UserConsumed) {
		return nil
	}
	return d.UserConsumed[user]
}
