package core

import "github.com/seqrec/seqrec/pkg/utils"

// Item 是 serving 链路中的统一承载结构：候选物品、分数、标签。
// Labels 用于解释与策略驱动；Score 用于排序决策。
type Item struct {
	ID     int // inner item id
	Score  float64
	Labels map[string]utils.Label
}

func NewItem(id int) *Item {
	return &Item{
		ID:     id,
		Labels: make(map[string]utils.Label),
	}
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

// RecommendContext 承载一次推荐请求的用户与场景信息，贯穿整个 Node 链透传。
type RecommendContext struct {
	// UserID 是 inner user id；未知用户应先经 DataInfo.InnerUserID 映射为哨兵。
	UserID int

	// N 是期望返回的推荐条数。
	N int

	// FilterConsumed 控制是否从结果中剔除用户已消费的物品。
	FilterConsumed bool

	// Params 请求级上下文参数（设备、场景、实时特征等），CEL 过滤表达式可见。
	Params map[string]any
}
