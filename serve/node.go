// Package serve 把模型组装成可配置的推荐链路：
// Candidates → Filter → Rank → TopN 的 Node 链，支持 YAML 配置驱动。
package serve

import (
	"context"

	"github.com/seqrec/seqrec/core"
)

// Kind 标记 Node 类型，方便观测与编排（例如按阶段打点）。
type Kind string

const (
	KindCandidates Kind = "candidates" // 候选生成
	KindFilter     Kind = "filter"     // 剔除不符合约束的候选
	KindRank       Kind = "rank"       // 对候选打分并排序
	KindTopN       Kind = "topn"       // 截断最终结果
)

// Node 是链路的最小可扩展单元，统一采用"输入 items → 输出 items"的形态。
type Node interface {
	Name() string
	Kind() Kind

	Process(
		ctx context.Context,
		rctx *core.RecommendContext,
		items []*core.Item,
	) ([]*core.Item, error)
}
