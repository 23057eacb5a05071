package serve

import (
	"context"
	"errors"
	"sort"

	"github.com/seqrec/seqrec/core"
	"github.com/seqrec/seqrec/model"
	"github.com/seqrec/seqrec/pkg/utils"
	"github.com/seqrec/seqrec/store"
)

// CatalogCandidates 以全量物品为候选集（中小规模目录的精排前置）。
// 哨兵"unknown item"不进入候选。
type CatalogCandidates struct {
	NItems int
}

func (n *CatalogCandidates) Name() string { return "candidates.catalog" }
func (n *CatalogCandidates) Kind() Kind   { return KindCandidates }

func (n *CatalogCandidates) Process(
	_ context.Context,
	_ *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	out := make([]*core.Item, 0, n.NItems)
	for i := 0; i < n.NItems; i++ {
		it := core.NewItem(i)
		it.PutLabel("candidates_source", utils.Label{Value: "catalog", Source: "candidates"})
		out = append(out, it)
	}
	return out, nil
}

// StaticCandidates 使用给定候选列表（上游召回结果直灌）。
type StaticCandidates struct {
	Items []int
}

func (n *StaticCandidates) Name() string { return "candidates.static" }
func (n *StaticCandidates) Kind() Kind   { return KindCandidates }

func (n *StaticCandidates) Process(
	_ context.Context,
	_ *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	out := make([]*core.Item, 0, len(n.Items))
	for _, id := range n.Items {
		it := core.NewItem(id)
		it.PutLabel("candidates_source", utils.Label{Value: "static", Source: "candidates"})
		out = append(out, it)
	}
	return out, nil
}

// ConsumedFilter 剔除用户已消费的物品。
// 历史来自 History store；store 无该用户记录时不过滤。
type ConsumedFilter struct {
	History store.History
}

func (n *ConsumedFilter) Name() string { return "filter.consumed" }
func (n *ConsumedFilter) Kind() Kind   { return KindFilter }

func (n *ConsumedFilter) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if n.History == nil || rctx == nil || !rctx.FilterConsumed {
		return items, nil
	}
	consumed, err := n.History.GetConsumed(ctx, rctx.UserID)
	if errors.Is(err, core.ErrStoreNotFound) {
		return items, nil
	}
	if err != nil {
		return nil, err
	}
	set := make(map[int]struct{}, len(consumed))
	for _, it := range consumed {
		set[it] = struct{}{}
	}

	out := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		if _, skip := set[it.ID]; skip {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

// SIMRank 用 SIM 的 stage2 推理分数对候选排序。
// 排序按分数降序，同分按物品 ID 升序（与模型 RecommendUser 一致）。
type SIMRank struct {
	Model *model.SIM
}

func (n *SIMRank) Name() string { return "rank.sim" }
func (n *SIMRank) Kind() Kind   { return KindRank }

func (n *SIMRank) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if n.Model == nil || len(items) == 0 {
		return items, nil
	}

	users := make([]int, len(items))
	candidates := make([]int, len(items))
	for i, it := range items {
		users[i] = rctx.UserID
		candidates[i] = it.ID
	}
	batch := &core.Batch{Users: users, Items: candidates, Labels: make([]float64, len(items))}
	scores, err := n.Model.InferenceBatch(ctx, batch)
	if err != nil {
		return nil, err
	}
	for i, it := range items {
		it.Score = scores[i]
		it.PutLabel("rank_model", utils.Label{Value: n.Model.Name(), Source: "rank"})
	}

	sort.SliceStable(items, func(a, b int) bool {
		if items[a].Score != items[b].Score {
			return items[a].Score > items[b].Score
		}
		return items[a].ID < items[b].ID
	})
	return items, nil
}

// TopN 截断节点：保留前 N 个物品。N <= 0 时不截断。
type TopN struct {
	N int
}

func (n *TopN) Name() string { return "topn" }
func (n *TopN) Kind() Kind   { return KindTopN }

func (n *TopN) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if n.N <= 0 || len(items) <= n.N {
		return items, nil
	}
	return items[:n.N], nil
}
