// Package model 实现推荐算法：SIM（两阶段长序列兴趣模型）与 UserCF 基线。
// 模型只定义前向计算与数据整形契约；参数更新属于外部训练流程。
package model

import (
	"context"

	"github.com/seqrec/seqrec/core"
)

// Task 是模型任务类型。
type Task string

const (
	// TaskRanking 二分类排序任务，输出经 sigmoid 转为概率。
	TaskRanking Task = "ranking"
	// TaskRating 评分回归任务，输出裁剪到 [lower, upper]。
	TaskRating Task = "rating"
)

// Ranker 是排序模型的最小抽象：输入一个批次，输出逐样本分数。
// 前向计算不含任务相关的输出变换（sigmoid / clip 在 eval 层做）。
//
// 并发约定：PredictBatch 是纯计算（参数固定时无副作用），
// 可以被多个 goroutine 并发调用，但必须观察到一致的参数快照。
type Ranker interface {
	Name() string
	PredictBatch(ctx context.Context, batch *core.Batch) ([]float64, error)
}

// Scored 是一条推荐结果：物品与分数。
type Scored struct {
	Item  int
	Score float64
}

// Recommender 为单个用户产出 top-k 推荐列表。
// 列表按分数降序排列，同分按物品 ID 升序；长度 ≤ k。
// 未知用户且无 fallback 时返回 core.ErrNoRecommendation。
type Recommender interface {
	RecommendUser(ctx context.Context, user, k int, filterConsumed bool) ([]Scored, error)
}
