// Package eval 实现批量评估驱动：数据转换、批次打分与推荐列表计算。
package eval

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/seqrec/seqrec/core"
	"github.com/seqrec/seqrec/model"
	"github.com/seqrec/seqrec/nn"
	"github.com/seqrec/seqrec/pkg/logx"
)

// Config 控制批量计算行为。
type Config struct {
	Task model.Task

	// BatchSize 每批样本数，0 取默认 256。
	BatchSize int

	// Parallelism 并发批次数，0 取 GOMAXPROCS。
	// 批次间相互独立（模型前向是纯计算），可安全并行。
	Parallelism int

	// rating 任务的裁剪边界。
	LowerBound, UpperBound float64
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = 256
	}
	if c.Parallelism <= 0 {
		c.Parallelism = runtime.GOMAXPROCS(0)
	}
	if c.UpperBound == 0 && c.LowerBound == 0 {
		c.LowerBound, c.UpperBound = 1, 5
	}
	return c
}

// BuildTransformedData 把原始 (user, item, label, features) 记录映射为 inner id
// 数据集。未知实体落到哨兵 ID。negSample 为 true 时按 numNeg 做随机负采样。
func BuildTransformedData(
	info *core.DataInfo,
	users, items []int,
	labels []float64,
	sparse [][]int,
	dense [][]float64,
	negSample bool, numNeg int, seed int64,
) (*core.TransformedSet, error) {
	userIndices := make([]int, len(users))
	for i, u := range users {
		userIndices[i] = info.InnerUserID(u)
	}
	itemIndices := make([]int, len(items))
	for i, it := range items {
		itemIndices[i] = info.InnerItemID(it)
	}
	data, err := core.NewTransformedSet(userIndices, itemIndices, labels, sparse, dense)
	if err != nil {
		return nil, err
	}
	if negSample {
		data.BuildNegatives(info.NItems, numNeg, seed)
	}
	return data, nil
}

// ComputePreds 分批并行地计算逐样本预测与对应标签。
// rating 任务输出裁剪到 [lower, upper]；ranking 任务输出 sigmoid 概率。
// 结果按样本原始顺序排列。
func ComputePreds(ctx context.Context, ranker model.Ranker, data *core.TransformedSet, cfg Config) (preds, labels []float64, err error) {
	cfg = cfg.withDefaults()
	n := data.Len()
	preds = make([]float64, n)
	labels = make([]float64, n)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(cfg.Parallelism)
	for lo := 0; lo < n; lo += cfg.BatchSize {
		hi := lo + cfg.BatchSize
		if hi > n {
			hi = n
		}
		eg.Go(func() error {
			batch := data.Batch(lo, hi)
			scores, err := ranker.PredictBatch(egCtx, batch)
			if err != nil {
				return fmt.Errorf("predict batch [%d, %d): %w", lo, hi, err)
			}
			for i, s := range scores {
				switch cfg.Task {
				case model.TaskRating:
					preds[lo+i] = nn.Clip(s, cfg.LowerBound, cfg.UpperBound)
				default:
					preds[lo+i] = nn.Sigmoid(s)
				}
				labels[lo+i] = batch.Labels[i]
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}
	return preds, labels, nil
}

// ComputeProbs 是 ranking 任务下 ComputePreds 的别名：输出即概率。
func ComputeProbs(ctx context.Context, ranker model.Ranker, data *core.TransformedSet, cfg Config) ([]float64, []float64, error) {
	cfg.Task = model.TaskRanking
	return ComputePreds(ctx, ranker, data, cfg)
}

// Recommends 是批量推荐结果：每个可服务用户的推荐列表，与无推荐用户数。
type Recommends struct {
	ByUser map[int][]model.Scored

	// Served 是实际产出推荐的用户（保持输入顺序）。
	Served []int

	// NoRec 是没有推荐结果的用户数。
	NoRec int
}

// ComputeRecommends 逐用户计算 top-k 推荐。
// 无推荐的用户（未知用户、无邻居）跳过并限流告警，不中断整体评估。
func ComputeRecommends(ctx context.Context, rec model.Recommender, users []int, k int, filterConsumed bool, logger *zap.Logger) (*Recommends, error) {
	warn := logx.NewLimited(logger, 12)
	out := &Recommends{ByUser: make(map[int][]model.Scored, len(users))}
	for _, u := range users {
		reco, err := rec.RecommendUser(ctx, u, k, filterConsumed)
		if errors.Is(err, core.ErrNoRecommendation) {
			out.NoRec++
			warn.Warn("user has no recommendation", zap.Int("user", u))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("recommend user %d: %w", u, err)
		}
		out.ByUser[u] = reco
		out.Served = append(out.Served, u)
	}
	if out.NoRec > 0 && logger != nil {
		logger.Info("recommendation coverage",
			zap.Int("served", len(out.Served)), zap.Int("no_rec", out.NoRec))
	}
	return out, nil
}

// SortedUsers 返回 ByUser 的用户列表（升序），便于确定性遍历。
func (r *Recommends) SortedUsers() []int {
	users := make([]int, 0, len(r.ByUser))
	for u := range r.ByUser {
		users = append(users, u)
	}
	sort.Ints(users)
	return users
}
