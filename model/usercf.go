package model

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/seqrec/seqrec/core"
	"github.com/seqrec/seqrec/nn"
	"github.com/seqrec/seqrec/pkg/logx"
)

// UserCFConfig 是 UserCF 基线模型的配置。
type UserCFConfig struct {
	Task Task

	// SimType 相似度度量：cosine / pearson / jaccard。
	SimType string

	// K 预测与推荐时使用的相似邻居数。
	K int

	// MinCommon 两个用户至少需要的共同交互物品数，低于阈值不计相似度。
	MinCommon int

	// NumWorkers 相似度矩阵构建的并发度，0 表示 GOMAXPROCS。
	NumWorkers int

	// rating 任务的输出裁剪边界。
	LowerBound, UpperBound float64
}

// UserCF 是基于用户的协同过滤基线（User-based Collaborative Filtering）。
//
// 相似度矩阵用 CSR 存储，行内按相似度降序排列——预测与推荐只需顺序扫描
// 行首的若干邻居。矩阵在 Fit 中一次构建，之后只读，可被并发查询。
type UserCF struct {
	cfg  UserCFConfig
	info *core.DataInfo

	defaultPrediction float64

	userInteraction *core.CSRMatrix // user 行 × item 列
	itemInteraction *core.CSRMatrix // item 行 × user 列
	simMatrix       *core.CSRMatrix // 行内按相似度降序

	warn *logx.Limited
}

// NewUserCF 校验配置并创建模型；需调用 Fit 构建相似度矩阵后才可预测。
func NewUserCF(info *core.DataInfo, cfg UserCFConfig, logger *zap.Logger) (*UserCF, error) {
	if cfg.Task == "" {
		cfg.Task = TaskRanking
	}
	if cfg.SimType == "" {
		cfg.SimType = "cosine"
	}
	switch cfg.SimType {
	case "cosine", "pearson", "jaccard":
	default:
		return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeInvalidConfig,
			fmt.Sprintf("sim_type must be one of (cosine, pearson, jaccard), got %q", cfg.SimType))
	}
	if cfg.K <= 0 {
		cfg.K = 20
	}
	if cfg.MinCommon <= 0 {
		cfg.MinCommon = 1
	}
	if cfg.UpperBound == 0 && cfg.LowerBound == 0 {
		cfg.LowerBound, cfg.UpperBound = 1, 5
	}

	m := &UserCF{
		cfg:  cfg,
		info: info,
		warn: logx.NewLimited(logger, 12),
	}
	if cfg.Task == TaskRating {
		m.defaultPrediction = info.GlobalMean
	}
	return m, nil
}

func (m *UserCF) Name() string { return "user_cf" }

// Fit 从训练数据构建交互矩阵与相似度矩阵。
// 相似度按用户分块并发计算（errgroup），各块只写自己的行，无共享可变状态。
func (m *UserCF) Fit(ctx context.Context, data *core.TransformedSet) error {
	nUsers, nItems := m.info.NUsers, m.info.NItems
	m.userInteraction = data.Interaction(nUsers, nItems)
	m.itemInteraction = m.userInteraction.Transpose()

	rowIndices := make([][]int, nUsers)
	rowData := make([][]float64, nUsers)

	workers := m.cfg.NumWorkers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	for u := 0; u < nUsers; u++ {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			indices, sims := m.similarityRow(u)
			rowIndices[u], rowData[u] = indices, sims
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	m.simMatrix = core.NewCSRFromRows(nUsers, nUsers, rowIndices, rowData)
	return nil
}

// similarityRow 计算用户 u 对其他所有用户的相似度，返回按相似度降序、
// 同分按用户 ID 升序排列的 (邻居, 相似度) 行；只保留正相似度。
func (m *UserCF) similarityRow(u int) ([]int, []float64) {
	uItems, uVals := m.userInteraction.Row(u)
	if len(uItems) == 0 {
		return nil, nil
	}
	uMap := make(map[int]float64, len(uItems))
	for i, it := range uItems {
		uMap[it] = uVals[i]
	}

	type neighbor struct {
		user int
		sim  float64
	}
	var neighbors []neighbor
	for v := 0; v < m.userInteraction.Rows; v++ {
		if v == u {
			continue
		}
		vItems, vVals := m.userInteraction.Row(v)
		var a, b []float64
		for i, it := range vItems {
			if av, ok := uMap[it]; ok {
				a = append(a, av)
				b = append(b, vVals[i])
			}
		}
		if len(a) < m.cfg.MinCommon {
			continue
		}

		var sim float64
		switch m.cfg.SimType {
		case "pearson":
			sim = pearsonSim(a, b)
		case "jaccard":
			sim = jaccardSim(len(a), len(uItems), len(vItems))
		default:
			sim = cosineSim(a, b, norm(uVals), norm(vVals))
		}
		if sim > 0 {
			neighbors = append(neighbors, neighbor{user: v, sim: sim})
		}
	}

	sort.SliceStable(neighbors, func(a, b int) bool {
		if neighbors[a].sim != neighbors[b].sim {
			return neighbors[a].sim > neighbors[b].sim
		}
		return neighbors[a].user < neighbors[b].user
	})
	indices := make([]int, len(neighbors))
	sims := make([]float64, len(neighbors))
	for i, nb := range neighbors {
		indices[i] = nb.user
		sims[i] = nb.sim
	}
	return indices, sims
}

// PredictBatch 对每个 (user, item) 样本用 K 个评分过该物品的最相似邻居加权预测。
// 无共同邻居时输出默认预测并记一条限流告警。
func (m *UserCF) PredictBatch(ctx context.Context, batch *core.Batch) ([]float64, error) {
	if m.simMatrix == nil {
		return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeInvalidConfig,
			"user_cf: Fit must be called before PredictBatch")
	}
	out := make([]float64, batch.Len())
	for k := 0; k < batch.Len(); k++ {
		if k%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		out[k] = m.predictOne(batch.Users[k], batch.Items[k])
	}
	return out, nil
}

func (m *UserCF) predictOne(user, item int) float64 {
	if user < 0 || user >= m.info.NUsers || item < 0 || item >= m.info.NItems {
		return m.defaultPrediction
	}

	raters, ratings := m.itemInteraction.Row(item)
	raterLabel := make(map[int]float64, len(raters))
	for i, r := range raters {
		raterLabel[r] = ratings[i]
	}

	// sim 行已按相似度降序，顺序扫描取前 K 个评分过该物品的邻居
	nbUsers, nbSims := m.simMatrix.Row(user)
	var sims, labels []float64
	for i, v := range nbUsers {
		if len(sims) >= m.cfg.K {
			break
		}
		if lb, ok := raterLabel[v]; ok && nbSims[i] > 0 {
			sims = append(sims, nbSims[i])
			labels = append(labels, lb)
		}
	}
	if len(sims) == 0 {
		m.warn.Warn("no common interaction or similar neighbor, default prediction",
			zap.Int("user", user), zap.Int("item", item))
		return m.defaultPrediction
	}

	if m.cfg.Task == TaskRating {
		var wsum, ssum float64
		for i := range sims {
			wsum += sims[i] * labels[i]
			ssum += sims[i]
		}
		return nn.Clip(wsum/ssum, m.cfg.LowerBound, m.cfg.UpperBound)
	}
	var s float64
	for _, v := range sims {
		s += v
	}
	return s / float64(len(sims))
}

// RecommendUser 聚合 K 个最相似邻居的消费物品（相似度加权平均），
// 剔除已消费物品后返回 top-k。无邻居时返回 core.ErrNoRecommendation。
func (m *UserCF) RecommendUser(ctx context.Context, user, k int, filterConsumed bool) ([]Scored, error) {
	if m.simMatrix == nil {
		return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeInvalidConfig,
			"user_cf: Fit must be called before RecommendUser")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if user < 0 || user >= m.info.NUsers {
		m.warn.Warn("recommend for unknown user", zap.Int("user", user))
		return nil, core.ErrNoRecommendation
	}

	nbUsers, nbSims := m.simMatrix.Row(user)
	if len(nbUsers) == 0 {
		m.warn.Warn("no similar neighbor for user", zap.Int("user", user))
		return nil, core.ErrNoRecommendation
	}
	if len(nbUsers) > m.cfg.K {
		nbUsers, nbSims = nbUsers[:m.cfg.K], nbSims[:m.cfg.K]
	}

	consumed := make(map[int]struct{})
	if filterConsumed {
		uItems, _ := m.userInteraction.Row(user)
		for _, it := range uItems {
			consumed[it] = struct{}{}
		}
	}

	type agg struct{ weighted, simSum float64 }
	result := make(map[int]*agg)
	for i, v := range nbUsers {
		vItems, vVals := m.userInteraction.Row(v)
		for j, it := range vItems {
			if _, skip := consumed[it]; skip {
				continue
			}
			a, ok := result[it]
			if !ok {
				a = &agg{}
				result[it] = a
			}
			a.weighted += nbSims[i] * vVals[j]
			a.simSum += nbSims[i]
		}
	}
	if len(result) == 0 {
		return nil, core.ErrNoRecommendation
	}

	scored := make([]Scored, 0, len(result))
	for it, a := range result {
		scored = append(scored, Scored{Item: it, Score: a.weighted / a.simSum})
	}
	sort.SliceStable(scored, func(a, b int) bool {
		if scored[a].Score != scored[b].Score {
			return scored[a].Score > scored[b].Score
		}
		return scored[a].Item < scored[b].Item
	})
	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

func cosineSim(a, b []float64, normA, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 0
	}
	return nn.Dot(a, b) / (normA * normB)
}

func pearsonSim(a, b []float64) float64 {
	n := float64(len(a))
	if n < 2 {
		return 0
	}
	var meanA, meanB float64
	for i := range a {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= n
	meanB /= n
	var cov, varA, varB float64
	for i := range a {
		da, db := a[i]-meanA, b[i]-meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0
	}
	return cov / math.Sqrt(varA*varB)
}

func jaccardSim(common, sizeA, sizeB int) float64 {
	union := sizeA + sizeB - common
	if union == 0 {
		return 0
	}
	return float64(common) / float64(union)
}

func norm(v []float64) float64 {
	return math.Sqrt(nn.Dot(v, v))
}

var (
	_ Ranker      = (*UserCF)(nil)
	_ Recommender = (*UserCF)(nil)
)
