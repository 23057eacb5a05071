package model

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"go.uber.org/zap"

	"github.com/seqrec/seqrec/core"
	"github.com/seqrec/seqrec/feature"
	"github.com/seqrec/seqrec/nn"
	"github.com/seqrec/seqrec/pkg/logx"
	"github.com/seqrec/seqrec/seq"
)

// SIMConfig 是 SIM 模型的不可变配置快照，构造时校验一次。
type SIMConfig struct {
	Task     Task
	LossType string // ranking 任务：cross_entropy / focal

	EmbedSize   int
	HiddenUnits []int

	// Alpha/Beta 是两阶段分数的融合系数，均在 [0, 1]。
	// 训练目标 = Alpha*stage1 + Beta*stage2；推理只用 stage2。
	Alpha, Beta float64

	SearchTopK  int // GSU 从长序列中检索的位置数
	LongMaxLen  int
	ShortMaxLen int

	MultiSparseCombiner feature.Combiner
	UseBatchNorm        bool
	DropoutRate         float64

	// rating 任务的输出裁剪边界。
	LowerBound, UpperBound float64

	Seed int64
}

func (c SIMConfig) withDefaults() SIMConfig {
	if c.Task == "" {
		c.Task = TaskRanking
	}
	if c.LossType == "" {
		c.LossType = "cross_entropy"
	}
	if c.EmbedSize == 0 {
		c.EmbedSize = 16
	}
	if c.HiddenUnits == nil {
		c.HiddenUnits = []int{200, 80}
	}
	if c.SearchTopK == 0 {
		c.SearchTopK = 10
	}
	if c.LongMaxLen == 0 {
		c.LongMaxLen = 100
	}
	if c.ShortMaxLen == 0 {
		c.ShortMaxLen = 10
	}
	if c.MultiSparseCombiner == "" {
		c.MultiSparseCombiner = feature.CombinerSqrtN
	}
	if c.UpperBound == 0 && c.LowerBound == 0 {
		c.LowerBound, c.UpperBound = 1, 5
	}
	return c
}

func (c SIMConfig) validate() error {
	fail := func(format string, args ...any) error {
		return core.NewDomainError(core.ModuleModel, core.ErrorCodeInvalidConfig,
			fmt.Sprintf(format, args...))
	}
	if c.Alpha < 0 || c.Alpha > 1 {
		return fail("alpha must be in [0, 1], got %v", c.Alpha)
	}
	if c.Beta < 0 || c.Beta > 1 {
		return fail("beta must be in [0, 1], got %v", c.Beta)
	}
	if c.ShortMaxLen <= 0 {
		return fail("short_max_len must be positive, got %d", c.ShortMaxLen)
	}
	if c.SearchTopK <= 0 || c.SearchTopK > c.LongMaxLen {
		return fail("search_topk must satisfy 0 < topk <= long_max_len, got topk=%d long=%d",
			c.SearchTopK, c.LongMaxLen)
	}
	if c.EmbedSize <= 0 {
		return fail("embed_size must be positive, got %d", c.EmbedSize)
	}
	if c.DropoutRate < 0 || c.DropoutRate >= 1 {
		return fail("dropout_rate must be in [0, 1), got %v", c.DropoutRate)
	}
	if c.Task != TaskRanking && c.Task != TaskRating {
		return fail("unknown task %q", c.Task)
	}
	if c.Task == TaskRanking && c.LossType != "cross_entropy" && c.LossType != "focal" {
		return fail("unsupported loss_type %q for ranking task", c.LossType)
	}
	return nil
}

// SIM 是 Search-based Interest Model：面向超长用户行为序列的两阶段排序模型。
//
// 阶段一（粗排，训练辅助信号）：候选 embedding 拼接全长序列的 masked sum-pool，
// 过一个前馈网络得到 stage1 分数；其作用是预训练 GSU 依赖的相关性函数。
//
// 阶段二（精排，推理唯一输出）：
//   - GSU 以候选对长序列逐位置点积打分，精确选出 top-k 位置
//   - ESU 对检索出的 k 个位置做 masked attention 池化 → 长兴趣向量
//   - DIN 对短窗口做同一 attention → 短兴趣向量
//   - 两个兴趣向量与其余融合特征拼接过第二个前馈网络 → stage2 分数
//
// 训练目标 = alpha*stage1 + beta*stage2；serving 只用 stage2。
type SIM struct {
	cfg  SIMConfig
	info *core.DataInfo

	cache  *seq.Cache
	fusion *feature.Fusion

	firstStage  *nn.FeedForward
	secondStage *nn.FeedForward

	warn *logx.Limited
}

// SIMOption 配置 SIM 的外部协作者。
type SIMOption func(*SIM)

// WithLogger 注入日志器；未注入时静默。
func WithLogger(logger *zap.Logger) SIMOption {
	return func(m *SIM) {
		m.warn = logx.NewLimited(logger, 12)
	}
}

// NewSIM 构建模型：校验配置、构建双序列缓存与融合层、初始化两个前馈网络。
// 序列缓存从 info.UserConsumed 一次性构建，之后只读。
func NewSIM(info *core.DataInfo, cfg SIMConfig, opts ...SIMOption) (*SIM, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cache, err := seq.Build(info.NUsers, info.UserConsumed, info.NItems, cfg.LongMaxLen, cfg.ShortMaxLen)
	if err != nil {
		return nil, err
	}
	fusion, err := feature.NewFusion(info, feature.Config{
		EmbedSize: cfg.EmbedSize,
		Combiner:  cfg.MultiSparseCombiner,
		Seed:      cfg.Seed,
	})
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	m := &SIM{
		cfg:    cfg,
		info:   info,
		cache:  cache,
		fusion: fusion,
		firstStage: nn.NewFeedForward(
			2*cfg.EmbedSize, cfg.HiddenUnits, cfg.UseBatchNorm, cfg.DropoutRate, rng),
		secondStage: nn.NewFeedForward(
			2*cfg.EmbedSize+fusion.CombinedDim(), cfg.HiddenUnits, cfg.UseBatchNorm, cfg.DropoutRate, rng),
		warn: logx.NewLimited(nil, 0),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *SIM) Name() string { return "sim" }

// Config 返回配置快照。
func (m *SIM) Config() SIMConfig { return m.cfg }

// PredictBatch 返回融合训练分数 alpha*stage1 + beta*stage2。
// 批次内样本相互独立，分数不做任务变换。
func (m *SIM) PredictBatch(ctx context.Context, batch *core.Batch) ([]float64, error) {
	return m.forwardBatch(ctx, batch, false)
}

// InferenceBatch 返回 stage2 分数（serving 用）。
func (m *SIM) InferenceBatch(ctx context.Context, batch *core.Batch) ([]float64, error) {
	return m.forwardBatch(ctx, batch, true)
}

func (m *SIM) forwardBatch(ctx context.Context, batch *core.Batch, inferenceOnly bool) ([]float64, error) {
	if err := m.checkBatchSchema(batch); err != nil {
		return nil, err
	}
	out := make([]float64, batch.Len())
	for k := 0; k < batch.Len(); k++ {
		if k%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		var sparse []int
		var dense []float64
		if batch.Sparse != nil {
			sparse = batch.Sparse[k]
		}
		if batch.Dense != nil {
			dense = batch.Dense[k]
		}
		fused, stage2, err := m.scoreExample(batch.Users[k], batch.Items[k], sparse, dense, batch.Training)
		if err != nil {
			return nil, err
		}
		if inferenceOnly {
			out[k] = stage2
		} else {
			out[k] = fused
		}
	}
	return out, nil
}

// checkBatchSchema 在批次首部做一次 schema 一致性检查：
// 训练元数据声明的特征列缺失即为致命错误。
func (m *SIM) checkBatchSchema(batch *core.Batch) error {
	if m.info.HasSparse() && batch.Sparse == nil {
		return core.NewDomainError(core.ModuleModel, core.ErrorCodeSchemaMismatch,
			"batch has no sparse columns but training schema declares them")
	}
	if m.info.HasDense() && batch.Dense == nil {
		return core.NewDomainError(core.ModuleModel, core.ErrorCodeSchemaMismatch,
			"batch has no dense columns but training schema declares them")
	}
	return nil
}

func (m *SIM) scoreExample(user, item int, sparse []int, dense []float64, training bool) (fused, stage2 float64, err error) {
	target := m.fusion.ItemEmbed(item)

	longSeq, longLen := m.cache.Long(user)
	longEmbeds := m.fusion.Item.LookupSeq(longSeq)
	longMask := seq.Mask(m.cfg.LongMaxLen, longLen)

	stage1 := m.firstStageScore(target, longEmbeds, longMask, training)

	topEmbeds, topMask := m.gsu(target, longEmbeds, longMask)
	longInterest := nn.Attention(target, topEmbeds, topMask)

	shortSeq, shortLen := m.cache.Short(user)
	shortEmbeds := m.fusion.Item.LookupSeq(shortSeq)
	shortMask := seq.Mask(m.cfg.ShortMaxLen, shortLen)
	shortInterest := nn.Attention(target, shortEmbeds, shortMask)

	other, err := m.fusion.Combined(user, item, sparse, dense)
	if err != nil {
		return 0, 0, err
	}

	input := make([]float64, 0, len(longInterest)+len(shortInterest)+len(other))
	input = append(input, longInterest...)
	input = append(input, shortInterest...)
	input = append(input, other...)
	stage2 = m.secondStage.Forward(input, training)

	return m.cfg.Alpha*stage1 + m.cfg.Beta*stage2, stage2, nil
}

// firstStageScore 把全长序列的 padding 位置清零后 sum-pool，
// 与候选向量拼接过第一个前馈网络。
func (m *SIM) firstStageScore(target []float64, seqEmbeds [][]float64, mask []bool, training bool) float64 {
	dim := m.cfg.EmbedSize
	pooled := make([]float64, dim)
	for i, emb := range seqEmbeds {
		if !mask[i] {
			continue
		}
		for j := 0; j < dim; j++ {
			pooled[j] += emb[j]
		}
	}
	input := make([]float64, 0, 2*dim)
	input = append(input, target...)
	input = append(input, pooled...)
	return m.firstStage.Forward(input, training)
}

// gsu 是 General Search Unit：候选对长序列逐位置点积打分，
// 掩码位置压到大负哨兵，精确选出 top-k 位置后同时 gather 位置 embedding
// 与原掩码。真实长度 < k 时，被选中的 padding 位置在 gather 出的掩码里
// 仍然为 false，由下游 attention 负责屏蔽。
//
// 确定性：同分位置按原始下标升序胜出，保证结果可复现。
func (m *SIM) gsu(target []float64, seqEmbeds [][]float64, mask []bool) ([][]float64, []bool) {
	k := m.cfg.SearchTopK
	indices := topKIndices(gsuScores(target, seqEmbeds, mask), k)

	topEmbeds := make([][]float64, k)
	topMask := make([]bool, k)
	for i, idx := range indices {
		topEmbeds[i] = seqEmbeds[idx]
		topMask[i] = mask[idx]
	}
	return topEmbeds, topMask
}

func gsuScores(target []float64, seqEmbeds [][]float64, mask []bool) []float64 {
	scores := make([]float64, len(seqEmbeds))
	for i, emb := range seqEmbeds {
		if mask[i] {
			scores[i] = nn.Dot(target, emb)
		} else {
			scores[i] = -1e9
		}
	}
	return scores
}

// topKIndices 精确选出 k 个最高分位置的下标，同分按下标升序优先。
func topKIndices(scores []float64, k int) []int {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		if scores[order[a]] != scores[order[b]] {
			return scores[order[a]] > scores[order[b]]
		}
		return order[a] < order[b]
	})
	if k > len(order) {
		k = len(order)
	}
	return order[:k]
}

// RecommendUser 用 stage2 分数对全量物品打分并返回 top-k。
// 分数降序排列，同分按物品 ID 升序；filterConsumed 为 true 时剔除已消费物品。
// 未知用户（inner id 落在哨兵）无 fallback，返回 core.ErrNoRecommendation。
func (m *SIM) RecommendUser(ctx context.Context, user, k int, filterConsumed bool) ([]Scored, error) {
	if user < 0 || user >= m.info.NUsers {
		m.warn.Warn("recommend for unknown user", zap.Int("user", user))
		return nil, core.ErrNoRecommendation
	}
	if k <= 0 {
		return nil, nil
	}

	consumed := make(map[int]struct{})
	if filterConsumed {
		for _, it := range m.info.Consumed(user) {
			consumed[it] = struct{}{}
		}
	}

	scored := make([]Scored, 0, m.info.NItems)
	for item := 0; item < m.info.NItems; item++ { // 哨兵物品 NItems 不参与推荐
		if item%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if _, skip := consumed[item]; skip {
			continue
		}
		_, s2, err := m.scoreExample(user, item, m.defaultSparseRow(), m.defaultDenseRow(), false)
		if err != nil {
			return nil, err
		}
		scored = append(scored, Scored{Item: item, Score: s2})
	}
	if len(scored) == 0 {
		return nil, core.ErrNoRecommendation
	}

	sort.SliceStable(scored, func(a, b int) bool {
		if scored[a].Score != scored[b].Score {
			return scored[a].Score > scored[b].Score
		}
		return scored[a].Item < scored[b].Item
	})
	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

// defaultSparseRow 在 serving 无特征数据时提供全 0 索引行（落到表首行）。
func (m *SIM) defaultSparseRow() []int {
	if !m.info.HasSparse() {
		return nil
	}
	return make([]int, m.info.SparseFields)
}

func (m *SIM) defaultDenseRow() []float64 {
	if !m.info.HasDense() {
		return nil
	}
	return make([]float64, m.info.DenseFields)
}

var (
	_ Ranker      = (*SIM)(nil)
	_ Recommender = (*SIM)(nil)
)
