// Package seqrec 是一个推荐算法库（Sequence Recommender Kit）。
//
// 设计要点：
// - 算法为核心：SIM（两阶段长序列兴趣模型，GSU 检索 + ESU 精排）与 UserCF 基线
// - 数据管道：原始 (user, item, label, feature) 记录 → TransformedSet → 模型张量
// - 前向计算：只定义 forward 与数据整形契约，训练优化器在库外
// - Serving：Node 链（Candidates → Filter → Rank → TopN）可配置化组装
package seqrec

import (
	"github.com/seqrec/seqrec/model"
	"github.com/seqrec/seqrec/serve"
)

// 轻量 facade：便于用户直接 import "seqrec" 使用核心抽象。
type Ranker = model.Ranker
type Recommender = model.Recommender
type Pipeline = serve.Pipeline
type Node = serve.Node

const (
	KindCandidates = serve.KindCandidates
	KindFilter     = serve.KindFilter
	KindRank       = serve.KindRank
	KindTopN       = serve.KindTopN
)
