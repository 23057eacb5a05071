// Package logx 提供库内统一的日志工具。
//
// 模型计算中会出现大量同类告警（例如 UserCF 找不到相似邻居时的默认预测），
// 逐条打印会淹没日志。Limited 对这类告警做次数限流：前 Max 条正常输出，
// 之后静默计数，计数值可随时读取用于汇总上报。
package logx

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// Limited 是按次数限流的告警 logger，并发安全。
type Limited struct {
	logger *zap.Logger
	max    uint64
	count  atomic.Uint64
}

// NewLimited 创建限流 logger。logger 为 nil 时使用 zap.NewNop()；
// max <= 0 表示全部抑制（只计数）。
func NewLimited(logger *zap.Logger, max int) *Limited {
	if logger == nil {
		logger = zap.NewNop()
	}
	if max < 0 {
		max = 0
	}
	return &Limited{logger: logger, max: uint64(max)}
}

// Warn 输出一条告警；超过限额后只累加计数。
// 恰好达到限额的那一条会附带抑制提示。
func (l *Limited) Warn(msg string, fields ...zap.Field) {
	n := l.count.Add(1)
	switch {
	case n < l.max:
		l.logger.Warn(msg, fields...)
	case n == l.max:
		fields = append(fields, zap.Uint64("suppress_after", l.max))
		l.logger.Warn(msg+" (further occurrences suppressed)", fields...)
	}
}

// Count 返回累计触发次数（含被抑制的）。
func (l *Limited) Count() uint64 {
	return l.count.Load()
}
