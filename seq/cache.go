// Package seq 预计算每个用户的长/短行为序列，供序列模型直接查表使用。
package seq

import (
	"fmt"

	"github.com/seqrec/seqrec/core"
)

// Cache 是进程级的双序列缓存：模型构造时从完整训练历史构建一次，之后只读。
//
// 序列布局：位置 0..len-1 按时间先后（旧 → 新）存放最近 maxLen 条消费物品，
// 其余位置填充哨兵 Sentinel（= nItems）。LongLens/ShortLens 记录真实长度。
//
// 额外保留一行 index = nUsers 的全哨兵序列，serving 时未知用户落到这一行，
// 真实长度 0，下游 attention 的 mask 全 false。
type Cache struct {
	LongMaxLen  int
	ShortMaxLen int
	Sentinel    int

	LongSeqs  [][]int
	LongLens  []int
	ShortSeqs [][]int
	ShortLens []int
}

// Build 根据每个用户的消费历史构建双序列缓存。
// consumed 按 inner user id 索引，物品按时间先后（旧 → 新）排列。
func Build(nUsers int, consumed [][]int, nItems, longMaxLen, shortMaxLen int) (*Cache, error) {
	if longMaxLen <= 0 || shortMaxLen <= 0 {
		return nil, core.NewDomainError(core.ModuleSeq, core.ErrorCodeInvalidConfig,
			fmt.Sprintf("sequence lengths must be positive: long=%d short=%d", longMaxLen, shortMaxLen))
	}
	if shortMaxLen > longMaxLen {
		return nil, core.NewDomainError(core.ModuleSeq, core.ErrorCodeInvalidConfig,
			fmt.Sprintf("short_max_len %d exceeds long_max_len %d", shortMaxLen, longMaxLen))
	}

	c := &Cache{
		LongMaxLen:  longMaxLen,
		ShortMaxLen: shortMaxLen,
		Sentinel:    nItems,
		LongSeqs:    make([][]int, nUsers+1),
		LongLens:    make([]int, nUsers+1),
		ShortSeqs:   make([][]int, nUsers+1),
		ShortLens:   make([]int, nUsers+1),
	}

	for u := 0; u <= nUsers; u++ {
		var history []int
		if u < len(consumed) {
			history = consumed[u]
		}
		c.LongSeqs[u], c.LongLens[u] = recentPadded(history, longMaxLen, nItems)
		c.ShortSeqs[u], c.ShortLens[u] = recentPadded(history, shortMaxLen, nItems)
	}
	return c, nil
}

// recentPadded 取最近 maxLen 条历史，右侧填充哨兵。
func recentPadded(history []int, maxLen, sentinel int) ([]int, int) {
	n := len(history)
	if n > maxLen {
		history = history[n-maxLen:]
		n = maxLen
	}
	padded := make([]int, maxLen)
	copy(padded, history)
	for i := n; i < maxLen; i++ {
		padded[i] = sentinel
	}
	return padded, n
}

// Long 返回用户的长序列与真实长度；越界用户落到全哨兵行。
func (c *Cache) Long(user int) ([]int, int) {
	u := c.clamp(user)
	return c.LongSeqs[u], c.LongLens[u]
}

// Short 返回用户的短序列与真实长度。
func (c *Cache) Short(user int) ([]int, int) {
	u := c.clamp(user)
	return c.ShortSeqs[u], c.ShortLens[u]
}

func (c *Cache) clamp(user int) int {
	if user < 0 || user >= len(c.LongSeqs) {
		return len(c.LongSeqs) - 1 // 哨兵行
	}
	return user
}

// Mask 生成长度 maxLen 的有效位掩码：position < trueLen 为 true。
// 序列被重新切片（如 top-k gather）后必须 gather 原掩码，而不是重算。
func Mask(maxLen, trueLen int) []bool {
	m := make([]bool, maxLen)
	for i := 0; i < trueLen && i < maxLen; i++ {
		m[i] = true
	}
	return m
}
