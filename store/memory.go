package store

import (
	"context"
	"sync"

	"github.com/seqrec/seqrec/core"
)

// MemoryHistory 是内存实现的 History，用于测试/开发/原型。
// 读多写少，用 RWMutex 保护；进程重启后数据丢失。
type MemoryHistory struct {
	mu   sync.RWMutex
	data map[int][]int
}

func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{data: make(map[int][]int)}
}

// NewMemoryHistoryFrom 从训练历史预填充，便于 serving 启动时直接可用。
func NewMemoryHistoryFrom(consumed [][]int) *MemoryHistory {
	m := NewMemoryHistory()
	for u, items := range consumed {
		if len(items) == 0 {
			continue
		}
		m.data[u] = append([]int(nil), items...)
	}
	return m
}

func (m *MemoryHistory) Name() string { return "memory" }

func (m *MemoryHistory) GetConsumed(_ context.Context, user int) ([]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	items, ok := m.data[user]
	if !ok {
		return nil, core.ErrStoreNotFound
	}
	// 返回副本，调用方可自由修改
	return append([]int(nil), items...), nil
}

func (m *MemoryHistory) AppendConsumed(_ context.Context, user int, items ...int) error {
	if len(items) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[user] = append(m.data[user], items...)
	return nil
}

var _ History = (*MemoryHistory)(nil)
