// Package store 提供 serving 期的用户消费历史存储：内存实现与 Redis 实现。
// 训练期历史来自 DataInfo；serving 期的增量行为走这里。
package store

import "context"

// History 是用户消费历史的存储接口。
type History interface {
	Name() string

	// GetConsumed 返回用户消费过的物品（时间先后，旧 → 新）。
	// 用户不存在时返回 core.ErrStoreNotFound。
	GetConsumed(ctx context.Context, user int) ([]int, error)

	// AppendConsumed 追加用户的新消费记录。
	AppendConsumed(ctx context.Context, user int, items ...int) error
}
