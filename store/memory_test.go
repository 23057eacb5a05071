package store

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/seqrec/seqrec/core"
)

func TestMemoryHistory(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryHistory()

	t.Run("missing user", func(t *testing.T) {
		if _, err := m.GetConsumed(ctx, 1); !errors.Is(err, core.ErrStoreNotFound) {
			t.Errorf("want ErrStoreNotFound, got %v", err)
		}
	})

	t.Run("append then get", func(t *testing.T) {
		if err := m.AppendConsumed(ctx, 1, 10, 11); err != nil {
			t.Fatal(err)
		}
		if err := m.AppendConsumed(ctx, 1, 12); err != nil {
			t.Fatal(err)
		}
		items, err := m.GetConsumed(ctx, 1)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(items, []int{10, 11, 12}) {
			t.Errorf("items = %v, want [10 11 12]", items)
		}
	})

	t.Run("returned slice is a copy", func(t *testing.T) {
		items, _ := m.GetConsumed(ctx, 1)
		items[0] = 999
		again, _ := m.GetConsumed(ctx, 1)
		if again[0] != 10 {
			t.Error("caller mutation leaked into the store")
		}
	})

	t.Run("empty append is a no-op", func(t *testing.T) {
		if err := m.AppendConsumed(ctx, 7); err != nil {
			t.Fatal(err)
		}
		if _, err := m.GetConsumed(ctx, 7); !errors.Is(err, core.ErrStoreNotFound) {
			t.Errorf("empty append created a record: %v", err)
		}
	})
}

func TestNewMemoryHistoryFrom(t *testing.T) {
	m := NewMemoryHistoryFrom([][]int{{1, 2}, {}, {3}})
	ctx := context.Background()

	items, err := m.GetConsumed(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(items, []int{1, 2}) {
		t.Errorf("user 0 = %v, want [1 2]", items)
	}
	// 空历史用户不建记录
	if _, err := m.GetConsumed(ctx, 1); !errors.Is(err, core.ErrStoreNotFound) {
		t.Errorf("empty-history user should be absent, got %v", err)
	}
	if items, _ := m.GetConsumed(ctx, 2); !reflect.DeepEqual(items, []int{3}) {
		t.Errorf("user 2 = %v, want [3]", items)
	}
}
