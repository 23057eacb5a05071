package model

import (
	"fmt"
	"sort"
	"sync"

	"github.com/seqrec/seqrec/core"
)

// Factory 根据训练数据信息构建一个模型实例。
// 具体超参由各模型的 Config 在注册时闭包捕获。
type Factory func(info *core.DataInfo) (Ranker, error)

var (
	factories   = make(map[string]Factory)
	factoriesMu sync.RWMutex
)

// Register 注册一种模型的构建逻辑。显式注册表替代反射式自动发现，
// 建议在应用入口处集中调用。
func Register(name string, factory Factory) {
	if name == "" || factory == nil {
		return
	}
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = factory
}

// New 按名字构建模型；未注册的名字返回错误并附带已支持列表。
func New(name string, info *core.DataInfo) (Ranker, error) {
	factoriesMu.RLock()
	factory, ok := factories[name]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown model %q (registered: %v)", name, Registered())
	}
	return factory(info)
}

// Registered 返回已注册的模型名列表（排序）。
func Registered() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
