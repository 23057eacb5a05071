package serve

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Config 是链路的配置结构（YAML）。
type Config struct {
	Pipeline struct {
		Name  string       `yaml:"name"`
		Nodes []NodeConfig `yaml:"nodes"`
	} `yaml:"pipeline"`
}

// NodeConfig 是单个 Node 的配置。
type NodeConfig struct {
	Type   string         `yaml:"type"`   // candidates.catalog / filter.cel / rank.sim / topn 等
	Config map[string]any `yaml:"config"` // Node 特定配置
}

// LoadFromYAML 从 YAML 文件加载链路配置。
func LoadFromYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return &cfg, nil
}

// NodeBuilder 根据配置构建 Node。
type NodeBuilder func(config map[string]any) (Node, error)

var (
	builders   = make(map[string]NodeBuilder)
	buildersMu sync.RWMutex
)

// Register 注册一种 Node 的构建逻辑，供配置驱动组装使用。
// 依赖模型/存储实例的 Node（如 rank.sim）应在应用入口用闭包捕获依赖后注册。
func Register(typeName string, builder NodeBuilder) {
	if typeName == "" || builder == nil {
		return
	}
	buildersMu.Lock()
	defer buildersMu.Unlock()
	builders[typeName] = builder
}

// SupportedTypes 返回当前已注册的 Node 类型列表（排序），用于错误提示。
func SupportedTypes() []string {
	buildersMu.RLock()
	defer buildersMu.RUnlock()
	types := make([]string, 0, len(builders))
	for t := range builders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Build 根据配置构建 Pipeline；未注册的类型返回错误并附带已支持列表。
func (c *Config) Build() (*Pipeline, error) {
	nodes := make([]Node, 0, len(c.Pipeline.Nodes))
	for _, nc := range c.Pipeline.Nodes {
		buildersMu.RLock()
		builder, ok := builders[nc.Type]
		buildersMu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("unsupported node type %q (supported: %v)", nc.Type, SupportedTypes())
		}
		node, err := builder(nc.Config)
		if err != nil {
			return nil, fmt.Errorf("build node %s: %w", nc.Type, err)
		}
		nodes = append(nodes, node)
	}
	return &Pipeline{Nodes: nodes}, nil
}

// 内置的无外部依赖 Node 在 init 注册；带依赖的由调用方注册。
func init() {
	Register("topn", func(config map[string]any) (Node, error) {
		n := 0
		if v, ok := config["n"]; ok {
			switch val := v.(type) {
			case int:
				n = val
			case float64:
				n = int(val)
			default:
				return nil, fmt.Errorf("topn: n must be an integer, got %T", v)
			}
		}
		return &TopN{N: n}, nil
	})
	Register("filter.cel", func(config map[string]any) (Node, error) {
		expr, ok := config["expr"].(string)
		if !ok || expr == "" {
			return nil, fmt.Errorf("filter.cel: expr is required")
		}
		return NewCELFilter(expr)
	})
	Register("candidates.catalog", func(config map[string]any) (Node, error) {
		nItems := 0
		switch v := config["n_items"].(type) {
		case int:
			nItems = v
		case float64:
			nItems = int(v)
		}
		if nItems <= 0 {
			return nil, fmt.Errorf("candidates.catalog: n_items must be positive")
		}
		return &CatalogCandidates{NItems: nItems}, nil
	})
}
