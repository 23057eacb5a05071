package serve

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/seqrec/seqrec/core"
	"github.com/seqrec/seqrec/pkg/utils"
)

var (
	// celEnv 是全局 CEL 环境，线程安全，可复用。
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("item", cel.DynType),
			cel.Variable("labels", cel.DynType),
			cel.Variable("params", cel.DynType),
		)
	})
	return celEnv, celEnvErr
}

// CELFilter 是表达式驱动的过滤节点，使用 CEL (Common Expression Language)。
// 表达式对"保留"求值：结果为 true 的候选保留，false 剔除。
//
// 可见变量：
//   - item.id / item.score
//   - labels.<key>（Label 的 Value 字符串）
//   - params.<key>（RecommendContext.Params）
//
// 示例：
//   - `item.score > 0.5`
//   - `labels.candidates_source == "catalog" && item.id != 42`
type CELFilter struct {
	Expr string
	prg  cel.Program
}

// NewCELFilter 编译表达式；语法错误在构造期暴露。
func NewCELFilter(expr string) (*CELFilter, error) {
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("init cel env: %w", err)
	}
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compile cel expr %q: %w", expr, iss.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build cel program: %w", err)
	}
	return &CELFilter{Expr: expr, prg: prg}, nil
}

func (n *CELFilter) Name() string { return "filter.cel" }
func (n *CELFilter) Kind() Kind   { return KindFilter }

func (n *CELFilter) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if n.prg == nil || len(items) == 0 {
		return items, nil
	}

	var params map[string]any
	if rctx != nil {
		params = rctx.Params
	}
	if params == nil {
		params = map[string]any{}
	}

	out := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		keep, err := n.evaluate(it, params)
		if err != nil {
			// 表达式运行错误时保留候选，不中断链路
			out = append(out, it)
			continue
		}
		if keep {
			out = append(out, it)
		} else {
			it.PutLabel("filtered", utils.Label{Value: "true", Source: n.Name()})
		}
	}
	return out, nil
}

func (n *CELFilter) evaluate(it *core.Item, params map[string]any) (bool, error) {
	labels := make(map[string]any, len(it.Labels))
	for k, lbl := range it.Labels {
		labels[k] = lbl.Value
	}
	val, _, err := n.prg.Eval(map[string]any{
		"item": map[string]any{
			"id":    it.ID,
			"score": it.Score,
		},
		"labels": labels,
		"params": params,
	})
	if err != nil {
		return false, err
	}
	keep, ok := val.Value().(bool)
	if !ok {
		return false, fmt.Errorf("cel expr %q result is %T, want bool", n.Expr, val.Value())
	}
	return keep, nil
}
