package feature

import (
	"context"
	"fmt"
	"strconv"

	feastsdk "github.com/feast-dev/feast/sdk/go"
	feasttypes "github.com/feast-dev/feast/sdk/go/protos/feast/types"
)

// OnlineStore 是在线特征存储的最小接口：按实体行批量取特征值。
// 生产实现对接 Feast Feature Server；测试可用任意内存实现。
type OnlineStore interface {
	GetOnlineFeatures(ctx context.Context, features []string, entities []map[string]any) ([]map[string]float64, error)
	Close() error
}

// FeastStore 是基于官方 Feast Go SDK 的 OnlineStore 实现（gRPC）。
type FeastStore struct {
	client  *feastsdk.GrpcClient
	project string
}

// NewFeastStore 连接 Feast Feature Server。port 为 0 时使用默认 gRPC 端口 6565。
func NewFeastStore(host string, port int, project string) (*FeastStore, error) {
	if port == 0 {
		port = 6565
	}
	if project == "" {
		return nil, fmt.Errorf("feast project is required")
	}
	client, err := feastsdk.NewGrpcClient(host, port)
	if err != nil {
		return nil, fmt.Errorf("connect feast %s:%d: %w", host, port, err)
	}
	return &FeastStore{client: client, project: project}, nil
}

func (s *FeastStore) GetOnlineFeatures(ctx context.Context, features []string, entities []map[string]any) ([]map[string]float64, error) {
	if len(features) == 0 || len(entities) == 0 {
		return nil, fmt.Errorf("features and entities are required")
	}

	rows := make([]feastsdk.Row, len(entities))
	for i, ent := range entities {
		row := make(feastsdk.Row, len(ent))
		for k, v := range ent {
			switch val := v.(type) {
			case string:
				row[k] = feastsdk.StrVal(val)
			case int:
				row[k] = feastsdk.Int64Val(int64(val))
			case int64:
				row[k] = feastsdk.Int64Val(val)
			case float64:
				row[k] = feastsdk.DoubleVal(val)
			default:
				row[k] = feastsdk.StrVal(fmt.Sprintf("%v", val))
			}
		}
		rows[i] = row
	}

	resp, err := s.client.GetOnlineFeatures(ctx, &feastsdk.OnlineFeaturesRequest{
		Features: features,
		Entities: rows,
		Project:  s.project,
	})
	if err != nil {
		return nil, fmt.Errorf("feast get online features: %w", err)
	}

	respRows := resp.Rows()
	if len(respRows) != len(entities) {
		return nil, fmt.Errorf("feast response rows %d, want %d", len(respRows), len(entities))
	}

	out := make([]map[string]float64, len(respRows))
	for i, row := range respRows {
		values := make(map[string]float64, len(features))
		for _, name := range features {
			val, ok := row[name]
			if !ok || val == nil {
				continue
			}
			if f, ok := valueToFloat(val); ok {
				values[name] = f
			}
		}
		out[i] = values
	}
	return out, nil
}

// valueToFloat 把 Feast 的 protobuf Value 转为数值特征。
// 非数值类型尝试按字符串解析，解析失败则视为缺失。
func valueToFloat(val *feasttypes.Value) (float64, bool) {
	switch v := val.GetVal().(type) {
	case *feasttypes.Value_Int32Val:
		return float64(v.Int32Val), true
	case *feasttypes.Value_Int64Val:
		return float64(v.Int64Val), true
	case *feasttypes.Value_FloatVal:
		return float64(v.FloatVal), true
	case *feasttypes.Value_DoubleVal:
		return v.DoubleVal, true
	case *feasttypes.Value_BoolVal:
		if v.BoolVal {
			return 1, true
		}
		return 0, true
	case *feasttypes.Value_StringVal:
		if f, err := strconv.ParseFloat(v.StringVal, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func (s *FeastStore) Close() error {
	s.client = nil
	return nil
}

var _ OnlineStore = (*FeastStore)(nil)

// Loader 把在线特征存储的取数结果整形为模型批次需要的 sparse/dense 行。
//
// SparseFeatures 的取值约定为该字段在共享 sparse 表中的 inner index；
// DenseFeatures 直接作为数值特征。字段顺序与训练 schema 一致。
type Loader struct {
	Store     OnlineStore
	EntityKey string // 实体主键名，如 "user_id"

	SparseFeatures []string
	DenseFeatures  []string
}

// Fetch 为一组实体 ID 拉取 sparse 索引与 dense 取值。
// 缺失的 sparse 特征落到 index 0，缺失的 dense 特征取 0 值。
func (l *Loader) Fetch(ctx context.Context, entityIDs []int) (sparse [][]int, dense [][]float64, err error) {
	if l.Store == nil || len(entityIDs) == 0 {
		return nil, nil, nil
	}
	entities := make([]map[string]any, len(entityIDs))
	for i, id := range entityIDs {
		entities[i] = map[string]any{l.EntityKey: id}
	}
	all := append(append([]string{}, l.SparseFeatures...), l.DenseFeatures...)
	rows, err := l.Store.GetOnlineFeatures(ctx, all, entities)
	if err != nil {
		return nil, nil, err
	}

	if len(l.SparseFeatures) > 0 {
		sparse = make([][]int, len(rows))
	}
	if len(l.DenseFeatures) > 0 {
		dense = make([][]float64, len(rows))
	}
	for i, row := range rows {
		if sparse != nil {
			s := make([]int, len(l.SparseFeatures))
			for j, name := range l.SparseFeatures {
				s[j] = int(row[name])
			}
			sparse[i] = s
		}
		if dense != nil {
			d := make([]float64, len(l.DenseFeatures))
			for j, name := range l.DenseFeatures {
				d[j] = row[name]
			}
			dense[i] = d
		}
	}
	return sparse, dense, nil
}
