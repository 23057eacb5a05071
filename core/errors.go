package core

import "errors"

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 配置类错误在构造期返回，批次计算开始前暴露
//   - 提供错误代码（Code）和消息（Message），便于上层分类处理
//   - 模块名（Module）标记错误来源：seq / feature / model / eval / serve / store
type DomainError struct {
	Code    string // 错误代码（如 "INVALID_CONFIG", "SCHEMA_MISMATCH"）
	Message string // 错误消息
	Module  string // 模块名称
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError 创建新的领域错误。
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// GetDomainError 获取 DomainError，如果不是则返回 nil。
func GetDomainError(err error) *DomainError {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// 错误代码常量
const (
	ErrorCodeInvalidConfig  = "INVALID_CONFIG"  // 超参数组合非法（构造期，致命）
	ErrorCodeSchemaMismatch = "SCHEMA_MISMATCH" // 稀疏/稠密字段数与训练元数据不一致（致命）
	ErrorCodeNotFound       = "NOT_FOUND"       // 资源不存在
	ErrorCodeNotSupported   = "NOT_SUPPORTED"   // 操作不支持
	ErrorCodeInternalError  = "INTERNAL_ERROR"  // 内部错误
)

// 模块名称常量
const (
	ModuleSeq     = "seq"
	ModuleFeature = "feature"
	ModuleModel   = "model"
	ModuleEval    = "eval"
	ModuleServe   = "serve"
	ModuleStore   = "store"
)

// IsInvalidConfig 检查错误是否为配置错误。
func IsInvalidConfig(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeInvalidConfig
	}
	return false
}

// IsSchemaMismatch 检查错误是否为 schema 不一致。
func IsSchemaMismatch(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeSchemaMismatch
	}
	return false
}

// IsNotFound 检查错误是否为 NOT_FOUND。
func IsNotFound(err error) bool {
	if errors.Is(err, ErrStoreNotFound) {
		return true
	}
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeNotFound
	}
	return false
}

var (
	// ErrStoreNotFound 表示 Store 中不存在请求的 key。
	ErrStoreNotFound = errors.New("store: key not found")

	// ErrNoRecommendation 表示该用户没有可用推荐：
	// 未知用户且未配置 fallback，或候选被全部过滤。
	ErrNoRecommendation = errors.New("no recommendation available")
)
