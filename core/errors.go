package core

import (
	"errors"
	"fmt"
)

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型，通过 Code 区分错误类别
//   - Module 标记出错的组件，便于日志/监控聚合
//   - 支持 errors.As / errors.Unwrap，可以被 fmt.Errorf("%w") 包装后继续识别
//
// 错误分类：
//   - INVALID_INPUT：事件字段缺失/非法、未知 action（在日志边界拒绝，不落盘）
//   - OUT_OF_RANGE：用户不在交互矩阵中（推荐降级为纯文本召回）
//   - INSUFFICIENT_DATA：没有交互数据可训练（推荐降级为纯文本召回）
//   - STALE_MODEL：矩阵与模型维度不一致（同步重训并重试一次）
type DomainError struct {
	Code    string // 错误代码（如 "INVALID_INPUT", "STALE_MODEL"）
	Message string // 错误消息
	Module  string // 模块名称（如 "eventlog", "model"）
	Err     error  // 底层错误（可选）
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// GetDomainError 沿错误链查找 DomainError，找不到返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// IsDomainError 检查错误链中是否包含 DomainError
func IsDomainError(err error) bool {
	return GetDomainError(err) != nil
}

// 错误代码常量
const (
	ErrorCodeNotFound         = "NOT_FOUND"         // 资源不存在
	ErrorCodeNotSupported     = "NOT_SUPPORTED"     // 操作不支持
	ErrorCodeUnavailable      = "UNAVAILABLE"       // 服务不可用
	ErrorCodeInvalidInput     = "INVALID_INPUT"     // 输入无效
	ErrorCodeInternalError    = "INTERNAL_ERROR"    // 内部错误
	ErrorCodeOutOfRange       = "OUT_OF_RANGE"      // 用户超出矩阵范围
	ErrorCodeInsufficientData = "INSUFFICIENT_DATA" // 无可训练数据
	ErrorCodeStaleModel       = "STALE_MODEL"       // 模型与矩阵维度不一致
)

// 模块名称常量
const (
	ModuleStore    = "store"    // 存储模块
	ModuleEventLog = "eventlog" // 交互日志
	ModuleMatrix   = "matrix"   // 交互矩阵
	ModuleModel    = "model"    // 协同过滤模型
	ModuleLexical  = "lexical"  // 文本索引
	ModuleFilter   = "filter"   // 过滤
	ModuleRank     = "rank"     // 融合排序
	ModuleEngine   = "engine"   // 推荐引擎
)

// NewValidationError 创建 INVALID_INPUT 错误。
func NewValidationError(module, format string, args ...any) *DomainError {
	return NewDomainError(module, ErrorCodeInvalidInput, fmt.Sprintf(format, args...))
}

// NewOutOfRangeError 创建 OUT_OF_RANGE 错误。
func NewOutOfRangeError(userID int64, rows int) *DomainError {
	return NewDomainError(ModuleModel, ErrorCodeOutOfRange,
		fmt.Sprintf("model: user %d out of range (rows=%d)", userID, rows))
}

// NewInsufficientDataError 创建 INSUFFICIENT_DATA 错误。
func NewInsufficientDataError(message string) *DomainError {
	return NewDomainError(ModuleModel, ErrorCodeInsufficientData, message)
}

// NewStaleModelError 创建 STALE_MODEL 错误。
func NewStaleModelError(modelItems, matrixCols int) *DomainError {
	return NewDomainError(ModuleModel, ErrorCodeStaleModel,
		fmt.Sprintf("model: stale model (model items=%d, matrix columns=%d)", modelItems, matrixCols))
}

// CodeOf 返回错误链中 DomainError 的 Code，没有时返回空串
func CodeOf(err error) string {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code
	}
	return ""
}

func hasCode(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool { return hasCode(err, ErrorCodeNotFound) }

// IsNotSupported 检查错误是否为 NOT_SUPPORTED
func IsNotSupported(err error) bool { return hasCode(err, ErrorCodeNotSupported) }

// IsValidation 检查错误是否为 INVALID_INPUT
func IsValidation(err error) bool { return hasCode(err, ErrorCodeInvalidInput) }

// IsOutOfRange 检查错误是否为 OUT_OF_RANGE
func IsOutOfRange(err error) bool { return hasCode(err, ErrorCodeOutOfRange) }

// IsInsufficientData 检查错误是否为 INSUFFICIENT_DATA
func IsInsufficientData(err error) bool { return hasCode(err, ErrorCodeInsufficientData) }

// IsStaleModel 检查错误是否为 STALE_MODEL
func IsStaleModel(err error) bool { return hasCode(err, ErrorCodeStaleModel) }
