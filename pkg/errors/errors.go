package errors

import (
	"errors"
	"fmt"
)

// AppError 应用错误
// Code 给客户端分类使用，Reason 是机器可读的原因（如 OUT_OF_STOCK），
// Detail 说明具体哪条规则被违反，Err 只进日志不返回给客户端。
type AppError struct {
	Code    int    `json:"code"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	head := fmt.Sprintf("[%d]", e.Code)
	if e.Reason != "" {
		head += " " + e.Reason
	}
	msg := head + ": " + e.Message
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap 支持errors.Is和errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按Code+Reason匹配，带Detail的副本仍然等于预定义错误
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Reason == t.Reason
}

// New 创建新的AppError
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// NewWithReason 创建带机器可读原因的AppError
func NewWithReason(code int, reason, message string) *AppError {
	return &AppError{
		Code:    code,
		Reason:  reason,
		Message: message,
	}
}

// WithDetail 返回附带细节的副本，预定义错误本身不被修改
func (e *AppError) WithDetail(format string, args ...interface{}) *AppError {
	cp := *e
	cp.Detail = fmt.Sprintf(format, args...)
	return &cp
}

// WithErr 返回附带内部错误的副本
func (e *AppError) WithErr(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

// Wrap 包装系统错误（如数据库错误、网络错误）
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Reason:  ReasonInternal,
		Message: message,
		Err:     err,
	}
}

// Wrapf 格式化包装错误
func Wrapf(err error, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Reason:  ReasonInternal,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// =========================================
// 错误码定义
// =========================================
// - 400xx: 业务规则校验失败
// - 401xx: 认证
// - 404xx: 资源不存在
// - 409xx: 参数/冲突
// - 500xx: 服务端错误
// - 502xx: 渠道集成错误

const (
	ErrCodeInternal      = 50000
	ErrCodeDatabaseError = 50001
	ErrCodeRedisError    = 50002
	ErrCodeBrokerError   = 50003

	ErrCodeIntegrationFailure = 50200

	ErrCodeUnauthorized  = 40100
	ErrCodeInvalidToken  = 40101
	ErrCodeTokenExpired  = 40102
	ErrCodeForbidden     = 40104
	ErrCodeInvalidSecret = 40105

	ErrCodeNotFound            = 40400
	ErrCodeProductNotFound     = 40401
	ErrCodeOrderNotFound       = 40403
	ErrCodeChannelNotFound     = 40404
	ErrCodeListingNotFound     = 40405
	ErrCodeIntegrationNotFound = 40406

	ErrCodeBusinessError      = 40000
	ErrCodeStockViolation     = 40001
	ErrCodeInvalidState       = 40002
	ErrCodeChannelUnavailable = 40003
	ErrCodeContentIncomplete  = 40004
	ErrCodeUnsupported        = 40005
	ErrCodeDuplicateEntry     = 40009

	ErrCodeInvalidParams = 40900
	ErrCodeBindError     = 40901
)

const (
	ReasonInternal = "INTERNAL_ERROR"
	ReasonUnknown  = "UNKNOWN_ERROR"
)

var (
	ErrInternal      = NewWithReason(ErrCodeInternal, ReasonInternal, "系统内部错误")
	ErrDatabaseError = NewWithReason(ErrCodeDatabaseError, "DATABASE_ERROR", "数据库错误")
	ErrRedisError    = NewWithReason(ErrCodeRedisError, "CACHE_ERROR", "缓存服务错误")
	ErrBrokerError   = NewWithReason(ErrCodeBrokerError, "BROKER_ERROR", "消息服务错误")

	ErrUnauthorized  = NewWithReason(ErrCodeUnauthorized, "UNAUTHORIZED", "请先登录")
	ErrInvalidToken  = NewWithReason(ErrCodeInvalidToken, "INVALID_TOKEN", "无效的Token")
	ErrTokenExpired  = NewWithReason(ErrCodeTokenExpired, "TOKEN_EXPIRED", "Token已过期")
	ErrForbidden     = NewWithReason(ErrCodeForbidden, "FORBIDDEN", "无权限访问")
	ErrInvalidSecret = NewWithReason(ErrCodeInvalidSecret, "INVALID_WEBHOOK_SECRET", "Webhook密钥不匹配")

	ErrIntegrationFailure = NewWithReason(ErrCodeIntegrationFailure, "INTEGRATION_FAILURE", "渠道调用失败")

	ErrInvalidParams = NewWithReason(ErrCodeInvalidParams, "INVALID_PARAMS", "参数错误")
	ErrBindError     = NewWithReason(ErrCodeBindError, "INVALID_PAYLOAD", "参数格式错误")
)

// =========================================
// 辅助函数
// =========================================

// IsAppError 判断是否为AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError 提取AppError（如果不是AppError则包装成Internal错误）
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, "系统内部错误")
}

// ReasonOf 返回批量结果和日志里使用的原因串
// 形如 OUT_OF_STOCK 或 PRODUCT_CONTENT_INCOMPLETE:metaTitle,images
func ReasonOf(err error) string {
	var appErr *AppError
	if !errors.As(err, &appErr) || appErr.Reason == "" {
		return ReasonUnknown
	}
	if appErr.Detail != "" {
		return appErr.Reason + ":" + appErr.Detail
	}
	return appErr.Reason
}
