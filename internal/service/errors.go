package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind 错误类型，对外响应中的 error 字段
type ErrorKind string

const (
	KindInvalidQuery      ErrorKind = "InvalidQueryError"
	KindExternalAPI       ErrorKind = "ExternalAPIError"
	KindNotFound          ErrorKind = "NotFoundError"
	KindRateLimitExceeded ErrorKind = "RateLimitExceededError"
	KindInternal          ErrorKind = "InternalServerError"
)

// Error 业务错误
type Error struct {
	Kind    ErrorKind
	Service string // 出错的上游服务，仅 ExternalAPIError 使用
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Service != "" {
		msg = fmt.Sprintf("%s API error: %s", e.Service, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is 按 Kind 比较，便于 errors.Is(err, ErrNotFound)
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Service == ""
}

// PublicMessage 返回给客户端的信息
func (e *Error) PublicMessage() string {
	if e.Service != "" {
		return fmt.Sprintf("%s API error: %s", e.Service, e.Message)
	}
	return e.Message
}

// StatusCode 对应的 HTTP 状态码
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindInvalidQuery:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimitExceeded:
		return http.StatusTooManyRequests
	case KindExternalAPI:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// 哨兵错误，仅用于 errors.Is 判断类型
var (
	ErrInvalidQuery      = &Error{Kind: KindInvalidQuery}
	ErrExternalAPI       = &Error{Kind: KindExternalAPI}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrRateLimitExceeded = &Error{Kind: KindRateLimitExceeded}
)

func NewInvalidQueryError(message string) *Error {
	return &Error{Kind: KindInvalidQuery, Message: message}
}

func NewExternalAPIError(service, message string, err error) *Error {
	return &Error{Kind: KindExternalAPI, Service: service, Message: message, Err: err}
}

func NewNotFoundError(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func NewRateLimitExceededError(message string, err error) *Error {
	return &Error{Kind: KindRateLimitExceeded, Message: message, Err: err}
}

// AsError 将任意错误转换为 *Error，未知错误按 500 处理
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindInternal, Message: "An unexpected error occurred", Err: err}
}

// externalError 把上游调用错误包装为 ExternalAPIError，超时单独说明
// 已经是 *Error 的直接返回
func externalError(service string, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewExternalAPIError(service, "request timed out", err)
	}
	return NewExternalAPIError(service, "request failed", err)
}
