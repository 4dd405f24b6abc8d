// Package apperr 定义了贯穿整个服务的错误分类，并统一映射到 HTTP 状态码。
// 业务代码应当返回这里的类型，而不是在每个 handler 里手写 gin.H{"error":...}。
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind 标识一个错误属于哪一类，用于统一映射 HTTP 状态码与重试语义。
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindTransient  Kind = "transient"
	KindPermanent  Kind = "permanent"
	KindRateLimited Kind = "rate_limited"
	KindCancelled  Kind = "cancelled"
	KindInternal   Kind = "internal"
)

// Error 是贯穿 service/handler 层传递的统一错误类型。
type Error struct {
	Kind    Kind
	Message string
	Detail  string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable 报告该错误是否值得调用方在短暂等待后重试。
func (e *Error) Retryable() bool { return e.Kind == KindTransient }

func new_(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(message string) *Error           { return new_(KindValidation, message, nil) }
func ValidationWithDetail(message, detail string) *Error {
	e := new_(KindValidation, message, nil)
	e.Detail = detail
	return e
}
func NotFound(message string) *Error              { return new_(KindNotFound, message, nil) }
func Conflict(message string) *Error              { return new_(KindConflict, message, nil) }
func Transient(message string, err error) *Error  { return new_(KindTransient, message, err) }
func Permanent(message string, err error) *Error  { return new_(KindPermanent, message, err) }
func RateLimited(message string) *Error           { return new_(KindRateLimited, message, nil) }
func Cancelled(message string) *Error             { return new_(KindCancelled, message, nil) }
func Internal(message string, err error) *Error   { return new_(KindInternal, message, err) }

// Wrap classifies an arbitrary error as internal unless it is already an *Error.
func Wrap(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal("unexpected error", err)
}

// HTTPStatus maps a Kind to the status code the service surface returns.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindCancelled:
		return 499 // client closed request, nginx convention
	case KindTransient:
		return http.StatusServiceUnavailable
	case KindPermanent, KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Is is a small helper so callers can do apperr.Is(err, apperr.KindNotFound).
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
