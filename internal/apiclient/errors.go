package apiclient

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	// ErrConflict 后端拒绝（认领冲突等），不会自动重试
	ErrConflict = errors.New("conflict")
	// ErrRejected 响应 success=false 或其他 4xx/5xx
	ErrRejected = errors.New("request rejected")
	// ErrTransport 未收到响应（网络错误、超时）
	ErrTransport = errors.New("transport error")
	// ErrDecode 响应无法解析
	ErrDecode = errors.New("invalid response")
)

const defaultErrorMessage = "An unexpected error occurred"

// APIError 后端返回的错误
type APIError struct {
	StatusCode int
	Message    string
	Errors     []string
	RequestID  string
	Path       string
	kind       error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s (status %d, request %s): %s", e.kind, e.Path, e.StatusCode, e.RequestID, e.UserMessage())
}

func (e *APIError) Unwrap() error { return e.kind }

// UserMessage 面向用户的错误描述：优先 errors 列表，其次 message
func (e *APIError) UserMessage() string {
	if len(e.Errors) > 0 {
		return strings.Join(e.Errors, ", ")
	}
	if e.Message != "" {
		return e.Message
	}
	return defaultErrorMessage
}

// UserMessage 从任意错误提取面向用户的描述
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.UserMessage()
	}
	return err.Error()
}

// StatusCode 从错误中取 HTTP 状态码，非 APIError 返回 0
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func kindForStatus(status int) error {
	switch status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	default:
		return ErrRejected
	}
}
