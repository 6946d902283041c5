package serverutils

import (
	"net/http"

	"sharecycle-be/internal/pkg/apperror"
)

type Response[T any] struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type ErrorBody struct {
	Success bool                   `json:"success"`
	Code    string                 `json:"code"`
	Reason  string                 `json:"reason,omitempty"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func SuccessResponse[T any](message string, data T) *Response[T] {
	return &Response[T]{
		Success: true,
		Code:    http.StatusOK,
		Message: message,
		Data:    data,
	}
}

// ErrorResponse builds the envelope for errors that carry no domain reason.
func ErrorResponse(status int, message string) *ErrorBody {
	return &ErrorBody{
		Success: false,
		Code:    codeForStatus(status),
		Message: message,
	}
}

func AppErrorResponse(err *apperror.Error) *ErrorBody {
	return &ErrorBody{
		Success: false,
		Code:    string(err.Code),
		Reason:  err.Reason,
		Message: err.Message,
		Details: err.Details,
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusNotFound:
		return string(apperror.CodeNotFound)
	case http.StatusForbidden:
		return string(apperror.CodeForbidden)
	case http.StatusConflict:
		return string(apperror.CodeConflict)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return string(apperror.CodeValidation)
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusServiceUnavailable:
		return string(apperror.CodeExternalServiceDegraded)
	default:
		return "INTERNAL_ERROR"
	}
}
