package handler

import (
	apperrors "github.com/jwalitptl/dunning-api/pkg/errors"
)

// Response is the envelope for every API reply. Error replies carry the
// application error code alongside the HTTP status so clients can tell a
// claim conflict from a plain bad request.
type Response struct {
	Status  string              `json:"status"`
	Code    apperrors.ErrorCode `json:"code,omitempty"`
	Message string              `json:"message,omitempty"`
	Data    interface{}         `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// NewAppErrorResponse carries an AppError's code and message through the
// envelope.
func NewAppErrorResponse(err *apperrors.AppError) *Response {
	return &Response{
		Status:  "error",
		Code:    err.Code,
		Message: err.Message,
	}
}
