package dto

import (
	apperrors "repairdesk/internal/errors"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Success bool                         `json:"success"`
	Message string                       `json:"message"`
	Data    interface{}                  `json:"data,omitempty"`
	TraceID string                       `json:"traceId,omitempty"`
	Errors  []apperrors.ValidationDetail `json:"errors,omitempty"`
}

func OK(message string, data interface{}) Response {
	return Response{Success: true, Message: message, Data: data}
}

func Fail(message string, details ...apperrors.ValidationDetail) Response {
	return Response{Success: false, Message: message, Errors: details}
}

type Page struct {
	Items    interface{} `json:"items"`
	Total    int         `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"pageSize"`
}
