package models

import "encoding/json"

// API error codes returned in the response envelope
const (
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeInvalidParameter = "INVALID_PARAMETER"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeApprovalFailed   = "APPROVAL_FAILED"
	ErrCodeRejectionFailed  = "REJECTION_FAILED"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)

// APIError is the error section of a failed response envelope
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIResponse is the envelope wrapping every review API response
type APIResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *APIError       `json:"error,omitempty"`
}

// NewSuccessResponse wraps data in a success envelope
func NewSuccessResponse(data any) (*APIResponse, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &APIResponse{Success: true, Data: raw}, nil
}

// NewErrorResponse builds a failure envelope with the given code and message
func NewErrorResponse(code, message string) *APIResponse {
	return &APIResponse{Success: false, Error: &APIError{Code: code, Message: message}}
}
