package httpx

import (
	"net/http"
)

type ErrorEnvelope struct {
	Error     ErrorBody `json:"error"`
	RequestID string    `json:"requestId"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

const (
	CodeValidation   = "validation_error"
	CodeUnauthorized = "unauthorized"
	CodeRateLimited  = "RATE_LIMITED"
	CodeNotFound     = "not_found"
	CodeConfig       = "config_error"
	CodeStorage      = "storage_error"
	CodeInternal     = "internal_error"
)

func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	WriteJSON(w, status, ErrorEnvelope{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
		RequestID: RequestIDFromContext(r.Context()),
	})
}
