package server

import (
	"encoding/json"
	"net/http"
	"time"

	"tracksync/logger"
)

// Error codes carried in ErrorResponse.Code.
const (
	CodeInvalidJSON     = "INVALID_JSON"
	CodeValidationError = "VALIDATION_ERROR"
	CodeInvalidID       = "INVALID_ID"
	CodeNotFound        = "NOT_FOUND"
	CodeFetchError      = "FETCH_ERROR"
	CodeCreateError     = "CREATE_ERROR"
	CodeUpdateError     = "UPDATE_ERROR"
	CodeDeleteError     = "DELETE_ERROR"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	Code      string `json:"code,omitempty"`
	Timestamp string `json:"timestamp"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to encode response", logger.ErrorField(err))
	}
}

// sendError writes an ErrorResponse. 5xx answers are logged as errors and
// 4xx answers as warnings.
func sendError(w http.ResponseWriter, r *http.Request, status int, errorMsg, userMsg, code string) {
	fields := []logger.Field{
		logger.String("code", code),
		logger.String("error", errorMsg),
		logger.String("message", userMsg),
		logger.String("request_id", requestIDFrom(r.Context())),
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", fields...)
	} else {
		logger.Warn("request rejected", fields...)
	}

	writeJSON(w, status, ErrorResponse{
		Error:     errorMsg,
		Message:   userMsg,
		Code:      code,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
