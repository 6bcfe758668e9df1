package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"

	applog "github.com/hongminglow/ledger-be/internal/log"
)

// ErrorBody is the shape of every failed response.
type ErrorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// JSON writes payload with the given status.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("encode response payload failed",
			applog.FieldComponent, applog.ComponentHTTP,
			applog.FieldStatusCode, status,
			applog.FieldError, err)
	}
}

// Error writes an error response with the shared envelope structure.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorBody{Success: false, Message: message})
}
