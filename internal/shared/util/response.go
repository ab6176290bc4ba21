package util

import (
	"encoding/json"
	"net/http"

	"logileet/internal/shared/apperrors"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func WriteJSON(w http.ResponseWriter, statusCode int, object interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(object)
}

func WriteData(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	WriteJSON(w, statusCode, APIResponse{Success: true, Message: message, Data: data})
}

func WriteJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": message})
}

// WriteDomainError maps a service failure to its HTTP status.
func WriteDomainError(w http.ResponseWriter, err error) {
	WriteJSONError(w, err.Error(), apperrors.StatusCode(err))
}
