package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/example/mediatranslate/internal/models"
)

// sendJSONResponse sends a JSON response to the client
func sendJSONResponse(w http.ResponseWriter, response interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// sendJSONData wraps data in a successful envelope
func sendJSONData(w http.ResponseWriter, message string, data interface{}, status int) {
	sendJSONResponse(w, models.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	}, status)
}

// sendJSONError sends a JSON error response to the client
func sendJSONError(w http.ResponseWriter, message string, status int) {
	sendJSONResponse(w, models.APIResponse{
		Success: false,
		Error:   message,
	}, status)
}
