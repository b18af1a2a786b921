package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// errorResponse is the body of every client-visible error
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes v as a JSON response with the given status
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// writeError logs the error and writes {"error": message} to the client
func writeError(w http.ResponseWriter, statusCode int, message string, err error, logger *zap.SugaredLogger) {
	if logger != nil {
		if err != nil {
			logger.Debugw(message, "error", err.Error(), "status_code", statusCode)
		} else {
			logger.Debugw(message, "status_code", statusCode)
		}
	}
	writeJSON(w, statusCode, errorResponse{Error: message})
}
