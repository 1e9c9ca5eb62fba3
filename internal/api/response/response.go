// Package response writes the JSON bodies shared by every handler.
package response

import (
	"encoding/json"
	"net/http"
)

type ErrorResponse struct {
	Error   string `json:"error" example:"invalid credentials"`
	Message string `json:"message,omitempty" example:"Email or password is incorrect"`
}

func JSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

func Error(w http.ResponseWriter, statusCode int, error string, message string) {
	JSON(w, statusCode, ErrorResponse{
		Error:   error,
		Message: message,
	})
}
