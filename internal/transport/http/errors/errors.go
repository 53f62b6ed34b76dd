package errors

import (
	"encoding/json"
	"net/http"
)

// APIError is the failure body of every endpoint. Success is always false.
type APIError struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"error"`
}

type RateLimitError struct {
	Success       bool   `json:"success"`
	Code          string `json:"code"`
	Message       string `json:"error"`
	RetryAfterSec int64  `json:"retry_after_sec"`
}

func Write(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func Fail(w http.ResponseWriter, status int, code, message string) {
	Write(w, status, APIError{Code: code, Message: message})
}
