package httpx

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// StatusResponse is the canonical acknowledgement body
type StatusResponse struct {
	Status string `json:"status"`
}

// ErrorResponse carries an error message alongside the status
type ErrorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// WriteJSON writes v as a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	// Encode errors end up logged by the logging middleware via the
	// captured status code; nothing more to do here.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteRaw writes a pre-encoded JSON document
func WriteRaw(w http.ResponseWriter, status int, doc []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(doc)
}

// OK writes the standard {"status":"ok"} acknowledgement
func OK(w http.ResponseWriter) {
	WriteJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// Error writes a JSON error response
func Error(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Status: "error", Error: message})
}

// MethodNotAllowed writes the standard 405 response
func MethodNotAllowed(w http.ResponseWriter) {
	Error(w, http.StatusMethodNotAllowed, "method not allowed")
}

// Decode reads the request body and unmarshals it into v
func Decode(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return fmt.Errorf("failed to read request body: %w", err)
	}
	defer r.Body.Close()

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}

	return nil
}

// ReadBody reads and returns the raw request body
func ReadBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	defer r.Body.Close()
	return body, nil
}
