// Package httputil holds the JSON response helpers and error codes shared
// by every handler package.
package httputil

import (
	"encoding/json"
	"log"
	"net/http"
)

// ErrorResponse is the uniform error body. Code carries one of the Code*
// constants so clients can branch without parsing the message text.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// RespondJSON writes data as a JSON body with the given status. By the time
// encoding could fail the status line is already on the wire, so a failure
// is logged rather than returned.
func RespondJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("ERROR: encoding response body: %v", err)
	}
}

// RespondError writes an error body without a machine-readable code.
func RespondError(w http.ResponseWriter, message string, statusCode int) {
	RespondJSON(w, ErrorResponse{Error: message}, statusCode)
}

// RespondErrorWithCode writes an error body carrying one of the Code*
// constants alongside the message.
func RespondErrorWithCode(w http.ResponseWriter, message string, code string, statusCode int) {
	RespondJSON(w, ErrorResponse{Error: message, Code: code}, statusCode)
}
