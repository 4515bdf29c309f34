// Package httputil holds the JSON response helpers shared by the profile
// API and the admin debug routes.
package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/banshee-data/sholl.report/internal/monitoring"
	"github.com/banshee-data/sholl.report/internal/security"
)

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		monitoring.Logf("failed to encode json response: %v", err)
	}
}

// WriteJSONOK writes v with 200 OK.
func WriteJSONOK(w http.ResponseWriter, v any) {
	WriteJSON(w, http.StatusOK, v)
}

// WriteJSONError writes {"error": msg} with the given status code.
func WriteJSONError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"error": msg})
}

func BadRequest(w http.ResponseWriter, msg string)    { WriteJSONError(w, http.StatusBadRequest, msg) }
func NotFound(w http.ResponseWriter, msg string)      { WriteJSONError(w, http.StatusNotFound, msg) }
func Unprocessable(w http.ResponseWriter, msg string) { WriteJSONError(w, http.StatusUnprocessableEntity, msg) }

// InternalServerError logs err and writes msg with 500.
func InternalServerError(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		monitoring.Logf("%s: %v", msg, err)
	}
	WriteJSONError(w, http.StatusInternalServerError, msg)
}

// SetAttachment marks the response as a download named after name, which is
// sanitised before it reaches the header.
func SetAttachment(w http.ResponseWriter, contentType, name string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", security.SanitizeFilename(name)))
}
