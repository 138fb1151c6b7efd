// Helper functions for sending standardized JSON responses.

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bookdl/bookdl-go/internal/backend"
)

// RespondWithJSON writes a JSON response with the given status code and payload.
func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to marshal response")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// RespondWithError writes a standardized JSON error response.
func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithGatewayError converts a normalized gateway error into a JSON
// error response: validation failures are the caller's fault, backend
// rejections keep their status, transport failures read as a bad gateway.
// The message string is surfaced to the UI as-is.
func respondWithGatewayError(w http.ResponseWriter, err error) {
	var vErr *backend.ValidationError
	var httpErr *backend.HTTPError
	var netErr *backend.NetworkError
	switch {
	case errors.As(err, &vErr):
		RespondWithError(w, http.StatusBadRequest, vErr.Error())
	case errors.As(err, &httpErr):
		RespondWithError(w, httpErr.StatusCode, httpErr.Error())
	case errors.As(err, &netErr):
		RespondWithError(w, http.StatusBadGateway, netErr.Error())
	default:
		RespondWithError(w, http.StatusInternalServerError, err.Error())
	}
}
