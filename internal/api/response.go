package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/BTreeMap/Healora/internal/models"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Pre-marshaled fallback responses to avoid runtime JSON encoding failures
var (
	fallbackErrorResponse []byte
)

func init() {
	var err error
	fallbackErrorResponse, err = json.Marshal(models.Error("Internal server error"))
	if err != nil {
		panic(fmt.Sprintf("Failed to marshal fallback error response at startup: %v", err))
	}
}

// writeJSONResponse writes a JSON response to the http.ResponseWriter with the given status code.
func writeJSONResponse(w http.ResponseWriter, statusCode int, response interface{}) {
	// Marshal first so encoding errors surface before headers are written.
	jsonData, err := json.Marshal(response)
	if err != nil {
		slog.Error("Server.writeJSONResponse: failed to marshal JSON response", "error", err)
		jsonData = fallbackErrorResponse
		statusCode = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, writeErr := w.Write(jsonData); writeErr != nil {
		slog.Error("Server.writeJSONResponse: failed to write JSON response", "error", writeErr)
	}
}

// decodeJSON reads a single JSON value into v. An empty body leaves v untouched;
// trailing data after the value is rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Body == nil {
		return true
	}
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	err := dec.Decode(v)
	if errors.Is(err, io.EOF) {
		return true
	}
	if err == nil {
		// The body must hold exactly one JSON value.
		if err = dec.Decode(&struct{}{}); errors.Is(err, io.EOF) {
			return true
		}
		if err == nil {
			err = errors.New("unexpected data after JSON body")
		}
	}
	slog.Warn("Server.decodeJSON: failed to decode JSON", "path", r.URL.Path, "error", err)
	writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
	return false
}

// writeSessionError maps session lookup failures onto HTTP responses.
func writeSessionError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, models.ErrSessionNotFound) {
		slog.Warn("Server: session not found", "path", r.URL.Path, "session_id", r.PathValue("id"))
		writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
		return
	}
	slog.Error("Server: session action failed", "path", r.URL.Path, "error", err)
	writeJSONResponse(w, http.StatusInternalServerError, models.Error("Internal server error"))
}
