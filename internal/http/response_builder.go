package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"txdash/internal/core"
	"txdash/internal/log"
	"txdash/internal/middleware/trace"
)

// errNotLoaded is returned by dataset-backed endpoints before the first load.
var errNotLoaded = errors.New("dataset not loaded yet")

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// errorStatus maps domain errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, core.ErrUnknownDimension),
		errors.Is(err, core.ErrInvalidSelection),
		errors.Is(err, core.ErrUnknownInterval),
		errors.Is(err, core.ErrNoTimestamps),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, errBadFilter):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrUnknownVariant):
		return http.StatusNotFound
	case errors.Is(err, errNotLoaded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"encoding failed"}`, http.StatusInternalServerError)
		return
	}
	writeRawJSON(w, status, body)
}

func writeRawJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeError logs server-side failures and returns a JSON error. Client
// errors carry the message; internal ones do not.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	logger := log.FromContext(r.Context())

	msg := err.Error()
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		logger.ErrorContext(r.Context(), "Request failed", log.FieldError, err, log.FieldPath, r.URL.Path)
		msg = http.StatusText(status)
	} else {
		logger.DebugContext(r.Context(), "Request rejected", log.FieldError, err, log.FieldStatusCode, status)
	}

	writeJSON(w, status, errorBody{Error: msg, RequestID: trace.GetRequestID(r.Context())})
}
