package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"modelconsole/internal/inference"
	"modelconsole/internal/shell"
	"modelconsole/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg, kind string) {
	writeJSON(w, status, types.ErrorResponse{Success: false, Error: msg, Code: status, Kind: kind})
}

// writeError maps err to a status and writes it.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var he HTTPError
	switch {
	case errors.As(err, &he):
		status = he.StatusCode()
	case errors.Is(err, shell.ErrEmptyCommand):
		status = http.StatusBadRequest
	}
	kind := ""
	if k := inference.KindOf(err); k != inference.KindUnknown {
		kind = k.String()
		apiErrorsTotal.WithLabelValues(kind).Inc()
	}
	writeJSONError(w, status, err.Error(), kind)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
