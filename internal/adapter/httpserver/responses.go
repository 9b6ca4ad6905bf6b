// Package httpserver contains the REST API handlers and middleware: data
// source management, ingestion triggering, and price movement analysis. It
// keeps HTTP concerns out of the use case layer.
package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/fairyhunter13/freight-price-movement-agent/internal/domain"
)

type errorEnvelope struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusForKind maps the error taxonomy onto HTTP statuses. Data source and
// circuit failures surface as 503 so clients know to back off; integration
// failures (rates upstream) are a 502 because the fault is behind us.
func statusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusUnprocessableEntity
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindDataSource, domain.KindCircuitOpen:
		return http.StatusServiceUnavailable
	case domain.KindIntegration:
		return http.StatusBadGateway
	case domain.KindAuthentication:
		return http.StatusUnauthorized
	case domain.KindAuthorization:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, _ *http.Request, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		writeJSON(w, http.StatusInternalServerError, errorEnvelope{Error: apiError{
			Code:    "FPMA-INTERNAL",
			Message: "internal error",
		}})
		return
	}
	if de.Kind == domain.KindCircuitOpen {
		if v, ok := de.Details["remaining_seconds"]; ok {
			w.Header().Set("Retry-After", fmt.Sprint(v))
		}
	}
	writeJSON(w, statusForKind(de.Kind), errorEnvelope{Error: apiError{
		Code:    de.Code(),
		Message: de.Message,
		Details: de.Details,
	}})
}
