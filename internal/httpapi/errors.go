package httpapi

import (
	"encoding/json"
	"net/http"

	"inferd/internal/cache"
	"inferd/internal/manager"
	"inferd/internal/selection"
	"inferd/pkg/types"
)

// statusFor maps the subsystem error taxonomy onto HTTP status codes.
// One kind, one code.
func statusFor(err error) int {
	switch {
	case manager.IsUnknownModel(err):
		return http.StatusNotFound
	case manager.IsDuplicateModel(err), manager.IsModelInUse(err):
		return http.StatusConflict
	case selection.IsUnknownPolicyKey(err):
		return http.StatusBadRequest
	case selection.IsNoModelAvailable(err):
		return http.StatusUnprocessableEntity
	case manager.IsLoadError(err):
		return http.StatusServiceUnavailable
	case manager.IsAdapterError(err):
		return http.StatusBadGateway
	case cache.IsCacheError(err):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage keeps backend detail (which may carry resource paths)
// out of responses for server-side failures; caller errors pass through.
func publicMessage(err error, status int) string {
	if status < http.StatusInternalServerError && status != http.StatusServiceUnavailable && status != http.StatusBadGateway {
		return err.Error()
	}
	switch {
	case manager.IsLoadError(err):
		return "model load failed"
	case manager.IsAdapterError(err):
		return "inference backend failed"
	case cache.IsCacheError(err):
		return "cache backend failed"
	default:
		return "internal error"
	}
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}
