package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/tuya-socket/internal/socket"
	"github.com/nerrad567/tuya-socket/internal/tuya"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest        = "bad_request"
	ErrCodeNotFound          = "not_found"
	ErrCodeInvalidOutlet     = "invalid_outlet"
	ErrCodeDeviceTimeout     = "device_timeout"
	ErrCodeDeviceUnreachable = "device_unreachable"
	ErrCodeDeviceError       = "device_error"
	ErrCodeInternal          = "internal_error"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeDeviceError maps a dispatcher or transport error onto the wire.
//
// Outlet validation failures are client errors; everything else happened
// on the device side and maps to a 5xx. The underlying message is passed
// through so a caller can see what the device or vendor API actually said.
func writeDeviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, socket.ErrInvalidOutlet):
		writeError(w, http.StatusBadRequest, ErrCodeInvalidOutlet, err.Error())
	case errors.Is(err, tuya.ErrCommandTimeout):
		writeError(w, http.StatusGatewayTimeout, ErrCodeDeviceTimeout, err.Error())
	case errors.Is(err, tuya.ErrDeviceUnreachable):
		writeError(w, http.StatusBadGateway, ErrCodeDeviceUnreachable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, ErrCodeDeviceError, err.Error())
	}
}
