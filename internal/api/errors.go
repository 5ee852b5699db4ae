package api

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/nerrad567/theatre-core/internal/device"
	"github.com/nerrad567/theatre-core/internal/theatre"
)

// Error is the body of every non-2xx response. Code is derived from
// Status so clients can branch on either.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeNotFound       = "not_found"
	ErrCodeMethodNotAllow = "method_not_allowed"
	ErrCodeConflict       = "conflict"
	ErrCodeInternal       = "internal_error"
	ErrCodeUnavailable    = "device_unavailable"
	ErrCodeRejected       = "device_rejected"
	ErrCodeTimeout        = "device_timeout"
)

var codeByStatus = map[int]string{
	http.StatusBadRequest:          ErrCodeBadRequest,
	http.StatusNotFound:            ErrCodeNotFound,
	http.StatusMethodNotAllowed:    ErrCodeMethodNotAllow,
	http.StatusConflict:            ErrCodeConflict,
	http.StatusBadGateway:          ErrCodeRejected,
	http.StatusServiceUnavailable:  ErrCodeUnavailable,
	http.StatusGatewayTimeout:      ErrCodeTimeout,
	http.StatusInternalServerError: ErrCodeInternal,
}

// statusFor maps a controller error onto an HTTP status. Precondition
// failures are the caller's problem (409); device failures are upstream
// problems (5xx).
func statusFor(err error) int {
	switch {
	case errors.Is(err, theatre.ErrDisplayOff), errors.Is(err, theatre.ErrWrongPictureMode):
		return http.StatusConflict
	case errors.Is(err, device.ErrUnavailable), errors.Is(err, device.ErrNotConnected):
		return http.StatusServiceUnavailable
	case errors.Is(err, device.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, device.ErrRejected):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v) // client may have gone away
}

// fail writes an Error body for status.
func fail(w http.ResponseWriter, status int, message string) {
	code, ok := codeByStatus[status]
	if !ok {
		code = ErrCodeInternal
	}
	writeJSON(w, status, Error{Status: status, Code: code, Message: message})
}
