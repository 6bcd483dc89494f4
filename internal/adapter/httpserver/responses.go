package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/fairyhunter13/ai-interview-trainer/internal/domain"
)

var errInternal = fmt.Errorf("%w: unexpected failure", domain.ErrInternal)

type errorEnvelope struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorStatus maps the error taxonomy onto an HTTP status, a stable code and
// a message safe to show the user.
func errorStatus(err error) (int, string, string) {
	msg := safeMessage(err)
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest, "INVALID_ARGUMENT", msg
	case errors.Is(err, domain.ErrConfig):
		return http.StatusServiceUnavailable, "CONFIG", msg
	case errors.Is(err, domain.ErrNetwork):
		return http.StatusBadGateway, "UPSTREAM", msg
	case errors.Is(err, domain.ErrParse):
		return http.StatusBadGateway, "PARSE", msg
	default:
		return http.StatusInternalServerError, "INTERNAL", msg
	}
}

// safeMessage never leaks vendor bodies or keys: user errors carry their own
// message, invalid arguments describe the request, anything else is generic.
func safeMessage(err error) string {
	var ue *domain.UserError
	if errors.As(err, &ue) {
		return ue.Message
	}
	if errors.Is(err, domain.ErrInvalidArgument) {
		return err.Error()
	}
	return http.StatusText(http.StatusInternalServerError)
}

func writeError(w http.ResponseWriter, _ *http.Request, err error, details any) {
	status, code, msg := errorStatus(err)
	writeJSON(w, status, errorEnvelope{Error: apiError{Code: code, Message: msg, Details: details}})
}
