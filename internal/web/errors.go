package web

// errors.go provides unified error response handling for the web layer.
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls s.fail(w, r, err), which picks the status via statusFor
//  3. Error is mapped via intake.MapError to get a user-friendly message
//  4. Technical error + context is logged with request and session ids
//  5. User message is returned as JSON

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/JonMunkholm/lca-intake/internal/export"
	"github.com/JonMunkholm/lca-intake/internal/intake"
	"github.com/JonMunkholm/lca-intake/internal/logging"
)

var (
	errRateLimited    = errors.New("rate limit exceeded")
	errInvalidBody    = errors.New("invalid request body")
	errUnknownFormat  = errors.New("unknown export format")
	errMissingCSVFile = errors.New("invalid csv: no file in request")
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
}

// fail responds with the status that matches err.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}
	respondError(w, r, err, status)
}

// respondError logs the technical error server-side and returns the
// user-facing message as JSON.
func respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := intake.MapError(err)

	logger := logging.FromContext(r.Context())
	args := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	}
	if statusCode >= http.StatusInternalServerError {
		logger.Error("request error", args...)
	} else {
		logger.Info("request rejected", args...)
	}

	resp := ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	}
	var subErr *intake.SubmissionError
	if errors.As(err, &subErr) {
		resp.Field = subErr.Field
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var subErr *intake.SubmissionError
	switch {
	case errors.As(err, &subErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, intake.ErrSessionNotFound),
		errors.Is(err, intake.ErrRowNotFound),
		errors.Is(err, intake.ErrEntryNotFound):
		return http.StatusNotFound
	case errors.Is(err, intake.ErrTooManySessions),
		errors.Is(err, export.ErrCapabilityLoading),
		errors.Is(err, export.ErrCapabilityFailed),
		errors.Is(err, export.ErrTooManyExports):
		return http.StatusServiceUnavailable
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	case isTooLarge(err):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, intake.ErrUnknownSection),
		errors.Is(err, intake.ErrUnknownMode),
		errors.Is(err, intake.ErrModeDisabled),
		errors.Is(err, intake.ErrUnknownUnit),
		errors.Is(err, intake.ErrUnknownField),
		errors.Is(err, intake.ErrInvalidValue),
		errors.Is(err, errInvalidBody),
		errors.Is(err, errUnknownFormat):
		return http.StatusBadRequest
	}
	// Import parse failures carry no sentinel; their codes come from the text.
	if code := intake.MapError(err).Code; len(code) > 3 && code[:3] == "IMP" {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
