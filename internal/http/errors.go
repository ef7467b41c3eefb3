package http

import (
	"errors"
	"net/http"

	"spendwise/internal/assistant"
	"spendwise/internal/auth"
	"spendwise/internal/core"
	"spendwise/internal/llm"
	applog "spendwise/internal/log"
	"spendwise/internal/services"
)

// writeServiceError maps a service error onto a JSON error response.
// notFound is the message used for core.ErrNotFound.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	switch {
	case core.IsValidation(err):
		BadRequestError(validationMessage(err)).Write(w)
	case errors.Is(err, services.ErrIncorrectPassword):
		BadRequestError("Current password is incorrect").Write(w)
	case errors.Is(err, auth.ErrInvalidCredentials):
		UnauthorizedError("Invalid credentials").Write(w)
	case errors.Is(err, core.ErrNotFound):
		NotFoundError(notFound).Write(w)
	case errors.Is(err, core.ErrDuplicate):
		ConflictError(conflictMessage(r)).Write(w)
	default:
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldErrorType, applog.ErrorTypeInternal,
			applog.FieldError, err.Error())
		InternalServerError("Internal server error").Write(w)
	}
}

// validationMessage unwraps to the innermost validation error so clients
// see the rule that failed, not the call chain.
func validationMessage(err error) string {
	var v *core.ValidationError
	if errors.As(err, &v) {
		return v.Error()
	}
	return err.Error()
}

func conflictMessage(r *http.Request) string {
	if r.URL.Path == "/api/auth/signup" {
		return "User already exists"
	}
	return "Budget already exists for this category and month"
}

// writeRequestError reports a body or path that could not be decoded.
func writeRequestError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBodyTooLarge):
		ErrorResponse(http.StatusRequestEntityTooLarge, "Request body too large").Write(w)
	case errors.Is(err, errEmptyBody):
		BadRequestError("Request body is required").Write(w)
	case errors.Is(err, errInvalidID):
		BadRequestError("Invalid id").Write(w)
	default:
		BadRequestError("Invalid JSON body").Write(w)
	}
}

// assistantStatus picks the response for a failed assistant call.
func assistantStatus(err error) (int, string) {
	if errors.Is(err, assistant.ErrEmptyMessage) {
		return http.StatusBadRequest, "Message is required"
	}
	if errors.Is(err, assistant.ErrDataUnavailable) {
		return http.StatusInternalServerError, "Could not load your financial data"
	}
	switch llm.KindOf(err) {
	case llm.KindRateLimited:
		return http.StatusTooManyRequests, "AI service rate limit exceeded. Please try again later."
	case llm.KindPermissionDenied:
		return http.StatusForbidden, "AI service access denied"
	case llm.KindModelUnavailable:
		return http.StatusServiceUnavailable, "AI model is currently unavailable"
	case llm.KindInvalidCredential:
		return http.StatusInternalServerError, "AI service is not configured correctly"
	}
	return http.StatusInternalServerError, "Failed to get AI response"
}
