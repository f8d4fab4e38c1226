package http

import (
	"errors"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"finanze/internal/core"
	"finanze/internal/log"
)

const (
	msgNotFound = "Record not found or you don't have permission to modify it."
	msgInternal = "Something went wrong. Please try again later."
)

// userMessage maps a service error to the text shown to the user. Storage
// details never leave this function.
func userMessage(err error) string {
	var verr *core.ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &verr):
		return sentence(verr.Msg)
	case errors.Is(err, core.ErrNotFound), errors.Is(err, core.ErrForbidden):
		return msgNotFound
	case errors.Is(err, core.ErrDuplicateName):
		return "A category with this name already exists."
	case errors.Is(err, core.ErrOverlap):
		return "A budget for this category already exists for an overlapping period."
	case errors.Is(err, core.ErrInUse):
		return "Cannot delete category: it is used by existing transactions."
	case errors.Is(err, core.ErrInvalidCredentials):
		return "Invalid username or password."
	}
	return msgInternal
}

// statusFor picks the HTTP status used when an error is answered directly.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrNotFound), errors.Is(err, core.ErrForbidden):
		return http.StatusNotFound
	case errors.Is(err, core.ErrDuplicateName), errors.Is(err, core.ErrOverlap), errors.Is(err, core.ErrInUse):
		return http.StatusConflict
	case errors.Is(err, core.ErrInvalidCredentials):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// expected reports whether err is a domain outcome rather than a failure worth an error log.
func expected(err error) bool {
	return statusFor(err) != http.StatusInternalServerError
}

// logFailure records unexpected errors with their full detail.
func (s *Server) logFailure(r *http.Request, component, operation string, err error) {
	if err == nil || expected(err) {
		return
	}
	fields := log.NewFields().WithErrorType(log.ErrorTypeInternal)
	if errors.Is(err, core.ErrPersistence) {
		fields.WithErrorType(log.ErrorTypeDatabase)
	}
	if id, ok := identity(r); ok {
		fields.WithUser(id.UserID)
	}
	s.events.LogError(r.Context(), "Request failed", err, component, operation, fields)
}

func sentence(s string) string {
	s = strings.TrimSpace(s)
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	out := string(unicode.ToUpper(r)) + s[size:]
	if !strings.HasSuffix(out, ".") {
		out += "."
	}
	return out
}
