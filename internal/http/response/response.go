// Package response renders the uniform JSON envelope every handler uses,
// mapping an *apperr.Error to both its HTTP status and the
// {error, message, details} body shape of spec §6.
package response

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/hostplane/controlplane/internal/apperr"
)

// Envelope is the body every error response carries.
type Envelope struct {
	Err     string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Error renders err as the uniform envelope. Non-*apperr.Error values are
// reported as Internal with a generic message: err's text is never leaked
// to the client.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperr.As(err)
	if !ok {
		appErr = apperr.Wrap(apperr.Internal, "internal error", err)
	}
	render.Status(r, appErr.Status())
	render.JSON(w, r, Envelope{Err: string(appErr.Kind), Message: appErr.Message, Details: appErr.Details})
}

// ValidationError renders a 400 envelope summarizing validator failures
// into one human-readable message per field.
func ValidationError(w http.ResponseWriter, r *http.Request, errs validator.ValidationErrors) {
	var msgs []string
	for _, fe := range errs {
		switch fe.ActualTag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("field %s is required", fe.Field()))
		case "email":
			msgs = append(msgs, fmt.Sprintf("field %s must be a valid email", fe.Field()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("field %s is below the minimum length", fe.Field()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("field %s exceeds the maximum length", fe.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("field %s is invalid", fe.Field()))
		}
	}
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, Envelope{Err: string(apperr.Validation), Message: strings.Join(msgs, ", ")})
}

// JSON renders status and data as a successful response body.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	render.Status(r, status)
	render.JSON(w, r, data)
}
