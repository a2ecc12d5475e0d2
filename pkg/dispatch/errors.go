package dispatch

import (
	"fmt"
	"net/http"

	"github.com/fauxapi/fauxd/pkg/validation"
)

// NotFoundError is returned when no operation matches or no stored
// state exists for the request.
type NotFoundError struct {
	Method string
	Path   string
	Detail string

	// Known lists routable operations, included when the miss was a
	// routing miss rather than a state miss.
	Known []string
}

func (e *NotFoundError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("no operation matches %s %s", e.Method, e.Path)
}

func (e *NotFoundError) StatusCode() int {
	return http.StatusNotFound
}

// ValidationFailedError carries the violation list for a rejected body.
type ValidationFailedError struct {
	Violations []*validation.FieldError
}

func (e *ValidationFailedError) Error() string {
	return fmt.Sprintf("request body failed validation with %d violation(s)", len(e.Violations))
}

func (e *ValidationFailedError) StatusCode() int {
	return http.StatusBadRequest
}

// BadRequestError covers malformed input outside schema validation,
// such as a body that is not JSON or an unparsable filter expression.
type BadRequestError struct {
	Detail string
}

func (e *BadRequestError) Error() string {
	return e.Detail
}

func (e *BadRequestError) StatusCode() int {
	return http.StatusBadRequest
}

// SynthesisError is the terminal failure: synthesis panicked and the
// generic fallback could not be built either.
type SynthesisError struct {
	Operation string
	Cause     any
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis failed for %s: %v", e.Operation, e.Cause)
}

func (e *SynthesisError) StatusCode() int {
	return http.StatusInternalServerError
}

// StatusCodeError is implemented by every dispatch error.
type StatusCodeError interface {
	error
	StatusCode() int
}

// errorResponse renders a dispatch error as a response descriptor.
func errorResponse(err error) *Response {
	body := map[string]any{
		"error":   "internal error",
		"message": err.Error(),
	}
	status := http.StatusInternalServerError

	switch e := err.(type) {
	case *NotFoundError:
		status = e.StatusCode()
		body["error"] = "not found"
		if len(e.Known) > 0 {
			body["knownOperations"] = e.Known
		}
	case *ValidationFailedError:
		status = e.StatusCode()
		body["error"] = "validation failed"
		body["violations"] = e.Violations
	case *BadRequestError:
		status = e.StatusCode()
		body["error"] = "bad request"
	case *SynthesisError:
		body["error"] = "synthesis failed"
	}

	return &Response{StatusCode: status, Body: body}
}
