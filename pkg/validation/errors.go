package validation

import "strings"

// Error codes carried in violation lists.
const (
	ErrCodeRequired = "required"
	ErrCodeType     = "type"
	ErrCodeSchema   = "schema"
	ErrCodeFormat   = "format"
)

// FieldError describes one violation found in a request body.
type FieldError struct {
	// Field is the dotted path to the offending field, empty for
	// document-level violations.
	Field string `json:"field,omitempty"`

	// Code is a stable machine-readable violation class.
	Code string `json:"code"`

	// Message is the human-readable explanation.
	Message string `json:"message"`
}

// Result aggregates the outcome of validating one request.
type Result struct {
	Valid  bool          `json:"valid"`
	Errors []*FieldError `json:"errors,omitempty"`

	// Skipped is set when the schema could not be compiled and
	// validation was bypassed rather than failing the request.
	Skipped bool `json:"-"`
}

// AddError records a violation and marks the result invalid.
func (r *Result) AddError(e *FieldError) {
	r.Valid = false
	r.Errors = append(r.Errors, e)
}

// fieldFromPointer converts a JSON Pointer instance location to dotted
// field notation: "/items/0/name" becomes "items.0.name".
func fieldFromPointer(ptr string) string {
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return ""
	}
	return strings.ReplaceAll(ptr, "/", ".")
}
