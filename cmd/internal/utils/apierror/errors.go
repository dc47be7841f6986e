package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrorResponse abstracts all API error responses to the user.
//
// This interface does not implement `error`, since its only purpose
// is to be used for API responses and not for logging circumstances.
//
// In general, the whole ErrorResponse can be sent for serialization.
type ErrorResponse interface {
	// Code is the HTTP status code to be returned.
	Code() int
}

// APIError is serialized as {"error": message}.
type APIError struct {
	Message string `json:"error"`
	Status  int    `json:"-"`
}

func (a *APIError) Code() int {
	return a.Status
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// StructuredError carries field level problems, in the order they were found.
type StructuredError struct {
	Errors []FieldError `json:"errors"`
	Status int          `json:"-"`
}

func (s *StructuredError) Code() int {
	return s.Status
}

func (s *StructuredError) Add(field, problem string) {
	s.Errors = append(s.Errors, FieldError{Field: field, Message: problem})
}

// Has reports whether any problem was recorded for the field.
func (s *StructuredError) Has(field string) bool {
	for _, e := range s.Errors {
		if e.Field == field {
			return true
		}
	}
	return false
}

var (
	MalformedBodyError  = NewSimple(400, "Malformed request body")
	InternalServerError = NewSimple(500, "Internal server error")

	NotFoundError     = NewSimple(404, "Resource not found")
	NoteNotFoundError = NewSimple(404, "Note not found")
	FileNotFoundError = NewSimple(404, "File not found")
	UserNotFoundError = NewSimple(404, "User not found")
	InvalidIDError    = NewSimple(400, "The provided ID is invalid")

	/*
	 * Uploads
	 */
	MissingNoteFileError = NewSimple(400, "File is required")
	MissingFileNameError = NewSimple(400, "File name is required")

	/*
	 * Used for authentications
	 */
	UnauthorizedError        = NewSimple(401, "Please authenticate")
	InvalidAuthTokenError    = NewSimple(401, "Please authenticate")
	AuthUserNotFoundError    = NewSimple(401, "User not found")
	CredentialsMismatchError = NewSimple(401, "Invalid credentials")
	NoteOwnershipError       = NewSimple(403, "Unauthorized to modify this note")
	NoteDeleteForbiddenError = NewSimple(403, "Unauthorized to delete this note")
)

func FromValidationError(err error) *StructuredError {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}

	problems := NewStructured(http.StatusBadRequest)
	for _, fe := range ve {
		field := fieldName(fe)

		switch fe.Tag() {
		case "required", "notblank":
			problems.Add(field, "This field is required")
		case "min":
			problems.Add(field, "Value is too short, min: "+fe.Param())
		case "max":
			problems.Add(field, "Value is too long, max: "+fe.Param())
		case "email":
			problems.Add(field, "Value must be a valid email address")
		case "mobile":
			problems.Add(field, "Value must be a valid mobile number")
		case "isodate":
			problems.Add(field, "Value must be a date formatted as YYYY-MM-DD")
		case "nodupes":
			problems.Add(field, "Value cannot contain duplicates")
		case "oneof":
			problems.Add(field, "Value must be one of: "+fe.Param())

		default:
			problems.Add(field, "Invalid value provided")
		}
	}
	return problems
}

// FromValidate maps the result of validator.Struct into an ErrorResponse,
// keeping a nil *StructuredError from leaking as a non-nil interface.
func FromValidate(err error) ErrorResponse {
	if err == nil {
		return nil
	}
	if se := FromValidationError(err); se != nil {
		return se
	}
	return InternalServerError
}

// fieldName prefers the json tag name registered on the validator, falling
// back to the lower-cased struct field.
func fieldName(fe validator.FieldError) string {
	if name := fe.Field(); name != "" && name != fe.StructField() {
		return name
	}
	s := fe.StructField()
	if s == "" {
		return ""
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func NewSimple(status int, msg string, args ...any) *APIError {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	return &APIError{Status: status, Message: msg}
}

func NewStructured(code int) *StructuredError {
	return &StructuredError{
		Errors: []FieldError{},
		Status: code,
	}
}

// NewValidationError is a shortcut for a single field problem.
func NewValidationError(field, problem string) *StructuredError {
	s := NewStructured(http.StatusBadRequest)
	s.Add(field, problem)
	return s
}

func NewInvalidParamTypeError(name, dataType string) *APIError {
	return NewSimple(http.StatusBadRequest, "Parameter '%s' has invalid type, expected: %s", name, dataType)
}

func NewMissingParamError(name string) *APIError {
	return NewSimple(http.StatusBadRequest, "Parameter '%s' is required", name)
}

func NewInvalidFileTypeError(ext string) *APIError {
	return NewSimple(http.StatusBadRequest, "Invalid file type '%s'. Only PDF, DOC, DOCX, TXT, PPT, PPTX are allowed.", ext)
}

func NewFileTooLargeError(maxBytes int64) *APIError {
	return NewSimple(http.StatusBadRequest, "File is too large, max size is %d bytes", maxBytes)
}
