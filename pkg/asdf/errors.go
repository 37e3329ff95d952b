package asdf

import "fmt"

// ErrorCode classifies a validation failure. Every code is terminal for the
// run, there is no retry or recovery.
type ErrorCode string

const (
	PathNotFound                 = ErrorCode("PathNotFound")
	NotAFile                     = ErrorCode("NotAFile")
	NotAContainerFile            = ErrorCode("NotAContainerFile")
	AttributeMissingOrMalformed  = ErrorCode("AttributeMissingOrMalformed")
	UnsupportedFormatMarker      = ErrorCode("UnsupportedFormatMarker")
	UnknownSchemaVersion         = ErrorCode("UnknownSchemaVersion")
	SchemaSelfInvalid            = ErrorCode("SchemaSelfInvalid")
	StructuralValidationFailure  = ErrorCode("StructuralValidationFailure")
	SubdocumentValidationFailure = ErrorCode("SubdocumentValidationFailure")
	ConsistencyViolation         = ErrorCode("ConsistencyViolation")
)

// ValidationError is the single diagnostic a failed run terminates with.
type ValidationError struct {
	Code    ErrorCode
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(code ErrorCode, format string, a ...any) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, a...)}
}
