package errors

import (
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeParsing    ErrorType = "PARSING"
	ErrTypeStorage    ErrorType = "STORAGE"
	ErrTypeValidation ErrorType = "VALIDATION"
	ErrTypeNotFound   ErrorType = "NOT_FOUND"
	ErrTypeConfig     ErrorType = "CONFIG"

	// Aggregation engine failures
	ErrTypeEmptyInput ErrorType = "EMPTY_INPUT"
	ErrTypeZeroTotal  ErrorType = "ZERO_TOTAL"
	ErrTypeEmptyGroup ErrorType = "EMPTY_GROUP"
	ErrTypeUnknownKey ErrorType = "UNKNOWN_KEY"
)

// Sentinels for errors.Is. An *AppError matches a sentinel of the same type.
var (
	ErrEmptyInput = &AppError{Type: ErrTypeEmptyInput, Message: "no records to group"}
	ErrZeroTotal  = &AppError{Type: ErrTypeZeroTotal, Message: "group total is zero"}
	ErrEmptyGroup = &AppError{Type: ErrTypeEmptyGroup, Message: "group is empty"}
	ErrUnknownKey = &AppError{Type: ErrTypeUnknownKey, Message: "key not present"}
	ErrValidation = &AppError{Type: ErrTypeValidation, Message: "validation failed"}
	ErrNotFound   = &AppError{Type: ErrTypeNotFound, Message: "not found"}
	ErrParsing    = &AppError{Type: ErrTypeParsing, Message: "parsing failed"}
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches any AppError of the same type
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// NewParsingError creates a parsing-related error
func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewAppValidationError creates a validation error for AppError type
func NewAppValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound, fmt.Sprintf("%s not found", resource), nil)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// NewEmptyInputError reports grouping of a table without records
func NewEmptyInputError(operation string) *AppError {
	return NewAppError(ErrTypeEmptyInput, "no records to group", nil).
		WithContext("operation", operation)
}

// NewZeroTotalError reports normalization of a group or column whose total is zero
func NewZeroTotalError(group string) *AppError {
	return NewAppError(ErrTypeZeroTotal, fmt.Sprintf("total of %s is zero", group), nil).
		WithContext("group", group)
}

// NewEmptyGroupError reports a ranking or diversity request on an empty group
func NewEmptyGroupError(key string) *AppError {
	if key == "" {
		return NewAppError(ErrTypeEmptyGroup, "group is empty", nil)
	}
	return NewAppError(ErrTypeEmptyGroup, fmt.Sprintf("group %s is empty", key), nil).
		WithContext("group", key)
}

// NewUnknownKeyError reports a slice request for a value absent from a table.
// kind names the axis ("year", "category", "key").
func NewUnknownKeyError(kind string, value interface{}) *AppError {
	return NewAppError(ErrTypeUnknownKey, fmt.Sprintf("%s %v not present", kind, value), nil).
		WithContext(kind, value)
}
