package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "without cause",
			err:  NewAppValidationError("threshold out of range"),
			want: "[VALIDATION] threshold out of range",
		},
		{
			name: "with cause",
			err:  NewParsingError("bad line", fmt.Errorf("strconv: invalid syntax")),
			want: "[PARSING] bad line: strconv: invalid syntax",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestAppError_IsMatchesType(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"empty input", NewEmptyInputError("group_by"), ErrEmptyInput},
		{"zero total", NewZeroTotalError("2000/M"), ErrZeroTotal},
		{"empty group", NewEmptyGroupError("2000/F"), ErrEmptyGroup},
		{"unknown key", NewUnknownKeyError("year", 1910), ErrUnknownKey},
		{"not found", NewNotFoundError("yob1880.txt"), ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("analyze: %w", tt.err)
			assert.True(t, stderrors.Is(wrapped, tt.sentinel))
			assert.False(t, stderrors.Is(wrapped, ErrValidation))
		})
	}
}

func TestAppError_ContextNamesTrigger(t *testing.T) {
	err := NewZeroTotalError("1910/F")
	assert.Equal(t, "1910/F", err.Context["group"])
	assert.Contains(t, err.Error(), "1910/F")

	unknown := NewUnknownKeyError("key", "q")
	assert.Equal(t, "q", unknown.Context["key"])
	assert.Equal(t, "[UNKNOWN_KEY] key q not present", unknown.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	cause := stderrors.New("disk full")
	err := NewStorageError("write report", cause)

	require.ErrorIs(t, err, cause)

	var appErr *AppError
	require.True(t, stderrors.As(fmt.Errorf("export: %w", err), &appErr))
	assert.Equal(t, ErrTypeStorage, appErr.Type)
}

func TestAppError_WithContextOnNilMap(t *testing.T) {
	err := &AppError{Type: ErrTypeConfig, Message: "bad"}
	err.WithContext("field", "Analysis.Quantile")
	assert.Equal(t, "Analysis.Quantile", err.Context["field"])
}
