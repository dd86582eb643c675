package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	cause := fmt.Errorf("boom")
	assert.Equal(t, "[SCHEMA] missing column", NewAppError(ErrTypeSchema, "missing column", nil).Error())
	assert.Equal(t, "[SOURCE] fetch failed: boom", NewSourceError("fetch failed", cause).Error())
}

func TestAppError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := fmt.Errorf("wrapped: %w", NewParsingError("bad date", cause))

	assert.True(t, errors.Is(err, cause))

	var appErr *AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, ErrTypeParsing, appErr.Type)
}

func TestTypeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"schema", NewSchemaError("registry", "expected 16 columns"), ErrTypeSchema},
		{"join key", NewJoinKeyError("1001", 2), ErrTypeJoinKey},
		{"wrapped record", fmt.Errorf("row 4: %w", NewRecordError("bad count", nil)), ErrTypeRecord},
		{"unavailable", NewUnavailableError("no snapshot"), ErrTypeUnavailable},
		{"plain", fmt.Errorf("plain"), ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TypeOf(tt.err))
		})
	}
}

func TestConstructors_Context(t *testing.T) {
	schemaErr := NewSchemaError("dispatch", "missing Service")
	assert.Equal(t, "dispatch", schemaErr.Context["table"])

	keyErr := NewJoinKeyError("1001", 3)
	assert.Equal(t, "1001", keyErr.Context["order_id"])
	assert.Equal(t, 3, keyErr.Context["count"])
	assert.Contains(t, keyErr.Message, "1001")

	assert.True(t, IsType(NewNotFoundError("table"), ErrTypeNotFound))
	assert.Equal(t, "table not found", NewNotFoundError("table").Message)
}
