package helper

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTest = errors.New("boom")

func TestNewError(t *testing.T) {
	t.Run("Nil error stays nil", func(t *testing.T) {
		assert.NoError(t, NewError("scan", nil))
	})

	t.Run("Error message contains trace and original", func(t *testing.T) {
		err := NewError("scan", errTest)
		require.Error(t, err)
		assert.Equal(t, "scan: boom", err.Error())
	})

	t.Run("Nested errors prepend the trace", func(t *testing.T) {
		err := NewError("select account", NewError("scan", errTest))
		assert.Equal(t, "select account: scan: boom", err.Error())

		var e *Error
		require.True(t, errors.As(err, &e))
		assert.Equal(t, []string{"select account", "scan"}, e.Trace)
	})

	t.Run("Original error is reachable with errors.Is", func(t *testing.T) {
		err := NewError("outer", NewError("inner", errTest))
		assert.ErrorIs(t, err, errTest)
	})
}
