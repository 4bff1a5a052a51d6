package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	t.Run("KeepsSentinel", func(t *testing.T) {
		wrapped := Wrap(ErrInvalidInput, "invalid credential name")

		assert.EqualError(t, wrapped, "invalid credential name: invalid input")
		assert.True(t, Is(wrapped, ErrInvalidInput))
		assert.False(t, Is(wrapped, ErrNotFound))
	})

	t.Run("Nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, "context"))
	})
}

func TestWrapf(t *testing.T) {
	t.Run("FormatsContext", func(t *testing.T) {
		wrapped := Wrapf(ErrNotFound, "%s not found", "canary")

		assert.EqualError(t, wrapped, "canary not found: not found")
		assert.True(t, errors.Is(wrapped, ErrNotFound))
	})

	t.Run("Nil", func(t *testing.T) {
		assert.NoError(t, Wrapf(nil, "%s", "context"))
	})
}

func TestWrap_Layers(t *testing.T) {
	domainErr := Wrap(ErrConfiguration, "no active encryption key configured")
	wrapped := Wrapf(domainErr, "key set %d", 2)

	assert.True(t, Is(wrapped, domainErr))
	assert.True(t, Is(wrapped, ErrConfiguration))
	assert.EqualError(t, wrapped, "key set 2: no active encryption key configured: configuration error")
}

func TestStandardErrors(t *testing.T) {
	tests := []struct {
		err  error
		text string
	}{
		{ErrNotFound, "not found"},
		{ErrConflict, "conflict"},
		{ErrInvalidInput, "invalid input"},
		{ErrConfiguration, "configuration error"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.EqualError(t, tt.err, tt.text)
		})
	}

	assert.EqualError(t, New("decryption failed"), "decryption failed")
	assert.False(t, Is(New("decryption failed"), ErrInvalidInput))
}
