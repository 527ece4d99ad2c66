package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	t.Run("matches direct code", func(t *testing.T) {
		err := New(CodeNotFound, "missing")
		assert.True(t, HasCode(err, CodeNotFound))
		assert.False(t, HasCode(err, CodeInternal))
	})

	t.Run("matches through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("lookup: %w", New(CodeUnauthorized, "no token"))
		assert.True(t, HasCode(err, CodeUnauthorized))
	})

	t.Run("matches inner code of nested domain errors", func(t *testing.T) {
		inner := New(CodeTimeout, "slow")
		outer := Wrap(inner, CodeInternal, "evaluate")
		assert.True(t, HasCode(outer, CodeTimeout))
		assert.True(t, HasCode(outer, CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(outer))
	})

	t.Run("plain errors have no code", func(t *testing.T) {
		err := errors.New("boom")
		assert.False(t, HasCode(err, CodeInternal))
		assert.False(t, Is(err))
		assert.Equal(t, CodeInternal, CodeOf(err))
	})
}

func TestErrorMessage(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeUnavailable, "read classification")
	assert.Equal(t, "read classification: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
}
