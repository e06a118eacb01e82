package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoverAsError(t *testing.T) {
	t.Run("recovers from panic", func(t *testing.T) {
		fn := func() (err error) {
			defer RecoverAsError(&err)
			panic("test panic")
		}

		err := fn()
		var panicErr *PanicError
		require.ErrorAs(t, err, &panicErr)
		assert.Equal(t, "test panic", panicErr.Value)
		assert.NotEmpty(t, panicErr.StackTrace)
		assert.Equal(t, "panic: test panic", err.Error())
	})

	t.Run("preserves original error", func(t *testing.T) {
		original := errors.New("original error")
		fn := func() (err error) {
			defer RecoverAsError(&err)
			return original
		}
		assert.Same(t, original, fn())
	})
}

func TestRecoverWithCallback(t *testing.T) {
	var got error
	func() {
		defer RecoverWithCallback(func(err error) { got = err })
		panic(42)
	}()
	var panicErr *PanicError
	require.ErrorAs(t, got, &panicErr)
	assert.Equal(t, 42, panicErr.Value)

	assert.NotPanics(t, func() {
		defer RecoverWithCallback(nil)
		panic("ignored")
	})
}

func TestGuard(t *testing.T) {
	err := Guard(func() error { panic("boom") })()
	var panicErr *PanicError
	assert.ErrorAs(t, err, &panicErr)

	sentinel := errors.New("plain")
	assert.ErrorIs(t, Guard(func() error { return sentinel })(), sentinel)
	assert.NoError(t, Guard(func() error { return nil })())
}
