package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	err := Wrap(errWrapped, "Hello, Wrapped!")
	require.Error(t, err)
	assert.Equal(t, "Hello, Wrapped!, err: wrapped error", err.Error())
	assert.True(t, Is(err, errWrapped))

	assert.NoError(t, Wrap(nil, "nothing"))
	assert.Equal(t, errWrapped, Wrap(errWrapped, ""))
}

func TestWrapf(t *testing.T) {
	err := Wrapf(errWrapped, "symbol: %s, size: %d", "rb2505", 552)
	assert.Equal(t, "symbol: rb2505, size: 552, err: wrapped error", err.Error())
	assert.True(t, Is(Wrap(err, "outer"), errWrapped))
	assert.NoError(t, Wrapf(nil, "symbol: %s", "rb2505"))
}

func TestJoin(t *testing.T) {
	other := New("other error")
	err := Join(Wrap(errWrapped, "first"), nil, other)
	assert.True(t, Is(err, errWrapped))
	assert.True(t, Is(err, other))
	assert.NoError(t, Join(nil, nil))
}
