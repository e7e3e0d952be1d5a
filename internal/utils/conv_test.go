package utils

import (
	"errors"
	"testing"

	"commentservice/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	id, err := ParseID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"", "-1", "abc", "1.5"} {
		_, err := ParseID(bad)
		assert.True(t, errors.Is(err, apperr.ErrInvalidArgument), bad)
	}
}

func TestIntOrDefault(t *testing.T) {
	v, err := IntOrDefault("pageSize", "", DefaultPageSize)
	require.NoError(t, err)
	assert.Equal(t, DefaultPageSize, v)

	v, err = IntOrDefault("pageSize", "5", DefaultPageSize)
	require.NoError(t, err)
	assert.Equal(t, 5, v)

	_, err = IntOrDefault("pageSize", "five", DefaultPageSize)
	assert.True(t, errors.Is(err, apperr.ErrInvalidArgument))
}
