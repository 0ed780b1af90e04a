package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMalformedIDsAreNotFound(t *testing.T) {
	ctx := context.Background()

	// A nil pool proves the lookup never reaches the database.
	motion, err := NewMotionRepository(nil).FindByID(ctx, "abc")
	require.NoError(t, err)
	assert.Nil(t, motion)

	plenum, err := NewPlenumRepository(nil).FindByID(ctx, "42")
	require.NoError(t, err)
	assert.Nil(t, plenum)

	assert.True(t, IsID("0b9a5c4e-6f62-4d0e-9f3b-5d2a7a1c9e10"))
	assert.False(t, IsID(""))
}
