package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuardOpenWithoutSecret(t *testing.T) {
	g := NewGuard("")
	assert.False(t, g.Required())
	assert.NoError(t, g.Authorize(""))
	assert.NoError(t, g.Authorize("anything"))
}

func TestGuardWithSecret(t *testing.T) {
	g := NewGuard("rahasia")
	assert.True(t, g.Required())

	assert.NoError(t, g.Authorize("rahasia"))
	assert.ErrorIs(t, g.Authorize(""), ErrUnauthorized)
	assert.ErrorIs(t, g.Authorize("wrong"), ErrUnauthorized)
	assert.ErrorIs(t, g.Authorize("Rahasia"), ErrUnauthorized)
	assert.ErrorIs(t, g.Authorize("rahasia "), ErrUnauthorized)
}
