package intutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMin(t *testing.T) {
	assert.Equal(t, 1, Min(3, 1, 2))
	assert.Equal(t, 5, Min(5))
	assert.Equal(t, -2, Min(0, -2, 4))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 5, Clamp(10, 0, 5))
	assert.Equal(t, 0, Clamp(-10, 0, 5))
	assert.Equal(t, 3, Clamp(3, 0, 5))
}
