package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrom(t *testing.T) {
	assert := assert.New(t)

	assert.NotPanics(func() { _ = Language().String() })
	assert.Equal("cpu 2 ip 0x0010", From("cpu %d ip 0x%04x", 2, 0x10))
	assert.Equal("no arguments", From("no arguments"))
}
