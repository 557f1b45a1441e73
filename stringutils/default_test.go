package stringutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLeftJust(t *testing.T) {
	assert.Equal(t, "VERSION   ", LeftJust("VERSION", " ", 10))
	assert.Equal(t, "CONFIGURATION", LeftJust("CONFIGURATION", " ", 10))
	assert.Equal(t, "LOG", LeftJust("LOG", "", 10))
}
