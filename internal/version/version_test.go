package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	assert.Equal(t, "blink-replay dev (commit unknown, built unknown)", String("blink-replay"))
}
