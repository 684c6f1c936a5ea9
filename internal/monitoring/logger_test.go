package monitoring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")
	assert.True(t, called, "custom logger was not called")

	// nil installs a no-op logger
	called = false
	SetLogger(nil)
	assert.NotPanics(t, func() { Logf("test message") })
	assert.False(t, called, "no-op logger should not reach the previous logger")
}

func TestLogf_Default(t *testing.T) {
	assert.NotNil(t, Logf, "Logf should not be nil by default")
	assert.NotPanics(t, func() { Logf("test message: %s", "value") })
}

func TestDebugf(t *testing.T) {
	original := Logf
	defer func() {
		Logf = original
		SetDebug(false)
	}()

	var lines []string
	SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})

	SetDebug(false)
	Debugf("hidden %d", 1)
	assert.Empty(t, lines)
	assert.False(t, DebugEnabled())

	SetDebug(true)
	Debugf("shown %d", 2)
	assert.True(t, DebugEnabled())
	assert.Equal(t, []string{"[debug] shown 2"}, lines)
}
