package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetLevel(t *testing.T) {
	t.Cleanup(func() { SetLevel(LevelInfo) })

	SetLevel("debug")
	assert.True(t, Enabled(LevelDebug))

	SetLevel(" WARN ")
	assert.False(t, Enabled(LevelInfo))
	assert.True(t, Enabled(LevelWarn))
	assert.True(t, Enabled(LevelError))

	SetLevel("bogus")
	assert.True(t, Enabled(LevelInfo))
	assert.False(t, Enabled(LevelDebug))
}

func TestEnabledUnknownLevel(t *testing.T) {
	assert.False(t, Enabled("loud"))
}
