package app

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gekko3d/lumen/core"
	"github.com/gekko3d/lumen/gpu"
)

type captureLogger struct {
	warns []string
}

func (c *captureLogger) DebugEnabled() bool          { return false }
func (c *captureLogger) SetDebug(bool)               {}
func (c *captureLogger) Debugf(string, ...any)       {}
func (c *captureLogger) Infof(string, ...any)        {}
func (c *captureLogger) Errorf(string, ...any)       {}
func (c *captureLogger) Warnf(f string, args ...any) { c.warns = append(c.warns, fmt.Sprintf(f, args...)) }

func TestDrawListClampedToModelBufferCapacity(t *testing.T) {
	items := make([]core.DrawItem, gpu.MaxDrawsPerFrame+1)
	log := &captureLogger{}
	var warned bool

	got := clampDraws(items, log, &warned)
	assert.Len(t, got, gpu.MaxDrawsPerFrame,
		"draws past the model buffer capacity must be dropped, not uploaded")
	assert.Len(t, log.warns, 1)

	// Same overflow on later frames does not warn again.
	got = clampDraws(items, log, &warned)
	assert.Len(t, got, gpu.MaxDrawsPerFrame)
	assert.Len(t, log.warns, 1)
}

func TestDrawListUnderCapUntouched(t *testing.T) {
	items := make([]core.DrawItem, 10)
	log := &captureLogger{}
	var warned bool

	got := clampDraws(items, log, &warned)
	assert.Len(t, got, 10)
	assert.Empty(t, log.warns)

	// Exactly at the cap is still within the buffer.
	exact := make([]core.DrawItem, gpu.MaxDrawsPerFrame)
	got = clampDraws(exact, log, &warned)
	assert.Len(t, got, gpu.MaxDrawsPerFrame)
	assert.Empty(t, log.warns)
}
