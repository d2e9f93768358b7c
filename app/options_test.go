package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gekko3d/lumen/core"
)

func TestDefaultOptionsValid(t *testing.T) {
	opts := DefaultOptions()
	assert.NoError(t, opts.Validate())
}

func TestOptionsRejectBadConfig(t *testing.T) {
	opts := DefaultOptions()
	opts.Width = 0
	assert.Error(t, opts.Validate(), "zero viewport must be fatal")

	opts = DefaultOptions()
	opts.Grid.TileSizePx = 0
	assert.Error(t, opts.Validate(), "zero tile size must be fatal")

	opts = DefaultOptions()
	opts.Grid.NumSlices = 0
	assert.Error(t, opts.Validate(), "zero slice count must be fatal")

	opts = DefaultOptions()
	opts.Cascades.Lambda = 2
	assert.Error(t, opts.Validate(), "lambda out of range must be fatal")

	opts = DefaultOptions()
	opts.Contact.Steps = 0
	assert.Error(t, opts.Validate(), "zero march steps must be fatal")
}

func TestOptionsDefaults(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, uint32(core.DefaultTileSizePx), opts.Grid.TileSizePx)
	assert.Equal(t, uint32(core.DefaultNumSlices), opts.Grid.NumSlices)
	assert.Equal(t, uint32(core.DefaultCascadeCount), opts.Cascades.Count)
	assert.Equal(t, uint32(core.DefaultContactSteps), opts.Contact.Steps)
}
