package app

import (
	"fmt"

	"github.com/gekko3d/lumen/core"
)

// Options configures the renderer at startup. Validation is fatal: a bad
// grid or cascade configuration refuses to start rather than clamping.
type Options struct {
	Title  string
	Width  uint32
	Height uint32

	Grid     core.GridConfig
	Cascades core.CascadeConfig
	Contact  core.ContactShadowConfig

	// ShowHud enables the occupancy/timing overlay.
	ShowHud bool
	Debug   bool
	Log     core.Logger
}

func DefaultOptions() Options {
	return Options{
		Title:    "lumen",
		Width:    1280,
		Height:   720,
		Grid:     core.DefaultGridConfig(),
		Cascades: core.DefaultCascadeConfig(),
		Contact:  core.DefaultContactShadowConfig(),
		ShowHud:  true,
	}
}

func (o *Options) Validate() error {
	if o.Width == 0 || o.Height == 0 {
		return fmt.Errorf("options: viewport must be non-zero, got %dx%d", o.Width, o.Height)
	}
	if err := o.Grid.Validate(); err != nil {
		return err
	}
	if err := o.Cascades.Validate(); err != nil {
		return err
	}
	if err := o.Contact.Validate(); err != nil {
		return err
	}
	return nil
}
