// Package lumen is a clustered forward lighting and shadowing renderer:
// per-cluster GPU light culling, cascaded directional shadow maps with PCF
// and screen-space contact shadows, on top of wgpu.
package lumen

import (
	"github.com/gekko3d/lumen/app"
	"github.com/gekko3d/lumen/core"
)

type (
	Options    = app.Options
	App        = app.App
	Frame      = app.Frame
	UpdateFunc = app.UpdateFunc
	Sun        = app.Sun

	Camera   = core.Camera
	Light    = core.Light
	Mesh     = core.Mesh
	MeshId   = core.MeshId
	DrawItem = core.DrawItem
)

const (
	LightPoint = core.LightPoint
	LightSpot  = core.LightSpot
)

func DefaultOptions() Options { return app.DefaultOptions() }

func CubeMesh() *Mesh { return core.CubeMesh() }

func PlaneMesh(half float32) *Mesh { return core.PlaneMesh(half) }

// Run opens a window, calls setup once for mesh registration, then drives
// update every frame until the window closes.
func Run(opts Options, setup func(*App) error, update UpdateFunc) error {
	a, err := app.New(opts)
	if err != nil {
		return err
	}
	defer a.Close()
	if setup != nil {
		if err := setup(a); err != nil {
			return err
		}
	}
	return a.Run(update)
}
