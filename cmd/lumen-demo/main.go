// Demo scene: a floor plane, a grid of cubes and a ring of moving point and
// spot lights under a directional sun.
package main

import (
	"fmt"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/lumen"
	"github.com/gekko3d/lumen/core"
)

func main() {
	opts := lumen.DefaultOptions()
	opts.Title = "lumen demo"
	opts.Debug = os.Getenv("LUMEN_DEBUG") != ""

	var floor, cube core.MeshId

	setup := func(a *lumen.App) error {
		var err error
		if floor, err = a.RegisterMesh(lumen.PlaneMesh(40)); err != nil {
			return err
		}
		if cube, err = a.RegisterMesh(lumen.CubeMesh()); err != nil {
			return err
		}
		return nil
	}

	update := func(f *lumen.Frame) {
		f.Draws.Submit(core.DrawItem{
			Mesh:      floor,
			Transform: mgl32.Ident4(),
			Color:     mgl32.Vec3{0.45, 0.45, 0.5},
		})
		for x := -3; x <= 3; x++ {
			for z := -3; z <= 3; z++ {
				f.Draws.Submit(core.DrawItem{
					Mesh:      cube,
					Transform: mgl32.Translate3D(float32(x)*4, 0.5, float32(z)*4),
					Color:     mgl32.Vec3{0.7, 0.55, 0.4},
				})
			}
		}

		t := float32(f.Time)
		for i := 0; i < 24; i++ {
			ang := t*0.3 + float32(i)/24*2*math.Pi
			f.Lights.Submit(core.Light{
				Type:      core.LightPoint,
				Position:  mgl32.Vec3{12 * cos32(ang), 1.5, 12 * sin32(ang)},
				Color:     mgl32.Vec3{0.5 + 0.5*cos32(ang), 0.6, 1 - 0.5*cos32(ang)},
				Intensity: 4,
				Radius:    6,
			})
		}
		f.Lights.Submit(core.Light{
			Type:       core.LightSpot,
			Position:   mgl32.Vec3{0, 8, 0},
			Direction:  mgl32.Vec3{0, -1, 0.1},
			Color:      mgl32.Vec3{1, 1, 0.8},
			Intensity:  12,
			Radius:     20,
			InnerAngle: 0.3,
			OuterAngle: 0.5,
		})
	}

	if err := lumen.Run(opts, setup, update); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func cos32(v float32) float32 { return float32(math.Cos(float64(v))) }
func sin32(v float32) float32 { return float32(math.Sin(float64(v))) }
