package core

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

const DefaultContactSteps = 16

// ContactShadowConfig controls the screen-space contact shadow march.
type ContactShadowConfig struct {
	Steps     uint32  // fixed march step count
	RayLength float32 // world-space ray length
	Thickness float32 // depth window treated as an occluder surface
}

func DefaultContactShadowConfig() ContactShadowConfig {
	return ContactShadowConfig{Steps: DefaultContactSteps, RayLength: 0.5, Thickness: 0.25}
}

func (c ContactShadowConfig) Validate() error {
	if c.Steps == 0 {
		return fmt.Errorf("contact shadows: step count must be > 0")
	}
	if c.RayLength <= 0 {
		return fmt.Errorf("contact shadows: ray length must be > 0, got %v", c.RayLength)
	}
	if c.Thickness <= 0 {
		return fmt.Errorf("contact shadows: thickness must be > 0, got %v", c.Thickness)
	}
	return nil
}

// DepthSampler reads positive view-space depth at normalized screen
// coordinates. SceneDepthCopy readbacks and test fixtures implement it.
type DepthSampler interface {
	SampleDepth(u, v float32) float32
}

// DepthImage is a CPU-resident depth grid, nearest-sampled.
type DepthImage struct {
	Width  int
	Height int
	Pix    []float32
}

func NewDepthImage(w, h int, clear float32) *DepthImage {
	pix := make([]float32, w*h)
	for i := range pix {
		pix[i] = clear
	}
	return &DepthImage{Width: w, Height: h, Pix: pix}
}

func (d *DepthImage) Set(x, y int, depth float32) {
	d.Pix[y*d.Width+x] = depth
}

func (d *DepthImage) SampleDepth(u, v float32) float32 {
	x := int(u * float32(d.Width))
	y := int(v * float32(d.Height))
	if x < 0 {
		x = 0
	} else if x >= d.Width {
		x = d.Width - 1
	}
	if y < 0 {
		y = 0
	} else if y >= d.Height {
		y = d.Height - 1
	}
	return d.Pix[y*d.Width+x]
}

// MarchContactShadow is the reference implementation of the contact shadow
// ray march, mirroring the compute shader. It walks from the shaded point's
// view-space position toward the light, reprojecting each step against the
// scene depth copy. Returns an attenuation in [0, 1]: on a hit, the factor
// fades linearly with marched distance; 1 means no contact shadowing. A step
// leaving the screen ends the march with the remaining steps unoccluded.
func MarchContactShadow(cfg ContactShadowConfig, depth DepthSampler, proj mgl32.Mat4, viewPos, lightDirView mgl32.Vec3) float32 {
	dir := lightDirView.Normalize()
	stepLen := cfg.RayLength / float32(cfg.Steps)
	bias := stepLen * 0.5

	for i := uint32(1); i <= cfg.Steps; i++ {
		t := float32(i) * stepLen
		p := viewPos.Add(dir.Mul(t))
		// Behind the camera; no meaningful screen position.
		if p.Z() >= -1e-4 {
			return 1
		}
		clip := proj.Mul4x1(p.Vec4(1))
		u := (clip.X()/clip.W() + 1) * 0.5
		v := (1 - clip.Y()/clip.W()) * 0.5
		if u < 0 || u > 1 || v < 0 || v > 1 {
			return 1
		}
		rayDepth := -p.Z()
		sceneDepth := depth.SampleDepth(u, v)
		if rayDepth > sceneDepth+bias && rayDepth < sceneDepth+cfg.Thickness {
			return t / cfg.RayLength
		}
	}
	return 1
}
