package core

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	DefaultCascadeCount  = 4
	DefaultCascadeLambda = 0.6
	DefaultShadowFar     = 200.0
	DefaultShadowMapSize = 2048
)

// CascadeConfig controls directional shadow cascades.
type CascadeConfig struct {
	Count   uint32
	Lambda  float32 // 0 = uniform splits, 1 = fully logarithmic
	Far     float32 // shadow far distance, view space
	MapSize uint32  // shadow map resolution per cascade
}

func DefaultCascadeConfig() CascadeConfig {
	return CascadeConfig{
		Count:   DefaultCascadeCount,
		Lambda:  DefaultCascadeLambda,
		Far:     DefaultShadowFar,
		MapSize: DefaultShadowMapSize,
	}
}

func (c CascadeConfig) Validate() error {
	if c.Count == 0 || c.Count > 8 {
		return fmt.Errorf("shadow cascades: count must be in [1, 8], got %d", c.Count)
	}
	if c.Lambda < 0 || c.Lambda > 1 {
		return fmt.Errorf("shadow cascades: lambda must be in [0, 1], got %v", c.Lambda)
	}
	if c.Far <= 0 {
		return fmt.Errorf("shadow cascades: far distance must be > 0, got %v", c.Far)
	}
	if c.MapSize == 0 {
		return fmt.Errorf("shadow cascades: map size must be > 0")
	}
	return nil
}

// Cascade is one shadow slice: a light-space view-projection and the
// view-space depth range it covers. Invalid cascades are skipped by the
// shadow renderer and contribute no shadowing.
type Cascade struct {
	ViewProj  mgl32.Mat4
	SplitNear float32
	SplitFar  float32
	Valid     bool
}

// ComputeSplits returns count+1 monotonically increasing split boundaries
// covering [near, far] with no gaps. Lambda blends the uniform and
// logarithmic distributions (practical split scheme).
func ComputeSplits(near, far float32, count uint32, lambda float32) []float32 {
	splits := make([]float32, count+1)
	splits[0] = near
	splits[count] = far
	for i := uint32(1); i < count; i++ {
		t := float64(i) / float64(count)
		logD := float64(near) * math.Pow(float64(far/near), t)
		uniD := float64(near) + (float64(far)-float64(near))*t
		splits[i] = float32(float64(lambda)*logD + (1-float64(lambda))*uniD)
	}
	return splits
}

// EffectiveFar is the shadow range the cascades actually cover: cfg.Far
// clamped to the camera's far plane. No visible pixel lies beyond camera
// far, so a larger configured range would only waste shadow-map resolution.
// Callers packing the shadow far distance for the GPU must use this value,
// not cfg.Far, so the shader's range check agrees with the split set.
func (c CascadeConfig) EffectiveFar(camFar float32) float32 {
	if c.Far > camFar {
		return camFar
	}
	return c.Far
}

// ComputeCascades recomputes the full cascade set from the camera and the
// directional light each frame. Each cascade fits the bounding sphere of its
// frustum slice, then snaps the shadow camera to texel increments so camera
// motion does not shimmer the sampled shadow edge. A degenerate slice
// (near == far) yields an invalid cascade.
func ComputeCascades(cam *Camera, lightDir mgl32.Vec3, cfg CascadeConfig) []Cascade {
	splits := ComputeSplits(cam.Near, cfg.EffectiveFar(cam.Far), cfg.Count, cfg.Lambda)
	dir := lightDir.Normalize()

	out := make([]Cascade, cfg.Count)
	for i := uint32(0); i < cfg.Count; i++ {
		sn, sf := splits[i], splits[i+1]
		out[i] = Cascade{SplitNear: sn, SplitFar: sf}
		if sf-sn < 1e-6 {
			continue
		}

		corners := cam.SliceCorners(sn, sf)
		center := mgl32.Vec3{}
		for _, c := range corners {
			center = center.Add(c)
		}
		center = center.Mul(1.0 / 8.0)
		var radius float32
		for _, c := range corners {
			if d := c.Sub(center).Len(); d > radius {
				radius = d
			}
		}
		if radius < 1e-6 {
			continue
		}
		// Round the radius up so the sphere, and with it the texel size,
		// stays constant while the camera merely translates.
		radius = float32(math.Ceil(float64(radius)*16)) / 16

		up := mgl32.Vec3{0, 1, 0}
		if math.Abs(float64(dir.Y())) > 0.99 {
			up = mgl32.Vec3{0, 0, 1}
		}

		// Snap the sphere center to shadow-map texel increments in light
		// space before building the final matrices.
		texel := 2 * radius / float32(cfg.MapSize)
		snapView := mgl32.LookAtV(center.Sub(dir), center, up)
		ls := snapView.Mul4x1(center.Vec4(1)).Vec3()
		ls[0] = float32(math.Floor(float64(ls.X()/texel))) * texel
		ls[1] = float32(math.Floor(float64(ls.Y()/texel))) * texel
		snapped := snapView.Inv().Mul4x1(ls.Vec4(1)).Vec3()

		backoff := 2 * radius
		eye := snapped.Sub(dir.Mul(backoff))
		lightView := mgl32.LookAtV(eye, snapped, up)
		lightProj := OrthoWGPU(-radius, radius, -radius, radius, 0, backoff+radius)

		out[i].ViewProj = lightProj.Mul4(lightView)
		out[i].Valid = true
	}
	return out
}

// CascadeForDepth selects the cascade whose split range contains the given
// view-space depth, clamping to the last cascade beyond its far split.
func CascadeForDepth(cascades []Cascade, depth float32) int {
	for i := range cascades {
		if depth < cascades[i].SplitFar {
			return i
		}
	}
	return len(cascades) - 1
}

// PackedCascadeSize is the GPU record size per cascade: mat4 + vec4.
const PackedCascadeSize = 80

// PackCascades writes cascade records into dst, which must hold at least
// len(cascades)*PackedCascadeSize bytes. Layout per cascade:
//
//	mat4  viewProjection (column major)
//	vec4  splitNear, splitFar, valid (1/0), 0
func PackCascades(cascades []Cascade, dst []byte) {
	for i, c := range cascades {
		o := i * PackedCascadeSize
		for j := 0; j < 16; j++ {
			putF32(dst, o+j*4, c.ViewProj[j])
		}
		putF32(dst, o+64, c.SplitNear)
		putF32(dst, o+68, c.SplitFar)
		valid := float32(0)
		if c.Valid {
			valid = 1
		}
		putF32(dst, o+72, valid)
		putF32(dst, o+76, 0)
	}
}
