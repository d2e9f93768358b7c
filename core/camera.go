package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Camera holds the view parameters the lighting core consumes each frame.
// View space is right-handed, Y-up, looking down -Z (mgl32 conventions).
type Camera struct {
	Position mgl32.Vec3
	Yaw      float32
	Pitch    float32

	FovY   float32 // vertical field of view, radians
	Near   float32
	Far    float32
	Width  uint32 // viewport pixels
	Height uint32
}

func NewCamera(width, height uint32) *Camera {
	return &Camera{
		Position: mgl32.Vec3{0, 2, 10},
		FovY:     mgl32.DegToRad(60),
		Near:     0.1,
		Far:      1000.0,
		Width:    width,
		Height:   height,
	}
}

func (c *Camera) Aspect() float32 {
	if c.Height == 0 {
		return 1.0
	}
	return float32(c.Width) / float32(c.Height)
}

func (c *Camera) Forward() mgl32.Vec3 {
	cp := float32(math.Cos(float64(c.Pitch)))
	return mgl32.Vec3{
		cp * float32(math.Sin(float64(c.Yaw))),
		float32(math.Sin(float64(c.Pitch))),
		-cp * float32(math.Cos(float64(c.Yaw))),
	}
}

func (c *Camera) Right() mgl32.Vec3 {
	return mgl32.Vec3{
		float32(math.Cos(float64(c.Yaw))),
		0,
		float32(math.Sin(float64(c.Yaw))),
	}
}

func (c *Camera) ViewMatrix() mgl32.Mat4 {
	eye := c.Position
	target := eye.Add(c.Forward())
	return mgl32.LookAtV(eye, target, mgl32.Vec3{0, 1, 0})
}

func (c *Camera) ProjectionMatrix() mgl32.Mat4 {
	return PerspectiveWGPU(c.FovY, c.Aspect(), c.Near, c.Far)
}

func (c *Camera) ViewProjection() mgl32.Mat4 {
	return c.ProjectionMatrix().Mul4(c.ViewMatrix())
}

// SliceCorners returns the 8 world-space corners of the frustum slice between
// the view-space distances near and far. Order: near quad (bl, br, tr, tl)
// then far quad in the same winding. Used by cascade fitting.
func (c *Camera) SliceCorners(near, far float32) [8]mgl32.Vec3 {
	tanHalf := float32(math.Tan(float64(c.FovY) / 2))
	aspect := c.Aspect()

	nh := tanHalf * near
	nw := nh * aspect
	fh := tanHalf * far
	fw := fh * aspect

	fwd := c.Forward()
	right := c.Right()
	up := right.Cross(fwd) // camera-local up

	nc := c.Position.Add(fwd.Mul(near))
	fc := c.Position.Add(fwd.Mul(far))

	return [8]mgl32.Vec3{
		nc.Sub(right.Mul(nw)).Sub(up.Mul(nh)),
		nc.Add(right.Mul(nw)).Sub(up.Mul(nh)),
		nc.Add(right.Mul(nw)).Add(up.Mul(nh)),
		nc.Sub(right.Mul(nw)).Add(up.Mul(nh)),
		fc.Sub(right.Mul(fw)).Sub(up.Mul(fh)),
		fc.Add(right.Mul(fw)).Sub(up.Mul(fh)),
		fc.Add(right.Mul(fw)).Add(up.Mul(fh)),
		fc.Sub(right.Mul(fw)).Add(up.Mul(fh)),
	}
}
