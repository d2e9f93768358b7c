package core

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

// wgpu clip space: a view-space point on the near plane maps to z=0, on the
// far plane to z=1.
func TestPerspectiveDepthRange(t *testing.T) {
	proj := PerspectiveWGPU(mgl32.DegToRad(60), 16.0/9.0, 0.1, 1000)

	nearClip := proj.Mul4x1(mgl32.Vec4{0, 0, -0.1, 1})
	if z := nearClip.Z() / nearClip.W(); math.Abs(float64(z)) > 1e-5 {
		t.Errorf("near plane depth = %v, want 0", z)
	}
	farClip := proj.Mul4x1(mgl32.Vec4{0, 0, -1000, 1})
	if z := farClip.Z() / farClip.W(); math.Abs(float64(z-1)) > 1e-4 {
		t.Errorf("far plane depth = %v, want 1", z)
	}
}

func TestOrthoDepthRange(t *testing.T) {
	proj := OrthoWGPU(-10, 10, -10, 10, 0, 50)

	if z := proj.Mul4x1(mgl32.Vec4{0, 0, 0, 1}).Z(); math.Abs(float64(z)) > 1e-6 {
		t.Errorf("near plane depth = %v, want 0", z)
	}
	if z := proj.Mul4x1(mgl32.Vec4{0, 0, -50, 1}).Z(); math.Abs(float64(z-1)) > 1e-6 {
		t.Errorf("far plane depth = %v, want 1", z)
	}
	// X/Y stay in the [-1, 1] convention.
	if x := proj.Mul4x1(mgl32.Vec4{10, 0, -1, 1}).X(); math.Abs(float64(x-1)) > 1e-6 {
		t.Errorf("right edge x = %v, want 1", x)
	}
}

func TestUnprojectRoundTrip(t *testing.T) {
	proj := PerspectiveWGPU(mgl32.DegToRad(75), 1.5, 0.1, 500)
	inv := proj.Inv()

	p := mgl32.Vec4{2, -1.5, -30, 1}
	clip := proj.Mul4x1(p)
	ndc := clip.Mul(1 / clip.W())
	back := inv.Mul4x1(mgl32.Vec4{ndc.X(), ndc.Y(), ndc.Z(), 1})
	got := back.Vec3().Mul(1 / back.W())

	for i := 0; i < 3; i++ {
		if math.Abs(float64(got[i]-p[i])) > 1e-3 {
			t.Fatalf("round trip component %d: %v, want %v", i, got[i], p[i])
		}
	}
}
