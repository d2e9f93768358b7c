package core

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func contactSetup() (ContactShadowConfig, mgl32.Mat4) {
	cfg := ContactShadowConfig{Steps: 16, RayLength: 0.5, Thickness: 0.25}
	proj := PerspectiveWGPU(mgl32.DegToRad(90), 1, 0.1, 100)
	return cfg, proj
}

func TestContactShadowConfigValidate(t *testing.T) {
	if err := DefaultContactShadowConfig().Validate(); err != nil {
		t.Errorf("default config rejected: %v", err)
	}
	bad := []ContactShadowConfig{
		{Steps: 0, RayLength: 0.5, Thickness: 0.1},
		{Steps: 16, RayLength: 0, Thickness: 0.1},
		{Steps: 16, RayLength: 0.5, Thickness: 0},
	}
	for i, cfg := range bad {
		if err := cfg.Validate(); err == nil {
			t.Errorf("config %d accepted, want rejection", i)
		}
	}
}

// No depth crossing anywhere: attenuation is exactly 1.
func TestContactShadowNoOccluder(t *testing.T) {
	cfg, proj := contactSetup()
	depth := NewDepthImage(100, 100, 100) // everything at the far distance

	atten := MarchContactShadow(cfg, depth, proj, mgl32.Vec3{0, 0, -10}, mgl32.Vec3{0, 1, 0})
	if atten != 1 {
		t.Errorf("attenuation = %v, want exactly 1 with no occluder", atten)
	}
}

// An occluder hit on the first step shadows at full strength; the factor is
// the marched fraction of the ray.
func TestContactShadowImmediateOccluder(t *testing.T) {
	cfg, proj := contactSetup()
	depth := NewDepthImage(100, 100, 9.9) // just in front of the surface at 10

	atten := MarchContactShadow(cfg, depth, proj, mgl32.Vec3{0, 0, -10}, mgl32.Vec3{0, 1, 0})
	want := (cfg.RayLength / float32(cfg.Steps)) / cfg.RayLength // one step in
	if math.Abs(float64(atten-want)) > 1e-6 {
		t.Errorf("attenuation = %v, want %v for a first-step hit", atten, want)
	}
}

// Attenuation grows with the distance marched before the hit: a later
// occluder shadows less than an immediate one.
func TestContactShadowFadesWithMarchDistance(t *testing.T) {
	cfg, proj := contactSetup()

	near := NewDepthImage(100, 100, 9.9)
	farHit := NewDepthImage(100, 100, 100)
	// The ray from (0,0,-10) toward +Y walks screen-space upward from
	// v=0.5; occlude only the upper rows so the hit lands late.
	for y := 0; y < 48; y++ {
		for x := 0; x < 100; x++ {
			farHit.Set(x, y, 9.9)
		}
	}

	origin := mgl32.Vec3{0, 0, -10}
	up := mgl32.Vec3{0, 1, 0}
	attenNear := MarchContactShadow(cfg, near, proj, origin, up)
	attenFar := MarchContactShadow(cfg, farHit, proj, origin, up)

	if attenFar >= 1 {
		t.Fatal("late occluder produced no shadowing")
	}
	if attenNear >= attenFar {
		t.Errorf("near hit %v should shadow harder than late hit %v", attenNear, attenFar)
	}
}

// A march that leaves the screen terminates with no contribution, even when
// the recorded depth would otherwise register a hit.
func TestContactShadowOffscreenEarlyOut(t *testing.T) {
	cfg, proj := contactSetup()
	depth := NewDepthImage(100, 100, 9.9)

	// At z=-10 with a 90 degree square frustum the screen edge sits at
	// x=10; the first step crosses it.
	atten := MarchContactShadow(cfg, depth, proj, mgl32.Vec3{9.99, 0, -10}, mgl32.Vec3{1, 0, 0})
	if atten != 1 {
		t.Errorf("attenuation = %v, want 1 when the ray leaves the screen", atten)
	}
}

func TestDepthImageSampling(t *testing.T) {
	img := NewDepthImage(4, 4, 7)
	img.Set(2, 1, 3)

	if d := img.SampleDepth(0.625, 0.375); d != 3 {
		t.Errorf("sample at set texel = %v, want 3", d)
	}
	if d := img.SampleDepth(0, 0); d != 7 {
		t.Errorf("sample at clear texel = %v, want 7", d)
	}
	// Out-of-range coordinates clamp instead of panicking.
	if d := img.SampleDepth(-1, 2); d != 7 {
		t.Errorf("clamped sample = %v, want 7", d)
	}
}
