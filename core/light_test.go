package core

import (
	"encoding/binary"
	"fmt"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

type captureLogger struct {
	warns []string
}

func (c *captureLogger) DebugEnabled() bool    { return false }
func (c *captureLogger) SetDebug(enabled bool) {}
func (c *captureLogger) Debugf(format string, args ...any) {}
func (c *captureLogger) Infof(format string, args ...any)  {}
func (c *captureLogger) Warnf(format string, args ...any) {
	c.warns = append(c.warns, fmt.Sprintf(format, args...))
}
func (c *captureLogger) Errorf(format string, args ...any) {}

func TestRegistryRejectsInvalidLights(t *testing.T) {
	log := &captureLogger{}
	r := NewRegistry(log)

	nan := float32(math.NaN())
	inf := float32(math.Inf(1))

	invalid := []Light{
		{Type: LightPoint, Position: mgl32.Vec3{nan, 0, 0}, Radius: 5},
		{Type: LightPoint, Position: mgl32.Vec3{0, inf, 0}, Radius: 5},
		{Type: LightPoint, Position: mgl32.Vec3{0, 0, 0}, Radius: 0},
		{Type: LightPoint, Position: mgl32.Vec3{0, 0, 0}, Radius: -3},
		{Type: LightPoint, Position: mgl32.Vec3{0, 0, 0}, Radius: nan},
		{Type: LightSpot, Position: mgl32.Vec3{0, 0, 0}, Radius: 5, Direction: mgl32.Vec3{0, 0, 0}},
	}
	for i, l := range invalid {
		if r.Submit(l) {
			t.Errorf("light %d accepted, want rejection", i)
		}
	}
	if r.Len() != 0 {
		t.Errorf("registry holds %d lights, want 0", r.Len())
	}
	if len(log.warns) == 0 {
		t.Error("rejections must be logged")
	}

	if !r.Submit(Light{Type: LightPoint, Position: mgl32.Vec3{1, 2, 3}, Radius: 5}) {
		t.Error("valid light rejected")
	}
}

// Scenario: 1025 submissions against the 1024 cap. Exactly 1024 survive,
// closest to the camera first, with a degraded-mode warning.
func TestRegistryGlobalCap(t *testing.T) {
	log := &captureLogger{}
	r := NewRegistry(log)

	for i := 0; i < MaxLights+1; i++ {
		ok := r.Submit(Light{
			Type:      LightPoint,
			Position:  mgl32.Vec3{0, 0, -float32(i)},
			Color:     mgl32.Vec3{1, 1, 1},
			Intensity: 1,
			Radius:    2,
		})
		if !ok {
			t.Fatalf("light %d rejected at submission", i)
		}
	}

	camPos := mgl32.Vec3{0, 0, 0}
	lights := r.Finalize(camPos)
	if len(lights) != MaxLights {
		t.Fatalf("%d lights survived, want %d", len(lights), MaxLights)
	}
	// The farthest light (z = -1025) is the one dropped.
	for _, l := range lights {
		if l.Position.Z() == -float32(MaxLights) {
			t.Error("farthest light survived the cap")
		}
	}
	if len(log.warns) != 1 {
		t.Fatalf("%d warnings, want exactly one", len(log.warns))
	}

	// The warning fires once, not every frame.
	r.Reset()
	for i := 0; i < MaxLights+1; i++ {
		r.Submit(Light{Type: LightPoint, Position: mgl32.Vec3{0, 0, -float32(i)}, Radius: 2})
	}
	r.Finalize(camPos)
	if len(log.warns) != 1 {
		t.Errorf("%d warnings after second overflow, want still one", len(log.warns))
	}
}

func TestRegistryResetClearsFrame(t *testing.T) {
	r := NewRegistry(nil)
	r.Submit(Light{Type: LightPoint, Position: mgl32.Vec3{0, 0, 0}, Radius: 1})
	r.Reset()
	if r.Len() != 0 {
		t.Errorf("registry holds %d lights after reset", r.Len())
	}
}

func TestPackLayout(t *testing.T) {
	l := Light{
		Type:       LightSpot,
		Position:   mgl32.Vec3{1, 2, 3},
		Direction:  mgl32.Vec3{0, -1, 0},
		Color:      mgl32.Vec3{0.5, 0.25, 1},
		Intensity:  7,
		Radius:     12,
		InnerAngle: 0.3,
		OuterAngle: 0.6,
	}
	buf := make([]byte, PackedLightSize)
	Pack([]Light{l}, buf)

	f32 := func(off int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
	}
	checks := []struct {
		name string
		off  int
		want float32
	}{
		{"pos.x", 0, 1}, {"pos.y", 4, 2}, {"pos.z", 8, 3}, {"radius", 12, 12},
		{"color.r", 16, 0.5}, {"color.g", 20, 0.25}, {"color.b", 24, 1}, {"intensity", 28, 7},
		{"dir.x", 32, 0}, {"dir.y", 36, -1}, {"dir.z", 40, 0},
		{"cosInner", 48, float32(math.Cos(0.3))},
		{"cosOuter", 52, float32(math.Cos(0.6))},
	}
	for _, c := range checks {
		if got := f32(c.off); math.Abs(float64(got-c.want)) > 1e-6 {
			t.Errorf("%s at offset %d = %v, want %v", c.name, c.off, got, c.want)
		}
	}
	if typ := binary.LittleEndian.Uint32(buf[44:]); typ != uint32(LightSpot) {
		t.Errorf("type bits = %d, want %d", typ, LightSpot)
	}
}

func TestPackIntoArena(t *testing.T) {
	arena := NewFrameArena()
	lights := []Light{
		{Type: LightPoint, Position: mgl32.Vec3{1, 0, 0}, Radius: 2},
		{Type: LightPoint, Position: mgl32.Vec3{0, 1, 0}, Radius: 3},
	}
	span := PackInto(arena, lights)
	if span.Len != 2*PackedLightSize {
		t.Fatalf("span length = %d, want %d", span.Len, 2*PackedLightSize)
	}
	b := arena.Bytes(span)
	second := math.Float32frombits(binary.LittleEndian.Uint32(b[PackedLightSize+12:]))
	if second != 3 {
		t.Errorf("second light radius = %v, want 3", second)
	}
}
