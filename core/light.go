package core

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

type LightType uint32

const (
	LightPoint LightType = 0
	LightSpot  LightType = 1
)

const (
	// MaxLights is the global per-frame light cap. Submissions beyond this
	// are dropped by closest-to-camera priority.
	MaxLights = 1024

	// MaxLightsPerCluster caps how many light indices one cluster may hold.
	MaxLightsPerCluster = 64

	// PackedLightSize is the GPU record size per light: 4 x vec4.
	PackedLightSize = 64
)

// Light is one frame's description of an active light. Lights carry no
// persistent identity; the registry is rebuilt from scratch each frame.
type Light struct {
	Type      LightType
	Position  mgl32.Vec3
	Direction mgl32.Vec3 // spot only, unit length
	Color     mgl32.Vec3
	Intensity float32
	Radius    float32
	// Half-angles in radians, spot only.
	InnerAngle float32
	OuterAngle float32
}

// Registry collects lights submitted during Update and packs the surviving
// set into a GPU-ready buffer at the end of the frame.
type Registry struct {
	log    Logger
	lights []Light

	warnedCap    bool
	rejectedThis int
}

func NewRegistry(log Logger) *Registry {
	if log == nil {
		log = NewNopLogger()
	}
	return &Registry{
		log:    log,
		lights: make([]Light, 0, MaxLights),
	}
}

// Reset discards last frame's lights. Call once at the start of each frame.
func (r *Registry) Reset() {
	r.lights = r.lights[:0]
	r.rejectedThis = 0
}

// Submit adds a light for this frame. Lights with non-finite parameters or a
// non-positive radius are rejected here, before any GPU upload, and reported
// once per frame.
func (r *Registry) Submit(l Light) bool {
	if !finiteVec3(l.Position) || !finite(l.Radius) || !finite(l.Intensity) || l.Radius <= 0 {
		if r.rejectedThis == 0 {
			r.log.Warnf("light registry: rejecting light with non-finite or non-positive parameters (pos=%v radius=%v)", l.Position, l.Radius)
		}
		r.rejectedThis++
		return false
	}
	if l.Type == LightSpot {
		if !finiteVec3(l.Direction) || l.Direction.Len() < 1e-6 {
			if r.rejectedThis == 0 {
				r.log.Warnf("light registry: rejecting spot light with degenerate direction")
			}
			r.rejectedThis++
			return false
		}
		l.Direction = l.Direction.Normalize()
		if l.OuterAngle <= 0 {
			l.OuterAngle = float32(math.Pi / 4)
		}
		if l.InnerAngle > l.OuterAngle {
			l.InnerAngle = l.OuterAngle
		}
	}
	r.lights = append(r.lights, l)
	return true
}

// Len reports how many lights survived submission this frame, before the
// global cap is applied.
func (r *Registry) Len() int { return len(r.lights) }

// Finalize applies the global cap with closest-to-camera priority and
// returns the surviving lights in packed order. The returned slice aliases
// registry storage and is valid until the next Reset.
func (r *Registry) Finalize(cameraPos mgl32.Vec3) []Light {
	if len(r.lights) > MaxLights {
		sort.SliceStable(r.lights, func(i, j int) bool {
			di := r.lights[i].Position.Sub(cameraPos).LenSqr()
			dj := r.lights[j].Position.Sub(cameraPos).LenSqr()
			return di < dj
		})
		if !r.warnedCap {
			r.log.Warnf("light registry: %d lights submitted, cap is %d; dropping farthest (degraded mode)", len(r.lights), MaxLights)
			r.warnedCap = true
		}
		r.lights = r.lights[:MaxLights]
	}
	return r.lights
}

// Pack writes the finalized lights as 64-byte GPU records into dst, which
// must hold at least len(lights)*PackedLightSize bytes. Layout per light:
//
//	vec4  position.xyz, radius
//	vec4  color.rgb, intensity
//	vec4  direction.xyz, type (u32 bits)
//	vec4  cosInner, cosOuter, 0, 0
func Pack(lights []Light, dst []byte) {
	for i, l := range lights {
		o := i * PackedLightSize
		putF32(dst, o+0, l.Position.X())
		putF32(dst, o+4, l.Position.Y())
		putF32(dst, o+8, l.Position.Z())
		putF32(dst, o+12, l.Radius)

		putF32(dst, o+16, l.Color.X())
		putF32(dst, o+20, l.Color.Y())
		putF32(dst, o+24, l.Color.Z())
		putF32(dst, o+28, l.Intensity)

		putF32(dst, o+32, l.Direction.X())
		putF32(dst, o+36, l.Direction.Y())
		putF32(dst, o+40, l.Direction.Z())
		binary.LittleEndian.PutUint32(dst[o+44:], uint32(l.Type))

		cosInner := float32(math.Cos(float64(l.InnerAngle)))
		cosOuter := float32(math.Cos(float64(l.OuterAngle)))
		putF32(dst, o+48, cosInner)
		putF32(dst, o+52, cosOuter)
		putF32(dst, o+56, 0)
		putF32(dst, o+60, 0)
	}
}

// PackInto packs the finalized lights into a frame arena span.
func PackInto(arena *FrameArena, lights []Light) Span {
	span := arena.AllocBytes(len(lights) * PackedLightSize)
	Pack(lights, arena.Bytes(span))
	return span
}

func putF32(b []byte, off int, v float32) {
	binary.LittleEndian.PutUint32(b[off:], math.Float32bits(v))
}

func finite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func finiteVec3(v mgl32.Vec3) bool {
	return finite(v.X()) && finite(v.Y()) && finite(v.Z())
}
