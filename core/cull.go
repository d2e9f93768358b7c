package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// ViewLight is a light transformed into view space for culling.
type ViewLight struct {
	Type     LightType
	Pos      mgl32.Vec3
	Dir      mgl32.Vec3
	Radius   float32
	CosOuter float32
	SinOuter float32
}

// ToViewSpace transforms the packed light list into view space. The result
// feeds the reference culler; the GPU compute stage performs the same
// transform per invocation.
func ToViewSpace(view mgl32.Mat4, lights []Light) []ViewLight {
	out := make([]ViewLight, len(lights))
	for i, l := range lights {
		p := view.Mul4x1(l.Position.Vec4(1)).Vec3()
		d := view.Mul4x1(l.Direction.Vec4(0)).Vec3()
		out[i] = ViewLight{
			Type:     l.Type,
			Pos:      p,
			Dir:      d,
			Radius:   l.Radius,
			CosOuter: float32(math.Cos(float64(l.OuterAngle))),
			SinOuter: float32(math.Sin(float64(l.OuterAngle))),
		}
	}
	return out
}

// SphereIntersectsAABB is the squared-distance test between a sphere and an
// axis-aligned box (Arvo's method).
func SphereIntersectsAABB(center mgl32.Vec3, radius float32, min, max mgl32.Vec3) bool {
	var d float32
	for i := 0; i < 3; i++ {
		v := center[i]
		if v < min[i] {
			e := min[i] - v
			d += e * e
		} else if v > max[i] {
			e := v - max[i]
			d += e * e
		}
	}
	return d <= radius*radius
}

// ConeIntersectsSphere tests a spot cone (apex, unit axis, half-angle given
// as cos/sin, range) against a sphere. Conservative: may report intersection
// for near misses, never misses a true overlap.
func ConeIntersectsSphere(apex, axis mgl32.Vec3, rng, cosAngle, sinAngle float32, center mgl32.Vec3, radius float32) bool {
	v := center.Sub(apex)
	lenSq := v.Dot(v)
	lenAlong := v.Dot(axis)

	// Behind the apex beyond the sphere's reach.
	if lenAlong < -radius {
		return false
	}
	// Past the cone's range.
	if lenAlong > rng+radius {
		return false
	}
	// Distance from the sphere center to the cone's lateral surface.
	distPerp := float32(math.Sqrt(float64(maxf(lenSq-lenAlong*lenAlong, 0))))
	distToSurface := cosAngle*distPerp - sinAngle*lenAlong
	return distToSurface <= radius
}

// LightIntersectsCluster is the per-(light, cluster) test the culling stage
// applies. Point lights use sphere-vs-AABB; spot lights additionally test
// the cone against the cluster's bounding sphere, rejecting clusters the
// influence sphere touches but the cone cannot reach.
func LightIntersectsCluster(l ViewLight, min, max mgl32.Vec3) bool {
	if !SphereIntersectsAABB(l.Pos, l.Radius, min, max) {
		return false
	}
	if l.Type != LightSpot {
		return true
	}
	center := min.Add(max).Mul(0.5)
	half := max.Sub(center)
	boundRadius := half.Len()
	return ConeIntersectsSphere(l.Pos, l.Dir, l.Radius, l.CosOuter, l.SinOuter, center, boundRadius)
}

// ClusterLightLists is the output of light culling: for each cluster, an
// (offset, count) pair into a flat index buffer.
type ClusterLightLists struct {
	Offsets []uint32
	Counts  []uint32
	Indices []uint32
}

// CullLights runs the reference clustered culling on the CPU. It mirrors the
// compute shader's semantics exactly: per-cluster candidates are tested in
// light order and appended until the per-cluster cap, after which remaining
// candidates are skipped. Deterministic and idempotent for identical inputs.
func CullLights(g *ClusterGrid, lights []ViewLight) ClusterLightLists {
	n := g.ClusterCount()
	out := ClusterLightLists{
		Offsets: make([]uint32, n),
		Counts:  make([]uint32, n),
		Indices: make([]uint32, 0, n*4),
	}
	for z := uint32(0); z < g.NumSlices; z++ {
		for y := uint32(0); y < g.TilesY; y++ {
			for x := uint32(0); x < g.TilesX; x++ {
				ci := g.ClusterIndex(x, y, z)
				bmin, bmax := g.ClusterAABB(x, y, z)
				out.Offsets[ci] = uint32(len(out.Indices))
				for li, l := range lights {
					if out.Counts[ci] >= MaxLightsPerCluster {
						break
					}
					if LightIntersectsCluster(l, bmin, bmax) {
						out.Indices = append(out.Indices, uint32(li))
						out.Counts[ci]++
					}
				}
			}
		}
	}
	return out
}

// LightsForCluster returns cluster ci's slice of the index buffer.
func (c *ClusterLightLists) LightsForCluster(ci uint32) []uint32 {
	off := c.Offsets[ci]
	return c.Indices[off : off+c.Counts[ci]]
}

// OccupancyStats summarizes per-cluster light counts for profiling.
type OccupancyStats struct {
	Clusters     uint32
	NonEmpty     uint32
	MaxPerClus   uint32
	TotalIndices uint32
	Overflowed   uint32
}

func (c *ClusterLightLists) Occupancy() OccupancyStats {
	s := OccupancyStats{Clusters: uint32(len(c.Counts))}
	for _, n := range c.Counts {
		if n > 0 {
			s.NonEmpty++
		}
		if n > s.MaxPerClus {
			s.MaxPerClus = n
		}
		if n >= MaxLightsPerCluster {
			s.Overflowed++
		}
		s.TotalIndices += n
	}
	return s
}
