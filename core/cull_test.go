package core

import (
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestSphereIntersectsAABB(t *testing.T) {
	min := mgl32.Vec3{-1, -1, -1}
	max := mgl32.Vec3{1, 1, 1}

	tests := []struct {
		name     string
		center   mgl32.Vec3
		radius   float32
		expected bool
	}{
		{"center inside", mgl32.Vec3{0, 0, 0}, 0.1, true},
		{"touching face", mgl32.Vec3{2, 0, 0}, 1.0, true},
		{"just outside face", mgl32.Vec3{2.01, 0, 0}, 1.0, false},
		{"touching corner", mgl32.Vec3{2, 2, 2}, 1.74, true},
		{"outside corner", mgl32.Vec3{2, 2, 2}, 1.7, false},
		{"sphere envelops box", mgl32.Vec3{0, 0, 0}, 10, true},
		{"far away", mgl32.Vec3{100, 0, 0}, 5, false},
	}
	for _, tc := range tests {
		if got := SphereIntersectsAABB(tc.center, tc.radius, min, max); got != tc.expected {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.expected)
		}
	}
}

func TestConeIntersectsSphere(t *testing.T) {
	// Cone at origin pointing down +X, 45 degree half-angle, range 10.
	apex := mgl32.Vec3{0, 0, 0}
	axis := mgl32.Vec3{1, 0, 0}
	cosA := float32(math.Cos(math.Pi / 4))
	sinA := float32(math.Sin(math.Pi / 4))

	tests := []struct {
		name     string
		center   mgl32.Vec3
		radius   float32
		expected bool
	}{
		{"on axis", mgl32.Vec3{5, 0, 0}, 0.5, true},
		{"inside cone off axis", mgl32.Vec3{5, 3, 0}, 0.5, true},
		{"outside lateral surface", mgl32.Vec3{2, 5, 0}, 0.5, false},
		{"touching lateral surface", mgl32.Vec3{2, 4, 0}, 2.0, true},
		{"behind apex", mgl32.Vec3{-3, 0, 0}, 1.0, false},
		{"sphere reaches apex from behind", mgl32.Vec3{-1, 0, 0}, 1.5, true},
		{"past range", mgl32.Vec3{15, 0, 0}, 1.0, false},
		{"straddles range", mgl32.Vec3{10.5, 0, 0}, 1.0, true},
	}
	for _, tc := range tests {
		got := ConeIntersectsSphere(apex, axis, 10, cosA, sinA, tc.center, tc.radius)
		if got != tc.expected {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.expected)
		}
	}
}

// Scenario: one point light at the origin with radius 10, 1080p grid. Its
// index must appear in exactly the clusters whose AABB overlaps the light's
// view-space sphere.
func TestSinglePointLightClusters(t *testing.T) {
	cam := testCamera(1920, 1080, 0.1, 1000)
	grid := BuildClusterGrid(cam, DefaultGridConfig())

	lights := []Light{{
		Type:      LightPoint,
		Position:  mgl32.Vec3{0, 0, 0},
		Color:     mgl32.Vec3{1, 1, 1},
		Intensity: 1,
		Radius:    10,
	}}
	view := ToViewSpace(grid.View, lights)
	lists := CullLights(&grid, view)

	hits := 0
	for z := uint32(0); z < grid.NumSlices; z++ {
		for y := uint32(0); y < grid.TilesY; y++ {
			for x := uint32(0); x < grid.TilesX; x++ {
				ci := grid.ClusterIndex(x, y, z)
				bmin, bmax := grid.ClusterAABB(x, y, z)
				want := SphereIntersectsAABB(view[0].Pos, 10, bmin, bmax)
				got := len(lists.LightsForCluster(ci)) == 1
				if got != want {
					t.Fatalf("cluster (%d,%d,%d): in list %v, overlap %v", x, y, z, got, want)
				}
				if got {
					hits++
				}
			}
		}
	}
	if hits == 0 {
		t.Fatal("light in front of the camera matched no clusters")
	}
	if hits == int(grid.ClusterCount()) {
		t.Fatal("radius-10 light cannot cover every cluster out to the far plane")
	}
}

// Soundness and tightness against a brute-force oracle on randomized scenes:
// below the per-cluster cap, CullLights' bookkeeping must agree exactly with
// testing every (light, cluster) pair directly.
func TestCullLightsMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	cam := testCamera(640, 360, 0.1, 200)
	grid := BuildClusterGrid(cam, GridConfig{TileSizePx: 64, NumSlices: 8})

	lights := make([]Light, 0, 200)
	for i := 0; i < 200; i++ {
		l := Light{
			Type: LightPoint,
			Position: mgl32.Vec3{
				rng.Float32()*80 - 40,
				rng.Float32()*40 - 20,
				rng.Float32()*-150 + 10,
			},
			Color:     mgl32.Vec3{1, 1, 1},
			Intensity: 1,
			Radius:    0.5 + rng.Float32()*8,
		}
		if i%4 == 0 {
			l.Type = LightSpot
			l.Direction = mgl32.Vec3{
				rng.Float32()*2 - 1,
				rng.Float32()*2 - 1,
				rng.Float32()*2 - 1,
			}.Normalize()
			l.OuterAngle = 0.2 + rng.Float32()*1.0
			l.InnerAngle = l.OuterAngle / 2
		}
		lights = append(lights, l)
	}

	view := ToViewSpace(grid.View, lights)
	lists := CullLights(&grid, view)

	for z := uint32(0); z < grid.NumSlices; z++ {
		for y := uint32(0); y < grid.TilesY; y++ {
			for x := uint32(0); x < grid.TilesX; x++ {
				ci := grid.ClusterIndex(x, y, z)
				bmin, bmax := grid.ClusterAABB(x, y, z)

				want := make([]uint32, 0, 8)
				for li, l := range view {
					if len(want) >= MaxLightsPerCluster {
						break
					}
					if LightIntersectsCluster(l, bmin, bmax) {
						want = append(want, uint32(li))
					}
				}
				got := lists.LightsForCluster(ci)
				if len(got) != len(want) {
					t.Fatalf("cluster (%d,%d,%d): %d lights, want %d", x, y, z, len(got), len(want))
				}
				for i := range want {
					if got[i] != want[i] {
						t.Fatalf("cluster (%d,%d,%d): index %d = %d, want %d", x, y, z, i, got[i], want[i])
					}
				}
			}
		}
	}
}

// Overflowing clusters keep the first lights in test order and skip the rest.
func TestPerClusterCapSkipsInTestOrder(t *testing.T) {
	cam := testCamera(320, 240, 0.1, 100)
	grid := BuildClusterGrid(cam, GridConfig{TileSizePx: 64, NumSlices: 4})

	// 80 identical lights blanketing the whole grid.
	lights := make([]Light, 80)
	for i := range lights {
		lights[i] = Light{
			Type:      LightPoint,
			Position:  mgl32.Vec3{0, 0, -20},
			Color:     mgl32.Vec3{1, 1, 1},
			Intensity: 1,
			Radius:    500,
		}
	}
	view := ToViewSpace(grid.View, lights)
	lists := CullLights(&grid, view)

	for ci := uint32(0); ci < grid.ClusterCount(); ci++ {
		got := lists.LightsForCluster(ci)
		if len(got) != MaxLightsPerCluster {
			t.Fatalf("cluster %d: %d lights, want cap %d", ci, len(got), MaxLightsPerCluster)
		}
		for i, li := range got {
			if li != uint32(i) {
				t.Fatalf("cluster %d: slot %d holds light %d, want submission order", ci, i, li)
			}
		}
	}

	stats := lists.Occupancy()
	if stats.Overflowed != grid.ClusterCount() {
		t.Errorf("overflowed = %d, want all %d clusters", stats.Overflowed, grid.ClusterCount())
	}
	if stats.MaxPerClus != MaxLightsPerCluster {
		t.Errorf("max per cluster = %d, want %d", stats.MaxPerClus, MaxLightsPerCluster)
	}
}

// Identical inputs produce identical outputs.
func TestCullLightsDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	cam := testCamera(640, 360, 0.1, 200)
	grid := BuildClusterGrid(cam, GridConfig{TileSizePx: 64, NumSlices: 8})

	lights := make([]Light, 50)
	for i := range lights {
		lights[i] = Light{
			Type:      LightPoint,
			Position:  mgl32.Vec3{rng.Float32()*40 - 20, rng.Float32()*20 - 10, -rng.Float32() * 100},
			Color:     mgl32.Vec3{1, 1, 1},
			Intensity: 1,
			Radius:    5,
		}
	}
	view := ToViewSpace(grid.View, lights)
	a := CullLights(&grid, view)
	b := CullLights(&grid, view)

	if len(a.Indices) != len(b.Indices) {
		t.Fatalf("index buffers differ in length: %d vs %d", len(a.Indices), len(b.Indices))
	}
	for i := range a.Indices {
		if a.Indices[i] != b.Indices[i] {
			t.Fatalf("index %d differs: %d vs %d", i, a.Indices[i], b.Indices[i])
		}
	}
}

// A spot light whose cone points away from a cluster must not land in it,
// even when its influence sphere overlaps.
func TestSpotConeRejectsClustersBehindCone(t *testing.T) {
	cam := testCamera(640, 360, 0.1, 200)
	grid := BuildClusterGrid(cam, GridConfig{TileSizePx: 64, NumSlices: 8})

	point := Light{
		Type:      LightPoint,
		Position:  mgl32.Vec3{0, 0, -50},
		Color:     mgl32.Vec3{1, 1, 1},
		Intensity: 1,
		Radius:    30,
	}
	spot := point
	spot.Type = LightSpot
	spot.Direction = mgl32.Vec3{0, 0, -1} // narrow cone away from the camera
	spot.OuterAngle = 0.15
	spot.InnerAngle = 0.1

	pointLists := CullLights(&grid, ToViewSpace(grid.View, []Light{point}))
	spotLists := CullLights(&grid, ToViewSpace(grid.View, []Light{spot}))

	if len(spotLists.Indices) >= len(pointLists.Indices) {
		t.Errorf("narrow spot matched %d clusters, point light %d; cone test culled nothing",
			len(spotLists.Indices), len(pointLists.Indices))
	}
	if len(spotLists.Indices) == 0 {
		t.Error("spot pointing into the grid matched no clusters")
	}
}
