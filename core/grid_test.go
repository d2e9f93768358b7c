package core

import (
	"math"
	"testing"
)

func testCamera(w, h uint32, near, far float32) *Camera {
	c := NewCamera(w, h)
	c.Near = near
	c.Far = far
	return c
}

func TestClusterCount(t *testing.T) {
	tests := []struct {
		name     string
		width    uint32
		height   uint32
		tile     uint32
		slices   uint32
		expected uint32
	}{
		{"1080p default", 1920, 1080, 16, 24, 120 * 68 * 24},
		{"720p", 1280, 720, 16, 24, 80 * 45 * 24},
		{"non-divisible viewport", 1000, 600, 16, 24, 63 * 38 * 24},
		{"big tiles", 1920, 1080, 64, 16, 30 * 17 * 16},
		{"tiny viewport", 10, 10, 16, 8, 1 * 1 * 8},
	}
	for _, tc := range tests {
		cam := testCamera(tc.width, tc.height, 0.1, 1000)
		grid := BuildClusterGrid(cam, GridConfig{TileSizePx: tc.tile, NumSlices: tc.slices})
		if got := grid.ClusterCount(); got != tc.expected {
			t.Errorf("%s: cluster count = %d, want %d", tc.name, got, tc.expected)
		}
		// ceil(width/tile) * ceil(height/tile) * slices, always.
		tx := (tc.width + tc.tile - 1) / tc.tile
		ty := (tc.height + tc.tile - 1) / tc.tile
		if grid.TilesX != tx || grid.TilesY != ty {
			t.Errorf("%s: tiles = %dx%d, want %dx%d", tc.name, grid.TilesX, grid.TilesY, tx, ty)
		}
	}
}

func TestGridConfigValidate(t *testing.T) {
	if err := (GridConfig{TileSizePx: 0, NumSlices: 24}).Validate(); err == nil {
		t.Error("zero tile size must be rejected")
	}
	if err := (GridConfig{TileSizePx: 16, NumSlices: 0}).Validate(); err == nil {
		t.Error("zero slice count must be rejected")
	}
	if err := DefaultGridConfig().Validate(); err != nil {
		t.Errorf("default config rejected: %v", err)
	}
}

func TestSliceDepthsLogarithmic(t *testing.T) {
	cam := testCamera(1920, 1080, 0.1, 1000)
	grid := BuildClusterGrid(cam, DefaultGridConfig())

	if d := grid.SliceDepth(0); math.Abs(float64(d-0.1)) > 1e-6 {
		t.Errorf("slice 0 depth = %v, want near plane 0.1", d)
	}
	if d := grid.SliceDepth(grid.NumSlices); math.Abs(float64(d-1000)) > 0.5 {
		t.Errorf("last slice depth = %v, want far plane 1000", d)
	}
	for i := uint32(0); i < grid.NumSlices; i++ {
		if grid.SliceDepth(i) >= grid.SliceDepth(i+1) {
			t.Fatalf("slice depths not strictly increasing at %d", i)
		}
	}
	// depth(i) = near * (far/near)^(i/numSlices)
	for i := uint32(0); i <= grid.NumSlices; i++ {
		want := 0.1 * math.Pow(1000/0.1, float64(i)/float64(grid.NumSlices))
		got := float64(grid.SliceDepth(i))
		if math.Abs(got-want)/want > 1e-4 {
			t.Errorf("slice %d depth = %v, want %v", i, got, want)
		}
	}
}

func TestSliceForDepthInvertsSliceDepth(t *testing.T) {
	cam := testCamera(1920, 1080, 0.1, 1000)
	grid := BuildClusterGrid(cam, DefaultGridConfig())

	for i := uint32(0); i < grid.NumSlices; i++ {
		mid := (grid.SliceDepth(i) + grid.SliceDepth(i+1)) / 2
		if got := grid.SliceForDepth(mid); got != i {
			t.Errorf("depth %v: slice = %d, want %d", mid, got, i)
		}
	}
	if got := grid.SliceForDepth(0.01); got != 0 {
		t.Errorf("depth before near: slice = %d, want 0", got)
	}
	if got := grid.SliceForDepth(5000); got != grid.NumSlices-1 {
		t.Errorf("depth past far: slice = %d, want %d", got, grid.NumSlices-1)
	}
}

func TestClusterAABBOrdering(t *testing.T) {
	cam := testCamera(1920, 1080, 0.1, 1000)
	grid := BuildClusterGrid(cam, DefaultGridConfig())

	for _, c := range [][3]uint32{{0, 0, 0}, {60, 30, 12}, {119, 67, 23}} {
		min, max := grid.ClusterAABB(c[0], c[1], c[2])
		for i := 0; i < 3; i++ {
			if min[i] > max[i] {
				t.Errorf("cluster %v: min %v > max %v", c, min, max)
			}
		}
		// View space looks down -Z; the box must sit between the slice depths.
		zn, zf := grid.SliceDepth(c[2]), grid.SliceDepth(c[2]+1)
		if -max.Z() < zn-1e-3 || -min.Z() > zf+1e-3 {
			t.Errorf("cluster %v: z range [%v, %v] outside slice [%v, %v]",
				c, -max.Z(), -min.Z(), zn, zf)
		}
	}
}

func TestClusterIndexRoundTrip(t *testing.T) {
	cam := testCamera(640, 480, 0.1, 100)
	grid := BuildClusterGrid(cam, GridConfig{TileSizePx: 16, NumSlices: 8})

	seen := make(map[uint32]bool)
	for z := uint32(0); z < grid.NumSlices; z++ {
		for y := uint32(0); y < grid.TilesY; y++ {
			for x := uint32(0); x < grid.TilesX; x++ {
				idx := grid.ClusterIndex(x, y, z)
				if idx >= grid.ClusterCount() {
					t.Fatalf("index %d out of range %d", idx, grid.ClusterCount())
				}
				if seen[idx] {
					t.Fatalf("index %d assigned twice", idx)
				}
				seen[idx] = true
			}
		}
	}
}
