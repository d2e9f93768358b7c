package core

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	DefaultTileSizePx = 16
	DefaultNumSlices  = 24
)

// GridConfig describes the cluster grid layout. Zero values are configuration
// errors, rejected at startup rather than clamped.
type GridConfig struct {
	TileSizePx uint32
	NumSlices  uint32
}

func DefaultGridConfig() GridConfig {
	return GridConfig{TileSizePx: DefaultTileSizePx, NumSlices: DefaultNumSlices}
}

func (c GridConfig) Validate() error {
	if c.TileSizePx == 0 {
		return fmt.Errorf("cluster grid: tile size must be > 0")
	}
	if c.NumSlices == 0 {
		return fmt.Errorf("cluster grid: slice count must be > 0")
	}
	return nil
}

// ClusterGrid is the per-frame cluster geometry derived from the camera and
// viewport. It is cheap to rebuild and carries no GPU state of its own.
type ClusterGrid struct {
	TilesX    uint32
	TilesY    uint32
	NumSlices uint32
	TileSize  uint32

	Width  uint32
	Height uint32
	Near   float32
	Far    float32

	InvProj mgl32.Mat4
	View    mgl32.Mat4
}

// BuildClusterGrid computes grid dimensions and the matrices the culling
// stage needs. cfg must have been validated at startup.
func BuildClusterGrid(cam *Camera, cfg GridConfig) ClusterGrid {
	proj := cam.ProjectionMatrix()
	return ClusterGrid{
		TilesX:    (cam.Width + cfg.TileSizePx - 1) / cfg.TileSizePx,
		TilesY:    (cam.Height + cfg.TileSizePx - 1) / cfg.TileSizePx,
		NumSlices: cfg.NumSlices,
		TileSize:  cfg.TileSizePx,
		Width:     cam.Width,
		Height:    cam.Height,
		Near:      cam.Near,
		Far:       cam.Far,
		InvProj:   proj.Inv(),
		View:      cam.ViewMatrix(),
	}
}

func (g *ClusterGrid) ClusterCount() uint32 {
	return g.TilesX * g.TilesY * g.NumSlices
}

// ClusterIndex flattens grid coordinates into the linear cluster index used
// by the GPU buffers: x + y*tilesX + z*tilesX*tilesY.
func (g *ClusterGrid) ClusterIndex(x, y, z uint32) uint32 {
	return x + y*g.TilesX + z*g.TilesX*g.TilesY
}

// SliceDepth maps slice boundary i in [0, numSlices] to a positive view-space
// depth on a logarithmic scale, so slices are finest near the camera.
func (g *ClusterGrid) SliceDepth(i uint32) float32 {
	t := float64(i) / float64(g.NumSlices)
	return g.Near * float32(math.Pow(float64(g.Far/g.Near), t))
}

// SliceForDepth inverts SliceDepth for a positive view-space depth, clamped
// to the valid slice range.
func (g *ClusterGrid) SliceForDepth(depth float32) uint32 {
	if depth <= g.Near {
		return 0
	}
	if depth >= g.Far {
		return g.NumSlices - 1
	}
	logRatio := math.Log(float64(g.Far / g.Near))
	s := math.Log(float64(depth/g.Near)) / logRatio * float64(g.NumSlices)
	z := uint32(s)
	if z >= g.NumSlices {
		z = g.NumSlices - 1
	}
	return z
}

// unprojectToNear maps a screen pixel coordinate to a view-space point on
// the near plane.
func (g *ClusterGrid) unprojectToNear(px, py float32) mgl32.Vec3 {
	ndcX := px/float32(g.Width)*2 - 1
	ndcY := 1 - py/float32(g.Height)*2
	v := g.InvProj.Mul4x1(mgl32.Vec4{ndcX, ndcY, 0, 1})
	p := v.Vec3().Mul(1 / v.W())
	return p
}

// scaleToDepth slides a near-plane view-space point along its camera ray to
// the given positive view-space depth. View space looks down -Z.
func scaleToDepth(p mgl32.Vec3, depth float32) mgl32.Vec3 {
	return p.Mul(depth / -p.Z())
}

// ClusterAABB returns the view-space axis-aligned bounding box of cluster
// (x, y, z): the four tile corners unprojected to the near plane, extruded
// to the slice's near and far depths.
func (g *ClusterGrid) ClusterAABB(x, y, z uint32) (min, max mgl32.Vec3) {
	x0 := float32(x * g.TileSize)
	y0 := float32(y * g.TileSize)
	x1 := x0 + float32(g.TileSize)
	y1 := y0 + float32(g.TileSize)
	if x1 > float32(g.Width) {
		x1 = float32(g.Width)
	}
	if y1 > float32(g.Height) {
		y1 = float32(g.Height)
	}

	corners := [4]mgl32.Vec3{
		g.unprojectToNear(x0, y0),
		g.unprojectToNear(x1, y0),
		g.unprojectToNear(x0, y1),
		g.unprojectToNear(x1, y1),
	}
	zNear := g.SliceDepth(z)
	zFar := g.SliceDepth(z + 1)

	first := true
	for _, c := range corners {
		for _, d := range [2]float32{zNear, zFar} {
			p := scaleToDepth(c, d)
			if first {
				min, max = p, p
				first = false
				continue
			}
			min = mgl32.Vec3{
				minf(min.X(), p.X()),
				minf(min.Y(), p.Y()),
				minf(min.Z(), p.Z()),
			}
			max = mgl32.Vec3{
				maxf(max.X(), p.X()),
				maxf(max.Y(), p.Y()),
				maxf(max.Z(), p.Z()),
			}
		}
	}
	return min, max
}

// CullingUniformSize is the byte size of the packed per-frame culling
// uniform: two mat4s plus screen/depth/grid parameters.
const CullingUniformSize = 176

// PackCullingUniform writes the culling stage's uniform payload into dst,
// which must hold at least CullingUniformSize bytes.
func (g *ClusterGrid) PackCullingUniform(dst []byte, lightCount uint32) {
	off := 0
	for _, m := range [2]mgl32.Mat4{g.InvProj, g.View} {
		for i := 0; i < 16; i++ {
			putF32(dst, off, m[i])
			off += 4
		}
	}
	putF32(dst, off, float32(g.Width))
	putF32(dst, off+4, float32(g.Height))
	putF32(dst, off+8, g.Near)
	putF32(dst, off+12, g.Far)
	off += 16
	binary.LittleEndian.PutUint32(dst[off:], g.TilesX)
	binary.LittleEndian.PutUint32(dst[off+4:], g.TilesY)
	binary.LittleEndian.PutUint32(dst[off+8:], g.NumSlices)
	binary.LittleEndian.PutUint32(dst[off+12:], lightCount)
	binary.LittleEndian.PutUint32(dst[off+16:], g.TileSize)
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
