package gpu

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/lumen/core"
)

func packF32(b []byte, off int, v float32) {
	binary.LittleEndian.PutUint32(b[off:], math.Float32bits(v))
}

func packU32(b []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(b[off:], v)
}

func packMat4(b []byte, off int, m mgl32.Mat4) {
	for i := 0; i < 16; i++ {
		packF32(b, off+i*4, m[i])
	}
}

func packVec4(b []byte, off int, v mgl32.Vec4) {
	for i := 0; i < 4; i++ {
		packF32(b, off+i*4, v[i])
	}
}

// ShadeUniformSize matches the WGSL ShadeUniform struct: two mat4s and six
// vec4-sized fields.
const ShadeUniformSize = 224

// PackShadeUniform builds the shading stage uniform.
func PackShadeUniform(cam *core.Camera, grid *core.ClusterGrid, sunDir mgl32.Vec3, sunColor mgl32.Vec3, sunIntensity, shadowFar float32, cascadeCount uint32) []byte {
	b := make([]byte, ShadeUniformSize)
	packMat4(b, 0, cam.ViewMatrix())
	packMat4(b, 64, cam.ProjectionMatrix())
	packVec4(b, 128, sunDir.Vec4(0))
	packVec4(b, 144, sunColor.Vec4(sunIntensity))
	packVec4(b, 160, cam.Position.Vec4(shadowFar))
	packF32(b, 176, float32(grid.Width))
	packF32(b, 180, float32(grid.Height))
	packF32(b, 184, grid.Near)
	packF32(b, 188, grid.Far)
	packU32(b, 192, grid.TilesX)
	packU32(b, 196, grid.TilesY)
	packU32(b, 200, grid.NumSlices)
	packU32(b, 204, cascadeCount)
	packU32(b, 208, grid.TileSize)
	return b
}

// ContactUniformSize matches the WGSL ContactUniform struct.
const ContactUniformSize = 160

// PackContactUniform builds the contact shadow uniform. The sun direction is
// given in world space and transformed to view space here.
func PackContactUniform(cam *core.Camera, cfg core.ContactShadowConfig, sunDir mgl32.Vec3) []byte {
	view := cam.ViewMatrix()
	dirView := view.Mul4x1(sunDir.Normalize().Vec4(0)).Vec3()

	b := make([]byte, ContactUniformSize)
	packMat4(b, 0, cam.ProjectionMatrix())
	packMat4(b, 64, cam.ProjectionMatrix().Inv())
	packVec4(b, 128, dirView.Vec4(cfg.RayLength))
	packF32(b, 144, cfg.Thickness)
	packF32(b, 148, float32(cfg.Steps))
	packF32(b, 152, float32(cam.Width))
	packF32(b, 156, float32(cam.Height))
	return b
}

// ModelUniformSize is the used portion of a model uniform slot: model matrix
// plus color.
const ModelUniformSize = 80

// PackModelUniform builds one draw's model uniform.
func PackModelUniform(item core.DrawItem) []byte {
	b := make([]byte, ModelUniformSize)
	packMat4(b, 0, item.Transform)
	packVec4(b, 64, item.Color.Vec4(1))
	return b
}
