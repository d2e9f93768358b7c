package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Projection helpers for wgpu's clip-space convention: X/Y in [-1, 1],
// Z in [0, 1]. mgl32's own Perspective/Ortho target GL's [-1, 1] depth
// range and cannot be used against a wgpu depth buffer.

func PerspectiveWGPU(fovY, aspect, near, far float32) mgl32.Mat4 {
	f := 1 / float32(math.Tan(float64(fovY)/2))
	var m mgl32.Mat4
	m[0] = f / aspect
	m[5] = f
	m[10] = far / (near - far)
	m[11] = -1
	m[14] = near * far / (near - far)
	return m
}

func OrthoWGPU(left, right, bottom, top, near, far float32) mgl32.Mat4 {
	m := mgl32.Ident4()
	m[0] = 2 / (right - left)
	m[5] = 2 / (top - bottom)
	m[10] = -1 / (far - near)
	m[12] = -(right + left) / (right - left)
	m[13] = -(top + bottom) / (top - bottom)
	m[14] = -near / (far - near)
	return m
}
