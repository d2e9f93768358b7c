package core

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// MeshId identifies a registered mesh across frames.
type MeshId string

// Vertex is the interleaved layout consumed by the depth, shadow and shading
// passes: position then normal, 24 bytes.
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
}

const VertexSize = 24

// Mesh is CPU-side geometry registered once and referenced per frame by id.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
}

// PackVertices serializes mesh vertices for GPU upload.
func (m *Mesh) PackVertices(dst []byte) {
	for i, v := range m.Vertices {
		o := i * VertexSize
		putF32(dst, o+0, v.Position.X())
		putF32(dst, o+4, v.Position.Y())
		putF32(dst, o+8, v.Position.Z())
		putF32(dst, o+12, v.Normal.X())
		putF32(dst, o+16, v.Normal.Y())
		putF32(dst, o+20, v.Normal.Z())
	}
}

// DrawItem is one submitted instance for the frame.
type DrawItem struct {
	Mesh      MeshId
	Transform mgl32.Mat4
	Color     mgl32.Vec3
}

// MeshLibrary owns registered meshes. Registration happens at load time;
// per-frame submission only references ids.
type MeshLibrary struct {
	meshes map[MeshId]*Mesh
}

func NewMeshLibrary() *MeshLibrary {
	return &MeshLibrary{meshes: make(map[MeshId]*Mesh)}
}

func (ml *MeshLibrary) Register(m *Mesh) (MeshId, error) {
	if len(m.Vertices) == 0 || len(m.Indices) == 0 {
		return "", fmt.Errorf("mesh library: refusing empty mesh")
	}
	id := MeshId(uuid.NewString())
	ml.meshes[id] = m
	return id, nil
}

func (ml *MeshLibrary) Get(id MeshId) (*Mesh, bool) {
	m, ok := ml.meshes[id]
	return m, ok
}

func (ml *MeshLibrary) Len() int { return len(ml.meshes) }

// DrawList collects this frame's draw submissions. Reset each frame
// alongside the light registry.
type DrawList struct {
	Items []DrawItem
}

func (dl *DrawList) Reset() { dl.Items = dl.Items[:0] }

func (dl *DrawList) Submit(item DrawItem) { dl.Items = append(dl.Items, item) }

// CubeMesh builds a unit cube centered at the origin with face normals.
func CubeMesh() *Mesh {
	faces := []struct {
		n mgl32.Vec3
		u mgl32.Vec3
		v mgl32.Vec3
	}{
		{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}},
		{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}},
	}
	m := &Mesh{}
	for _, f := range faces {
		base := uint32(len(m.Vertices))
		c := f.n.Mul(0.5)
		for _, uv := range [4][2]float32{{-0.5, -0.5}, {0.5, -0.5}, {0.5, 0.5}, {-0.5, 0.5}} {
			p := c.Add(f.u.Mul(uv[0])).Add(f.v.Mul(uv[1]))
			m.Vertices = append(m.Vertices, Vertex{Position: p, Normal: f.n})
		}
		m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	return m
}

// PlaneMesh builds a flat floor quad on Y=0 spanning [-half, half] on X/Z.
func PlaneMesh(half float32) *Mesh {
	n := mgl32.Vec3{0, 1, 0}
	return &Mesh{
		Vertices: []Vertex{
			{Position: mgl32.Vec3{-half, 0, -half}, Normal: n},
			{Position: mgl32.Vec3{half, 0, -half}, Normal: n},
			{Position: mgl32.Vec3{half, 0, half}, Normal: n},
			{Position: mgl32.Vec3{-half, 0, half}, Normal: n},
		},
		Indices: []uint32{0, 2, 1, 0, 3, 2},
	}
}
