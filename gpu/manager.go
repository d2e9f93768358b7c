package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/lumen/core"
)

const (
	// MaxFramesInFlight is how many frames the CPU may run ahead of the
	// GPU. Light uploads are double-buffered to match, so a frame never
	// writes a buffer the GPU is still reading.
	MaxFramesInFlight = 2

	// ModelUniformStride is the 256-aligned slot size for per-draw model
	// uniforms accessed with dynamic offsets.
	ModelUniformStride = 256

	// MaxDrawsPerFrame bounds the model uniform buffer.
	MaxDrawsPerFrame = 1024

	HeadroomIndices = 64 * 1024
)

// MeshBuffers is a registered mesh resident on the GPU.
type MeshBuffers struct {
	Vertex     *wgpu.Buffer
	Index      *wgpu.Buffer
	IndexCount uint32
}

// BufferManager owns the GPU buffers shared between the lighting stages:
// the packed light buffers, cluster ranges, the global light index buffer,
// cascade records and per-draw model uniforms. Texture-shaped resources
// (depth, shadow array, contact target) live with their producing pass.
type BufferManager struct {
	Device *wgpu.Device
	log    core.Logger

	// Written by the CPU each frame, indexed by frame-in-flight.
	LightsBuf [MaxFramesInFlight]*wgpu.Buffer

	CullUniformBuf  *wgpu.Buffer
	ClusterRangeBuf *wgpu.Buffer
	LightIndexBuf   *wgpu.Buffer
	IndexCounterBuf *wgpu.Buffer
	CascadesBuf     *wgpu.Buffer
	ShadeUniformBuf *wgpu.Buffer
	ModelBuf        [MaxFramesInFlight]*wgpu.Buffer

	clusterCount uint32
	meshes       map[core.MeshId]*MeshBuffers
}

func NewBufferManager(device *wgpu.Device, log core.Logger) *BufferManager {
	if log == nil {
		log = core.NewNopLogger()
	}
	return &BufferManager{
		Device: device,
		log:    log,
		meshes: make(map[core.MeshId]*MeshBuffers),
	}
}

func (m *BufferManager) ensureBuffer(name string, buf **wgpu.Buffer, data []byte, usage wgpu.BufferUsage, headroom int) bool {
	neededSize := uint64(len(data) + headroom)
	if neededSize%4 != 0 {
		neededSize += 4 - (neededSize % 4)
	}

	current := *buf
	if current == nil || current.GetSize() < neededSize {
		if current != nil {
			current.Release()
		}
		newBuf, err := m.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: name,
			Size:  neededSize,
			Usage: usage | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			panic(err)
		}
		*buf = newBuf
		if len(data) > 0 {
			m.Device.GetQueue().WriteBuffer(*buf, 0, data)
		}
		return true
	}
	if len(data) > 0 {
		m.Device.GetQueue().WriteBuffer(*buf, 0, data)
	}
	return false
}

// UploadLights writes this frame's packed light records into the light
// buffer for the given frame-in-flight slot.
func (m *BufferManager) UploadLights(frame int, packed []byte) {
	slot := frame % MaxFramesInFlight
	m.ensureBuffer("Lights", &m.LightsBuf[slot], packed,
		wgpu.BufferUsageStorage, core.MaxLights*core.PackedLightSize-len(packed))
}

// UploadCullUniform writes the per-frame culling uniform.
func (m *BufferManager) UploadCullUniform(data []byte) {
	m.ensureBuffer("CullUniform", &m.CullUniformBuf, data, wgpu.BufferUsageUniform, 0)
}

// UploadCascades writes this frame's packed cascade records.
func (m *BufferManager) UploadCascades(data []byte) {
	m.ensureBuffer("Cascades", &m.CascadesBuf, data, wgpu.BufferUsageStorage, 0)
}

// UploadShadeUniform writes the shading stage uniform.
func (m *BufferManager) UploadShadeUniform(data []byte) {
	m.ensureBuffer("ShadeUniform", &m.ShadeUniformBuf, data, wgpu.BufferUsageUniform, 0)
}

// EnsureClusterBuffers sizes the cluster range and light index buffers for
// the given cluster count. The index buffer holds the full worst case
// (clusterCount * per-cluster cap) so offset+count can never run past the
// end. Returns true when buffers were recreated, which invalidates any
// bind groups holding them.
func (m *BufferManager) EnsureClusterBuffers(clusterCount uint32) bool {
	if clusterCount == m.clusterCount &&
		m.ClusterRangeBuf != nil && m.LightIndexBuf != nil && m.IndexCounterBuf != nil {
		return false
	}
	m.clusterCount = clusterCount

	rangeBytes := make([]byte, clusterCount*8)
	recreated := m.ensureBuffer("ClusterRanges", &m.ClusterRangeBuf, rangeBytes,
		wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc, 0)

	indexCap := int(clusterCount) * core.MaxLightsPerCluster * 4
	recreated = m.ensureBuffer("LightIndices", &m.LightIndexBuf, nil,
		wgpu.BufferUsageStorage, indexCap+HeadroomIndices) || recreated

	recreated = m.ensureBuffer("IndexCounter", &m.IndexCounterBuf, make([]byte, 4),
		wgpu.BufferUsageStorage, 0) || recreated
	return recreated
}

// ResetIndexCounter zeroes the atomic append counter. Must run before each
// culling dispatch.
func (m *BufferManager) ResetIndexCounter() {
	m.Device.GetQueue().WriteBuffer(m.IndexCounterBuf, 0, make([]byte, 4))
}

// ClusterRangeSize reports the byte size of the cluster range buffer region
// in use, for occupancy readback.
func (m *BufferManager) ClusterRangeSize() uint64 {
	return uint64(m.clusterCount) * 8
}

// UploadModel writes one draw's model uniform into slot i of this frame's
// model buffer and returns the dynamic offset to bind.
func (m *BufferManager) UploadModel(frame, i int, data []byte) uint32 {
	buf := m.Model(frame)
	off := uint32(i) * ModelUniformStride
	m.Device.GetQueue().WriteBuffer(buf, uint64(off), data)
	return off
}

// Model returns this frame's model uniform buffer, creating it on first use
// so bind groups can be built even before any draw is uploaded.
func (m *BufferManager) Model(frame int) *wgpu.Buffer {
	slot := frame % MaxFramesInFlight
	if m.ModelBuf[slot] == nil {
		buf, err := m.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "ModelUniforms",
			Size:  ModelUniformStride * MaxDrawsPerFrame,
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			panic(err)
		}
		m.ModelBuf[slot] = buf
	}
	return m.ModelBuf[slot]
}

func (m *BufferManager) Lights(frame int) *wgpu.Buffer {
	return m.LightsBuf[frame%MaxFramesInFlight]
}

// RegisterMesh uploads a mesh's vertex and index data once. Subsequent
// frames reference the returned buffers by mesh id.
func (m *BufferManager) RegisterMesh(id core.MeshId, mesh *core.Mesh) *MeshBuffers {
	if mb, ok := m.meshes[id]; ok {
		return mb
	}
	vdata := make([]byte, len(mesh.Vertices)*core.VertexSize)
	mesh.PackVertices(vdata)
	vbuf, err := m.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "MeshVertices",
		Size:  uint64(len(vdata)),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		panic(err)
	}
	m.Device.GetQueue().WriteBuffer(vbuf, 0, vdata)

	idata := make([]byte, len(mesh.Indices)*4)
	for i, idx := range mesh.Indices {
		idata[i*4] = byte(idx)
		idata[i*4+1] = byte(idx >> 8)
		idata[i*4+2] = byte(idx >> 16)
		idata[i*4+3] = byte(idx >> 24)
	}
	ibuf, err := m.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "MeshIndices",
		Size:  uint64(len(idata)),
		Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		panic(err)
	}
	m.Device.GetQueue().WriteBuffer(ibuf, 0, idata)

	mb := &MeshBuffers{Vertex: vbuf, Index: ibuf, IndexCount: uint32(len(mesh.Indices))}
	m.meshes[id] = mb
	return mb
}

func (m *BufferManager) Mesh(id core.MeshId) (*MeshBuffers, bool) {
	mb, ok := m.meshes[id]
	return mb, ok
}

func (m *BufferManager) Release() {
	for _, b := range m.LightsBuf {
		if b != nil {
			b.Release()
		}
	}
	for _, b := range m.ModelBuf {
		if b != nil {
			b.Release()
		}
	}
	for _, b := range []*wgpu.Buffer{
		m.CullUniformBuf, m.ClusterRangeBuf, m.LightIndexBuf,
		m.IndexCounterBuf, m.CascadesBuf, m.ShadeUniformBuf,
	} {
		if b != nil {
			b.Release()
		}
	}
	for _, mb := range m.meshes {
		mb.Vertex.Release()
		mb.Index.Release()
	}
}
