package gpu

import (
	"encoding/binary"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/lumen/core"
)

// OccupancyReader streams the cluster range buffer back to the CPU for
// profiling. The readback is asynchronous and a few frames stale: a copy is
// issued only while the staging buffer is idle, mapped on a later frame, and
// summarized into the stats the HUD displays. Rendering never waits on it.
type OccupancyReader struct {
	device *wgpu.Device
	bm     *BufferManager

	mu      sync.Mutex
	state   int // 0 idle, 1 copy issued, 2 mapping, 3 mapped
	staging *wgpu.Buffer

	lastStats core.OccupancyStats
	haveStats bool
}

func NewOccupancyReader(device *wgpu.Device, bm *BufferManager) *OccupancyReader {
	return &OccupancyReader{device: device, bm: bm}
}

// Invalidate drops the staging buffer after a resize changed the cluster
// count. Any in-flight readback is abandoned.
func (r *OccupancyReader) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.staging != nil && r.state != 2 {
		r.staging.Release()
		r.staging = nil
	}
	r.state = 0
	r.haveStats = false
}

// QueueCopy encodes a copy of this frame's cluster ranges into the staging
// buffer, if it is idle. Must be recorded after the culling dispatch.
func (r *OccupancyReader) QueueCopy(encoder *wgpu.CommandEncoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != 0 {
		return
	}
	size := r.bm.ClusterRangeSize()
	if size == 0 {
		return
	}
	if r.staging == nil || r.staging.GetSize() < size {
		if r.staging != nil {
			r.staging.Release()
		}
		var err error
		r.staging, err = r.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "Occupancy Readback",
			Size:  size,
			Usage: wgpu.BufferUsageCopyDst | wgpu.BufferUsageMapRead,
		})
		if err != nil {
			panic(err)
		}
	}
	encoder.CopyBufferToBuffer(r.bm.ClusterRangeBuf, 0, r.staging, 0, size)
	r.state = 1
}

// Stats advances the readback state machine and returns the most recent
// occupancy summary. The bool is false until the first readback completes.
func (r *OccupancyReader) Stats() (core.OccupancyStats, bool) {
	r.mu.Lock()
	if r.state == 1 {
		r.state = 2
		r.staging.MapAsync(wgpu.MapModeRead, 0, r.staging.GetSize(), func(status wgpu.BufferMapAsyncStatus) {
			r.mu.Lock()
			defer r.mu.Unlock()
			if status == wgpu.BufferMapAsyncStatusSuccess {
				r.state = 3
			} else {
				r.state = 0
			}
		})
	}
	r.mu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == 3 {
		size := r.staging.GetSize()
		data := r.staging.GetMappedRange(0, uint(size))

		stats := core.OccupancyStats{Clusters: uint32(size / 8)}
		for off := uint64(0); off+8 <= size; off += 8 {
			count := binary.LittleEndian.Uint32(data[off+4:])
			if count > 0 {
				stats.NonEmpty++
			}
			if count > stats.MaxPerClus {
				stats.MaxPerClus = count
			}
			if count >= core.MaxLightsPerCluster {
				stats.Overflowed++
			}
			stats.TotalIndices += count
		}
		r.staging.Unmap()
		r.state = 0
		r.lastStats = stats
		r.haveStats = true
	}
	return r.lastStats, r.haveStats
}
