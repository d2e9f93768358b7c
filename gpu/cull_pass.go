package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/lumen/core"
	"github.com/gekko3d/lumen/shaders"
)

// CullPass dispatches the clustered light culling compute shader: one
// invocation per cluster, writing (offset, count) ranges and the global
// light index buffer. Idempotent per cluster given identical inputs; it has
// no data dependency on the shadow passes and may run alongside them on the
// GPU timeline.
type CullPass struct {
	device *wgpu.Device
	bm     *BufferManager

	pipeline *wgpu.ComputePipeline
	bgl      *wgpu.BindGroupLayout

	bindGroup [MaxFramesInFlight]*wgpu.BindGroup
	boundGen  [MaxFramesInFlight]*wgpu.Buffer
}

func NewCullPass(device *wgpu.Device, bm *BufferManager) (*CullPass, error) {
	p := &CullPass{device: device, bm: bm}

	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "ClusterCull",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.ClusterCullWGSL},
	})
	if err != nil {
		return nil, err
	}

	p.bgl, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Cull BGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageCompute,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageCompute,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage},
			},
			{
				Binding:    2,
				Visibility: wgpu.ShaderStageCompute,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeStorage},
			},
			{
				Binding:    3,
				Visibility: wgpu.ShaderStageCompute,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeStorage},
			},
			{
				Binding:    4,
				Visibility: wgpu.ShaderStageCompute,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeStorage},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	layout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		BindGroupLayouts: []*wgpu.BindGroupLayout{p.bgl},
	})
	if err != nil {
		return nil, err
	}
	p.pipeline, err = device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  "Cull Pipeline",
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: "cull",
		},
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// InvalidateBindGroups drops cached bind groups after cluster buffers were
// recreated on resize.
func (p *CullPass) InvalidateBindGroups() {
	for i := range p.bindGroup {
		p.bindGroup[i] = nil
		p.boundGen[i] = nil
	}
}

func (p *CullPass) ensureBindGroup(frame int) *wgpu.BindGroup {
	slot := frame % MaxFramesInFlight
	lights := p.bm.Lights(frame)
	if p.bindGroup[slot] != nil && p.boundGen[slot] == lights {
		return p.bindGroup[slot]
	}
	bg, err := p.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Cull BG",
		Layout: p.bgl,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: p.bm.CullUniformBuf, Size: core.CullingUniformSize},
			{Binding: 1, Buffer: lights, Size: lights.GetSize()},
			{Binding: 2, Buffer: p.bm.ClusterRangeBuf, Size: p.bm.ClusterRangeBuf.GetSize()},
			{Binding: 3, Buffer: p.bm.LightIndexBuf, Size: p.bm.LightIndexBuf.GetSize()},
			{Binding: 4, Buffer: p.bm.IndexCounterBuf, Size: 4},
		},
	})
	if err != nil {
		panic(err)
	}
	p.bindGroup[slot] = bg
	p.boundGen[slot] = lights
	return bg
}

// Record encodes the culling dispatch: one workgroup covers a 16x16 tile
// patch of one depth slice.
func (p *CullPass) Record(encoder *wgpu.CommandEncoder, frame int, grid *core.ClusterGrid) {
	bg := p.ensureBindGroup(frame)
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(p.pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.DispatchWorkgroups((grid.TilesX+15)/16, (grid.TilesY+15)/16, grid.NumSlices)
	pass.End()
}
