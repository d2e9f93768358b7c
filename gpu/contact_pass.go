package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/lumen/core"
	"github.com/gekko3d/lumen/shaders"
)

// ContactPass runs the screen-space contact shadow march over SceneDepthCopy
// and writes a single-channel attenuation texture the shading pass
// multiplies into the directional shadow term. It strictly follows the
// depth pre-pass on the GPU timeline.
type ContactPass struct {
	device *wgpu.Device

	pipeline   *wgpu.ComputePipeline
	bgl        *wgpu.BindGroupLayout
	uniformBuf *wgpu.Buffer
	bindGroup  *wgpu.BindGroup

	OutTex        *wgpu.Texture
	OutView       *wgpu.TextureView
	width, height uint32
}

func NewContactPass(device *wgpu.Device) (*ContactPass, error) {
	p := &ContactPass{device: device}

	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "ContactShadow",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.ContactShadowWGSL},
	})
	if err != nil {
		return nil, err
	}

	p.bgl, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Contact BGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageCompute,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageCompute,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeDepth,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    2,
				Visibility: wgpu.ShaderStageCompute,
				StorageTexture: wgpu.StorageTextureBindingLayout{
					Access:        wgpu.StorageTextureAccessWriteOnly,
					Format:        wgpu.TextureFormatR8Unorm,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
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
		Label:  "Contact Pipeline",
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: "march",
		},
	})
	if err != nil {
		return nil, err
	}

	p.uniformBuf, err = device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Contact UB",
		Size:  ContactUniformSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Resize recreates the attenuation target and invalidates the bind group,
// which also holds the old SceneDepthCopy view.
func (p *ContactPass) Resize(width, height uint32) {
	if p.OutTex != nil {
		p.OutView.Release()
		p.OutTex.Release()
	}
	p.width, p.height = width, height
	p.bindGroup = nil

	var err error
	p.OutTex, err = p.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "ContactShadowAttenuation",
		Size:          wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatR8Unorm,
		Usage:         wgpu.TextureUsageStorageBinding | wgpu.TextureUsageTextureBinding,
	})
	if err != nil {
		panic(err)
	}
	p.OutView, err = p.OutTex.CreateView(nil)
	if err != nil {
		panic(err)
	}
}

func (p *ContactPass) ensureBindGroup(sceneDepth *wgpu.TextureView) *wgpu.BindGroup {
	if p.bindGroup != nil {
		return p.bindGroup
	}
	bg, err := p.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Contact BG",
		Layout: p.bgl,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: p.uniformBuf, Size: ContactUniformSize},
			{Binding: 1, TextureView: sceneDepth},
			{Binding: 2, TextureView: p.OutView},
		},
	})
	if err != nil {
		panic(err)
	}
	p.bindGroup = bg
	return bg
}

// Record uploads the march parameters and dispatches over the full target.
func (p *ContactPass) Record(encoder *wgpu.CommandEncoder, cam *core.Camera, cfg core.ContactShadowConfig, sunDir mgl32.Vec3, sceneDepth *wgpu.TextureView) {
	data := PackContactUniform(cam, cfg, sunDir)
	p.device.GetQueue().WriteBuffer(p.uniformBuf, 0, data)

	bg := p.ensureBindGroup(sceneDepth)
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(p.pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.DispatchWorkgroups((p.width+7)/8, (p.height+7)/8, 1)
	pass.End()
}
