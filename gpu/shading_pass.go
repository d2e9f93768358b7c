package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/lumen/core"
	"github.com/gekko3d/lumen/shaders"
)

// ShadingPass is the clustered forward pass: it resolves per-pixel light
// lists from the culling output, applies cascaded shadow maps with PCF and
// multiplies in the contact shadow attenuation. It must run after the
// culling, shadow and contact passes have recorded their writes.
type ShadingPass struct {
	device *wgpu.Device
	bm     *BufferManager

	pipeline       *wgpu.RenderPipeline
	frameBGL       *wgpu.BindGroupLayout
	modelBGL       *wgpu.BindGroupLayout
	shadowSampler  *wgpu.Sampler
	contactSampler *wgpu.Sampler

	frameBG    [MaxFramesInFlight]*wgpu.BindGroup
	frameBGGen [MaxFramesInFlight]*wgpu.Buffer
	modelBG    [MaxFramesInFlight]*wgpu.BindGroup
	modelBGGen [MaxFramesInFlight]*wgpu.Buffer
}

func NewShadingPass(device *wgpu.Device, bm *BufferManager, surfaceFormat wgpu.TextureFormat) (*ShadingPass, error) {
	p := &ShadingPass{device: device, bm: bm}

	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "ClusterShade",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.ClusterShadeWGSL},
	})
	if err != nil {
		return nil, err
	}

	p.frameBGL, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Shade Frame BGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage},
			},
			{
				Binding:    2,
				Visibility: wgpu.ShaderStageFragment,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage},
			},
			{
				Binding:    3,
				Visibility: wgpu.ShaderStageFragment,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage},
			},
			{
				Binding:    4,
				Visibility: wgpu.ShaderStageFragment,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage},
			},
			{
				Binding:    5,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeDepth,
					ViewDimension: wgpu.TextureViewDimension2DArray,
				},
			},
			{
				Binding:    6,
				Visibility: wgpu.ShaderStageFragment,
				Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeComparison},
			},
			{
				Binding:    7,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    8,
				Visibility: wgpu.ShaderStageFragment,
				Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return nil, err
	}
	p.modelBGL, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Shade Model BGL",
		Entries: []wgpu.BindGroupLayoutEntry{{
			Binding:    0,
			Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
			Buffer: wgpu.BufferBindingLayout{
				Type:             wgpu.BufferBindingTypeUniform,
				HasDynamicOffset: true,
			},
		}},
	})
	if err != nil {
		return nil, err
	}

	layout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		BindGroupLayouts: []*wgpu.BindGroupLayout{p.frameBGL, p.modelBGL},
	})
	if err != nil {
		return nil, err
	}

	p.pipeline, err = device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "Cluster Shading Pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_shade",
			Buffers: []wgpu.VertexBufferLayout{{
				ArrayStride: core.VertexSize,
				StepMode:    wgpu.VertexStepModeVertex,
				Attributes: []wgpu.VertexAttribute{
					{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
					{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
				},
			}},
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_shade",
			Targets: []wgpu.ColorTargetState{{
				Format:    surfaceFormat,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeBack,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		// The depth pre-pass already laid down depth; this pass only
		// tests against it.
		DepthStencil: &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth32Float,
			DepthWriteEnabled: false,
			DepthCompare:      wgpu.CompareFunctionLessEqual,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
	})
	if err != nil {
		return nil, err
	}

	p.shadowSampler, err = device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Shadow Comparison Sampler",
		MinFilter:     wgpu.FilterModeLinear,
		MagFilter:     wgpu.FilterModeLinear,
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		Compare:       wgpu.CompareFunctionLess,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, err
	}
	p.contactSampler, err = device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Contact Sampler",
		MinFilter:     wgpu.FilterModeLinear,
		MagFilter:     wgpu.FilterModeLinear,
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// InvalidateBindGroups drops cached frame bind groups after any bound
// resource (cluster buffers, contact target) was recreated.
func (p *ShadingPass) InvalidateBindGroups() {
	for i := range p.frameBG {
		p.frameBG[i] = nil
		p.frameBGGen[i] = nil
	}
}

func (p *ShadingPass) ensureFrameBG(frame int, shadowArray, contact *wgpu.TextureView) *wgpu.BindGroup {
	slot := frame % MaxFramesInFlight
	lights := p.bm.Lights(frame)
	if p.frameBG[slot] != nil && p.frameBGGen[slot] == lights {
		return p.frameBG[slot]
	}
	bg, err := p.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Shade Frame BG",
		Layout: p.frameBGL,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: p.bm.ShadeUniformBuf, Size: ShadeUniformSize},
			{Binding: 1, Buffer: lights, Size: lights.GetSize()},
			{Binding: 2, Buffer: p.bm.ClusterRangeBuf, Size: p.bm.ClusterRangeBuf.GetSize()},
			{Binding: 3, Buffer: p.bm.LightIndexBuf, Size: p.bm.LightIndexBuf.GetSize()},
			{Binding: 4, Buffer: p.bm.CascadesBuf, Size: p.bm.CascadesBuf.GetSize()},
			{Binding: 5, TextureView: shadowArray},
			{Binding: 6, Sampler: p.shadowSampler},
			{Binding: 7, TextureView: contact},
			{Binding: 8, Sampler: p.contactSampler},
		},
	})
	if err != nil {
		panic(err)
	}
	p.frameBG[slot] = bg
	p.frameBGGen[slot] = lights
	return bg
}

func (p *ShadingPass) ensureModelBG(frame int) *wgpu.BindGroup {
	slot := frame % MaxFramesInFlight
	buf := p.bm.Model(frame)
	if p.modelBG[slot] != nil && p.modelBGGen[slot] == buf {
		return p.modelBG[slot]
	}
	bg, err := p.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Shade Model BG",
		Layout: p.modelBGL,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: buf, Size: ModelUniformStride},
		},
	})
	if err != nil {
		panic(err)
	}
	p.modelBG[slot] = bg
	p.modelBGGen[slot] = buf
	return bg
}

// Record encodes the lit color pass into the swapchain view, testing against
// the pre-pass depth.
func (p *ShadingPass) Record(encoder *wgpu.CommandEncoder, frame int, target, depth, shadowArray, contact *wgpu.TextureView, items []core.DrawItem, offsets []uint32) {
	frameBG := p.ensureFrameBG(frame, shadowArray, contact)
	modelBG := p.ensureModelBG(frame)

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "Cluster Shading",
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       target,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: 0.01, G: 0.01, B: 0.02, A: 1.0},
		}},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:         depth,
			DepthLoadOp:  wgpu.LoadOpLoad,
			DepthStoreOp: wgpu.StoreOpStore,
		},
	})
	pass.SetPipeline(p.pipeline)
	pass.SetBindGroup(0, frameBG, nil)
	for i, item := range items {
		mb, ok := p.bm.Mesh(item.Mesh)
		if !ok {
			continue
		}
		pass.SetBindGroup(1, modelBG, []uint32{offsets[i]})
		pass.SetVertexBuffer(0, mb.Vertex, 0, wgpu.WholeSize)
		pass.SetIndexBuffer(mb.Index, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
		pass.DrawIndexed(mb.IndexCount, 1, 0, 0, 0)
	}
	pass.End()
}
