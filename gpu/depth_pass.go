package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/lumen/core"
	"github.com/gekko3d/lumen/shaders"
)

// DepthPass renders the scene depth-only and refreshes SceneDepthCopy, the
// read-only duplicate consumed by the contact shadow march. The primary
// depth texture stays attached to the shading pass; the copy is never
// written by anything else in the same frame.
type DepthPass struct {
	device *wgpu.Device
	bm     *BufferManager

	pipeline   *wgpu.RenderPipeline
	frameBGL   *wgpu.BindGroupLayout
	modelBGL   *wgpu.BindGroupLayout
	frameBuf   *wgpu.Buffer
	frameBG    *wgpu.BindGroup
	modelBG    [MaxFramesInFlight]*wgpu.BindGroup
	modelBGGen [MaxFramesInFlight]*wgpu.Buffer

	DepthTexture  *wgpu.Texture
	DepthView     *wgpu.TextureView
	SceneCopyTex  *wgpu.Texture
	SceneCopyView *wgpu.TextureView
	width, height uint32
}

func NewDepthPass(device *wgpu.Device, bm *BufferManager) (*DepthPass, error) {
	p := &DepthPass{device: device, bm: bm}

	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "DepthPrepass",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.DepthPrepassWGSL},
	})
	if err != nil {
		return nil, err
	}

	p.frameBGL, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Depth Frame BGL",
		Entries: []wgpu.BindGroupLayoutEntry{{
			Binding:    0,
			Visibility: wgpu.ShaderStageVertex,
			Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform},
		}},
	})
	if err != nil {
		return nil, err
	}
	p.modelBGL, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Depth Model BGL",
		Entries: []wgpu.BindGroupLayoutEntry{{
			Binding:    0,
			Visibility: wgpu.ShaderStageVertex,
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
		Label:  "Depth Prepass Pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_depth",
			Buffers: []wgpu.VertexBufferLayout{{
				ArrayStride: core.VertexSize,
				StepMode:    wgpu.VertexStepModeVertex,
				Attributes: []wgpu.VertexAttribute{
					{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
				},
			}},
		},
		Fragment: nil,
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeBack,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth32Float,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
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

	p.frameBuf, err = device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Depth Frame UB",
		Size:  64,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	p.frameBG, err = device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Depth Frame BG",
		Layout: p.frameBGL,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: p.frameBuf, Size: 64},
		},
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Resize recreates the depth texture and SceneDepthCopy for a new viewport.
// Must not be called mid-frame.
func (p *DepthPass) Resize(width, height uint32) {
	if p.DepthTexture != nil {
		p.DepthView.Release()
		p.DepthTexture.Release()
		p.SceneCopyView.Release()
		p.SceneCopyTex.Release()
	}
	p.width, p.height = width, height

	var err error
	p.DepthTexture, err = p.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "SceneDepth",
		Size:          wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth32Float,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopySrc,
	})
	if err != nil {
		panic(err)
	}
	p.DepthView, err = p.DepthTexture.CreateView(nil)
	if err != nil {
		panic(err)
	}

	p.SceneCopyTex, err = p.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "SceneDepthCopy",
		Size:          wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth32Float,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		panic(err)
	}
	p.SceneCopyView, err = p.SceneCopyTex.CreateView(nil)
	if err != nil {
		panic(err)
	}
}

func (p *DepthPass) ensureModelBG(frame int) *wgpu.BindGroup {
	slot := frame % MaxFramesInFlight
	buf := p.bm.Model(frame)
	if p.modelBG[slot] != nil && p.modelBGGen[slot] == buf {
		return p.modelBG[slot]
	}
	bg, err := p.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Depth Model BG",
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

// Record encodes the depth pre-pass for this frame's draw list, then copies
// the result into SceneDepthCopy. Model uniforms must already be uploaded
// with offsets matching the draw order.
func (p *DepthPass) Record(encoder *wgpu.CommandEncoder, frame int, viewProj mgl32.Mat4, items []core.DrawItem, offsets []uint32) {
	ub := make([]byte, 64)
	packMat4(ub, 0, viewProj)
	p.device.GetQueue().WriteBuffer(p.frameBuf, 0, ub)

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label:            "Depth Prepass",
		ColorAttachments: nil,
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            p.DepthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		},
	})
	pass.SetPipeline(p.pipeline)
	pass.SetBindGroup(0, p.frameBG, nil)
	modelBG := p.ensureModelBG(frame)
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

	encoder.CopyTextureToTexture(
		&wgpu.ImageCopyTexture{Texture: p.DepthTexture, MipLevel: 0, Origin: wgpu.Origin3D{}},
		&wgpu.ImageCopyTexture{Texture: p.SceneCopyTex, MipLevel: 0, Origin: wgpu.Origin3D{}},
		&wgpu.Extent3D{Width: p.width, Height: p.height, DepthOrArrayLayers: 1},
	)
}
