package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/lumen/core"
	"github.com/gekko3d/lumen/shaders"
)

const (
	// Depth bias applied during cascade rendering, together with
	// front-face culling, to suppress self-shadow acne.
	shadowDepthBias           = 2
	shadowDepthBiasSlopeScale = 2.0
)

// ShadowPass renders one depth-only pass per cascade into slices of a
// depth-array texture. Passes are independent of each other and of the
// culling stage. An invalid cascade is skipped; its slice keeps the clear
// value and shades fully lit.
type ShadowPass struct {
	device *wgpu.Device
	bm     *BufferManager

	pipeline    *wgpu.RenderPipeline
	cascadeBGL  *wgpu.BindGroupLayout
	modelBGL    *wgpu.BindGroupLayout
	cascadeBuf  *wgpu.Buffer
	cascadeBG   *wgpu.BindGroup
	modelBG     [MaxFramesInFlight]*wgpu.BindGroup
	modelBGGen  [MaxFramesInFlight]*wgpu.Buffer
	ArrayTex    *wgpu.Texture
	ArrayView   *wgpu.TextureView // all layers, bound by the shading pass
	layerViews  []*wgpu.TextureView
	mapSize     uint32
	numCascades uint32
}

func NewShadowPass(device *wgpu.Device, bm *BufferManager, cfg core.CascadeConfig) (*ShadowPass, error) {
	p := &ShadowPass{device: device, bm: bm, mapSize: cfg.MapSize, numCascades: cfg.Count}

	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "ShadowMap",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.ShadowMapWGSL},
	})
	if err != nil {
		return nil, err
	}

	p.cascadeBGL, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Shadow Cascade BGL",
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
	p.modelBGL, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Shadow Model BGL",
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
		BindGroupLayouts: []*wgpu.BindGroupLayout{p.cascadeBGL, p.modelBGL},
	})
	if err != nil {
		return nil, err
	}

	p.pipeline, err = device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "Shadow Pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_shadow",
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
			CullMode:  wgpu.CullModeFront,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:              wgpu.TextureFormatDepth32Float,
			DepthWriteEnabled:   true,
			DepthCompare:        wgpu.CompareFunctionLess,
			DepthBias:           shadowDepthBias,
			DepthBiasSlopeScale: shadowDepthBiasSlopeScale,
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

	p.ArrayTex, err = device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "ShadowCascades",
		Size:          wgpu.Extent3D{Width: cfg.MapSize, Height: cfg.MapSize, DepthOrArrayLayers: cfg.Count},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth32Float,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
	})
	if err != nil {
		return nil, err
	}
	p.ArrayView, err = p.ArrayTex.CreateView(&wgpu.TextureViewDescriptor{
		Label:           "ShadowCascades Array",
		Format:          wgpu.TextureFormatDepth32Float,
		Dimension:       wgpu.TextureViewDimension2DArray,
		BaseArrayLayer:  0,
		ArrayLayerCount: cfg.Count,
		MipLevelCount:   1,
	})
	if err != nil {
		return nil, err
	}
	p.layerViews = make([]*wgpu.TextureView, cfg.Count)
	for i := uint32(0); i < cfg.Count; i++ {
		p.layerViews[i], err = p.ArrayTex.CreateView(&wgpu.TextureViewDescriptor{
			Label:           "ShadowCascade Layer",
			Format:          wgpu.TextureFormatDepth32Float,
			Dimension:       wgpu.TextureViewDimension2D,
			BaseArrayLayer:  i,
			ArrayLayerCount: 1,
			MipLevelCount:   1,
		})
		if err != nil {
			return nil, err
		}
	}

	p.cascadeBuf, err = device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Cascade VP UB",
		Size:  ModelUniformStride * uint64(cfg.Count),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	p.cascadeBG, err = device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Shadow Cascade BG",
		Layout: p.cascadeBGL,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: p.cascadeBuf, Size: 64},
		},
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (p *ShadowPass) ensureModelBG(frame int) *wgpu.BindGroup {
	slot := frame % MaxFramesInFlight
	buf := p.bm.Model(frame)
	if p.modelBG[slot] != nil && p.modelBGGen[slot] == buf {
		return p.modelBG[slot]
	}
	bg, err := p.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Shadow Model BG",
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

// Record encodes one depth pass per valid cascade. All shadow casters in the
// draw list render into every cascade; invalid cascades are cleared only.
func (p *ShadowPass) Record(encoder *wgpu.CommandEncoder, frame int, cascades []core.Cascade, items []core.DrawItem, offsets []uint32) {
	for i, c := range cascades {
		vp := make([]byte, 64)
		packMat4(vp, 0, c.ViewProj)
		p.device.GetQueue().WriteBuffer(p.cascadeBuf, uint64(i)*ModelUniformStride, vp)
	}
	modelBG := p.ensureModelBG(frame)

	for i, c := range cascades {
		pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
			Label:            "Shadow Cascade",
			ColorAttachments: nil,
			DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
				View:            p.layerViews[i],
				DepthLoadOp:     wgpu.LoadOpClear,
				DepthStoreOp:    wgpu.StoreOpStore,
				DepthClearValue: 1.0,
			},
		})
		if !c.Valid {
			pass.End()
			continue
		}
		pass.SetPipeline(p.pipeline)
		pass.SetBindGroup(0, p.cascadeBG, []uint32{uint32(i) * ModelUniformStride})
		for j, item := range items {
			mb, ok := p.bm.Mesh(item.Mesh)
			if !ok {
				continue
			}
			pass.SetBindGroup(1, modelBG, []uint32{offsets[j]})
			pass.SetVertexBuffer(0, mb.Vertex, 0, wgpu.WholeSize)
			pass.SetIndexBuffer(mb.Index, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
			pass.DrawIndexed(mb.IndexCount, 1, 0, 0, 0)
		}
		pass.End()
	}
}
