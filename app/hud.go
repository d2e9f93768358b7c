package app

import (
	"encoding/binary"
	"image"
	"image/draw"
	"math"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/gekko3d/lumen/shaders"
)

const (
	hudTexWidth  = 512
	hudTexHeight = 256
	hudMargin    = 8
)

// Hud draws a small text overlay with timings and cluster occupancy. Text is
// rasterized on the CPU with the basicfont face into a single-channel-style
// RGBA texture, then blitted as one alpha-blended quad.
type Hud struct {
	device *wgpu.Device

	pipeline   *wgpu.RenderPipeline
	bgl        *wgpu.BindGroupLayout
	uniformBuf *wgpu.Buffer
	vertexBuf  *wgpu.Buffer
	texture    *wgpu.Texture
	texView    *wgpu.TextureView
	sampler    *wgpu.Sampler
	bindGroup  *wgpu.BindGroup

	img      *image.RGBA
	lastText string
}

func NewHud(device *wgpu.Device, surfaceFormat wgpu.TextureFormat) (*Hud, error) {
	h := &Hud{device: device, img: image.NewRGBA(image.Rect(0, 0, hudTexWidth, hudTexHeight))}

	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "HudText",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.HudTextWGSL},
	})
	if err != nil {
		return nil, err
	}

	h.bgl, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Hud BGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    2,
				Visibility: wgpu.ShaderStageFragment,
				Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	layout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		BindGroupLayouts: []*wgpu.BindGroupLayout{h.bgl},
	})
	if err != nil {
		return nil, err
	}
	h.pipeline, err = device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "Hud Pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_hud",
			Buffers: []wgpu.VertexBufferLayout{{
				ArrayStride: 16,
				StepMode:    wgpu.VertexStepModeVertex,
				Attributes: []wgpu.VertexAttribute{
					{Format: wgpu.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
					{Format: wgpu.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},
				},
			}},
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_hud",
			Targets: []wgpu.ColorTargetState{{
				Format: surfaceFormat,
				Blend: &wgpu.BlendState{
					Color: wgpu.BlendComponent{
						SrcFactor: wgpu.BlendFactorSrcAlpha,
						DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						Operation: wgpu.BlendOperationAdd,
					},
					Alpha: wgpu.BlendComponent{
						SrcFactor: wgpu.BlendFactorOne,
						DstFactor: wgpu.BlendFactorOne,
						Operation: wgpu.BlendOperationAdd,
					},
				},
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleList,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, err
	}

	h.texture, err = device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Hud Text",
		Size:          wgpu.Extent3D{Width: hudTexWidth, Height: hudTexHeight, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	h.texView, err = h.texture.CreateView(nil)
	if err != nil {
		return nil, err
	}
	h.sampler, err = device.CreateSampler(&wgpu.SamplerDescriptor{
		MinFilter:     wgpu.FilterModeNearest,
		MagFilter:     wgpu.FilterModeNearest,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, err
	}

	h.uniformBuf, err = device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Hud UB",
		Size:  16,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	h.vertexBuf, err = device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Hud Quad",
		Size:  6 * 16,
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	h.bindGroup, err = device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Hud BG",
		Layout: h.bgl,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: h.uniformBuf, Size: 16},
			{Binding: 1, TextureView: h.texView},
			{Binding: 2, Sampler: h.sampler},
		},
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

// SetText re-rasterizes the overlay when the content changed.
func (h *Hud) SetText(text string) {
	if text == h.lastText {
		return
	}
	h.lastText = text

	draw.Draw(h.img, h.img.Bounds(), image.Transparent, image.Point{}, draw.Src)
	face := basicfont.Face7x13
	d := font.Drawer{
		Dst:  h.img,
		Src:  image.White,
		Face: face,
	}
	y := hudMargin + face.Ascent
	for _, line := range strings.Split(text, "\n") {
		d.Dot = fixed.P(hudMargin, y)
		d.DrawString(line)
		y += face.Height
	}

	h.device.GetQueue().WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture: h.texture,
			Origin:  wgpu.Origin3D{},
			Aspect:  wgpu.TextureAspectAll,
		},
		h.img.Pix,
		&wgpu.TextureDataLayout{
			BytesPerRow:  hudTexWidth * 4,
			RowsPerImage: hudTexHeight,
		},
		&wgpu.Extent3D{Width: hudTexWidth, Height: hudTexHeight, DepthOrArrayLayers: 1},
	)
}

// Record draws the overlay quad into an already-open render pass targeting
// the swapchain.
func (h *Hud) Record(pass *wgpu.RenderPassEncoder, screenW, screenH uint32) {
	ub := make([]byte, 16)
	packF32(ub, 0, float32(screenW))
	packF32(ub, 4, float32(screenH))
	h.device.GetQueue().WriteBuffer(h.uniformBuf, 0, ub)

	w, ht := float32(hudTexWidth), float32(hudTexHeight)
	quad := []float32{
		0, 0, 0, 0,
		w, 0, 1, 0,
		w, ht, 1, 1,
		0, 0, 0, 0,
		w, ht, 1, 1,
		0, ht, 0, 1,
	}
	vb := make([]byte, len(quad)*4)
	for i, v := range quad {
		packF32(vb, i*4, v)
	}
	h.device.GetQueue().WriteBuffer(h.vertexBuf, 0, vb)

	pass.SetPipeline(h.pipeline)
	pass.SetBindGroup(0, h.bindGroup, nil)
	pass.SetVertexBuffer(0, h.vertexBuf, 0, wgpu.WholeSize)
	pass.Draw(6, 1, 0, 0)
}

func packF32(b []byte, off int, v float32) {
	binary.LittleEndian.PutUint32(b[off:], math.Float32bits(v))
}
