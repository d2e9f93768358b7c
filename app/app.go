package app

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/lumen/core"
	"github.com/gekko3d/lumen/gpu"
)

// Sun is the primary directional light driving cascades and contact shadows.
type Sun struct {
	Direction mgl32.Vec3 // toward geometry, normalized on use
	Color     mgl32.Vec3
	Intensity float32
}

// Frame is the per-frame context handed to the update callback. Stages
// receive it explicitly; there is no global engine state.
type Frame struct {
	Camera *core.Camera
	Lights *core.Registry
	Draws  *core.DrawList
	Sun    *Sun
	Dt     float32
	Time   float64
}

// UpdateFunc runs once per frame, before rendering. It submits this frame's
// lights and draws and may move the camera.
type UpdateFunc func(*Frame)

// App owns the window, the GPU device and the frame pipeline: depth
// pre-pass, clustered light culling, cascaded shadow maps, clustered
// shading and screen-space contact shadows.
type App struct {
	opts Options
	log  core.Logger

	window   *glfw.Window
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface
	config   *wgpu.SurfaceConfiguration

	bm        *gpu.BufferManager
	depth     *gpu.DepthPass
	cull      *gpu.CullPass
	shadow    *gpu.ShadowPass
	shade     *gpu.ShadingPass
	contact   *gpu.ContactPass
	occupancy *gpu.OccupancyReader
	hud       *Hud

	camera   *core.Camera
	registry *core.Registry
	draws    core.DrawList
	arena    *core.FrameArena
	meshes   *core.MeshLibrary
	profiler *Profiler

	Sun Sun

	frame       int
	offsets     []uint32
	warnedDraws bool
	lastTime    float64
	fps         float64
	fpsFrames   int
	fpsTime     float64
}

// clampDraws truncates a frame's draw list to the model uniform buffer
// capacity. Draws past the cap are skipped for the frame; the condition is
// warned once, like the light cap.
func clampDraws(items []core.DrawItem, log core.Logger, warned *bool) []core.DrawItem {
	if len(items) <= gpu.MaxDrawsPerFrame {
		return items
	}
	if !*warned {
		log.Warnf("draw list has %d items, cap is %d, extra draws skipped",
			len(items), gpu.MaxDrawsPerFrame)
		*warned = true
	}
	return items[:gpu.MaxDrawsPerFrame]
}

// New validates the options, opens the window and builds every pass.
// Configuration errors and GPU setup failures abort startup; nothing renders
// from a partially built pipeline.
func New(opts Options) (*App, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	log := opts.Log
	if log == nil {
		log = core.NewDefaultLogger("lumen", opts.Debug)
	}

	a := &App{
		opts:     opts,
		log:      log,
		arena:    core.NewFrameArena(),
		meshes:   core.NewMeshLibrary(),
		registry: core.NewRegistry(log),
		profiler: NewProfiler(),
		Sun: Sun{
			Direction: mgl32.Vec3{-0.4, -1, -0.3},
			Color:     mgl32.Vec3{1, 0.96, 0.9},
			Intensity: 2.0,
		},
	}

	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("glfw init: %w", err)
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(int(opts.Width), int(opts.Height), opts.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("create window: %w", err)
	}
	a.window = window

	if err := a.initGPU(); err != nil {
		a.Close()
		return nil, err
	}
	a.camera = core.NewCamera(a.config.Width, a.config.Height)
	a.log.Infof("started %dx%d, grid %dpx tiles x %d slices, %d cascades",
		a.config.Width, a.config.Height, opts.Grid.TileSizePx, opts.Grid.NumSlices, opts.Cascades.Count)
	return a, nil
}

func (a *App) initGPU() error {
	a.instance = wgpu.CreateInstance(nil)
	a.surface = a.instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(a.window))

	adapter, err := a.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: a.surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return fmt.Errorf("request adapter: %w", err)
	}
	a.adapter = adapter
	a.device, err = adapter.RequestDevice(nil)
	if err != nil {
		return fmt.Errorf("request device: %w", err)
	}
	a.queue = a.device.GetQueue()

	width, height := a.window.GetFramebufferSize()
	caps := a.surface.GetCapabilities(adapter)
	format := caps.Formats[0]
	a.config = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      format,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	a.surface.Configure(adapter, a.device, a.config)

	a.bm = gpu.NewBufferManager(a.device, a.log)
	if a.depth, err = gpu.NewDepthPass(a.device, a.bm); err != nil {
		return fmt.Errorf("depth pass: %w", err)
	}
	if a.cull, err = gpu.NewCullPass(a.device, a.bm); err != nil {
		return fmt.Errorf("cull pass: %w", err)
	}
	if a.shadow, err = gpu.NewShadowPass(a.device, a.bm, a.opts.Cascades); err != nil {
		return fmt.Errorf("shadow pass: %w", err)
	}
	if a.shade, err = gpu.NewShadingPass(a.device, a.bm, format); err != nil {
		return fmt.Errorf("shading pass: %w", err)
	}
	if a.contact, err = gpu.NewContactPass(a.device); err != nil {
		return fmt.Errorf("contact pass: %w", err)
	}
	a.occupancy = gpu.NewOccupancyReader(a.device, a.bm)
	if a.opts.ShowHud {
		if a.hud, err = NewHud(a.device, format); err != nil {
			return fmt.Errorf("hud: %w", err)
		}
	}

	a.depth.Resize(a.config.Width, a.config.Height)
	a.contact.Resize(a.config.Width, a.config.Height)
	return nil
}

// RegisterMesh uploads a mesh once; frames reference it by id.
func (a *App) RegisterMesh(m *core.Mesh) (core.MeshId, error) {
	id, err := a.meshes.Register(m)
	if err != nil {
		return "", err
	}
	a.bm.RegisterMesh(id, m)
	return id, nil
}

// Run drives the frame loop until the window closes.
func (a *App) Run(update UpdateFunc) error {
	a.lastTime = glfw.GetTime()
	for !a.window.ShouldClose() {
		glfw.PollEvents()

		now := glfw.GetTime()
		dt := float32(now - a.lastTime)
		a.lastTime = now

		// Resize is handled between frames only.
		w, h := a.window.GetFramebufferSize()
		if uint32(w) != a.config.Width || uint32(h) != a.config.Height {
			a.resize(uint32(w), uint32(h))
		}

		a.arena.Reset()
		a.registry.Reset()
		a.draws.Reset()

		a.profiler.Begin("update")
		a.handleInput(dt)
		frame := Frame{
			Camera: a.camera,
			Lights: a.registry,
			Draws:  &a.draws,
			Sun:    &a.Sun,
			Dt:     dt,
			Time:   now,
		}
		update(&frame)
		a.profiler.End("update")

		a.render()

		a.fpsFrames++
		a.fpsTime += float64(dt)
		if a.fpsTime >= 1.0 {
			a.fps = float64(a.fpsFrames) / a.fpsTime
			a.fpsFrames = 0
			a.fpsTime = 0
		}
		a.frame++
	}
	return nil
}

func (a *App) render() {
	a.profiler.Begin("prepare")

	lights := a.registry.Finalize(a.camera.Position)
	lightSpan := core.PackInto(a.arena, lights)
	a.bm.UploadLights(a.frame, a.arena.Bytes(lightSpan))

	grid := core.BuildClusterGrid(a.camera, a.opts.Grid)
	cullSpan := a.arena.AllocBytes(core.CullingUniformSize)
	grid.PackCullingUniform(a.arena.Bytes(cullSpan), uint32(len(lights)))
	a.bm.UploadCullUniform(a.arena.Bytes(cullSpan))

	if a.bm.EnsureClusterBuffers(grid.ClusterCount()) {
		a.cull.InvalidateBindGroups()
		a.shade.InvalidateBindGroups()
		a.occupancy.Invalidate()
	}
	a.bm.ResetIndexCounter()

	cascades := core.ComputeCascades(a.camera, a.Sun.Direction, a.opts.Cascades)
	cascSpan := a.arena.AllocBytes(len(cascades) * core.PackedCascadeSize)
	core.PackCascades(cascades, a.arena.Bytes(cascSpan))
	a.bm.UploadCascades(a.arena.Bytes(cascSpan))

	a.bm.UploadShadeUniform(gpu.PackShadeUniform(
		a.camera, &grid, a.Sun.Direction.Normalize(), a.Sun.Color, a.Sun.Intensity,
		a.opts.Cascades.EffectiveFar(a.camera.Far), a.opts.Cascades.Count))

	items := clampDraws(a.draws.Items, a.log, &a.warnedDraws)
	if cap(a.offsets) < len(items) {
		a.offsets = make([]uint32, len(items))
	}
	a.offsets = a.offsets[:len(items)]
	for i, item := range items {
		a.offsets[i] = a.bm.UploadModel(a.frame, i, gpu.PackModelUniform(item))
	}
	a.profiler.End("prepare")

	a.profiler.Begin("record")
	surfaceTex, err := a.surface.GetCurrentTexture()
	if err != nil {
		a.log.Errorf("get surface texture: %v, dropping frame", err)
		a.profiler.End("record")
		return
	}
	defer surfaceTex.Release()
	view, err := surfaceTex.CreateView(nil)
	if err != nil {
		a.log.Errorf("surface view: %v, dropping frame", err)
		a.profiler.End("record")
		return
	}
	defer view.Release()

	encoder, err := a.device.CreateCommandEncoder(nil)
	if err != nil {
		a.log.Errorf("command encoder: %v, dropping frame", err)
		a.profiler.End("record")
		return
	}

	// Depth first: both the shading depth test and SceneDepthCopy depend
	// on it. Culling and shadow passes are mutually independent.
	a.depth.Record(encoder, a.frame, a.camera.ViewProjection(), items, a.offsets)
	a.cull.Record(encoder, a.frame, &grid)
	a.occupancy.QueueCopy(encoder)
	a.shadow.Record(encoder, a.frame, cascades, items, a.offsets)
	a.contact.Record(encoder, a.camera, a.opts.Contact, a.Sun.Direction, a.depth.SceneCopyView)
	a.shade.Record(encoder, a.frame, view, a.depth.DepthView,
		a.shadow.ArrayView, a.contact.OutView, items, a.offsets)

	if a.hud != nil {
		a.updateHud(len(lights))
		pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
			ColorAttachments: []wgpu.RenderPassColorAttachment{{
				View:    view,
				LoadOp:  wgpu.LoadOpLoad,
				StoreOp: wgpu.StoreOpStore,
			}},
		})
		a.hud.Record(pass, a.config.Width, a.config.Height)
		pass.End()
	}

	cmd, err := encoder.Finish(nil)
	if err != nil {
		a.log.Errorf("encoder finish: %v, dropping frame", err)
		a.profiler.End("record")
		return
	}
	a.queue.Submit(cmd)
	a.surface.Present()
	a.profiler.End("record")
}

func (a *App) updateHud(lightCount int) {
	a.profiler.SetCount("lights", lightCount)
	a.profiler.SetCount("draws", len(a.draws.Items))
	if stats, ok := a.occupancy.Stats(); ok {
		a.profiler.SetCount("clusters", int(stats.Clusters))
		a.profiler.SetCount("occupied", int(stats.NonEmpty))
		a.profiler.SetCount("max/cluster", int(stats.MaxPerClus))
		a.profiler.SetCount("overflowed", int(stats.Overflowed))
	}
	a.hud.SetText(fmt.Sprintf("fps %.0f\n%s", a.fps, a.profiler.Summary()))
}

func (a *App) resize(width, height uint32) {
	if width == 0 || height == 0 {
		return
	}
	a.config.Width = width
	a.config.Height = height
	a.surface.Configure(a.adapter, a.device, a.config)
	a.camera.Width = width
	a.camera.Height = height
	a.depth.Resize(width, height)
	a.contact.Resize(width, height)
	a.shade.InvalidateBindGroups()
	a.log.Debugf("resized to %dx%d", width, height)
}

func (a *App) handleInput(dt float32) {
	const moveSpeed = 8.0
	const turnSpeed = 1.8

	cam := a.camera
	move := moveSpeed * dt
	if a.window.GetKey(glfw.KeyLeftShift) == glfw.Press {
		move *= 4
	}
	if a.window.GetKey(glfw.KeyW) == glfw.Press {
		cam.Position = cam.Position.Add(cam.Forward().Mul(move))
	}
	if a.window.GetKey(glfw.KeyS) == glfw.Press {
		cam.Position = cam.Position.Sub(cam.Forward().Mul(move))
	}
	if a.window.GetKey(glfw.KeyA) == glfw.Press {
		cam.Position = cam.Position.Sub(cam.Right().Mul(move))
	}
	if a.window.GetKey(glfw.KeyD) == glfw.Press {
		cam.Position = cam.Position.Add(cam.Right().Mul(move))
	}
	if a.window.GetKey(glfw.KeyQ) == glfw.Press {
		cam.Position[1] -= move
	}
	if a.window.GetKey(glfw.KeyE) == glfw.Press {
		cam.Position[1] += move
	}
	if a.window.GetKey(glfw.KeyLeft) == glfw.Press {
		cam.Yaw -= turnSpeed * dt
	}
	if a.window.GetKey(glfw.KeyRight) == glfw.Press {
		cam.Yaw += turnSpeed * dt
	}
	if a.window.GetKey(glfw.KeyUp) == glfw.Press {
		cam.Pitch += turnSpeed * dt
	}
	if a.window.GetKey(glfw.KeyDown) == glfw.Press {
		cam.Pitch -= turnSpeed * dt
	}
	if cam.Pitch > 1.5 {
		cam.Pitch = 1.5
	}
	if cam.Pitch < -1.5 {
		cam.Pitch = -1.5
	}
}

// Close releases GPU resources and the window.
func (a *App) Close() {
	if a.bm != nil {
		a.bm.Release()
	}
	if a.device != nil {
		a.device.Release()
	}
	if a.window != nil {
		a.window.Destroy()
	}
	glfw.Terminate()
}
