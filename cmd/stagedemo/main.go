// Command stagedemo runs the render loop headlessly and prints per-frame
// statistics: collected commands, passes visited, and the binds the
// state-diffing executor avoided.
//
// By default frames are replayed through an in-memory recorder, so the
// demo runs anywhere. With -gpu it opens a headless device and submits
// real command buffers.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math"
	"os"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/stage"
	"github.com/gogpu/stage/backend/wgpu"
	"github.com/gogpu/stage/frame"
	"github.com/gogpu/stage/pass"
	"github.com/gogpu/stage/resource"
)

func main() {
	var (
		frames  = flag.Int("frames", 60, "number of frames to render")
		width   = flag.Uint("width", 1280, "viewport width")
		height  = flag.Uint("height", 720, "viewport height")
		config  = flag.String("config", "", "optional TOML pass configuration file")
		useGPU  = flag.Bool("gpu", false, "submit to a headless GPU device")
		verbose = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	stage.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	registry := pass.NewRegistry()
	if *config != "" {
		if err := registry.LoadConfig(*config); err != nil {
			log.Fatalf("Failed to load pass config: %v", err)
		}
	}

	var (
		creator   resource.Creator
		submitter frame.Submitter
		recorder  *frame.Recorder
		cleanup   func()
	)
	if *useGPU {
		backend, err := wgpu.NewHeadless()
		if err != nil {
			log.Fatalf("Failed to open GPU device: %v", err)
		}
		gpuCreator := wgpu.NewCreator(backend)
		//nolint:gosec // G115: flag values are small
		gpuSubmitter, err := wgpu.NewSubmitter(backend, gpuCreator, uint32(*width), uint32(*height))
		if err != nil {
			backend.Close()
			log.Fatalf("Failed to create submitter: %v", err)
		}
		creator = gpuCreator
		submitter = gpuSubmitter
		cleanup = func() {
			gpuSubmitter.Close()
			gpuCreator.Release()
			backend.Close()
		}
	} else {
		recorder = &frame.Recorder{}
		creator = &nullCreator{}
		submitter = recorder
		cleanup = func() {}
	}
	defer cleanup()

	cache, err := resource.NewCache(creator)
	if err != nil {
		log.Fatalf("Failed to create resource cache: %v", err)
	}

	loop := frame.NewLoop(registry, submitter)
	loop.Add(newTerrain(cache))
	loop.Add(newCrates(cache, 8))
	loop.Add(newSparks(cache, 32))
	loop.Add(newHUD(cache))

	for i := 0; i < *frames; i++ {
		if recorder != nil {
			recorder.Reset()
		}
		//nolint:gosec // G115: flag values are small
		stats, err := loop.RenderFrame(1.0/60.0, uint32(*width), uint32(*height))
		if err != nil {
			log.Fatalf("Frame %d failed: %v", stats.Frame, err)
		}
		if i == 0 || (i+1)%10 == 0 {
			fmt.Printf("frame %3d: %d commands, %d passes, %d draws, %d binds avoided\n",
				stats.Frame, stats.Commands, stats.PassesVisited,
				stats.Exec.Draws, stats.Exec.BindsAvoided)
		}
	}

	cs := cache.Stats()
	fmt.Printf("cache: %d entries, %d hits, %d misses, %d failures\n",
		cs.Entries, cs.Hits, cs.Misses, cs.Failures)
}

// nullCreator mints handles without a device, for recorder-only runs.
type nullCreator struct {
	nextID uint64
}

func (n *nullCreator) CompileShader(*resource.ShaderDefinition) (resource.Handle, error) {
	n.nextID++
	return resource.NewHandle(resource.KindShader, n.nextID), nil
}

func (n *nullCreator) UploadGeometry(*resource.GeometryDefinition) (resource.Handle, error) {
	n.nextID++
	return resource.NewHandle(resource.KindGeometry, n.nextID), nil
}

func (n *nullCreator) UploadTexture(*resource.TextureDefinition) (resource.Handle, error) {
	n.nextID++
	return resource.NewHandle(resource.KindTexture, n.nextID), nil
}

func (n *nullCreator) Destroy(resource.Handle) {}

// flatShaderWGSL draws positions with a solid per-draw color.
const flatShaderWGSL = `
struct Params {
    color: vec4<f32>,
};
@group(0) @binding(0) var<uniform> params: Params;

@vertex
fn vs_main(@location(0) pos: vec3<f32>) -> @builtin(position) vec4<f32> {
    return vec4<f32>(pos, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return params.color;
}
`

// quadGeometry returns a unit quad offset into clip space.
func quadGeometry(name string, cx, cy, half float32) *resource.GeometryDefinition {
	return &resource.GeometryDefinition{
		Name: name,
		Vertices: resource.PackFloat32(
			cx-half, cy-half, 0,
			cx+half, cy-half, 0,
			cx+half, cy+half, 0,
			cx-half, cy+half, 0,
		),
		VertexStride: 12,
		Indices:      resource.PackUint16(0, 1, 2, 0, 2, 3),
		IndexFormat:  gputypes.IndexFormatUint16,
	}
}

func flatShader(cache *resource.Cache, owner resource.Owner) resource.Handle {
	return cache.Shader(&resource.ShaderDefinition{
		Name:       "demo/flat",
		Persistent: true,
		Source:     flatShaderWGSL,
		Layout: []resource.VertexAttribute{
			{Name: "pos", Format: gputypes.VertexFormatFloat32x3, Offset: 0},
		},
		VertexStride: 12,
	}, owner)
}

// terrain draws one large ground quad into the shadow and opaque passes.
type terrain struct {
	shader   resource.Handle
	geometry resource.Handle
}

func newTerrain(cache *resource.Cache) *terrain {
	return &terrain{
		shader:   flatShader(cache, "terrain"),
		geometry: cache.Geometry(quadGeometry("demo/ground", 0, -0.5, 0.5), "terrain"),
	}
}

func (t *terrain) Draw(fc frame.FrameContext, out *frame.CommandBuffer) {
	out.Submit(frame.Command{
		Geometry:   t.geometry,
		Pipeline:   t.shader,
		IndexCount: 6,
		Passes:     pass.Shadow | pass.Opaque,
		Uniforms: []frame.Uniform{
			frame.Vec4("color", 0.2, 0.5, 0.2, 1),
		},
	})
}

// crates draws a row of opaque quads sharing one pipeline and geometry,
// the best case for state-diffed batching.
type crates struct {
	shader   resource.Handle
	geometry resource.Handle
	count    int
}

func newCrates(cache *resource.Cache, count int) *crates {
	return &crates{
		shader:   flatShader(cache, "crates"),
		geometry: cache.Geometry(quadGeometry("demo/crate", 0, 0, 0.05), "crates"),
		count:    count,
	}
}

func (c *crates) Draw(fc frame.FrameContext, out *frame.CommandBuffer) {
	for i := range c.count {
		out.Submit(frame.Command{
			Geometry:   c.geometry,
			Pipeline:   c.shader,
			IndexCount: 6,
			Passes:     pass.Shadow | pass.Opaque,
			Depth:      float32(i),
			Key:        uint32(i), //nolint:gosec // G115: demo-sized counts
			Uniforms: []frame.Uniform{
				frame.Vec4("color", 0.6, 0.4, 0.2, 1),
			},
		})
	}
}

// sparks draws animated blended quads into the particles pass.
type sparks struct {
	shader   resource.Handle
	geometry resource.Handle
	count    int
}

func newSparks(cache *resource.Cache, count int) *sparks {
	return &sparks{
		shader:   flatShader(cache, "sparks"),
		geometry: cache.Geometry(quadGeometry("demo/spark", 0, 0, 0.01), "sparks"),
		count:    count,
	}
}

func (s *sparks) Draw(fc frame.FrameContext, out *frame.CommandBuffer) {
	t := float64(fc.Frame) / 60.0
	for i := range s.count {
		phase := t + float64(i)*0.3
		out.Submit(frame.Command{
			Geometry:   s.geometry,
			Pipeline:   s.shader,
			IndexCount: 6,
			Passes:     pass.Particles,
			Depth:      float32(2 + math.Sin(phase)),
			Uniforms: []frame.Uniform{
				frame.Vec4("color", 1, 0.8, 0.1, float32(0.5+0.5*math.Cos(phase))),
			},
		})
	}
}

// hud draws two overlay quads ordered by key.
type hud struct {
	shader   resource.Handle
	geometry resource.Handle
}

func newHUD(cache *resource.Cache) *hud {
	return &hud{
		shader:   flatShader(cache, "hud"),
		geometry: cache.Geometry(quadGeometry("demo/panel", -0.8, 0.8, 0.1), "hud"),
	}
}

func (h *hud) Draw(fc frame.FrameContext, out *frame.CommandBuffer) {
	out.Submit(frame.Command{
		Geometry:   h.geometry,
		Pipeline:   h.shader,
		IndexCount: 6,
		Passes:     pass.Overlay,
		Key:        10,
		Uniforms:   []frame.Uniform{frame.Vec4("color", 0, 0, 0, 0.6)},
	})
	out.Submit(frame.Command{
		Geometry:   h.geometry,
		Pipeline:   h.shader,
		IndexCount: 6,
		Passes:     pass.Overlay,
		Key:        20,
		Uniforms:   []frame.Uniform{frame.Vec4("color", 1, 1, 1, 0.9)},
	})
}
