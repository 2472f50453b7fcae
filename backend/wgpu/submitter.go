// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package wgpu

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/stage"
	"github.com/gogpu/stage/frame"
	"github.com/gogpu/stage/pass"
	"github.com/gogpu/stage/resource"
)

// submitTimeout bounds the per-pass fence wait.
const submitTimeout = 5 * time.Second

// ErrPassActive means BeginPass was called while a pass was still open.
var ErrPassActive = errors.New("wgpu: render pass already active")

// Shader binding convention. Pipelines are assembled from the cached
// shader module and the pass configuration; the WGSL source must follow:
//
//	@group(0) @binding(0)  per-draw uniform block (present iff the
//	                       command carries uniforms)
//	@group(1) @binding(s)  texture_2d<f32> for bound slot s, fetched
//	                       with textureLoad
//
// Entry points are vs_main and fs_main, as everywhere else in gogpu.

// target is an offscreen attachment texture and its view.
type target struct {
	texture hal.Texture
	view    hal.TextureView
	width   uint32
	height  uint32
}

// pipelineKey identifies one specialized render pipeline.
type pipelineKey struct {
	shaderID    uint64
	colorFormat gputypes.TextureFormat
	depthFormat gputypes.TextureFormat
	topology    gputypes.PrimitiveTopology
	blend       bool
	hasUniforms bool
	texMask     uint8
}

// layoutKey identifies one pipeline layout shape.
type layoutKey struct {
	hasUniforms bool
	texMask     uint8
}

// Submitter encodes render passes on a HAL device. It implements
// frame.Submitter; each BeginPass..EndPass window becomes one command
// buffer, submitted and fenced at EndPass.
//
// Rendering is offscreen: color and depth targets are owned per format
// and recreated on Resize. Hosts read results back or blit the color
// view themselves.
type Submitter struct {
	device  hal.Device
	queue   hal.Queue
	creator *Creator

	width  uint32
	height uint32

	colorTargets map[gputypes.TextureFormat]*target
	depthTargets map[gputypes.TextureFormat]*target

	uniformLayout  hal.BindGroupLayout
	textureLayouts map[uint8]hal.BindGroupLayout
	layouts        map[layoutKey]hal.PipelineLayout
	pipelines      map[pipelineKey]hal.RenderPipeline

	// Per-pass encoding state.
	encoder     hal.CommandEncoder
	rp          hal.RenderPassEncoder
	cfg         pass.Config
	setPipeline hal.RenderPipeline

	// Pending draw state, applied at DrawIndexed.
	pendingShader   uint64
	pendingGeometry *geometryObject
	pendingIndex    gputypes.IndexFormat
	pendingTextures [frame.MaxTextureSlots]*textureObject
	pendingUniforms []frame.Uniform

	// Transient objects destroyed after the pass's fence signals.
	passBuffers    []hal.Buffer
	passBindGroups []hal.BindGroup
}

var _ frame.Submitter = (*Submitter)(nil)

// NewSubmitter builds a submitter rendering at the given offscreen size.
func NewSubmitter(b *Backend, creator *Creator, width, height uint32) (*Submitter, error) {
	s := &Submitter{
		device:         b.device,
		queue:          b.queue,
		creator:        creator,
		width:          width,
		height:         height,
		colorTargets:   make(map[gputypes.TextureFormat]*target),
		depthTargets:   make(map[gputypes.TextureFormat]*target),
		textureLayouts: make(map[uint8]hal.BindGroupLayout),
		layouts:        make(map[layoutKey]hal.PipelineLayout),
		pipelines:      make(map[pipelineKey]hal.RenderPipeline),
	}

	uniformLayout, err := s.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "stage_uniform_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create uniform layout: %w", err)
	}
	s.uniformLayout = uniformLayout
	return s, nil
}

// Resize drops all offscreen targets so the next pass recreates them at
// the new size. Pipelines survive; they are size-independent.
func (s *Submitter) Resize(width, height uint32) {
	if width == s.width && height == s.height {
		return
	}
	s.width = width
	s.height = height
	s.destroyTargets()
}

// ColorView returns the offscreen color view for a format, if a pass has
// rendered to it. Hosts use it for readback or presentation.
func (s *Submitter) ColorView(format gputypes.TextureFormat) (hal.TextureView, bool) {
	t, ok := s.colorTargets[format]
	if !ok {
		return nil, false
	}
	return t.view, true
}

// BeginPass implements frame.Submitter.
func (s *Submitter) BeginPass(cfg pass.Config, bit pass.Mask) error {
	if s.rp != nil {
		return ErrPassActive
	}

	encoder, err := s.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "stage_" + cfg.Name,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create encoder for %s: %w", cfg.Name, err)
	}
	if err := encoder.BeginEncoding(cfg.Name); err != nil {
		return fmt.Errorf("wgpu: begin encoding %s: %w", cfg.Name, err)
	}

	desc := &hal.RenderPassDescriptor{Label: cfg.Name}
	if cfg.HasColor() {
		t, err := s.ensureTarget(s.colorTargets, cfg.ColorFormat, gputypes.TextureUsageRenderAttachment|gputypes.TextureUsageCopySrc)
		if err != nil {
			encoder.DiscardEncoding()
			return err
		}
		desc.ColorAttachments = []hal.RenderPassColorAttachment{{
			View:    t.view,
			LoadOp:  cfg.LoadOp,
			StoreOp: gputypes.StoreOpStore,
			ClearValue: gputypes.Color{
				R: cfg.ClearColor.R, G: cfg.ClearColor.G,
				B: cfg.ClearColor.B, A: cfg.ClearColor.A,
			},
		}}
	}
	if cfg.HasDepth() {
		t, err := s.ensureTarget(s.depthTargets, cfg.DepthFormat, gputypes.TextureUsageRenderAttachment)
		if err != nil {
			encoder.DiscardEncoding()
			return err
		}
		desc.DepthStencilAttachment = &hal.RenderPassDepthStencilAttachment{
			View:              t.view,
			DepthLoadOp:       cfg.LoadOp,
			DepthStoreOp:      gputypes.StoreOpStore,
			DepthClearValue:   cfg.DepthClearValue,
			StencilLoadOp:     gputypes.LoadOpClear,
			StencilStoreOp:    gputypes.StoreOpDiscard,
			StencilClearValue: 0,
		}
	}

	s.encoder = encoder
	s.rp = encoder.BeginRenderPass(desc)
	s.cfg = cfg
	s.setPipeline = nil
	s.resetPending()

	stage.Logger().Debug("wgpu: pass begun", "pass", cfg.Name, "bit", bit)
	return nil
}

// BindPipeline implements frame.Submitter. The pipeline itself is
// resolved at draw time, when topology and binding shape are known.
func (s *Submitter) BindPipeline(h resource.Handle) error {
	s.pendingShader = h.ID()
	return nil
}

// BindGeometry implements frame.Submitter.
func (s *Submitter) BindGeometry(h resource.Handle, format gputypes.IndexFormat) error {
	g, ok := s.creator.geometry(h.ID())
	if !ok {
		return fmt.Errorf("wgpu: unknown geometry %s", h)
	}
	s.pendingGeometry = g
	s.pendingIndex = format
	return nil
}

// BindTexture implements frame.Submitter.
func (s *Submitter) BindTexture(slot int, h resource.Handle) error {
	if slot < 0 || slot >= frame.MaxTextureSlots {
		return fmt.Errorf("wgpu: texture slot %d out of range", slot)
	}
	t, ok := s.creator.texture(h.ID())
	if !ok {
		return fmt.Errorf("wgpu: unknown texture %s", h)
	}
	s.pendingTextures[slot] = t
	return nil
}

// SetUniform implements frame.Submitter. Uniforms accumulate until the
// next draw and are uploaded as one block.
func (s *Submitter) SetUniform(u frame.Uniform) error {
	s.pendingUniforms = append(s.pendingUniforms, u)
	return nil
}

// DrawIndexed implements frame.Submitter.
func (s *Submitter) DrawIndexed(indexCount uint32, topology gputypes.PrimitiveTopology) error {
	if s.rp == nil {
		return errors.New("wgpu: draw outside a render pass")
	}
	// A command with no resolvable shader cannot produce a pipeline;
	// drop the draw rather than the frame. The cache's fallback shader
	// makes this path unreachable in practice.
	if s.pendingShader == 0 {
		stage.Logger().Warn("wgpu: draw without pipeline, skipped", "pass", s.cfg.Name)
		s.resetPending()
		return nil
	}

	texMask := s.pendingTexMask()
	hasUniforms := len(s.pendingUniforms) > 0

	pipeline, err := s.ensurePipeline(pipelineKey{
		shaderID:    s.pendingShader,
		colorFormat: s.cfg.ColorFormat,
		depthFormat: s.cfg.DepthFormat,
		topology:    topology,
		blend:       s.cfg.Blend,
		hasUniforms: hasUniforms,
		texMask:     texMask,
	})
	if err != nil {
		return err
	}
	if pipeline != s.setPipeline {
		s.rp.SetPipeline(pipeline)
		s.setPipeline = pipeline
	}

	group := uint32(0)
	if hasUniforms {
		bg, err := s.uniformBindGroup()
		if err != nil {
			return err
		}
		s.rp.SetBindGroup(group, bg, nil)
		group++
	}
	if texMask != 0 {
		bg, err := s.textureBindGroup(texMask)
		if err != nil {
			return err
		}
		s.rp.SetBindGroup(group, bg, nil)
	}

	if s.pendingGeometry != nil {
		s.rp.SetVertexBuffer(0, s.pendingGeometry.vertexBuf, 0)
		if s.pendingGeometry.indexBuf != nil {
			s.rp.SetIndexBuffer(s.pendingGeometry.indexBuf, s.pendingIndex, 0)
			s.rp.DrawIndexed(indexCount, 1, 0, 0, 0)
		} else {
			s.rp.Draw(indexCount, 1, 0, 0)
		}
	} else {
		// Full-screen effects draw without geometry.
		s.rp.Draw(indexCount, 1, 0, 0)
	}

	s.resetPending()
	return nil
}

// EndPass implements frame.Submitter. The pass's command buffer is
// submitted and fenced before EndPass returns, so transient per-draw
// buffers can be destroyed immediately after.
func (s *Submitter) EndPass() error {
	if s.rp == nil {
		return errors.New("wgpu: end pass without begin")
	}
	s.rp.End()
	s.rp = nil

	cmdBuf, err := s.encoder.EndEncoding()
	s.encoder = nil
	if err != nil {
		s.freeTransients()
		return fmt.Errorf("wgpu: end encoding %s: %w", s.cfg.Name, err)
	}
	defer s.device.FreeCommandBuffer(cmdBuf)

	fence, err := s.device.CreateFence()
	if err != nil {
		s.freeTransients()
		return fmt.Errorf("wgpu: create fence: %w", err)
	}
	defer s.device.DestroyFence(fence)

	submission, err := s.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		s.freeTransients()
		return fmt.Errorf("wgpu: submit %s: %w", s.cfg.Name, err)
	}
	if ok, err := s.device.Wait(fence, submission, submitTimeout); err != nil || !ok {
		s.freeTransients()
		return fmt.Errorf("wgpu: wait %s: ok=%v err=%w", s.cfg.Name, ok, err)
	}

	s.freeTransients()
	return nil
}

// Close releases every object the submitter owns.
func (s *Submitter) Close() {
	s.freeTransients()
	s.destroyTargets()
	for k, p := range s.pipelines {
		s.device.DestroyRenderPipeline(p)
		delete(s.pipelines, k)
	}
	for k, l := range s.layouts {
		s.device.DestroyPipelineLayout(l)
		delete(s.layouts, k)
	}
	for k, l := range s.textureLayouts {
		s.device.DestroyBindGroupLayout(l)
		delete(s.textureLayouts, k)
	}
	if s.uniformLayout != nil {
		s.device.DestroyBindGroupLayout(s.uniformLayout)
		s.uniformLayout = nil
	}
}

func (s *Submitter) resetPending() {
	s.pendingShader = 0
	s.pendingGeometry = nil
	for i := range s.pendingTextures {
		s.pendingTextures[i] = nil
	}
	s.pendingUniforms = s.pendingUniforms[:0]
}

func (s *Submitter) pendingTexMask() uint8 {
	var mask uint8
	for slot, t := range s.pendingTextures {
		if t != nil {
			mask |= 1 << slot
		}
	}
	return mask
}

func (s *Submitter) freeTransients() {
	for _, bg := range s.passBindGroups {
		s.device.DestroyBindGroup(bg)
	}
	s.passBindGroups = s.passBindGroups[:0]
	for _, buf := range s.passBuffers {
		s.device.DestroyBuffer(buf)
	}
	s.passBuffers = s.passBuffers[:0]
}

func (s *Submitter) destroyTargets() {
	for f, t := range s.colorTargets {
		s.device.DestroyTextureView(t.view)
		s.device.DestroyTexture(t.texture)
		delete(s.colorTargets, f)
	}
	for f, t := range s.depthTargets {
		s.device.DestroyTextureView(t.view)
		s.device.DestroyTexture(t.texture)
		delete(s.depthTargets, f)
	}
}

// ensureTarget returns the cached attachment for a format, creating it
// at the current size on first use.
func (s *Submitter) ensureTarget(table map[gputypes.TextureFormat]*target, format gputypes.TextureFormat, usage gputypes.TextureUsage) (*target, error) {
	if t, ok := table[format]; ok && t.width == s.width && t.height == s.height {
		return t, nil
	}
	if t, ok := table[format]; ok {
		s.device.DestroyTextureView(t.view)
		s.device.DestroyTexture(t.texture)
		delete(table, format)
	}

	tex, err := s.device.CreateTexture(&hal.TextureDescriptor{
		Label:         fmt.Sprintf("stage_target_%d", format),
		Size:          hal.Extent3D{Width: s.width, Height: s.height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create target texture: %w", err)
	}
	view, err := s.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: fmt.Sprintf("stage_target_%d_view", format),
	})
	if err != nil {
		s.device.DestroyTexture(tex)
		return nil, fmt.Errorf("wgpu: create target view: %w", err)
	}

	t := &target{texture: tex, view: view, width: s.width, height: s.height}
	table[format] = t
	return t, nil
}

// ensureTextureLayout returns the bind group layout for a texture slot
// mask, one texture_2d binding per set slot.
func (s *Submitter) ensureTextureLayout(texMask uint8) (hal.BindGroupLayout, error) {
	if l, ok := s.textureLayouts[texMask]; ok {
		return l, nil
	}
	var entries []gputypes.BindGroupLayoutEntry
	for slot := range frame.MaxTextureSlots {
		if texMask&(1<<slot) == 0 {
			continue
		}
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    uint32(slot), //nolint:gosec // G115: slot < MaxTextureSlots
			Visibility: gputypes.ShaderStageFragment,
			Texture: &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			},
		})
	}
	layout, err := s.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   fmt.Sprintf("stage_texture_layout_%02x", texMask),
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create texture layout: %w", err)
	}
	s.textureLayouts[texMask] = layout
	return layout, nil
}

// ensureLayout returns the pipeline layout for a binding shape.
func (s *Submitter) ensureLayout(key layoutKey) (hal.PipelineLayout, error) {
	if l, ok := s.layouts[key]; ok {
		return l, nil
	}
	var groups []hal.BindGroupLayout
	if key.hasUniforms {
		groups = append(groups, s.uniformLayout)
	}
	if key.texMask != 0 {
		texLayout, err := s.ensureTextureLayout(key.texMask)
		if err != nil {
			return nil, err
		}
		groups = append(groups, texLayout)
	}
	layout, err := s.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            fmt.Sprintf("stage_layout_u%t_t%02x", key.hasUniforms, key.texMask),
		BindGroupLayouts: groups,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create pipeline layout: %w", err)
	}
	s.layouts[key] = layout
	return layout, nil
}

// ensurePipeline returns the cached pipeline for a key, building it on
// first use from the shader module and the pass's attachment formats.
func (s *Submitter) ensurePipeline(key pipelineKey) (hal.RenderPipeline, error) {
	if p, ok := s.pipelines[key]; ok {
		return p, nil
	}

	shader, ok := s.creator.shader(key.shaderID)
	if !ok {
		return nil, fmt.Errorf("wgpu: unknown shader id %d", key.shaderID)
	}
	layout, err := s.ensureLayout(layoutKey{hasUniforms: key.hasUniforms, texMask: key.texMask})
	if err != nil {
		return nil, err
	}

	var buffers []gputypes.VertexBufferLayout
	if len(shader.layout) > 0 {
		attrs := make([]gputypes.VertexAttribute, len(shader.layout))
		for i, a := range shader.layout {
			attrs[i] = gputypes.VertexAttribute{
				Format:         a.Format,
				Offset:         uint64(a.Offset),
				ShaderLocation: uint32(i), //nolint:gosec // G115: attribute count < 16
			}
		}
		buffers = []gputypes.VertexBufferLayout{{
			ArrayStride: uint64(shader.stride),
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes:  attrs,
		}}
	}

	desc := &hal.RenderPipelineDescriptor{
		Label:  fmt.Sprintf("stage_pipeline_%d", key.shaderID),
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     shader.module,
			EntryPoint: "vs_main",
			Buffers:    buffers,
		},
		Primitive: gputypes.PrimitiveState{
			Topology: key.topology,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
	}

	if key.colorFormat != gputypes.TextureFormatUndefined {
		ct := gputypes.ColorTargetState{
			Format:    key.colorFormat,
			WriteMask: gputypes.ColorWriteMaskAll,
		}
		if key.blend {
			premul := gputypes.BlendStatePremultiplied()
			ct.Blend = &premul
		}
		desc.Fragment = &hal.FragmentState{
			Module:     shader.module,
			EntryPoint: "fs_main",
			Targets:    []gputypes.ColorTargetState{ct},
		}
	}

	if key.depthFormat != gputypes.TextureFormatUndefined {
		keep := hal.StencilFaceState{
			Compare:     gputypes.CompareFunctionAlways,
			FailOp:      hal.StencilOperationKeep,
			DepthFailOp: hal.StencilOperationKeep,
			PassOp:      hal.StencilOperationKeep,
		}
		desc.DepthStencil = &hal.DepthStencilState{
			Format:            key.depthFormat,
			DepthWriteEnabled: !key.blend,
			DepthCompare:      gputypes.CompareFunctionLessEqual,
			StencilFront:      keep,
			StencilBack:       keep,
			StencilReadMask:   0xFF,
			StencilWriteMask:  0xFF,
		}
	}

	pipeline, err := s.device.CreateRenderPipeline(desc)
	if err != nil {
		return nil, fmt.Errorf("wgpu: create pipeline for shader %d: %w", key.shaderID, err)
	}
	s.pipelines[key] = pipeline
	stage.Logger().Debug("wgpu: pipeline created",
		"shader", key.shaderID, "topology", key.topology, "blend", key.blend)
	return pipeline, nil
}

// uniformBindGroup uploads the pending uniforms into a fresh buffer and
// wraps it in a bind group. Both live until the pass's fence signals.
func (s *Submitter) uniformBindGroup() (hal.BindGroup, error) {
	data := packUniforms(s.pendingUniforms)
	buf, err := s.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "stage_uniforms",
		Size:  uint64(len(data)),
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create uniform buffer: %w", err)
	}
	s.passBuffers = append(s.passBuffers, buf)
	s.queue.WriteBuffer(buf, 0, data)

	bg, err := s.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "stage_uniform_bind",
		Layout: s.uniformLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: buf.NativeHandle(), Offset: 0, Size: uint64(len(data)),
			}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create uniform bind group: %w", err)
	}
	s.passBindGroups = append(s.passBindGroups, bg)
	return bg, nil
}

// textureBindGroup binds the pending texture views for a slot mask.
func (s *Submitter) textureBindGroup(texMask uint8) (hal.BindGroup, error) {
	layout, err := s.ensureTextureLayout(texMask)
	if err != nil {
		return nil, err
	}
	var entries []gputypes.BindGroupEntry
	for slot, t := range s.pendingTextures {
		if t == nil {
			continue
		}
		entries = append(entries, gputypes.BindGroupEntry{
			Binding: uint32(slot), //nolint:gosec // G115: slot < MaxTextureSlots
			Resource: gputypes.TextureViewBinding{
				TextureView: t.view.NativeHandle(),
			},
		})
	}
	bg, err := s.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   "stage_texture_bind",
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create texture bind group: %w", err)
	}
	s.passBindGroups = append(s.passBindGroups, bg)
	return bg, nil
}

// uniformSlot is the per-uniform byte footprint in the packed block.
// Scalars and vectors each occupy one 16-byte slot; mat4 occupies four.
// The WGSL uniform struct must use the same layout.
func uniformSlot(kind frame.UniformKind) int {
	if kind == frame.UniformMat4 {
		return 64
	}
	return 16
}

// packUniforms serializes uniforms in submission order, little-endian,
// each aligned to a 16-byte boundary. Int uniforms are written as i32 so
// the shader-side struct field can be declared i32.
func packUniforms(us []frame.Uniform) []byte {
	size := 0
	for _, u := range us {
		size += uniformSlot(u.Kind)
	}
	out := make([]byte, size)
	off := 0
	for _, u := range us {
		slot := uniformSlot(u.Kind)
		for i := range slot / 4 {
			var bits uint32
			if u.Kind == frame.UniformInt {
				bits = uint32(int32(u.Data[i])) //nolint:gosec // G115: two's complement reinterpretation
			} else {
				bits = math.Float32bits(u.Data[i])
			}
			out[off+i*4] = byte(bits)
			out[off+i*4+1] = byte(bits >> 8)
			out[off+i*4+2] = byte(bits >> 16)
			out[off+i*4+3] = byte(bits >> 24)
		}
		off += slot
	}
	return out
}
