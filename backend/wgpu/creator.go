// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package wgpu

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/stage"
	"github.com/gogpu/stage/resource"
)

// shaderObject is a compiled shader module plus the vertex layout the
// pipeline builder needs when pairing it with a pass.
type shaderObject struct {
	module hal.ShaderModule
	layout []resource.VertexAttribute
	stride uint32
}

// geometryObject holds the uploaded vertex and index buffers.
type geometryObject struct {
	vertexBuf   hal.Buffer
	indexBuf    hal.Buffer
	indexFormat gputypes.IndexFormat
	indexCount  uint32
}

// textureObject holds an uploaded texture and its sampled view.
type textureObject struct {
	texture hal.Texture
	view    hal.TextureView
}

// Creator implements resource.Creator on a HAL device. Handles it mints
// index into its object tables; the Submitter resolves them back at
// draw time.
type Creator struct {
	device hal.Device
	queue  hal.Queue

	mu         sync.Mutex
	nextID     uint64
	shaders    map[uint64]*shaderObject
	geometries map[uint64]*geometryObject
	textures   map[uint64]*textureObject
}

var _ resource.Creator = (*Creator)(nil)

// NewCreator builds a creator on the backend's device and queue.
func NewCreator(b *Backend) *Creator {
	return &Creator{
		device:     b.device,
		queue:      b.queue,
		shaders:    make(map[uint64]*shaderObject),
		geometries: make(map[uint64]*geometryObject),
		textures:   make(map[uint64]*textureObject),
	}
}

// compileWGSL compiles WGSL source to SPIR-V words via naga.
func compileWGSL(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, err
	}
	// SPIR-V is little-endian 32-bit words.
	code := make([]uint32, len(spirvBytes)/4)
	for i := range code {
		code[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return code, nil
}

// CompileShader implements resource.Creator.
func (c *Creator) CompileShader(def *resource.ShaderDefinition) (resource.Handle, error) {
	code, err := compileWGSL(def.Source)
	if err != nil {
		return resource.Handle{}, fmt.Errorf("wgpu: compile %s: %w", def.Name, err)
	}

	module, err := c.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  def.Name,
		Source: hal.ShaderSource{SPIRV: code},
	})
	if err != nil {
		return resource.Handle{}, fmt.Errorf("wgpu: create shader module %s: %w", def.Name, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	c.shaders[c.nextID] = &shaderObject{
		module: module,
		layout: def.Layout,
		stride: def.VertexStride,
	}
	stage.Logger().Debug("wgpu: shader compiled", "name", def.Name, "spirv_words", len(code))
	return resource.NewHandle(resource.KindShader, c.nextID), nil
}

// UploadGeometry implements resource.Creator.
func (c *Creator) UploadGeometry(def *resource.GeometryDefinition) (resource.Handle, error) {
	vertexBuf, err := c.device.CreateBuffer(&hal.BufferDescriptor{
		Label: def.Name + "_vertices",
		Size:  uint64(len(def.Vertices)),
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return resource.Handle{}, fmt.Errorf("wgpu: create vertex buffer %s: %w", def.Name, err)
	}
	c.queue.WriteBuffer(vertexBuf, 0, def.Vertices)

	var indexBuf hal.Buffer
	if len(def.Indices) > 0 {
		indexBuf, err = c.device.CreateBuffer(&hal.BufferDescriptor{
			Label: def.Name + "_indices",
			Size:  uint64(len(def.Indices)),
			Usage: gputypes.BufferUsageIndex | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			c.device.DestroyBuffer(vertexBuf)
			return resource.Handle{}, fmt.Errorf("wgpu: create index buffer %s: %w", def.Name, err)
		}
		c.queue.WriteBuffer(indexBuf, 0, def.Indices)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	c.geometries[c.nextID] = &geometryObject{
		vertexBuf:   vertexBuf,
		indexBuf:    indexBuf,
		indexFormat: def.IndexFormat,
		indexCount:  def.IndexCount(),
	}
	return resource.NewHandle(resource.KindGeometry, c.nextID), nil
}

// UploadTexture implements resource.Creator.
func (c *Creator) UploadTexture(def *resource.TextureDefinition) (resource.Handle, error) {
	levels := def.MipLevels
	if levels == 0 {
		levels = 1
	}

	tex, err := c.device.CreateTexture(&hal.TextureDescriptor{
		Label:         def.Name,
		Size:          hal.Extent3D{Width: def.Width, Height: def.Height, DepthOrArrayLayers: 1},
		MipLevelCount: levels,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        def.Format,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return resource.Handle{}, fmt.Errorf("wgpu: create texture %s: %w", def.Name, err)
	}

	for i, pixels := range def.MipChain() {
		//nolint:gosec // G115: level count fits in uint32
		level := uint32(i)
		w, h := def.MipLevelSize(level)
		c.queue.WriteTexture(
			&hal.ImageCopyTexture{Texture: tex, MipLevel: level},
			pixels,
			&hal.ImageDataLayout{Offset: 0, BytesPerRow: w * 4, RowsPerImage: h},
			&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		)
	}

	view, err := c.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: def.Name + "_view",
	})
	if err != nil {
		c.device.DestroyTexture(tex)
		return resource.Handle{}, fmt.Errorf("wgpu: create texture view %s: %w", def.Name, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	c.textures[c.nextID] = &textureObject{texture: tex, view: view}
	return resource.NewHandle(resource.KindTexture, c.nextID), nil
}

// Destroy implements resource.Creator.
func (c *Creator) Destroy(h resource.Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch h.Kind() {
	case resource.KindShader:
		if s, ok := c.shaders[h.ID()]; ok {
			c.device.DestroyShaderModule(s.module)
			delete(c.shaders, h.ID())
		}
	case resource.KindGeometry:
		if g, ok := c.geometries[h.ID()]; ok {
			c.device.DestroyBuffer(g.vertexBuf)
			if g.indexBuf != nil {
				c.device.DestroyBuffer(g.indexBuf)
			}
			delete(c.geometries, h.ID())
		}
	case resource.KindTexture:
		if t, ok := c.textures[h.ID()]; ok {
			c.device.DestroyTextureView(t.view)
			c.device.DestroyTexture(t.texture)
			delete(c.textures, h.ID())
		}
	default:
		stage.Logger().Warn("wgpu: destroy of unknown handle", "handle", h)
	}
}

// Release destroys every remaining object. Call after the cache is done.
func (c *Creator) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, s := range c.shaders {
		c.device.DestroyShaderModule(s.module)
		delete(c.shaders, id)
	}
	for id, g := range c.geometries {
		c.device.DestroyBuffer(g.vertexBuf)
		if g.indexBuf != nil {
			c.device.DestroyBuffer(g.indexBuf)
		}
		delete(c.geometries, id)
	}
	for id, t := range c.textures {
		c.device.DestroyTextureView(t.view)
		c.device.DestroyTexture(t.texture)
		delete(c.textures, id)
	}
}

// lookups used by the Submitter.

func (c *Creator) shader(id uint64) (*shaderObject, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.shaders[id]
	return s, ok
}

func (c *Creator) geometry(id uint64) (*geometryObject, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.geometries[id]
	return g, ok
}

func (c *Creator) texture(id uint64) (*textureObject, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.textures[id]
	return t, ok
}
