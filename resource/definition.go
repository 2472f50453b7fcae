// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package resource

import (
	"image"
	stddraw "image/draw"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/draw"
)

// GeometryDefinition describes vertex and index data to upload.
//
// Definitions are immutable after construction: the cache and backends read
// them but never modify them, and a definition's Name is its identity —
// two definitions with the same name are assumed to describe the same data.
type GeometryDefinition struct {
	// Name is the stable cache identity.
	Name string

	// Persistent entries are never destroyed by Purge.
	Persistent bool

	// Vertices holds raw interleaved vertex data.
	Vertices []byte

	// VertexStride is the byte size of one vertex.
	VertexStride uint32

	// Indices holds raw index data in IndexFormat layout.
	Indices []byte

	// IndexFormat is the width of each index value.
	IndexFormat gputypes.IndexFormat
}

// IndexCount returns the number of indices described.
func (d *GeometryDefinition) IndexCount() uint32 {
	size := uint32(4)
	if d.IndexFormat == gputypes.IndexFormatUint16 {
		size = 2
	}
	//nolint:gosec // G115: index data length is bounded by upload limits
	return uint32(len(d.Indices)) / size
}

// VertexAttribute describes one entry of a shader's expected input layout.
type VertexAttribute struct {
	// Name is the attribute identifier in the shader source.
	Name string

	// Format is the attribute's data format.
	Format gputypes.VertexFormat

	// Offset is the byte offset within the vertex.
	Offset uint32
}

// ShaderDefinition describes a shader program to compile.
type ShaderDefinition struct {
	// Name is the stable cache identity.
	Name string

	// Persistent entries are never destroyed by Purge.
	Persistent bool

	// Source is WGSL shader source with vs_main/fs_main entry points.
	Source string

	// Layout is the expected vertex input layout.
	Layout []VertexAttribute

	// VertexStride is the byte size of one input vertex.
	VertexStride uint32
}

// TextureDefinition describes texture pixels to upload.
type TextureDefinition struct {
	// Name is the stable cache identity.
	Name string

	// Persistent entries are never destroyed by Purge.
	Persistent bool

	// Width and Height are the level-0 dimensions in pixels.
	Width  uint32
	Height uint32

	// Format is the pixel format of Pixels. Only RGBA8Unorm data is
	// produced by the helpers in this package.
	Format gputypes.TextureFormat

	// Pixels holds level-0 pixel data, Width*Height*4 bytes for RGBA.
	Pixels []byte

	// MipLevels is the number of mip levels to upload. 1 means no mips;
	// 0 is treated as 1.
	MipLevels uint32
}

// TextureFromImage converts an image into an RGBA8 texture definition.
//
// When mipChain is true, MipLevels is set to the full chain down to 1x1;
// the per-level pixels are produced on demand by [TextureDefinition.MipChain].
func TextureFromImage(name string, img image.Image, mipChain bool) *TextureDefinition {
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	stddraw.Draw(rgba, rgba.Bounds(), img, b.Min, stddraw.Src)

	levels := uint32(1)
	if mipChain {
		levels = fullMipLevels(uint32(b.Dx()), uint32(b.Dy()))
	}
	//nolint:gosec // G115: image bounds are non-negative
	return &TextureDefinition{
		Name:      name,
		Width:     uint32(b.Dx()),
		Height:    uint32(b.Dy()),
		Format:    gputypes.TextureFormatRGBA8Unorm,
		Pixels:    rgba.Pix,
		MipLevels: levels,
	}
}

// fullMipLevels returns the number of levels down to 1x1.
func fullMipLevels(w, h uint32) uint32 {
	levels := uint32(1)
	for w > 1 || h > 1 {
		w = max(w/2, 1)
		h = max(h/2, 1)
		levels++
	}
	return levels
}

// MipLevelSize returns the dimensions of a mip level.
func (d *TextureDefinition) MipLevelSize(level uint32) (uint32, uint32) {
	return max(d.Width>>level, 1), max(d.Height>>level, 1)
}

// MipChain builds the pixel data for every mip level, level 0 first.
//
// Each level is downscaled from level 0 with a Catmull-Rom kernel, which
// avoids the shimmer of box-filtered chains at the cost of a slower
// one-time upload. Returns only level 0 when MipLevels <= 1.
func (d *TextureDefinition) MipChain() [][]byte {
	levels := d.MipLevels
	if levels == 0 {
		levels = 1
	}
	chain := make([][]byte, 0, levels)
	chain = append(chain, d.Pixels)
	if levels == 1 {
		return chain
	}

	//nolint:gosec // G115: dimensions fit in int on supported platforms
	base := &image.RGBA{
		Pix:    d.Pixels,
		Stride: int(d.Width) * 4,
		Rect:   image.Rect(0, 0, int(d.Width), int(d.Height)),
	}
	for level := uint32(1); level < levels; level++ {
		w, h := d.MipLevelSize(level)
		dst := image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
		draw.CatmullRom.Scale(dst, dst.Bounds(), base, base.Bounds(), draw.Src, nil)
		chain = append(chain, dst.Pix)
	}
	return chain
}
