// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package resource

import (
	"math"

	"github.com/gogpu/gputypes"
)

// Creator is the resource-creation collaborator.
//
// The Cache is the sole caller. Implementations upload or compile the
// definition and return a live handle; on failure they return the zero
// Handle and an error, and the cache substitutes a fallback.
type Creator interface {
	// CompileShader compiles a shader program from WGSL source with the
	// definition's expected input layout.
	CompileShader(def *ShaderDefinition) (Handle, error)

	// UploadGeometry uploads vertex and index bytes.
	UploadGeometry(def *GeometryDefinition) (Handle, error)

	// UploadTexture uploads texture pixels, including mips when the
	// definition requests them.
	UploadTexture(def *TextureDefinition) (Handle, error)

	// Destroy releases the GPU object behind a handle. Called by the
	// cache when an entry is purged; never called for fallbacks.
	Destroy(h Handle)
}

// fallbackShaderWGSL renders everything in saturated magenta so a failed
// shader compile is impossible to miss but never crashes the frame.
const fallbackShaderWGSL = `
struct VertexOut {
    @builtin(position) pos: vec4<f32>,
};

@vertex
fn vs_main(@location(0) in_pos: vec3<f32>) -> VertexOut {
    var out: VertexOut;
    out.pos = vec4<f32>(in_pos, 1.0);
    return out;
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 0.0, 1.0, 1.0);
}
`

// Names of the pre-registered fallback entries.
const (
	FallbackShaderName   = "stage/fallback-shader"
	FallbackGeometryName = "stage/fallback-geometry"
	FallbackTextureName  = "stage/fallback-texture"
)

// fallbackShaderDefinition returns the bright "error" shader.
func fallbackShaderDefinition() *ShaderDefinition {
	return &ShaderDefinition{
		Name:       FallbackShaderName,
		Persistent: true,
		Source:     fallbackShaderWGSL,
		Layout: []VertexAttribute{
			{Name: "in_pos", Format: gputypes.VertexFormatFloat32x3, Offset: 0},
		},
		VertexStride: 12,
	}
}

// fallbackGeometryDefinition returns a unit quad in clip space.
func fallbackGeometryDefinition() *GeometryDefinition {
	vertices := PackFloat32(
		-1, -1, 0,
		1, -1, 0,
		1, 1, 0,
		-1, 1, 0,
	)
	indices := PackUint16(0, 1, 2, 0, 2, 3)
	return &GeometryDefinition{
		Name:         FallbackGeometryName,
		Persistent:   true,
		Vertices:     vertices,
		VertexStride: 12,
		Indices:      indices,
		IndexFormat:  gputypes.IndexFormatUint16,
	}
}

// fallbackTextureDefinition returns a 1x1 magenta texture.
func fallbackTextureDefinition() *TextureDefinition {
	return &TextureDefinition{
		Name:       FallbackTextureName,
		Persistent: true,
		Width:      1,
		Height:     1,
		Format:     gputypes.TextureFormatRGBA8Unorm,
		Pixels:     []byte{0xFF, 0x00, 0xFF, 0xFF},
		MipLevels:  1,
	}
}

// PackFloat32 encodes float32 values as little-endian bytes, the layout
// expected by GeometryDefinition.Vertices.
func PackFloat32(vals ...float32) []byte {
	out := make([]byte, 0, len(vals)*4)
	for _, v := range vals {
		bits := math.Float32bits(v)
		out = append(out, byte(bits), byte(bits>>8), byte(bits>>16), byte(bits>>24))
	}
	return out
}

// PackUint16 encodes uint16 values as little-endian bytes, the layout
// expected by GeometryDefinition.Indices with IndexFormatUint16.
func PackUint16(vals ...uint16) []byte {
	out := make([]byte, 0, len(vals)*2)
	for _, v := range vals {
		out = append(out, byte(v), byte(v>>8))
	}
	return out
}
