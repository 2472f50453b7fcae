// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package frame

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/stage/pass"
	"github.com/gogpu/stage/resource"
)

// MaxTextureSlots is the number of texture bind slots a command may use.
const MaxTextureSlots = 4

// UniformKind identifies the payload type of a Uniform.
type UniformKind uint8

const (
	UniformFloat UniformKind = iota
	UniformVec2
	UniformVec3
	UniformVec4
	UniformMat4
	UniformInt
)

// String returns the string representation of UniformKind.
func (k UniformKind) String() string {
	switch k {
	case UniformFloat:
		return "float"
	case UniformVec2:
		return "vec2"
	case UniformVec3:
		return "vec3"
	case UniformVec4:
		return "vec4"
	case UniformMat4:
		return "mat4"
	case UniformInt:
		return "int"
	default:
		return "unknown"
	}
}

// floats returns the number of Data elements the kind occupies.
func (k UniformKind) floats() int {
	switch k {
	case UniformFloat, UniformInt:
		return 1
	case UniformVec2:
		return 2
	case UniformVec3:
		return 3
	case UniformVec4:
		return 4
	case UniformMat4:
		return 16
	default:
		return 0
	}
}

// Uniform is one named shader parameter. The fixed-size Data array keeps
// commands free of per-uniform allocations; Kind says how much of it is
// meaningful.
type Uniform struct {
	Name string
	Kind UniformKind
	Data [16]float32
}

// Float builds a scalar uniform.
func Float(name string, v float32) Uniform {
	return Uniform{Name: name, Kind: UniformFloat, Data: [16]float32{v}}
}

// Vec2 builds a two-component uniform.
func Vec2(name string, x, y float32) Uniform {
	return Uniform{Name: name, Kind: UniformVec2, Data: [16]float32{x, y}}
}

// Vec3 builds a three-component uniform.
func Vec3(name string, x, y, z float32) Uniform {
	return Uniform{Name: name, Kind: UniformVec3, Data: [16]float32{x, y, z}}
}

// Vec4 builds a four-component uniform.
func Vec4(name string, x, y, z, w float32) Uniform {
	return Uniform{Name: name, Kind: UniformVec4, Data: [16]float32{x, y, z, w}}
}

// Mat4 builds a column-major 4x4 matrix uniform.
func Mat4(name string, m [16]float32) Uniform {
	return Uniform{Name: name, Kind: UniformMat4, Data: m}
}

// Int builds an integer uniform. The value rides in the float Data array
// and the backend converts it back to i32 on upload, so magnitudes above
// 2^24 lose precision.
func Int(name string, v int32) Uniform {
	return Uniform{Name: name, Kind: UniformInt, Data: [16]float32{float32(v)}}
}

// Command is one draw request. Commands are plain values: renderables
// build them during collection and the loop consumes them the same frame.
// Nothing in a command references renderable state, so collection order
// and execution order are free to differ.
type Command struct {
	// Geometry and Pipeline identify the mesh and shader to draw with.
	// Invalid handles are replayed as unbind-free draws and are almost
	// always a renderable bug; the executor draws them anyway.
	Geometry resource.Handle
	Pipeline resource.Handle

	// Textures are the sampled inputs, by slot. Unused slots hold the
	// zero Handle and are not bound.
	Textures [MaxTextureSlots]resource.Handle

	// IndexCount and IndexFormat describe the indexed draw.
	IndexCount  uint32
	IndexFormat gputypes.IndexFormat

	// Topology is the primitive assembly mode.
	Topology gputypes.PrimitiveTopology

	// Passes tags the passes this command participates in. A command
	// with an empty mask is dropped at submit.
	Passes pass.Mask

	// Key is the material sort key for passes sorted by key.
	Key uint32

	// Depth is the view-space depth for passes sorted by distance.
	Depth float32

	// Uniforms are per-draw shader parameters, applied in order.
	Uniforms []Uniform
}

// CommandBuffer accumulates the frame's draw commands and the union of
// their pass masks. It is reused across frames via Reset; the backing
// slice keeps its capacity so steady-state frames allocate nothing.
//
// A CommandBuffer is not safe for concurrent Submit; the Collector owns
// synchronization.
type CommandBuffer struct {
	commands []Command
	active   pass.Mask
}

// Submit appends a command and folds its mask into the active set.
// Commands with an empty pass mask are silently dropped.
func (b *CommandBuffer) Submit(cmd Command) {
	if cmd.Passes.IsEmpty() {
		return
	}
	b.commands = append(b.commands, cmd)
	b.active |= cmd.Passes
}

// Reset clears the buffer for the next frame, keeping capacity.
func (b *CommandBuffer) Reset() {
	b.commands = b.commands[:0]
	b.active = pass.None
}

// Len returns the number of buffered commands.
func (b *CommandBuffer) Len() int { return len(b.commands) }

// Commands returns the buffered commands. The slice is valid until the
// next Reset.
func (b *CommandBuffer) Commands() []Command { return b.commands }

// ActiveMask returns the union of every submitted command's pass mask.
func (b *CommandBuffer) ActiveMask() pass.Mask { return b.active }
