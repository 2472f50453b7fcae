// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package resource

import (
	"cmp"
	"fmt"
)

// Kind identifies the resource category of a Handle or definition.
type Kind uint8

const (
	// KindInvalid is the zero Kind; the zero Handle has this kind.
	KindInvalid Kind = iota

	// KindGeometry is vertex/index data.
	KindGeometry

	// KindShader is a compiled shader/pipeline program.
	KindShader

	// KindTexture is a sampled texture.
	KindTexture
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindGeometry:
		return "geometry"
	case KindShader:
		return "shader"
	case KindTexture:
		return "texture"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Handle is an opaque reference to a live GPU resource.
//
// Handles are minted by a [Creator] and are only meaningful to the backend
// that created them. The zero Handle is invalid and means "unbound".
type Handle struct {
	kind Kind
	id   uint64
}

// NewHandle builds a handle. Intended for Creator implementations; the
// frame core never constructs handles itself.
func NewHandle(kind Kind, id uint64) Handle {
	return Handle{kind: kind, id: id}
}

// Kind returns the resource category.
func (h Handle) Kind() Kind { return h.kind }

// ID returns the backend-assigned identifier.
func (h Handle) ID() uint64 { return h.id }

// IsValid reports whether the handle references a resource.
func (h Handle) IsValid() bool { return h.kind != KindInvalid }

// Compare orders handles by kind, then id. Batch strategies use this to
// group commands sharing a resource adjacently; the order itself carries
// no meaning beyond grouping.
func (h Handle) Compare(o Handle) int {
	if c := cmp.Compare(h.kind, o.kind); c != 0 {
		return c
	}
	return cmp.Compare(h.id, o.id)
}

// String returns a short diagnostic form, e.g. "shader#42".
func (h Handle) String() string {
	if !h.IsValid() {
		return "invalid"
	}
	return fmt.Sprintf("%s#%d", h.kind, h.id)
}
