// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pass

import (
	"iter"
	"math/bits"
	"strconv"
	"strings"
)

// Mask is a bit-encoded set of rendering passes.
//
// Each bit denotes one independent pass; bit position is monotonically tied
// to execution order, so lower bits execute first. A Mask with several bits
// set is a pass set (e.g. a command drawn in both the shadow and opaque
// passes), never a distinct pass of its own.
type Mask uint32

// Standard passes, in execution order. The catalog is a convention: hosts
// may register further bits above Debug, but bit position always defines
// execution order.
const (
	// Shadow renders occluders into shadow maps.
	Shadow Mask = 1 << iota

	// Depth is the depth-only prepass.
	Depth

	// Background draws skybox/backdrop content.
	Background

	// Opaque is the main opaque geometry pass.
	Opaque

	// Lighting applies deferred or volumetric lighting.
	Lighting

	// Reflection renders planar/probe reflections.
	Reflection

	// Transparent draws alpha-blended geometry, back to front.
	Transparent

	// Particles draws particle systems.
	Particles

	// PostProcess runs full-screen post effects.
	PostProcess

	// Overlay draws UI and HUD content.
	Overlay

	// Debug draws debug visualizations last.
	Debug
)

// Named unions. Unions are sets of the individual bits above and always
// decompose losslessly via Bits.
const (
	// None is the empty mask. Unknown pass names resolve to None.
	None Mask = 0

	// AllSolid covers every pass that draws depth-tested opaque content.
	AllSolid = Shadow | Depth | Background | Opaque | Lighting | Reflection

	// AllBlended covers the alpha-blended passes.
	AllBlended = Transparent | Particles

	// All covers every standard pass.
	All = AllSolid | AllBlended | PostProcess | Overlay | Debug
)

// standardCount is the number of passes in the standard catalog.
const standardCount = 11

// Has reports whether m includes any pass of p.
func (m Mask) Has(p Mask) bool { return m&p != 0 }

// IsEmpty reports whether no pass bit is set.
func (m Mask) IsEmpty() bool { return m == 0 }

// IsSingle reports whether exactly one pass bit is set.
func (m Mask) IsSingle() bool { return m != 0 && m&(m-1) == 0 }

// Count returns the number of set pass bits.
func (m Mask) Count() int { return bits.OnesCount32(uint32(m)) }

// Bits returns the set single-bit passes of m in ascending bit order.
//
// Ascending order is the execution-order contract of the frame loop: the
// sequence is lazy, restartable, and visits exactly Count() masks, each
// with one bit set.
func (m Mask) Bits() iter.Seq[Mask] {
	return func(yield func(Mask) bool) {
		for rest := m; rest != 0; {
			bit := rest & -rest // lowest set bit
			if !yield(bit) {
				return
			}
			rest &^= bit
		}
	}
}

// bitNames indexes standard pass names by bit position.
var bitNames = [standardCount]string{
	"shadow", "depth", "background", "opaque", "lighting", "reflection",
	"transparent", "particles", "post", "overlay", "debug",
}

// String returns a "|"-separated list of set pass names, or "none".
// Bits beyond the standard catalog print as "bitN".
func (m Mask) String() string {
	if m == 0 {
		return "none"
	}
	var sb strings.Builder
	first := true
	for bit := range m.Bits() {
		if !first {
			sb.WriteByte('|')
		}
		first = false
		pos := bits.TrailingZeros32(uint32(bit))
		if pos < standardCount {
			sb.WriteString(bitNames[pos])
		} else {
			sb.WriteString("bit")
			sb.WriteString(strconv.Itoa(pos))
		}
	}
	return sb.String()
}
