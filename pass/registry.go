// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pass

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/stage"
)

// Registry errors.
var (
	// ErrNotSingleBit is returned when registering a mask with zero or
	// multiple bits set.
	ErrNotSingleBit = errors.New("pass: mask must have exactly one bit set")

	// ErrBitTaken is returned when registering a bit that already has a
	// configuration.
	ErrBitTaken = errors.New("pass: bit already registered")

	// ErrNameTaken is returned when registering a name that already
	// resolves to another pass.
	ErrNameTaken = errors.New("pass: name already registered")
)

// SortOrder selects the default batch ordering for a pass. The frame
// package maps each order to a concrete comparison strategy.
type SortOrder int

const (
	// SortState groups commands by pipeline, then geometry, so the
	// executor re-applies as little GPU state as possible.
	SortState SortOrder = iota

	// SortFrontToBack orders by ascending depth for early-z rejection.
	SortFrontToBack

	// SortBackToFront orders by descending depth, required for correct
	// alpha blending.
	SortBackToFront

	// SortKey orders by the command's priority key alone (UI stacking,
	// debug layers).
	SortKey
)

// String returns the string representation of SortOrder.
func (s SortOrder) String() string {
	switch s {
	case SortState:
		return "state"
	case SortFrontToBack:
		return "front-to-back"
	case SortBackToFront:
		return "back-to-front"
	case SortKey:
		return "key"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// Config holds the per-pass target configuration consumed when the frame
// loop begins the pass.
type Config struct {
	// Name is the human-readable pass name used for lookup and logging.
	Name string

	// ColorFormat is the color attachment format, or
	// gputypes.TextureFormatUndefined for depth-only passes.
	ColorFormat gputypes.TextureFormat

	// DepthFormat is the depth/stencil attachment format, or
	// gputypes.TextureFormatUndefined when the pass has no depth buffer.
	DepthFormat gputypes.TextureFormat

	// LoadOp selects whether the pass clears its target or loads the
	// previous contents.
	LoadOp gputypes.LoadOp

	// ClearColor is the clear value used when LoadOp is LoadOpClear.
	ClearColor gputypes.Color

	// DepthClearValue is the depth clear value (1.0 = far plane).
	DepthClearValue float32

	// Sort is the default batch ordering for the pass.
	Sort SortOrder

	// Blend enables premultiplied alpha blending for the pass's
	// pipelines. Blended passes normally pair with SortBackToFront.
	Blend bool
}

// HasColor reports whether the pass writes a color attachment.
func (c Config) HasColor() bool {
	return c.ColorFormat != gputypes.TextureFormatUndefined
}

// HasDepth reports whether the pass uses a depth/stencil attachment.
func (c Config) HasDepth() bool {
	return c.DepthFormat != gputypes.TextureFormatUndefined
}

// Registry maps pass names to masks and masks to configurations.
//
// The mapping table is built once at construction — lookup is an ordinary
// map access with no reflection. A Registry is immutable after the host
// finishes Register calls and is then safe for concurrent readers.
type Registry struct {
	byName  map[string]Mask
	configs map[Mask]Config
}

// NewRegistry creates a registry populated with the standard pass catalog.
func NewRegistry() *Registry {
	r := &Registry{
		byName:  make(map[string]Mask, standardCount+2),
		configs: make(map[Mask]Config, standardCount),
	}
	for _, std := range standardCatalog() {
		bit := std.bit
		r.byName[std.cfg.Name] = bit
		r.configs[bit] = std.cfg
	}
	// Named unions resolve through the same table as single passes.
	r.byName["solid"] = AllSolid
	r.byName["blended"] = AllBlended
	r.byName["all"] = All
	return r
}

// Mask resolves a pass name to its mask.
//
// An unknown name resolves to None and logs a warning: a renderable with a
// mistyped pass reference simply does not render in that pass instead of
// failing the frame.
func (r *Registry) Mask(name string) Mask {
	m, ok := r.byName[name]
	if !ok {
		stage.Logger().Warn("pass: unknown pass name", "name", name)
		return None
	}
	return m
}

// Config returns the configuration for a single-bit pass mask.
// The second return value is false for unions, unregistered bits, and None.
func (r *Registry) Config(bit Mask) (Config, bool) {
	cfg, ok := r.configs[bit]
	return cfg, ok
}

// Register adds a custom pass. The mask must have exactly one bit set and
// both the bit and cfg.Name must be unused. Register is intended for host
// setup, before the first frame; it is not safe to call concurrently with
// lookups.
func (r *Registry) Register(bit Mask, cfg Config) error {
	if !bit.IsSingle() {
		return fmt.Errorf("%w: %s", ErrNotSingleBit, bit)
	}
	if _, ok := r.configs[bit]; ok {
		return fmt.Errorf("%w: bit %d", ErrBitTaken, bits.TrailingZeros32(uint32(bit)))
	}
	if _, ok := r.byName[cfg.Name]; ok {
		return fmt.Errorf("%w: %q", ErrNameTaken, cfg.Name)
	}
	r.byName[cfg.Name] = bit
	r.configs[bit] = cfg
	return nil
}

// Passes returns the registered single-bit passes in execution order.
func (r *Registry) Passes() []Mask {
	out := make([]Mask, 0, len(r.configs))
	for bit := range All.Bits() {
		if _, ok := r.configs[bit]; ok {
			out = append(out, bit)
		}
	}
	// Custom bits above the standard catalog.
	for bit := Mask(1) << standardCount; bit != 0; bit <<= 1 {
		if _, ok := r.configs[bit]; ok {
			out = append(out, bit)
		}
	}
	return out
}

// standardPass pairs a bit with its default configuration.
type standardPass struct {
	bit Mask
	cfg Config
}

// standardCatalog returns the default configuration of every standard pass.
//
// Shadow and Depth are depth-only. Opaque-family passes clear or load the
// shared scene target; Transparent onward always load so earlier results
// survive. The exact catalog is a convention — only bit order is contract.
func standardCatalog() []standardPass {
	const (
		color = gputypes.TextureFormatBGRA8Unorm
		depth = gputypes.TextureFormatDepth24PlusStencil8
		none  = gputypes.TextureFormatUndefined
	)
	black := gputypes.Color{R: 0, G: 0, B: 0, A: 1}
	return []standardPass{
		{Shadow, Config{
			Name: "shadow", ColorFormat: none, DepthFormat: depth,
			LoadOp: gputypes.LoadOpClear, DepthClearValue: 1,
			Sort: SortFrontToBack,
		}},
		{Depth, Config{
			Name: "depth", ColorFormat: none, DepthFormat: depth,
			LoadOp: gputypes.LoadOpClear, DepthClearValue: 1,
			Sort: SortFrontToBack,
		}},
		{Background, Config{
			Name: "background", ColorFormat: color, DepthFormat: depth,
			LoadOp: gputypes.LoadOpClear, ClearColor: black, DepthClearValue: 1,
			Sort: SortState,
		}},
		{Opaque, Config{
			Name: "opaque", ColorFormat: color, DepthFormat: depth,
			LoadOp: gputypes.LoadOpLoad, DepthClearValue: 1,
			Sort: SortState,
		}},
		{Lighting, Config{
			Name: "lighting", ColorFormat: color, DepthFormat: depth,
			LoadOp: gputypes.LoadOpLoad, DepthClearValue: 1,
			Sort: SortState,
		}},
		{Reflection, Config{
			Name: "reflection", ColorFormat: color, DepthFormat: depth,
			LoadOp: gputypes.LoadOpLoad, DepthClearValue: 1,
			Sort: SortState,
		}},
		{Transparent, Config{
			Name: "transparent", ColorFormat: color, DepthFormat: depth,
			LoadOp: gputypes.LoadOpLoad, DepthClearValue: 1,
			Sort: SortBackToFront, Blend: true,
		}},
		{Particles, Config{
			Name: "particles", ColorFormat: color, DepthFormat: depth,
			LoadOp: gputypes.LoadOpLoad, DepthClearValue: 1,
			Sort: SortBackToFront, Blend: true,
		}},
		{PostProcess, Config{
			Name: "post", ColorFormat: color, DepthFormat: none,
			LoadOp: gputypes.LoadOpLoad,
			Sort:   SortKey, Blend: true,
		}},
		{Overlay, Config{
			Name: "overlay", ColorFormat: color, DepthFormat: none,
			LoadOp: gputypes.LoadOpLoad,
			Sort:   SortKey, Blend: true,
		}},
		{Debug, Config{
			Name: "debug", ColorFormat: color, DepthFormat: none,
			LoadOp: gputypes.LoadOpLoad,
			Sort:   SortKey, Blend: true,
		}},
	}
}
