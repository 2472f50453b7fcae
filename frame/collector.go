// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package frame

import (
	"github.com/gogpu/stage"
)

// FrameContext carries the per-frame inputs renderables may read while
// building commands.
type FrameContext struct {
	// Frame is the monotonically increasing frame number.
	Frame uint64

	// Delta is the seconds elapsed since the previous frame.
	Delta float64

	// Width and Height are the current viewport dimensions in pixels.
	Width  uint32
	Height uint32
}

// Renderable is anything that draws. Draw is called once per frame and
// submits zero or more commands; it must not retain the buffer.
type Renderable interface {
	Draw(fc FrameContext, out *CommandBuffer)
}

// RenderableFunc adapts a function to the Renderable interface.
type RenderableFunc func(fc FrameContext, out *CommandBuffer)

// Draw implements Renderable.
func (f RenderableFunc) Draw(fc FrameContext, out *CommandBuffer) { f(fc, out) }

// Collector gathers draw commands from a stable set of renderables.
//
// Each renderable draws into a scratch buffer that is committed to the
// frame buffer only when Draw returns normally. A panicking renderable
// therefore contributes nothing that frame: partial submissions are
// discarded, the panic is logged at Error, and collection continues with
// the next renderable.
type Collector struct {
	renderables []Renderable
	scratch     CommandBuffer
}

// Add registers a renderable. Registration order is the tiebreak order
// for equal sort positions, so it is part of the rendering contract.
func (c *Collector) Add(r Renderable) {
	c.renderables = append(c.renderables, r)
}

// Remove unregisters a renderable, preserving the order of the rest.
// Matching uses interface equality, so removable renderables must be
// comparable — in practice, pointers. RenderableFunc values cannot be
// removed.
func (c *Collector) Remove(r Renderable) {
	for i, have := range c.renderables {
		if have == r {
			c.renderables = append(c.renderables[:i], c.renderables[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered renderables.
func (c *Collector) Len() int { return len(c.renderables) }

// Collect resets out and fills it with this frame's commands.
func (c *Collector) Collect(fc FrameContext, out *CommandBuffer) {
	out.Reset()
	for _, r := range c.renderables {
		c.collectOne(fc, r, out)
	}
}

func (c *Collector) collectOne(fc FrameContext, r Renderable, out *CommandBuffer) {
	c.scratch.Reset()
	defer func() {
		if rec := recover(); rec != nil {
			stage.Logger().Error("frame: renderable panicked, commands discarded",
				"frame", fc.Frame, "panic", rec)
			return
		}
		for _, cmd := range c.scratch.Commands() {
			out.Submit(cmd)
		}
	}()
	r.Draw(fc, &c.scratch)
}
