// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package frame

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/stage/pass"
	"github.com/gogpu/stage/resource"
)

// Submitter receives the ordered, state-diffed command stream for a frame.
//
// The Loop drives it strictly as BeginPass, zero or more bind/draw calls,
// EndPass, repeated per active pass. Any returned error is fatal for the
// frame: the loop stops submitting and returns it to the caller, since a
// failed encoder cannot accept further work.
type Submitter interface {
	// BeginPass opens a render pass configured per cfg. bit identifies
	// the pass for labeling and target selection.
	BeginPass(cfg pass.Config, bit pass.Mask) error

	// BindPipeline makes a shader pipeline current.
	BindPipeline(h resource.Handle) error

	// BindGeometry makes vertex/index buffers current.
	BindGeometry(h resource.Handle, format gputypes.IndexFormat) error

	// BindTexture binds a texture to a slot.
	BindTexture(slot int, h resource.Handle) error

	// SetUniform uploads one per-draw shader parameter.
	SetUniform(u Uniform) error

	// DrawIndexed issues the draw with everything currently bound.
	DrawIndexed(indexCount uint32, topology gputypes.PrimitiveTopology) error

	// EndPass closes the current render pass.
	EndPass() error
}
