// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package frame

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/stage/resource"
)

// ExecStats counts executor activity for one frame. BindsAvoided is the
// payoff of state diffing: binds that sorted adjacency made unnecessary.
type ExecStats struct {
	Draws         uint64
	PipelineBinds uint64
	GeometryBinds uint64
	TextureBinds  uint64
	BindsAvoided  uint64
}

// add accumulates another frame's counters.
func (s *ExecStats) add(o ExecStats) {
	s.Draws += o.Draws
	s.PipelineBinds += o.PipelineBinds
	s.GeometryBinds += o.GeometryBinds
	s.TextureBinds += o.TextureBinds
	s.BindsAvoided += o.BindsAvoided
}

// Executor replays commands through a Submitter, binding only what
// changed since the previous command. State is tracked per pass: Reset
// must be called after BeginPass because pass boundaries invalidate all
// bindings on real encoders.
type Executor struct {
	pipeline      resource.Handle
	geometry      resource.Handle
	indexFormat   gputypes.IndexFormat
	textures      [MaxTextureSlots]resource.Handle
	pipelineValid bool
	geometryValid bool
	textureValid  [MaxTextureSlots]bool

	stats ExecStats
}

// Reset forgets all tracked state. Call at every pass boundary.
func (e *Executor) Reset() {
	e.pipelineValid = false
	e.geometryValid = false
	for i := range e.textureValid {
		e.textureValid[i] = false
	}
}

// ResetStats zeroes the counters, typically once per frame.
func (e *Executor) ResetStats() {
	e.stats = ExecStats{}
}

// Stats returns the counters accumulated since the last ResetStats.
func (e *Executor) Stats() ExecStats { return e.stats }

// Execute replays one command. Pipeline, geometry and texture binds are
// skipped when the tracked state already matches; uniforms are always
// uploaded because their values are per-draw.
func (e *Executor) Execute(sub Submitter, cmd *Command) error {
	if cmd.Pipeline.IsValid() {
		if !e.pipelineValid || e.pipeline != cmd.Pipeline {
			if err := sub.BindPipeline(cmd.Pipeline); err != nil {
				return err
			}
			e.pipeline = cmd.Pipeline
			e.pipelineValid = true
			e.stats.PipelineBinds++
		} else {
			e.stats.BindsAvoided++
		}
	}

	if cmd.Geometry.IsValid() {
		if !e.geometryValid || e.geometry != cmd.Geometry || e.indexFormat != cmd.IndexFormat {
			if err := sub.BindGeometry(cmd.Geometry, cmd.IndexFormat); err != nil {
				return err
			}
			e.geometry = cmd.Geometry
			e.indexFormat = cmd.IndexFormat
			e.geometryValid = true
			e.stats.GeometryBinds++
		} else {
			e.stats.BindsAvoided++
		}
	}

	for slot, tex := range cmd.Textures {
		if !tex.IsValid() {
			continue
		}
		if e.textureValid[slot] && e.textures[slot] == tex {
			e.stats.BindsAvoided++
			continue
		}
		if err := sub.BindTexture(slot, tex); err != nil {
			return err
		}
		e.textures[slot] = tex
		e.textureValid[slot] = true
		e.stats.TextureBinds++
	}

	for _, u := range cmd.Uniforms {
		if err := sub.SetUniform(u); err != nil {
			return err
		}
	}

	if err := sub.DrawIndexed(cmd.IndexCount, cmd.Topology); err != nil {
		return err
	}
	e.stats.Draws++
	return nil
}
