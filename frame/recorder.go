// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package frame

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/stage/pass"
	"github.com/gogpu/stage/resource"
)

// Recorder is an in-memory Submitter that records every call as one
// event string. It backs the package tests and the headless demo, and
// doubles as a frame-trace tool: dump Events to see exactly what a
// frame submitted, in order.
type Recorder struct {
	events []string

	// FailOn, when non-empty, makes the call whose event string has
	// this prefix return an error. Used to exercise fatal-error paths.
	FailOn string
}

var _ Submitter = (*Recorder)(nil)

func (r *Recorder) record(event string) error {
	if r.FailOn != "" && len(event) >= len(r.FailOn) && event[:len(r.FailOn)] == r.FailOn {
		return fmt.Errorf("recorder: injected failure at %q", event)
	}
	r.events = append(r.events, event)
	return nil
}

// Events returns the recorded calls in submission order.
func (r *Recorder) Events() []string { return r.events }

// Reset clears the recording.
func (r *Recorder) Reset() { r.events = r.events[:0] }

// CountPrefix returns how many recorded events start with prefix.
func (r *Recorder) CountPrefix(prefix string) int {
	n := 0
	for _, e := range r.events {
		if len(e) >= len(prefix) && e[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

// BeginPass implements Submitter.
func (r *Recorder) BeginPass(cfg pass.Config, bit pass.Mask) error {
	return r.record(fmt.Sprintf("begin %s", cfg.Name))
}

// BindPipeline implements Submitter.
func (r *Recorder) BindPipeline(h resource.Handle) error {
	return r.record(fmt.Sprintf("pipeline %s", h))
}

// BindGeometry implements Submitter.
func (r *Recorder) BindGeometry(h resource.Handle, format gputypes.IndexFormat) error {
	return r.record(fmt.Sprintf("geometry %s", h))
}

// BindTexture implements Submitter.
func (r *Recorder) BindTexture(slot int, h resource.Handle) error {
	return r.record(fmt.Sprintf("texture %d %s", slot, h))
}

// SetUniform implements Submitter.
func (r *Recorder) SetUniform(u Uniform) error {
	return r.record(fmt.Sprintf("uniform %s %s", u.Kind, u.Name))
}

// DrawIndexed implements Submitter.
func (r *Recorder) DrawIndexed(indexCount uint32, topology gputypes.PrimitiveTopology) error {
	return r.record(fmt.Sprintf("draw %d", indexCount))
}

// EndPass implements Submitter.
func (r *Recorder) EndPass() error {
	return r.record("end")
}
