// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package frame

import (
	"fmt"
	"slices"

	"github.com/gogpu/stage"
	"github.com/gogpu/stage/pass"
)

// Stats summarizes one rendered frame.
type Stats struct {
	// Frame is the frame number the stats describe.
	Frame uint64

	// Commands is the total number of collected draw commands.
	Commands int

	// PassesVisited is how many passes had at least one command.
	PassesVisited int

	// Exec holds the executor's bind/draw counters for the frame.
	Exec ExecStats
}

// Loop owns per-frame orchestration: collect, detect active passes,
// then filter, sort and replay each pass through the submitter.
//
// A Loop is single-threaded by contract — one goroutine drives frames.
// Buffers are reused across frames, so steady-state rendering does not
// allocate beyond what renderables themselves allocate.
type Loop struct {
	registry  *pass.Registry
	submitter Submitter
	collector Collector
	executor  Executor

	frame    uint64
	buffer   CommandBuffer
	filtered []Command
}

// NewLoop creates a render loop over a pass registry and a submitter.
func NewLoop(registry *pass.Registry, submitter Submitter) *Loop {
	return &Loop{registry: registry, submitter: submitter}
}

// Add registers a renderable for all subsequent frames.
func (l *Loop) Add(r Renderable) { l.collector.Add(r) }

// Remove unregisters a renderable.
func (l *Loop) Remove(r Renderable) { l.collector.Remove(r) }

// RenderFrame collects and executes one frame.
//
// Passes run in ascending bit order. A pass with no commands is skipped
// entirely: no BeginPass, no binds, nothing reaches the submitter. A pass
// whose bit has no registry configuration is skipped with a warning.
// Submitter errors abort the frame and are returned.
func (l *Loop) RenderFrame(delta float64, width, height uint32) (Stats, error) {
	l.frame++
	fc := FrameContext{Frame: l.frame, Delta: delta, Width: width, Height: height}

	l.collector.Collect(fc, &l.buffer)
	l.executor.ResetStats()

	stats := Stats{Frame: l.frame, Commands: l.buffer.Len()}
	commands := l.buffer.Commands()

	for bit := range l.buffer.ActiveMask().Bits() {
		cfg, ok := l.registry.Config(bit)
		if !ok {
			stage.Logger().Warn("frame: active pass has no configuration, skipping",
				"frame", l.frame, "pass", bit)
			continue
		}

		l.filtered = l.filtered[:0]
		for i := range commands {
			if commands[i].Passes.Has(bit) {
				l.filtered = append(l.filtered, commands[i])
			}
		}
		if len(l.filtered) == 0 {
			// Unreachable while ActiveMask is the union of command
			// masks; kept so a future mask source cannot open empty
			// passes.
			continue
		}

		slices.SortStableFunc(l.filtered, strategyFor(cfg.Sort))

		if err := l.submitter.BeginPass(cfg, bit); err != nil {
			return stats, fmt.Errorf("frame %d: begin pass %s: %w", l.frame, cfg.Name, err)
		}
		l.executor.Reset()
		for i := range l.filtered {
			if err := l.executor.Execute(l.submitter, &l.filtered[i]); err != nil {
				return stats, fmt.Errorf("frame %d: pass %s: %w", l.frame, cfg.Name, err)
			}
		}
		if err := l.submitter.EndPass(); err != nil {
			return stats, fmt.Errorf("frame %d: end pass %s: %w", l.frame, cfg.Name, err)
		}
		stats.PassesVisited++
	}

	stats.Exec = l.executor.Stats()
	return stats, nil
}

// Frame returns the number of the most recently rendered frame.
func (l *Loop) Frame() uint64 { return l.frame }
