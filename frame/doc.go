// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package frame implements the per-frame render orchestration loop.
//
// Each frame, a [Collector] asks every registered [Renderable] to submit
// draw commands into a shared [CommandBuffer]. Commands carry a pass mask;
// the union of all masks tells the [Loop] which passes are active this
// frame, so passes nobody drew into cost nothing.
//
// For each active pass, in ascending bit order, the loop filters the
// unified command list down to the commands tagged for that pass, sorts
// them by the pass's batching strategy, and replays them through a
// [Submitter]. An [Executor] tracks bound state between commands and
// skips redundant pipeline, geometry and texture binds.
//
// A renderable that panics during collection is isolated: its commands
// for that frame are discarded, the panic is logged, and the rest of the
// frame renders normally.
package frame
