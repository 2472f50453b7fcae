// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package pass defines the bit-flag registry of rendering passes.
//
// Every rendering pass owns exactly one bit of a [Mask]. A draw command
// carries the union of every pass it participates in, and a frame's active
// passes are the bitwise OR of all command masks — membership tests and
// per-pass filtering are single AND operations, with no per-pass branching
// in the hot collection path.
//
// Bit position is the execution-order contract: lower bits run earlier in
// the frame. [Mask.Bits] decomposes any combined mask into its single-bit
// passes in ascending (execution) order.
//
// The [Registry] maps human-readable pass names to masks and holds each
// pass's target configuration (attachment formats, clear behavior, default
// sort order). Component templates may reference passes by name or by bit
// constant; both resolve to the same mask space.
package pass
