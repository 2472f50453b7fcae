// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package frame

import (
	"cmp"

	"github.com/gogpu/stage/pass"
)

// strategyFor returns the comparison function for a pass's sort order.
//
// All strategies are applied with a stable sort, so commands that compare
// equal keep their collection order. That makes ties deterministic across
// frames as long as the renderable set is stable.
func strategyFor(order pass.SortOrder) func(a, b Command) int {
	switch order {
	case pass.SortFrontToBack:
		return compareFrontToBack
	case pass.SortBackToFront:
		return compareBackToFront
	case pass.SortKey:
		return compareKey
	default:
		return compareState
	}
}

// compareState groups by pipeline, then geometry, then key. This is the
// batching order for opaque passes: adjacent commands share expensive
// state so the executor's diffing pays off most.
func compareState(a, b Command) int {
	if c := a.Pipeline.Compare(b.Pipeline); c != 0 {
		return c
	}
	if c := a.Geometry.Compare(b.Geometry); c != 0 {
		return c
	}
	return cmp.Compare(a.Key, b.Key)
}

// compareFrontToBack orders near to far, minimizing overdraw in
// depth-tested passes.
func compareFrontToBack(a, b Command) int {
	if c := cmp.Compare(a.Depth, b.Depth); c != 0 {
		return c
	}
	return cmp.Compare(a.Key, b.Key)
}

// compareBackToFront orders far to near, the only correct order for
// alpha blending.
func compareBackToFront(a, b Command) int {
	if c := cmp.Compare(b.Depth, a.Depth); c != 0 {
		return c
	}
	return cmp.Compare(a.Key, b.Key)
}

// compareKey orders by the explicit material key, for UI and post passes
// where the key encodes layering.
func compareKey(a, b Command) int {
	return cmp.Compare(a.Key, b.Key)
}
