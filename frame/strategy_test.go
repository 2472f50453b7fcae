// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package frame

import (
	"slices"
	"testing"

	"github.com/gogpu/stage/pass"
	"github.com/gogpu/stage/resource"
)

func TestStateSortGroupsByPipelineThenGeometry(t *testing.T) {
	pipeA := resource.NewHandle(resource.KindShader, 1)
	pipeB := resource.NewHandle(resource.KindShader, 2)
	geoX := resource.NewHandle(resource.KindGeometry, 10)
	geoY := resource.NewHandle(resource.KindGeometry, 11)

	cmds := []Command{
		{Pipeline: pipeB, Geometry: geoY, Key: 0},
		{Pipeline: pipeA, Geometry: geoY, Key: 1},
		{Pipeline: pipeB, Geometry: geoX, Key: 2},
		{Pipeline: pipeA, Geometry: geoX, Key: 3},
		{Pipeline: pipeA, Geometry: geoX, Key: 0},
	}
	slices.SortStableFunc(cmds, strategyFor(pass.SortState))

	wantKeys := []uint32{0, 3, 1, 2, 0}
	for i, want := range wantKeys {
		if cmds[i].Key != want {
			t.Errorf("position %d: Key = %d, want %d", i, cmds[i].Key, want)
		}
	}
	// Same pipeline runs must be adjacent.
	if cmds[0].Pipeline != pipeA || cmds[1].Pipeline != pipeA || cmds[2].Pipeline != pipeA {
		t.Error("pipeline A commands not grouped first")
	}
}

func TestFrontToBackSort(t *testing.T) {
	cmds := []Command{
		{Depth: 5.0, Key: 0},
		{Depth: 1.0, Key: 1},
		{Depth: 3.0, Key: 2},
	}
	slices.SortStableFunc(cmds, strategyFor(pass.SortFrontToBack))

	wantDepths := []float32{1.0, 3.0, 5.0}
	for i, want := range wantDepths {
		if cmds[i].Depth != want {
			t.Errorf("position %d: Depth = %g, want %g", i, cmds[i].Depth, want)
		}
	}
}

func TestBackToFrontSort(t *testing.T) {
	cmds := []Command{
		{Depth: 1.0},
		{Depth: 5.0},
		{Depth: 3.0},
	}
	slices.SortStableFunc(cmds, strategyFor(pass.SortBackToFront))

	wantDepths := []float32{5.0, 3.0, 1.0}
	for i, want := range wantDepths {
		if cmds[i].Depth != want {
			t.Errorf("position %d: Depth = %g, want %g", i, cmds[i].Depth, want)
		}
	}
}

func TestKeySort(t *testing.T) {
	cmds := []Command{{Key: 30}, {Key: 10}, {Key: 20}}
	slices.SortStableFunc(cmds, strategyFor(pass.SortKey))

	wantKeys := []uint32{10, 20, 30}
	for i, want := range wantKeys {
		if cmds[i].Key != want {
			t.Errorf("position %d: Key = %d, want %d", i, cmds[i].Key, want)
		}
	}
}

// TestSortStability checks that commands comparing equal keep submission
// order, using Depth as a hidden submission marker the comparator ignores.
func TestSortStability(t *testing.T) {
	orders := []pass.SortOrder{pass.SortState, pass.SortKey}
	for _, order := range orders {
		t.Run(order.String(), func(t *testing.T) {
			cmds := make([]Command, 8)
			for i := range cmds {
				cmds[i] = Command{Key: 7, Depth: float32(i)}
			}
			slices.SortStableFunc(cmds, strategyFor(order))

			for i := range cmds {
				if cmds[i].Depth != float32(i) {
					t.Fatalf("position %d: submission marker %g, equal commands reordered",
						i, cmds[i].Depth)
				}
			}
		})
	}
}

func TestDepthSortStabilityOnTies(t *testing.T) {
	cmds := make([]Command, 6)
	for i := range cmds {
		cmds[i] = Command{Depth: 2.0, Key: 1, IndexCount: uint32(i)}
	}
	slices.SortStableFunc(cmds, strategyFor(pass.SortBackToFront))

	for i := range cmds {
		if cmds[i].IndexCount != uint32(i) {
			t.Fatalf("position %d: marker %d, ties reordered", i, cmds[i].IndexCount)
		}
	}
}
