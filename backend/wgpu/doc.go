// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package wgpu is the GPU backend for the render loop, built on the
// wgpu HAL.
//
// It provides two collaborators: a [Creator] that compiles WGSL shaders
// (through naga, to SPIR-V) and uploads geometry and textures, and a
// [Submitter] that encodes each render pass into a command buffer and
// submits it to the queue.
//
// The backend can share a device with a host application through a
// gpucontext device provider, or open its own headless device for
// offscreen rendering and tests on real hardware.
package wgpu
