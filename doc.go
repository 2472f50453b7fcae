// Package stage is the per-frame render orchestration core for
// component-based engines built on the GoGPU ecosystem.
//
// # Overview
//
// stage decides which rendering passes run each frame, in what order, with
// what GPU state, and which GPU-side resources back each draw. It is built
// from four cooperating pieces:
//
//   - pass: a bit-flag registry of rendering passes. Each pass owns one bit
//     of a pass.Mask; bit position defines execution order.
//   - frame: the per-frame pipeline. A Collector gathers immutable draw
//     commands from renderables, a per-pass Strategy sorts them to group
//     expensive GPU state, and an Executor applies only the state deltas
//     between consecutive draws.
//   - resource: a reference-counted cache of GPU resources (geometry,
//     shaders, textures) keyed by definition name, with persistent and
//     owner-scoped lifetimes.
//   - backend/wgpu: collaborator implementations on top of gogpu/wgpu.
//
// # Quick Start
//
//	reg := pass.NewRegistry()
//	cache, err := resource.NewCache(creator)
//	if err != nil {
//		return err
//	}
//	loop := frame.NewLoop(reg, submitter)
//	loop.Add(player) // anything implementing frame.Renderable
//
//	// Each frame:
//	stats, err := loop.RenderFrame(delta, width, height)
//
// stage does not define a scene graph, an animation system, or a windowing
// layer. Renderables are anything implementing frame.Renderable; GPU
// submission and resource creation are interfaces the host supplies.
//
// # Logging
//
// stage produces no log output by default. Call [SetLogger] to enable it.
package stage
