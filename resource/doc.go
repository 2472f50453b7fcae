// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package resource provides the create-or-reuse cache of GPU-side resources.
//
// Resources are described by immutable definitions (geometry bytes, WGSL
// shader source, texture pixels) identified by a stable name. The [Cache]
// creates each resource at most once through a [Creator] collaborator and
// hands out opaque [Handle] values to every consumer.
//
// Lifetime is tracked per entry: a set of owner tokens plus a persistence
// flag. An entry may be destroyed only when it is not persistent and its
// owner set is empty, which is what keeps in-flight frames safe — a frame
// that owns a resource cannot have it purged underneath it.
//
// Creation failures never escape as panics or frame-fatal errors: the cache
// substitutes a pre-registered fallback resource (a bright error shader, a
// unit quad, a magenta texture) and logs a warning, so rendering continues
// with a visible but stable artifact.
package resource
