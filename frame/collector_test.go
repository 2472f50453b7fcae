// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package frame

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/gogpu/stage"
	"github.com/gogpu/stage/pass"
)

func TestCollectorGathersAll(t *testing.T) {
	var c Collector
	c.Add(RenderableFunc(func(fc FrameContext, out *CommandBuffer) {
		out.Submit(Command{Passes: pass.Opaque, Key: 1})
		out.Submit(Command{Passes: pass.Opaque, Key: 2})
	}))
	c.Add(RenderableFunc(func(fc FrameContext, out *CommandBuffer) {
		out.Submit(Command{Passes: pass.Overlay, Key: 3})
	}))

	var buf CommandBuffer
	c.Collect(FrameContext{Frame: 1}, &buf)

	if buf.Len() != 3 {
		t.Fatalf("collected %d commands, want 3", buf.Len())
	}
	if got, want := buf.ActiveMask(), pass.Opaque|pass.Overlay; got != want {
		t.Errorf("ActiveMask() = %v, want %v", got, want)
	}
}

func TestCollectorPanicIsolation(t *testing.T) {
	var logBuf bytes.Buffer
	stage.SetLogger(slog.New(slog.NewTextHandler(&logBuf, nil)))
	t.Cleanup(func() { stage.SetLogger(nil) })

	var c Collector
	c.Add(RenderableFunc(func(fc FrameContext, out *CommandBuffer) {
		out.Submit(Command{Passes: pass.Opaque, Key: 1})
	}))
	c.Add(RenderableFunc(func(fc FrameContext, out *CommandBuffer) {
		// Submit something first, then die: the partial submission
		// must not leak into the frame.
		out.Submit(Command{Passes: pass.Shadow, Key: 99})
		panic("renderable broke")
	}))
	c.Add(RenderableFunc(func(fc FrameContext, out *CommandBuffer) {
		out.Submit(Command{Passes: pass.Overlay, Key: 2})
	}))

	var buf CommandBuffer
	c.Collect(FrameContext{Frame: 7}, &buf)

	if buf.Len() != 2 {
		t.Fatalf("collected %d commands, want 2 (panicker discarded)", buf.Len())
	}
	if buf.ActiveMask().Has(pass.Shadow) {
		t.Error("partial submission from panicking renderable leaked")
	}
	if !strings.Contains(logBuf.String(), "renderable panicked") {
		t.Errorf("panic not logged: %q", logBuf.String())
	}
}

func TestCollectorPanicDoesNotStopFrame(t *testing.T) {
	var c Collector
	for range 3 {
		c.Add(RenderableFunc(func(fc FrameContext, out *CommandBuffer) {
			panic("all broken")
		}))
	}

	var buf CommandBuffer
	c.Collect(FrameContext{Frame: 1}, &buf) // must not panic

	if buf.Len() != 0 {
		t.Errorf("collected %d commands from panicking renderables, want 0", buf.Len())
	}
}

type stubRenderable struct {
	mask pass.Mask
}

func (s *stubRenderable) Draw(fc FrameContext, out *CommandBuffer) {
	out.Submit(Command{Passes: s.mask})
}

func TestCollectorRemove(t *testing.T) {
	a := &stubRenderable{mask: pass.Opaque}
	b := &stubRenderable{mask: pass.Opaque}

	var c Collector
	c.Add(a)
	c.Add(b)
	c.Remove(a)

	if c.Len() != 1 {
		t.Fatalf("Len() = %d after remove, want 1", c.Len())
	}
	var buf CommandBuffer
	c.Collect(FrameContext{}, &buf)
	if buf.Len() != 1 {
		t.Errorf("collected %d commands, want 1", buf.Len())
	}
}

func TestCollectorContextPassedThrough(t *testing.T) {
	var got FrameContext
	var c Collector
	c.Add(RenderableFunc(func(fc FrameContext, out *CommandBuffer) {
		got = fc
	}))

	want := FrameContext{Frame: 42, Delta: 0.016, Width: 1280, Height: 720}
	var buf CommandBuffer
	c.Collect(want, &buf)

	if got != want {
		t.Errorf("context = %+v, want %+v", got, want)
	}
}
