// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package resource

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// mockCreator counts creations and optionally fails named definitions.
type mockCreator struct {
	mu        sync.Mutex
	nextID    uint64
	created   map[string]int
	destroyed []Handle
	failNames map[string]bool
}

func newMockCreator() *mockCreator {
	return &mockCreator{
		created:   make(map[string]int),
		failNames: make(map[string]bool),
	}
}

func (m *mockCreator) mint(kind Kind, name string) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNames[name] {
		return Handle{}, fmt.Errorf("mock: %s rejected", name)
	}
	m.created[name]++
	m.nextID++
	return NewHandle(kind, m.nextID), nil
}

func (m *mockCreator) CompileShader(def *ShaderDefinition) (Handle, error) {
	return m.mint(KindShader, def.Name)
}

func (m *mockCreator) UploadGeometry(def *GeometryDefinition) (Handle, error) {
	return m.mint(KindGeometry, def.Name)
}

func (m *mockCreator) UploadTexture(def *TextureDefinition) (Handle, error) {
	return m.mint(KindTexture, def.Name)
}

func (m *mockCreator) Destroy(h Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.destroyed = append(m.destroyed, h)
}

func (m *mockCreator) createdCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.created[name]
}

func (m *mockCreator) destroyedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.destroyed)
}

func testShaderDef(name string) *ShaderDefinition {
	return &ShaderDefinition{Name: name, Source: fallbackShaderWGSL}
}

func testGeometryDef(name string) *GeometryDefinition {
	return &GeometryDefinition{
		Name:         name,
		Vertices:     PackFloat32(0, 0, 0),
		VertexStride: 12,
		Indices:      PackUint16(0),
	}
}

func newTestCache(t *testing.T) (*Cache, *mockCreator) {
	t.Helper()
	creator := newMockCreator()
	cache, err := NewCache(creator)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	return cache, creator
}

func TestCacheCreatesOnce(t *testing.T) {
	cache, creator := newTestCache(t)

	def := testShaderDef("sprite")
	first := cache.Shader(def, "a")
	for range 10 {
		if h := cache.Shader(def, "b"); h != first {
			t.Fatalf("repeated lookup returned %v, want %v", h, first)
		}
	}

	if n := creator.createdCount("sprite"); n != 1 {
		t.Errorf("created %d times, want 1", n)
	}
	stats := cache.Stats()
	if stats.Misses != 1 {
		t.Errorf("Misses = %d, want 1", stats.Misses)
	}
	if stats.Hits != 10 {
		t.Errorf("Hits = %d, want 10", stats.Hits)
	}
}

func TestCacheOwnerIdempotent(t *testing.T) {
	cache, _ := newTestCache(t)

	def := testGeometryDef("quad")
	cache.Geometry(def, "ship")
	cache.Geometry(def, "ship")
	cache.Geometry(def, "ship")

	if n := cache.Owners(KindGeometry, "quad"); n != 1 {
		t.Errorf("owner count = %d, want 1", n)
	}
}

func TestCacheEmptyOwnerNotTracked(t *testing.T) {
	cache, _ := newTestCache(t)

	cache.Geometry(testGeometryDef("quad"), "")
	if n := cache.Owners(KindGeometry, "quad"); n != 0 {
		t.Errorf("owner count = %d, want 0", n)
	}
}

func TestCacheReleaseThenPurge(t *testing.T) {
	cache, creator := newTestCache(t)

	h := cache.Geometry(testGeometryDef("quad"), "ship")

	// Owned entries survive a purge.
	if n := cache.Purge(Everything()); n != 0 {
		t.Fatalf("purge destroyed %d owned entries, want 0", n)
	}

	cache.Release(KindGeometry, "quad", "ship")
	if n := cache.Purge(Everything()); n != 1 {
		t.Fatalf("purge destroyed %d entries, want 1", n)
	}
	if got := creator.destroyed; len(got) != 1 || got[0] != h {
		t.Errorf("destroyed = %v, want [%v]", got, h)
	}
}

func TestCachePurgeNeverDestroysPersistent(t *testing.T) {
	cache, creator := newTestCache(t)

	def := testShaderDef("base")
	def.Persistent = true
	cache.Shader(def, "")

	if n := cache.Purge(Everything()); n != 0 {
		t.Errorf("purge destroyed %d persistent entries, want 0", n)
	}
	if n := creator.destroyedCount(); n != 0 {
		t.Errorf("creator.Destroy called %d times, want 0", n)
	}
	// Fallbacks are persistent and must survive too.
	if h := cache.Shader(&ShaderDefinition{Name: FallbackShaderName}, ""); !h.IsValid() {
		t.Error("fallback shader missing after purge")
	}
}

func TestCachePurgeOwner(t *testing.T) {
	cache, creator := newTestCache(t)

	shared := testGeometryDef("shared")
	solo := testGeometryDef("solo")
	sharedHandle := cache.Geometry(shared, "a")
	cache.Geometry(shared, "b")
	soloHandle := cache.Geometry(solo, "a")

	// Removing owner "a" destroys only the entry it owned alone.
	if n := cache.PurgeOwner("a"); n != 1 {
		t.Fatalf("PurgeOwner destroyed %d entries, want 1", n)
	}
	if got := creator.destroyed; len(got) != 1 || got[0] != soloHandle {
		t.Errorf("destroyed = %v, want [%v]", got, soloHandle)
	}
	if h := cache.Geometry(shared, ""); h != sharedHandle {
		t.Error("shared entry was recreated after PurgeOwner")
	}

	if n := cache.PurgeOwner("b"); n != 1 {
		t.Errorf("PurgeOwner(b) destroyed %d entries, want 1", n)
	}
}

func TestCachePurgeFilters(t *testing.T) {
	cache, _ := newTestCache(t)

	cache.Geometry(testGeometryDef("g"), "")
	cache.Shader(testShaderDef("s"), "")

	if n := cache.Purge(OfKind(KindTexture)); n != 0 {
		t.Errorf("OfKind(texture) destroyed %d, want 0", n)
	}
	if n := cache.Purge(OfKind(KindGeometry)); n != 1 {
		t.Errorf("OfKind(geometry) destroyed %d, want 1", n)
	}
	if n := cache.Purge(Everything()); n != 1 {
		t.Errorf("Everything destroyed %d, want 1", n)
	}
}

func TestCachePurgeUnusedSince(t *testing.T) {
	cache, _ := newTestCache(t)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	current := base
	cache.now = func() time.Time { return current }

	cache.Geometry(testGeometryDef("old"), "")
	current = base.Add(time.Hour)
	cache.Geometry(testGeometryDef("fresh"), "")

	if n := cache.Purge(UnusedSince(base.Add(time.Minute))); n != 1 {
		t.Fatalf("UnusedSince destroyed %d entries, want 1", n)
	}
	if n := cache.Owners(KindGeometry, "fresh"); n < 0 {
		t.Error("fresh entry was destroyed")
	}
	if n := cache.Owners(KindGeometry, "old"); n >= 0 {
		t.Error("old entry survived")
	}
}

func TestCacheLookupRefreshesLastUsed(t *testing.T) {
	cache, _ := newTestCache(t)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	current := base
	cache.now = func() time.Time { return current }

	def := testGeometryDef("quad")
	cache.Geometry(def, "")
	current = base.Add(time.Hour)
	cache.Geometry(def, "")

	if n := cache.Purge(UnusedSince(base.Add(time.Minute))); n != 0 {
		t.Errorf("recently used entry purged (%d destroyed)", n)
	}
}

func TestCacheFallbackOnFailure(t *testing.T) {
	cache, creator := newTestCache(t)
	creator.failNames["broken"] = true

	h := cache.Shader(testShaderDef("broken"), "ship")
	want := cache.Shader(&ShaderDefinition{Name: FallbackShaderName}, "")
	if h != want {
		t.Fatalf("failed creation returned %v, want fallback %v", h, want)
	}
	if cache.Stats().Failures != 1 {
		t.Errorf("Failures = %d, want 1", cache.Stats().Failures)
	}

	// The failed entry is cached (no retry storm) and purging it must not
	// destroy the shared fallback object.
	cache.Shader(testShaderDef("broken"), "")
	if n := creator.createdCount("broken"); n != 0 {
		t.Errorf("broken shader created %d times, want 0", n)
	}
	cache.Release(KindShader, "broken", "ship")
	if n := cache.Purge(OfKind(KindShader)); n != 1 {
		t.Fatalf("purge destroyed %d entries, want 1", n)
	}
	if n := creator.destroyedCount(); n != 0 {
		t.Errorf("fallback-backed purge called Destroy %d times, want 0", n)
	}
}

func TestCacheFallbackCreationFailureIsFatal(t *testing.T) {
	creator := newMockCreator()
	creator.failNames[FallbackShaderName] = true

	if _, err := NewCache(creator); err == nil {
		t.Fatal("NewCache succeeded without a fallback shader")
	}
}

func TestScopeReleaseIdempotent(t *testing.T) {
	cache, _ := newTestCache(t)

	def := testGeometryDef("quad")
	_, scope := cache.AcquireGeometry(def, "a")
	cache.Geometry(def, "b")

	scope.Release()
	scope.Release()
	scope.Release()

	// Only "a" was released; "b" still holds the entry.
	if n := cache.Owners(KindGeometry, "quad"); n != 1 {
		t.Errorf("owner count after release = %d, want 1", n)
	}
	if n := cache.Purge(Everything()); n != 0 {
		t.Errorf("purge destroyed %d entries still owned by b, want 0", n)
	}
}

func TestScopeNilRelease(t *testing.T) {
	var s *Scope
	s.Release() // must not panic
}

func TestCacheConcurrentGetOrCreate(t *testing.T) {
	cache, creator := newTestCache(t)

	def := testShaderDef("shared")
	var wg sync.WaitGroup
	handles := make([]Handle, 32)
	for i := range handles {
		wg.Add(1)
		go func() {
			defer wg.Done()
			handles[i] = cache.Shader(def, Owner(fmt.Sprintf("owner-%d", i)))
		}()
	}
	wg.Wait()

	if n := creator.createdCount("shared"); n != 1 {
		t.Errorf("created %d times under contention, want 1", n)
	}
	for i, h := range handles {
		if h != handles[0] {
			t.Fatalf("handle %d = %v, want %v", i, h, handles[0])
		}
	}
	if n := cache.Owners(KindShader, "shared"); n != 32 {
		t.Errorf("owner count = %d, want 32", n)
	}
}

func TestCacheStatsEntries(t *testing.T) {
	cache, _ := newTestCache(t)

	// Three fallbacks are pre-registered.
	if n := cache.Len(); n != 3 {
		t.Fatalf("initial Len = %d, want 3", n)
	}
	cache.Geometry(testGeometryDef("a"), "")
	cache.Texture(&TextureDefinition{Name: "t", Width: 1, Height: 1, Pixels: []byte{0, 0, 0, 0}}, "")
	if n := cache.Stats().Entries; n != 5 {
		t.Errorf("Entries = %d, want 5", n)
	}
}

func TestHandleCompare(t *testing.T) {
	tests := []struct {
		a, b Handle
		want int
	}{
		{NewHandle(KindShader, 1), NewHandle(KindShader, 1), 0},
		{NewHandle(KindShader, 1), NewHandle(KindShader, 2), -1},
		{NewHandle(KindShader, 2), NewHandle(KindShader, 1), 1},
		{NewHandle(KindGeometry, 9), NewHandle(KindShader, 1), -1},
	}
	for _, tt := range tests {
		if got := tt.a.Compare(tt.b); got != tt.want {
			t.Errorf("%v.Compare(%v) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestHandleString(t *testing.T) {
	if got := NewHandle(KindShader, 42).String(); got != "shader#42" {
		t.Errorf("String() = %q, want %q", got, "shader#42")
	}
	var zero Handle
	if got := zero.String(); got != "invalid" {
		t.Errorf("zero String() = %q, want %q", got, "invalid")
	}
	if zero.IsValid() {
		t.Error("zero handle reports valid")
	}
}

func TestReleaseUnknownIsNoOp(t *testing.T) {
	cache, _ := newTestCache(t)
	cache.Release(KindShader, "missing", "ghost")
	cache.Release(KindInvalid, "missing", "ghost")
}
