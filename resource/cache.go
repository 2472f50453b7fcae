// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package resource

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/stage"
)

// Owner is an opaque token identifying whichever entity is using a cached
// resource. Owner sets decide destruction eligibility: an entry may be
// destroyed only once every owner has released it (and it is not
// persistent). The empty Owner records no ownership at all.
type Owner string

// entry ties a live handle to its definition identity and bookkeeping.
type entry struct {
	handle     Handle
	name       string
	persistent bool
	fallback   bool // handle aliases the shared fallback; never destroyed
	owners     map[Owner]struct{}
	created    time.Time
	lastUsed   time.Time
}

// eligible reports whether the entry may be destroyed.
func (e *entry) eligible() bool {
	return !e.persistent && len(e.owners) == 0
}

// addOwner records an owner; adding the same owner twice has no effect.
func (e *entry) addOwner(o Owner) {
	if o == "" {
		return
	}
	e.owners[o] = struct{}{}
}

// Stats holds cache counters. Reads are atomic and allocation-free.
type Stats struct {
	// Entries is the current number of live entries.
	Entries int

	// Hits counts lookups that reused an existing entry.
	Hits uint64

	// Misses counts lookups that created a new resource.
	Misses uint64

	// Failures counts creations that fell back to an error resource.
	Failures uint64

	// Purged counts entries destroyed by Purge or PurgeOwner.
	Purged uint64
}

// Cache is the reference-counted store of GPU resources.
//
// All methods are safe for concurrent use: bookkeeping is guarded by one
// mutex so renderables may call GetOrCreate/Release from parallel subtree
// collection. Creation runs under the lock, which also prevents two callers
// from creating the same resource twice.
type Cache struct {
	mu      sync.Mutex
	creator Creator

	// Sub-caches keyed by definition name, one per resource kind.
	geometry map[string]*entry
	shaders  map[string]*entry
	textures map[string]*entry

	// Shared fallback handles, created at construction.
	fallbackShader   Handle
	fallbackGeometry Handle
	fallbackTexture  Handle

	hits     atomic.Uint64
	misses   atomic.Uint64
	failures atomic.Uint64
	purged   atomic.Uint64

	// now is a test seam for time bookkeeping.
	now func() time.Time
}

// NewCache creates a cache bound to a creator and pre-registers the
// fallback resources. Fallback creation failure is a construction error:
// without a stable error shader the §7-style recovery path cannot work,
// so the host must fail fast.
func NewCache(creator Creator) (*Cache, error) {
	c := &Cache{
		creator:  creator,
		geometry: make(map[string]*entry),
		shaders:  make(map[string]*entry),
		textures: make(map[string]*entry),
		now:      time.Now,
	}

	var err error
	if c.fallbackShader, err = creator.CompileShader(fallbackShaderDefinition()); err != nil {
		return nil, fmt.Errorf("resource: create fallback shader: %w", err)
	}
	if c.fallbackGeometry, err = creator.UploadGeometry(fallbackGeometryDefinition()); err != nil {
		return nil, fmt.Errorf("resource: create fallback geometry: %w", err)
	}
	if c.fallbackTexture, err = creator.UploadTexture(fallbackTextureDefinition()); err != nil {
		return nil, fmt.Errorf("resource: create fallback texture: %w", err)
	}

	c.install(c.shaders, FallbackShaderName, c.fallbackShader, true, false)
	c.install(c.geometry, FallbackGeometryName, c.fallbackGeometry, true, false)
	c.install(c.textures, FallbackTextureName, c.fallbackTexture, true, false)
	return c, nil
}

// install registers an entry without creation. Caller holds no lock during
// construction; used only from NewCache.
func (c *Cache) install(table map[string]*entry, name string, h Handle, persistent, fallback bool) {
	now := c.now()
	table[name] = &entry{
		handle:     h,
		name:       name,
		persistent: persistent,
		fallback:   fallback,
		owners:     make(map[Owner]struct{}),
		created:    now,
		lastUsed:   now,
	}
}

// Geometry returns the live handle for a geometry definition, creating it
// on first use. A non-empty owner is added to the entry's owner set
// (idempotently). On creation failure the fallback quad is returned.
func (c *Cache) Geometry(def *GeometryDefinition, owner Owner) Handle {
	return c.getOrCreate(c.geometry, def.Name, def.Persistent, owner, func() (Handle, error) {
		return c.creator.UploadGeometry(def)
	}, c.fallbackGeometry)
}

// Shader returns the live handle for a shader definition, creating it on
// first use. On compile failure the bright error shader is returned.
func (c *Cache) Shader(def *ShaderDefinition, owner Owner) Handle {
	return c.getOrCreate(c.shaders, def.Name, def.Persistent, owner, func() (Handle, error) {
		return c.creator.CompileShader(def)
	}, c.fallbackShader)
}

// Texture returns the live handle for a texture definition, creating it on
// first use. On upload failure the magenta fallback texture is returned.
func (c *Cache) Texture(def *TextureDefinition, owner Owner) Handle {
	return c.getOrCreate(c.textures, def.Name, def.Persistent, owner, func() (Handle, error) {
		return c.creator.UploadTexture(def)
	}, c.fallbackTexture)
}

// AcquireGeometry is Geometry plus a Scope whose Release removes the owner
// deterministically. Use with defer for scoped ownership.
func (c *Cache) AcquireGeometry(def *GeometryDefinition, owner Owner) (Handle, *Scope) {
	h := c.Geometry(def, owner)
	return h, &Scope{cache: c, kind: KindGeometry, name: def.Name, owner: owner}
}

// AcquireShader is Shader plus a release Scope.
func (c *Cache) AcquireShader(def *ShaderDefinition, owner Owner) (Handle, *Scope) {
	h := c.Shader(def, owner)
	return h, &Scope{cache: c, kind: KindShader, name: def.Name, owner: owner}
}

// AcquireTexture is Texture plus a release Scope.
func (c *Cache) AcquireTexture(def *TextureDefinition, owner Owner) (Handle, *Scope) {
	h := c.Texture(def, owner)
	return h, &Scope{cache: c, kind: KindTexture, name: def.Name, owner: owner}
}

// getOrCreate implements the shared lookup-or-create path.
//
// Creation runs under the cache lock: definitions are in-memory data and
// upload cost is dominated by the GPU transfer, so holding the lock is
// cheaper than the double-create races it prevents. Hosts that decode
// large assets should do so before building the definition.
func (c *Cache) getOrCreate(table map[string]*entry, name string, persistent bool, owner Owner, create func() (Handle, error), fallback Handle) Handle {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := table[name]; ok {
		e.addOwner(owner)
		e.lastUsed = c.now()
		c.hits.Add(1)
		return e.handle
	}

	c.misses.Add(1)
	h, err := create()
	isFallback := false
	if err != nil {
		stage.Logger().Warn("resource: creation failed, using fallback",
			"name", name, "error", err)
		c.failures.Add(1)
		h = fallback
		isFallback = true
	}

	now := c.now()
	e := &entry{
		handle:     h,
		name:       name,
		persistent: persistent,
		fallback:   isFallback,
		owners:     make(map[Owner]struct{}),
		created:    now,
		lastUsed:   now,
	}
	e.addOwner(owner)
	table[name] = e
	return e.handle
}

// Release removes owner from the named entry's owner set. The resource is
// not destroyed immediately — destruction happens on a later Purge once the
// entry is ownerless. Releasing an unknown entry or a non-owner is a no-op.
func (c *Cache) Release(kind Kind, name string, owner Owner) {
	if owner == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.table(kind)[name]; ok {
		delete(e.owners, owner)
	}
}

// table maps a kind to its sub-cache. Caller must hold c.mu.
func (c *Cache) table(kind Kind) map[string]*entry {
	switch kind {
	case KindGeometry:
		return c.geometry
	case KindShader:
		return c.shaders
	case KindTexture:
		return c.textures
	default:
		return nil
	}
}

// EntryInfo is the read-only view of an entry passed to purge filters.
type EntryInfo struct {
	// Name is the definition name.
	Name string

	// Kind is the resource category.
	Kind Kind

	// Persistent mirrors the definition's flag.
	Persistent bool

	// Owners is the current owner count.
	Owners int

	// Created and LastUsed are access bookkeeping timestamps.
	Created  time.Time
	LastUsed time.Time
}

// Filter selects entries for Purge. Only entries that are already eligible
// (non-persistent, ownerless) are offered to the filter.
type Filter func(EntryInfo) bool

// Everything matches all eligible entries. Used for routine cleanup and
// memory-pressure purges.
func Everything() Filter {
	return func(EntryInfo) bool { return true }
}

// OfKind matches eligible entries of one resource kind.
func OfKind(kind Kind) Filter {
	return func(info EntryInfo) bool { return info.Kind == kind }
}

// UnusedSince matches eligible entries whose last use is before t.
func UnusedSince(t time.Time) Filter {
	return func(info EntryInfo) bool { return info.LastUsed.Before(t) }
}

// Purge destroys every eligible entry matching the filter and returns the
// number destroyed. Persistent entries and entries with owners are never
// offered to the filter, regardless of what it matches.
func (c *Cache) Purge(match Filter) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	n += c.purgeTable(c.geometry, KindGeometry, match)
	n += c.purgeTable(c.shaders, KindShader, match)
	n += c.purgeTable(c.textures, KindTexture, match)
	if n > 0 {
		stage.Logger().Info("resource: purge destroyed entries", "count", n)
	}
	return n
}

// PurgeOwner removes owner from every entry, then destroys the entries
// that became eligible. This is the component-disposal path: one call
// releases and reclaims everything a now-dead entity was holding.
func (c *Cache) PurgeOwner(owner Owner) int {
	if owner == "" {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	match := func(table map[string]*entry, kind Kind) int {
		// Release first so entries owned solely by this owner become
		// eligible in the same pass.
		touched := make(map[string]struct{})
		for name, e := range table {
			if _, ok := e.owners[owner]; ok {
				delete(e.owners, owner)
				touched[name] = struct{}{}
			}
		}
		return c.purgeTable(table, kind, func(info EntryInfo) bool {
			_, ok := touched[info.Name]
			return ok
		})
	}

	n := match(c.geometry, KindGeometry)
	n += match(c.shaders, KindShader)
	n += match(c.textures, KindTexture)
	return n
}

// purgeTable destroys eligible, matching entries of one sub-cache.
// Caller must hold c.mu.
func (c *Cache) purgeTable(table map[string]*entry, kind Kind, match Filter) int {
	n := 0
	for name, e := range table {
		if !e.eligible() {
			continue
		}
		info := EntryInfo{
			Name:       name,
			Kind:       kind,
			Persistent: e.persistent,
			Owners:     len(e.owners),
			Created:    e.created,
			LastUsed:   e.lastUsed,
		}
		if !match(info) {
			continue
		}
		// Fallback-backed entries alias the shared fallback handle;
		// drop the entry but keep the GPU object.
		if !e.fallback {
			c.creator.Destroy(e.handle)
		}
		delete(table, name)
		n++
		c.purged.Add(1)
	}
	return n
}

// Len returns the number of live entries across all sub-caches.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.geometry) + len(c.shaders) + len(c.textures)
}

// Owners returns the owner count of a named entry, or -1 if absent.
func (c *Cache) Owners(kind Kind, name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.table(kind)[name]; ok {
		return len(e.owners)
	}
	return -1
}

// Stats returns current cache statistics.
func (c *Cache) Stats() Stats {
	return Stats{
		Entries:  c.Len(),
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Failures: c.failures.Load(),
		Purged:   c.purged.Load(),
	}
}

// Scope is the deterministic release point for one owner's use of one
// resource. Release is idempotent and safe to defer; it never destroys
// the resource itself, only the ownership edge.
type Scope struct {
	cache    *Cache
	kind     Kind
	name     string
	owner    Owner
	released atomic.Bool
}

// Release removes the scope's owner from the entry. Calling Release more
// than once has no additional effect.
func (s *Scope) Release() {
	if s == nil || s.released.Swap(true) {
		return
	}
	s.cache.Release(s.kind, s.name, s.owner)
}
