package engine

import (
	"sync"

	"github.com/arraydb/arraydb/pkg/array"
	"github.com/arraydb/arraydb/pkg/chunk"
	"github.com/arraydb/arraydb/pkg/chunk/cache"
	"github.com/arraydb/arraydb/pkg/dberr"
)

// Catalog is the instance's array namespace: a descriptor and version
// chain per array name, plus the set of chunk addresses currently
// belonging to each array id, kept here (rather than in pkg/array or
// pkg/chunk) because it is the one piece of state that needs both at
// once to answer rollback's "drop the new array's chunks" step.
type Catalog struct {
	mu sync.Mutex

	byName  map[string]*array.Descriptor
	chains  map[string]*array.VersionChain
	byID    map[int64]string // arrayID -> name, for rollback lookups
	addrsOf map[int64]map[string]chunk.Address // arrayID -> addr.Key() -> addr; Address itself isn't map-key-safe (Position is a slice)

	cache *cache.Cache
}

// NewCatalog returns an empty Catalog backed by cache for chunk drops.
func NewCatalog(c *cache.Cache) *Catalog {
	return &Catalog{
		byName:  make(map[string]*array.Descriptor),
		chains:  make(map[string]*array.VersionChain),
		byID:    make(map[int64]string),
		addrsOf: make(map[int64]map[string]chunk.Address),
		cache:   c,
	}
}

// Create registers a new array descriptor and its first version entry.
func (c *Catalog) Create(d *array.Descriptor, versionID, timestamp int64) error {
	if err := d.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.byName[d.Name]; exists {
		return dberr.Newf(dberr.ArrayAlreadyExists, "catalog", "array %q already exists", d.Name)
	}
	chain := &array.VersionChain{ArrayName: d.Name}
	chain.Append(array.VersionEntry{VersionID: versionID, ArrayID: d.ArrayID, Timestamp: timestamp})
	c.byName[d.Name] = d
	c.chains[d.Name] = chain
	c.byID[d.ArrayID] = d.Name
	return nil
}

// Lookup returns the current descriptor for name.
func (c *Catalog) Lookup(name string) (*array.Descriptor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.byName[name]
	if !ok {
		return nil, dberr.Newf(dberr.ArrayNotFound, "catalog", "array %q does not exist", name)
	}
	return d, nil
}

// NewVersion appends a new version entry for name, tracked under newArrayID
// until commit decides its fate.
func (c *Catalog) NewVersion(name string, versionID, newArrayID, timestamp int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	chain, ok := c.chains[name]
	if !ok {
		return dberr.Newf(dberr.ArrayNotFound, "catalog", "array %q does not exist", name)
	}
	chain.Append(array.VersionEntry{VersionID: versionID, ArrayID: newArrayID, Timestamp: timestamp})
	c.byID[newArrayID] = name
	return nil
}

// TrackChunk records that addr now belongs to an in-flight array write,
// so a rollback's DropArray can find every chunk written under it.
func (c *Catalog) TrackChunk(addr chunk.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	set, ok := c.addrsOf[addr.ArrayID]
	if !ok {
		set = make(map[string]chunk.Address)
		c.addrsOf[addr.ArrayID] = set
	}
	set[addr.Key()] = addr
}

// ChunksOf returns every chunk address currently tracked under arrayID,
// the set Executor's scan step reads back and DropArray evicts.
func (c *Catalog) ChunksOf(arrayID int64) []chunk.Address {
	c.mu.Lock()
	defer c.mu.Unlock()
	set := c.addrsOf[arrayID]
	out := make([]chunk.Address, 0, len(set))
	for _, addr := range set {
		out = append(out, addr)
	}
	return out
}

// Rollback implements cluster.StorageManager: rewind every named array's
// version chain so its latest entry is targets[name]'s last-committed
// version, discarding entries written after it.
func (c *Catalog) Rollback(targets map[int64]int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for arrayID, lastVersion := range targets {
		name, ok := c.byID[arrayID]
		if !ok {
			continue
		}
		chain := c.chains[name]
		kept := chain.Versions[:0]
		for _, v := range chain.Versions {
			if v.VersionID <= lastVersion {
				kept = append(kept, v)
			}
		}
		chain.Versions = kept
	}
	return nil
}

// LastVersion implements cluster.StorageManager: it returns the newest
// version recorded under arrayID itself, so a version NewVersion appended
// under a different (new) array id is not counted.
func (c *Catalog) LastVersion(arrayID int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	name, ok := c.byID[arrayID]
	if !ok {
		return 0, dberr.Newf(dberr.ArrayNotFound, "catalog", "array id %d does not exist", arrayID)
	}
	chain := c.chains[name]
	for i := len(chain.Versions) - 1; i >= 0; i-- {
		if chain.Versions[i].ArrayID == arrayID {
			return chain.Versions[i].VersionID, nil
		}
	}
	return 0, nil
}

// DropArray implements cluster.ChunkDropper: evict every chunk tracked
// under arrayID from the cache.
func (c *Catalog) DropArray(arrayID int64) error {
	c.mu.Lock()
	addrs := c.addrsOf[arrayID]
	delete(c.addrsOf, arrayID)
	c.mu.Unlock()

	for _, addr := range addrs {
		if err := c.cache.Drop(addr); err != nil {
			return err
		}
	}
	return nil
}
