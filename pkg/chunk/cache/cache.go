// Package cache implements the in-memory chunk materialization cache with
// pin/unpin reference counting, an LRU list of unpinned chunks, and
// spill-to-KV eviction once the configured memory threshold is exceeded.
package cache

import (
	"os"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/arraydb/arraydb/pkg/chunk"
	"github.com/arraydb/arraydb/pkg/dberr"
)

// Encoder/Decoder turn a cached chunk's in-memory payload into bytes
// suitable for the spill store and back, decoupling cache from any one
// chunk encoding's serialization.
type Encoder func(c chunk.Chunk) ([]byte, error)
type Decoder func(data []byte) (chunk.Chunk, error)

// entry is the cache's bookkeeping record for one chunk.
type entry struct {
	addr    chunk.Address
	key     string
	chunk   chunk.Chunk // nil when not memory-resident
	size    int64       // byte size of the encoded payload
	refs    int32
	spilled bool
	// lru list linkage; nil for pinned or absent-from-list entries.
	prev, next *entry
}

// Cache is the shared, instance-wide chunk materialization cache: one
// mapping Address -> entry, a doubly-linked LRU list of unpinned cached
// chunks, and a pebble-backed spill store opened in a scratch directory.
// The cache mutex guards the map and the LRU list; pin/unpin are O(1)
// critical sections.
type Cache struct {
	mu  sync.Mutex
	by  map[string]*entry
	lru struct{ head, tail *entry } // head = most recently unpinned

	memThreshold int64
	usedMem      int64

	spillDB  *pebble.DB
	spillSeq uint64

	encode Encoder
	decode Decoder
}

// Option configures a Cache at construction.
type Option func(*Cache)

// WithMemThreshold sets the soft cap on resident bytes (spec.md §4.2.3
// "memThreshold is the soft cap on in-memory bytes").
func WithMemThreshold(n int64) Option {
	return func(c *Cache) { c.memThreshold = n }
}

// New opens a Cache backed by a pebble instance rooted at dir (created if
// absent), with codec functions for spilling and restoring chunk bytes.
func New(dir string, encode Encoder, decode Decoder, opts ...Option) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, dberr.Newf(dberr.CantAllocateMemory, "cache", "create spill dir: %v", err)
	}
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, dberr.Newf(dberr.CantAllocateMemory, "cache", "open spill store: %v", err)
	}
	c := &Cache{
		by:      make(map[string]*entry),
		spillDB: db,
		encode:  encode,
		decode:  decode,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Close releases the spill store.
func (c *Cache) Close() error { return c.spillDB.Close() }

// Put registers a freshly materialized, memory-resident chunk under its
// address with refcount 0 (unpinned, linked at the LRU head).
func (c *Cache) Put(ch chunk.Chunk, size int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	addr := ch.Addr()
	key := addr.Key()
	e := &entry{addr: addr, key: key, chunk: ch, size: size}
	c.by[key] = e
	c.linkHead(e)
	c.usedMem += size
	c.evictIfOverLocked()
}

// Handle is a scoped pin: releasing it unpins the chunk, re-admitting it
// to the LRU list if its refcount drops to zero.
type Handle struct {
	c    *Cache
	addr chunk.Address
}

// Release unpins the chunk this handle pinned. Safe to call once.
func (h Handle) Release() { h.c.Unpin(h.addr) }

// Pin increments the chunk's refcount; on a 0->1 transition it unlinks
// the chunk from the LRU list and, if the chunk's data is not resident
// (it was spilled), reads it back from the spill store. Returns a scoped
// handle and the chunk.
func (c *Cache) Pin(addr chunk.Address) (chunk.Chunk, Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.by[addr.Key()]
	if !ok {
		return nil, Handle{}, dberr.Newf(dberr.Internal, "cache", "pin: no cached entry for address")
	}
	if e.refs == 0 {
		c.unlink(e)
		if e.chunk == nil {
			data, closer, err := c.spillDB.Get(spillKey(addr))
			if err != nil {
				return nil, Handle{}, dberr.Newf(dberr.CantAllocateMemory, "cache", "read spilled chunk: %v", err)
			}
			ch, err := c.decode(append([]byte{}, data...))
			closer.Close()
			if err != nil {
				return nil, Handle{}, dberr.Newf(dberr.CantAllocateMemory, "cache", "decode spilled chunk: %v", err)
			}
			e.chunk = ch
			c.usedMem += e.size
		}
	}
	e.refs++
	return e.chunk, Handle{c: c, addr: addr}, nil
}

// Unpin decrements the chunk's refcount; on a 1->0 transition it links
// the chunk at the LRU head and, if the cache is now over its memory
// threshold, evicts from the LRU tail.
func (c *Cache) Unpin(addr chunk.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.by[addr.Key()]
	if !ok || e.refs == 0 {
		return
	}
	e.refs--
	if e.refs == 0 {
		c.linkHead(e)
		c.evictIfOverLocked()
	}
}

func (c *Cache) evictIfOverLocked() {
	for c.memThreshold > 0 && c.usedMem > c.memThreshold {
		victim := c.lru.tail
		if victim == nil {
			return // every resident chunk is pinned; over threshold is tolerated
		}
		if err := c.spillLocked(victim); err != nil {
			// The spill error is not propagated: an eviction triggered by
			// an unrelated Unpin has no caller to return it to. Eviction
			// stops here and the victim is left resident (and off the LRU
			// list) rather than losing data.
			return
		}
	}
}

// spillLocked appends victim's current bytes to the spill store (unless
// its existing spill slot is still fresh) and frees its in-memory data,
// keeping its metadata resident. Caller holds c.mu.
func (c *Cache) spillLocked(victim *entry) error {
	c.unlink(victim)
	if !victim.spilled {
		data, err := c.encode(victim.chunk)
		if err != nil {
			return dberr.Newf(dberr.MergeFailed, "cache", "encode for spill: %v", err)
		}
		c.spillSeq++
		if err := c.spillDB.Set(spillKey(victim.addr), data, pebble.Sync); err != nil {
			return dberr.Newf(dberr.MergeFailed, "cache", "spill write: %v", err)
		}
		victim.spilled = true
	}
	c.usedMem -= victim.size
	victim.chunk = nil
	return nil
}

// Drop removes a chunk's cache entry entirely (e.g. on rollback, dropping
// in-memory chunks for a rolled-back array version). It is an error to
// drop a pinned chunk.
func (c *Cache) Drop(addr chunk.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.by[addr.Key()]
	if !ok {
		return nil
	}
	if e.refs > 0 {
		return dberr.New(dberr.Internal, "cache", "cannot drop a pinned chunk")
	}
	c.unlink(e)
	if e.chunk != nil {
		c.usedMem -= e.size
	}
	if e.spilled {
		_ = c.spillDB.Delete(spillKey(addr), nil)
	}
	delete(c.by, addr.Key())
	return nil
}

// UsedMem returns the current total in-memory bytes across resident
// cached chunks.
func (c *Cache) UsedMem() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usedMem
}

// Resident reports whether the chunk's data currently resides in memory.
func (c *Cache) Resident(addr chunk.Address) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.by[addr.Key()]
	return ok && e.chunk != nil
}

func (c *Cache) linkHead(e *entry) {
	e.prev, e.next = nil, c.lru.head
	if c.lru.head != nil {
		c.lru.head.prev = e
	}
	c.lru.head = e
	if c.lru.tail == nil {
		c.lru.tail = e
	}
}

func (c *Cache) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else if c.lru.head == e {
		c.lru.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else if c.lru.tail == e {
		c.lru.tail = e.prev
	}
	e.prev, e.next = nil, nil
}

// spillKey derives the pebble key for an entry's spill slot: the
// address's canonical key alone (one slot per address), degenerating the
// spec's "(offset,size) into an append-only temp file" into a
// materialize-on-read KV key.
func spillKey(addr chunk.Address) []byte {
	return []byte(addr.Key())
}
