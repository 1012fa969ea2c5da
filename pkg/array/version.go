package array

import "sort"

// VersionChain tracks the monotonically increasing version ids of an
// array's immutable versions, each `store`/`insert` appending one. SciDB
// keeps a version chain per array so past versions stay queryable after
// a new one is stored; "all-versions" below concatenates the chain's
// iterators to read across all of them at once.
type VersionChain struct {
	ArrayName string
	Versions  []VersionEntry
}

// VersionEntry is one immutable version of an array.
type VersionEntry struct {
	VersionID int64
	ArrayID   int64
	Timestamp int64
}

// Append records a new version, keeping Versions sorted by VersionID.
func (c *VersionChain) Append(e VersionEntry) {
	c.Versions = append(c.Versions, e)
	sort.Slice(c.Versions, func(i, j int) bool { return c.Versions[i].VersionID < c.Versions[j].VersionID })
}

// Latest returns the most recent version, or false if the chain is empty.
func (c *VersionChain) Latest() (VersionEntry, bool) {
	if len(c.Versions) == 0 {
		return VersionEntry{}, false
	}
	return c.Versions[len(c.Versions)-1], true
}

// At returns the version with the given id.
func (c *VersionChain) At(versionID int64) (VersionEntry, bool) {
	for _, v := range c.Versions {
		if v.VersionID == versionID {
			return v, true
		}
	}
	return VersionEntry{}, false
}

// AllVersionsDelegate is the "all-versions" delegate array: it concatenates
// the chunk iterators of every version in a chain so a scan over it walks
// every stored version in order.
type AllVersionsDelegate struct {
	Chain  *VersionChain
	Opener func(versionID int64) (Iterator, error)
}

// Iterator returns an iterator that yields chunks from every version in
// ascending version order. Items are passed through as the per-version
// iterators yield them; they are not tagged with their origin version.
func (d *AllVersionsDelegate) Iterator() (Iterator, error) {
	var its []Iterator
	for _, v := range d.Chain.Versions {
		it, err := d.Opener(v.VersionID)
		if err != nil {
			return nil, err
		}
		its = append(its, it)
	}
	return &concatIterator{iters: its}, nil
}

// concatIterator chains a sequence of chunk iterators end to end.
type concatIterator struct {
	iters []Iterator
	idx   int
}

func (c *concatIterator) Reset() {
	c.idx = 0
	for _, it := range c.iters {
		it.Reset()
	}
}

func (c *concatIterator) End() bool {
	for c.idx < len(c.iters) {
		if !c.iters[c.idx].End() {
			return false
		}
		c.idx++
	}
	return true
}

func (c *concatIterator) Next() {
	if c.idx < len(c.iters) {
		c.iters[c.idx].Next()
	}
}

func (c *concatIterator) Current() any {
	if c.idx < len(c.iters) {
		return c.iters[c.idx].Current()
	}
	return nil
}

// Iterator is the minimal chunk-sequence contract a delegate array walks;
// the chunk store's own bidirectional cell iterator (pkg/chunk) is a
// distinct, richer contract used once a chunk is selected.
type Iterator interface {
	Reset()
	End() bool
	Next()
	Current() any
}
