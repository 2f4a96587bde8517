package ixfr

import (
	"sort"
	"sync"

	"golang.org/x/exp/slices"
)

// Chain is a per-zone ordered collection of Segments keyed by
// OldSerial. Iteration order follows RFC 1982 serial comparison rather
// than insertion order, mirroring the red-black tree the original C
// implementation keys on old_serial (original_source/ixfr.c:
// ixfrcompare / zone_ixfr).
//
// A Go map has no ordered iteration, so the sorted red-black tree is
// modelled here as a map plus a maintained, sorted key slice.
type Chain struct {
	mu       sync.Mutex
	segments map[uint32]*Segment
	order    []uint32 // oldest first, under RFC 1982 ordering
	total    int
	cfg      Config
}

// NewChain creates an empty chain governed by cfg.
func NewChain(cfg Config) *Chain {
	return &Chain{
		segments: make(map[uint32]*Segment),
		cfg:      cfg,
	}
}

// SetConfig updates the chain's budget. Existing contents are left as
// is; the next MakeSpace call enforces the new limits.
func (c *Chain) SetConfig(cfg Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
}

// Config returns the chain's current budget.
func (c *Chain) Config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// Count returns the number of segments currently held.
func (c *Chain) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

// TotalSize returns the aggregate accounting size of all segments.
func (c *Chain) TotalSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// orderIndex returns the sorted-insert position for serial among the
// current (RFC-1982-ordered) keys.
func (c *Chain) orderIndex(serial uint32) int {
	return sort.Search(len(c.order), func(i int) bool {
		return !SerialLess(c.order[i], serial)
	})
}

// insert adds seg to the chain. Caller must hold c.mu. A duplicate key
// is a programmer error: the connector (connector.go) is supposed to
// have already ruled this out, so it panics rather than silently
// overwriting history.
func (c *Chain) insert(seg *Segment) {
	if _, exists := c.segments[seg.OldSerial]; exists {
		panic("ixfr: duplicate old_serial inserted into chain")
	}
	idx := c.orderIndex(seg.OldSerial)
	c.order = slices.Insert(c.order, idx, seg.OldSerial)
	c.segments[seg.OldSerial] = seg
	c.total += seg.dataSize()
}

// Find returns the segment whose OldSerial equals from, if any.
func (c *Chain) Find(from uint32) (*Segment, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	seg, ok := c.segments[from]
	return seg, ok
}

// First returns the oldest segment in the chain.
func (c *Chain) First() (*Segment, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.order) == 0 {
		return nil, false
	}
	return c.segments[c.order[0]], true
}

// Last returns the newest segment in the chain.
func (c *Chain) Last() (*Segment, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.order) == 0 {
		return nil, false
	}
	return c.segments[c.order[len(c.order)-1]], true
}

// Next returns the segment immediately newer than seg, if any.
func (c *Chain) Next(seg *Segment) (*Segment, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.orderIndex(seg.OldSerial)
	if idx >= len(c.order) || c.order[idx] != seg.OldSerial {
		return nil, false
	}
	if idx+1 >= len(c.order) {
		return nil, false
	}
	return c.segments[c.order[idx+1]], true
}

// Previous returns the segment immediately older than seg, if any.
func (c *Chain) Previous(seg *Segment) (*Segment, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.orderIndex(seg.OldSerial)
	if idx >= len(c.order) || c.order[idx] != seg.OldSerial || idx == 0 {
		return nil, false
	}
	return c.segments[c.order[idx-1]], true
}

// All returns a snapshot slice of every segment, oldest first. Used by
// persistence and admin introspection; mutating the chain afterward
// does not affect the returned slice.
func (c *Chain) All() []*Segment {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Segment, len(c.order))
	for i, serial := range c.order {
		out[i] = c.segments[serial]
	}
	return out
}

// remove deletes seg from the chain. Caller must hold c.mu.
func (c *Chain) remove(seg *Segment) {
	idx := c.orderIndex(seg.OldSerial)
	if idx >= len(c.order) || c.order[idx] != seg.OldSerial {
		return
	}
	c.order = slices.Delete(c.order, idx, idx+1)
	delete(c.segments, seg.OldSerial)
	c.total -= seg.dataSize()
}

// Remove deletes seg from the chain, freeing its byte runs.
func (c *Chain) Remove(seg *Segment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remove(seg)
}

// removeOldestUnpinned evicts the oldest segment that is not currently
// borrowed by an active response stream. It reports whether any
// segment was removed. Grounded on zone_ixfr_remove_oldest
// (original_source/ixfr.c), extended with a pin check since Go has no
// borrow checker to enforce this for us.
func (c *Chain) removeOldestUnpinned() bool {
	if len(c.order) == 0 {
		return false
	}
	oldest := c.segments[c.order[0]]
	if oldest.pinned() {
		return false
	}
	logf("ixfr: evicting segment old_serial=%d new_serial=%d to make room\n", oldest.OldSerial, oldest.NewSerial)
	DefaultMetrics.SegmentsEvicted.Add(1)
	c.remove(oldest)
	return true
}

// Clear empties the chain, as happens on a zone reload. Pinned
// segments are removed regardless: an in-flight stream continues to
// hold its own reference to the segment object even after it leaves
// the chain.
func (c *Chain) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.segments = make(map[uint32]*Segment)
	c.order = nil
	c.total = 0
}

// MakeSpace evicts oldest segments until the chain's count is
// strictly less than cfg.MaxCount and, if cfg.MaxBytes > 0, until
// total+candidateSize fits under cfg.MaxBytes. It reports whether the
// candidate can be admitted. A MaxCount of 0 always rejects (storage
// disabled). If eviction cannot free enough room (e.g. a pinned
// segment blocks further eviction, or the candidate alone exceeds
// MaxBytes), it reports false without partially evicting anything
// beyond what was already freed.
//
// Grounded on zone_ixfr_make_space (original_source/ixfr.c).
func (c *Chain) MakeSpace(candidateSize int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfg.MaxCount == 0 {
		return false
	}

	for uint(len(c.order)) >= c.cfg.MaxCount {
		if !c.removeOldestUnpinned() {
			return false
		}
	}

	if c.cfg.MaxBytes == 0 {
		return true
	}

	for len(c.order) > 0 && uint(c.total+candidateSize) > c.cfg.MaxBytes {
		if !c.removeOldestUnpinned() {
			return false
		}
	}

	if len(c.order) == 0 && uint(c.total+candidateSize) > c.cfg.MaxBytes {
		return false
	}

	return true
}

// TrimToCount evicts the oldest unpinned segments until at most n
// remain, ignoring the configured byte/count budget. It reports how
// many segments remain afterward (which may exceed n if a pinned
// segment blocked further eviction). Used by the persistence writer
// before deciding which segments to write to disk.
func (c *Chain) TrimToCount(n int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.order) > n {
		if !c.removeOldestUnpinned() {
			break
		}
	}
	return len(c.order)
}

// Insert admits seg unconditionally, without budget enforcement — used
// by the persistence reader (persist.go), which performs its own
// incremental budget check as it reads.
func (c *Chain) Insert(seg *Segment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.insert(seg)
}
