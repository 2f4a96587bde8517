package ixfr

import "sync/atomic"

// initialRunCapacity is the starting allocation for a growing byte
// run. Growth doubles until doubling would still be insufficient, at
// which point capacity jumps directly to the required size.
const initialRunCapacity = 4096

// growRun returns a (possibly reallocated) slice with room to append
// added more bytes onto buf, following the schedule above. It never
// changes len(buf); callers append into the returned slice themselves.
//
// Grounded on NSD's ixfr_rrs_make_space (original_source/ixfr.c).
func growRun(buf []byte, added int) []byte {
	if buf == nil {
		newCap := initialRunCapacity
		if added > newCap {
			newCap = added
		}
		out := make([]byte, 0, newCap)
		return out
	}
	if len(buf)+added <= cap(buf) {
		return buf
	}
	newCap := cap(buf) * 2
	if len(buf)+added > newCap {
		newCap = len(buf) + added
	}
	out := make([]byte, len(buf), newCap)
	copy(out, buf)
	return out
}

// appendRun grows buf as needed and appends p, returning the result.
func appendRun(buf []byte, p []byte) []byte {
	buf = growRun(buf, len(p))
	return append(buf, p...)
}

// trimRun shrinks buf's capacity down to its length. Grounded on NSD's
// ixfr_trim_capacity.
func trimRun(buf []byte) []byte {
	if buf == nil || cap(buf) == len(buf) {
		return buf
	}
	out := make([]byte, len(buf))
	copy(out, buf)
	return out
}

// Segment is one recorded difference from OldSerial to NewSerial. All
// four byte runs hold wire-form RRs with uncompressed owner names,
// concatenated back to back with no framing between them beyond what
// the RR byte walker (walker.go) can recover.
type Segment struct {
	OldSerial uint32
	NewSerial uint32

	OldSOA []byte // fully encoded SOA RR, uncompressed owner name
	NewSOA []byte // fully encoded SOA RR, uncompressed owner name

	Deleted []byte // concatenated deleted RRs, section-end SOA appended at finish
	Added   []byte // concatenated added RRs, section-end SOA appended at finish

	LogLine string

	// FileIndex is 0 if this segment is not persisted, otherwise its
	// 1-based position on disk (1 = newest).
	FileIndex int

	// refs pins this segment against eviction while a response
	// streamer holds a reference into its byte runs. Use Pin/Unpin,
	// never mutate directly.
	refs int32
}

// headerSize is the per-segment bookkeeping overhead counted toward
// Chain.TotalSize, mirroring NSD's sizeof(struct ixfr_data) term in
// ixfr_data_size. It has no behavioural effect beyond budget
// accounting; the exact value is not load-bearing, only its presence.
const headerSize = 64

// dataSize returns the accounting size of the segment used for budget
// enforcement: header overhead plus all four byte run lengths.
func (s *Segment) dataSize() int {
	return headerSize + len(s.NewSOA) + len(s.OldSOA) + len(s.Deleted) + len(s.Added)
}

// Pin increments the segment's reference count, preventing eviction
// until a matching Unpin. Safe for concurrent use by multiple readers.
func (s *Segment) Pin() {
	atomic.AddInt32(&s.refs, 1)
}

// Unpin releases a reference taken by Pin.
func (s *Segment) Unpin() {
	atomic.AddInt32(&s.refs, -1)
}

// pinned reports whether any active stream currently borrows this
// segment's byte runs.
func (s *Segment) pinned() bool {
	return atomic.LoadInt32(&s.refs) > 0
}

// Equal compares two segments for byte-exact equality across all four
// runs, used by the persistence round-trip tests.
func (s *Segment) Equal(other *Segment) bool {
	if other == nil {
		return false
	}
	return s.OldSerial == other.OldSerial &&
		s.NewSerial == other.NewSerial &&
		string(s.OldSOA) == string(other.OldSOA) &&
		string(s.NewSOA) == string(other.NewSOA) &&
		string(s.Deleted) == string(other.Deleted) &&
		string(s.Added) == string(other.Added)
}
