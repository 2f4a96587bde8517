package ixfr

import (
	"strings"

	"github.com/miekg/dns"
)

// Builder accumulates one segment's worth of difference data as it
// arrives from the incoming-transfer applier, enforces the zone's
// storage budget as data streams in, and commits the finished segment
// to a Chain. Grounded on NSD's ixfr_store (original_source/ixfr.c:
// ixfr_store_start/_add_newsoa/_add_oldsoa/_putrr/_finish/_cancel).
type Builder struct {
	chain     *Chain
	zoneApex  string
	oldSerial uint32
	newSerial uint32

	newSOA  []byte
	oldSOA  []byte
	deleted []byte
	added   []byte

	cancelled bool
	finished  bool
}

// Begin starts building a new segment recording the difference from
// oldSerial to newSerial for the zone whose apex is zoneApex. The
// segment is not visible in chain until Finish succeeds.
func Begin(chain *Chain, zoneApex string, oldSerial, newSerial uint32) *Builder {
	return &Builder{
		chain:     chain,
		zoneApex:  dns.Fqdn(strings.ToLower(zoneApex)),
		oldSerial: oldSerial,
		newSerial: newSerial,
	}
}

// Cancelled reports whether the builder has given up on this segment,
// whether from an explicit Cancel or from a budget/parse failure
// encountered along the way.
func (b *Builder) Cancelled() bool {
	return b.cancelled
}

// Cancel discards any partial work. Idempotent.
func (b *Builder) Cancel() {
	if b.finished {
		return
	}
	b.cancelled = true
	b.newSOA = nil
	b.oldSOA = nil
	b.deleted = nil
	b.added = nil
}

// candidateSize is what this segment would cost the chain's byte
// budget if committed right now.
func (b *Builder) candidateSize() int {
	return headerSize + len(b.newSOA) + len(b.oldSOA) + len(b.deleted) + len(b.added)
}

// checkBudget re-evaluates the chain's budget against the segment as
// it currently stands, cancelling the builder if it no longer fits.
// Returns false when cancelled (either just now, or already).
func (b *Builder) checkBudget() bool {
	if b.cancelled {
		return false
	}
	if !b.chain.MakeSpace(b.candidateSize()) {
		logf("ixfr: zone=%s segment old_serial=%d new_serial=%d exceeds chain budget, cancelling build\n", b.zoneApex, b.oldSerial, b.newSerial)
		DefaultMetrics.SegmentsCancelled.Add(1)
		b.Cancel()
		return false
	}
	return true
}

// encodeSOA re-parses rr's SOA rdata and re-emits it in canonical
// form: owned by the zone apex, uncompressed. A replay overwrites
// whatever was stored before.
func (b *Builder) encodeSOA(rr dns.RR) ([]byte, error) {
	soa, ok := rr.(*dns.SOA)
	if !ok {
		return nil, ErrBadSOA
	}
	if soa.Hdr.Class != dns.ClassINET {
		return nil, ErrBadSOA
	}
	if !strings.EqualFold(dns.Fqdn(soa.Hdr.Name), b.zoneApex) {
		return nil, ErrBadSOA
	}
	canon := &dns.SOA{
		Hdr: dns.RR_Header{
			Name:   b.zoneApex,
			Rrtype: dns.TypeSOA,
			Class:  dns.ClassINET,
			Ttl:    soa.Hdr.Ttl,
		},
		Ns:      dns.Fqdn(soa.Ns),
		Mbox:    dns.Fqdn(soa.Mbox),
		Serial:  soa.Serial,
		Refresh: soa.Refresh,
		Retry:   soa.Retry,
		Expire:  soa.Expire,
		Minttl:  soa.Minttl,
	}
	return encodeRR(canon)
}

// SetNewSOA records the post-transfer SOA. A later call overwrites an
// earlier one.
func (b *Builder) SetNewSOA(rr dns.RR) error {
	if b.cancelled {
		return ErrCancelled
	}
	wire, err := b.encodeSOA(rr)
	if err != nil {
		b.Cancel()
		return err
	}
	b.newSOA = wire
	return nil
}

// SetOldSOA records the pre-transfer SOA. Only at this point can the
// applier be certain this transfer is an IXFR rather than an AXFR, so
// this is where the first budget check against the chain happens
// (original_source/ixfr.c: ixfr_store_add_oldsoa).
func (b *Builder) SetOldSOA(rr dns.RR) error {
	if b.cancelled {
		return ErrCancelled
	}
	wire, err := b.encodeSOA(rr)
	if err != nil {
		b.Cancel()
		return err
	}
	b.oldSOA = wire
	if !b.checkBudget() {
		return ErrBudgetExceeded
	}
	return nil
}

// AddDeleted appends rr to the segment's deleted-RR run. RRs of type
// SOA are silently skipped: the section-end SOAs are appended by
// Finish, not by the applier.
func (b *Builder) AddDeleted(rr dns.RR) error {
	return b.addRR(rr, false)
}

// AddAdded appends rr to the segment's added-RR run. RRs of type SOA
// are silently skipped, as for AddDeleted.
func (b *Builder) AddAdded(rr dns.RR) error {
	return b.addRR(rr, true)
}

func (b *Builder) addRR(rr dns.RR, adding bool) error {
	if b.cancelled {
		return ErrCancelled
	}
	if rr.Header().Rrtype == dns.TypeSOA {
		return nil
	}
	wire, err := encodeRR(rr)
	if err != nil {
		b.Cancel()
		return err
	}
	if adding {
		b.added = appendRun(b.added, wire)
	} else {
		b.deleted = appendRun(b.deleted, wire)
	}
	if !b.checkBudget() {
		return ErrBudgetExceeded
	}
	return nil
}

// Finish seals the segment: it appends the stored new-SOA as the
// section-end SOA of both the deleted and added runs (see DESIGN.md
// for why the new, not old, SOA is used here — this mirrors NSD's
// actual on-wire behaviour rather than a literal RFC 1995 reading),
// trims both runs to their final length, performs one last budget
// reservation, and — if that succeeds — commits the segment to the
// chain. On any failure the builder is cancelled and the work is
// discarded silently.
func (b *Builder) Finish(logLine string) (*Segment, error) {
	if b.cancelled {
		return nil, ErrCancelled
	}
	if b.finished {
		return nil, ErrNotIxfrBuild
	}
	if len(b.newSOA) == 0 || len(b.oldSOA) == 0 {
		b.Cancel()
		return nil, ErrBadSOA
	}

	b.deleted = appendRun(b.deleted, b.newSOA)
	b.added = appendRun(b.added, b.newSOA)
	b.deleted = trimRun(b.deleted)
	b.added = trimRun(b.added)

	seg := &Segment{
		OldSerial: b.oldSerial,
		NewSerial: b.newSerial,
		OldSOA:    b.oldSOA,
		NewSOA:    b.newSOA,
		Deleted:   b.deleted,
		Added:     b.added,
		LogLine:   logLine,
	}

	if !b.chain.MakeSpace(seg.dataSize()) {
		DefaultMetrics.SegmentsCancelled.Add(1)
		b.Cancel()
		return nil, ErrBudgetExceeded
	}

	b.chain.Insert(seg)
	b.finished = true
	DefaultMetrics.SegmentsBuilt.Add(1)
	return seg, nil
}

// encodeRR re-emits rr in wire form with compression disabled, so the
// owner name is always fully spelled out — the invariant the RR byte
// walker (walker.go) depends on for every byte run in a segment.
func encodeRR(rr dns.RR) ([]byte, error) {
	buf := make([]byte, dns.MaxMsgSize)
	n, err := dns.PackRR(rr, buf, 0, nil, false)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, buf[:n])
	return out, nil
}
