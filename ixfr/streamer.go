package ixfr

import "github.com/miekg/dns"

// maxPacketSize is the hard upper bound on a single response message,
// imposed regardless of what the peer advertises: large enough for
// comfortable EDNS0 buffers, small enough to stay clear of the
// compression-pointer 14-bit offset limit.
const maxPacketSize = 16384

// Streamer is a resumable, per-query state machine that serialises a
// selected run of segments into one or more outgoing messages,
// following the emission order from RFC 1995: the opening new-SOA of
// the final segment, then for each segment in turn its old-SOA,
// deleted RRs, new-SOA, and added RRs.
//
// The four progress offsets a by-the-book implementation would track
// per segment (through new_soa, old_soa, deleted, added) are
// flattened here, at construction time, into a single ordered slice
// of RR byte slices; Streamer's entire resumable state is then one
// integer index into that slice. This is an implementation
// simplification over NSD's four-cursor struct (original_source/
// ixfr.c: struct ixfr_data progress fields)
// that preserves the exact emission order and the resumability
// requirement without the bookkeeping of four separate offsets.
//
// Grounded on NSD's ixfr_copy_rrs_into_packet / query_ixfr
// (original_source/ixfr.c).
type Streamer struct {
	items    [][]byte
	pos      int
	segments []*Segment

	packetsSent  int
	signEveryNth int
}

// NewStreamer builds a streamer over segments (oldest first, as
// returned by Select) ending at final. Every segment is pinned for
// the streamer's lifetime; callers must call Close when done,
// including on error paths, or the segments can never be evicted.
//
// signEveryNth, if greater than zero, additionally signs every Nth
// packet beyond the always-signed first and last. Zero means sign
// only the first and last packet, the default cadence.
func NewStreamer(segments []*Segment, final *Segment, signEveryNth int) (*Streamer, error) {
	for _, s := range segments {
		s.Pin()
	}

	items := make([][]byte, 0, 4*len(segments)+1)
	items = append(items, final.NewSOA)

	collect := func(run []byte) error {
		return walkRRs(run, func(rr []byte) error {
			items = append(items, rr)
			return nil
		})
	}

	for i, seg := range segments {
		// Only the first segment needs its old-SOA written explicitly:
		// for every later segment, the previous segment's Added run
		// already ends in the trailing new-SOA that serves as this
		// segment's delete-section opener (next.OldSerial ==
		// prev.NewSerial). Grounded on NSD's ixfr_count_oldsoa, set
		// only for the first segment of a chain (original_source/
		// ixfr.c).
		if i == 0 {
			items = append(items, seg.OldSOA)
		}
		if err := collect(seg.Deleted); err != nil {
			for _, s := range segments {
				s.Unpin()
			}
			return nil, err
		}
		// seg.Deleted already ends with the section-end new-SOA
		// appended by Builder.Finish, which doubles as this segment's
		// add-section opener; do not emit seg.NewSOA again here.
		if err := collect(seg.Added); err != nil {
			for _, s := range segments {
				s.Unpin()
			}
			return nil, err
		}
	}

	return &Streamer{items: items, segments: segments, signEveryNth: signEveryNth}, nil
}

// Close releases the streamer's pins on its segments. Safe to call
// more than once.
func (s *Streamer) Close() {
	for _, seg := range s.segments {
		seg.Unpin()
	}
	s.segments = nil
}

// Done reports whether every RR has been emitted.
func (s *Streamer) Done() bool {
	return s.pos >= len(s.items)
}

// WritePacket appends RRs to msg.Answer, continuing from wherever the
// stream last left off, until either the stream is exhausted or the
// packed message would reach maxSize (derived from min(peerMax,
// maxPacketSize)). Each candidate RR is accepted only if the message
// stays strictly under that size with the RR included, leaving room
// for whatever framing the caller adds afterward — except the very
// first RR of a packet, which is always written even if it alone
// exceeds the budget, so an oversized RR can never stall the stream.
func (s *Streamer) WritePacket(msg *dns.Msg, peerMax int) error {
	max := peerMax
	if max <= 0 || max > maxPacketSize {
		max = maxPacketSize
	}

	first := true
	for s.pos < len(s.items) {
		raw := s.items[s.pos]
		rr, _, err := dns.UnpackRR(raw, 0)
		if err != nil {
			return err
		}
		msg.Answer = append(msg.Answer, rr)
		if msg.Len() >= max && !first {
			msg.Answer = msg.Answer[:len(msg.Answer)-1]
			break
		}
		s.pos++
		first = false
		if msg.Len() >= max {
			break
		}
	}
	return nil
}

// NextPacket fills msg via WritePacket and applies UDP truncation
// semantics: if the stream cannot complete in this one packet and udp
// is set, the answer section is replaced with just the opening
// new-SOA, the TC bit is set, and the stream is marked done — RFC
// 1995's truncated-response contract, never a partial diff over UDP.
//
// It reports whether this packet should be TSIG-signed, following the
// sign-first-and-last cadence (or every Nth packet when configured).
func (s *Streamer) NextPacket(msg *dns.Msg, peerMax int, udp bool) (sign bool, err error) {
	first := s.packetsSent == 0

	if err := s.WritePacket(msg, peerMax); err != nil {
		return false, err
	}

	if !s.Done() && udp {
		opening, _, err := dns.UnpackRR(s.items[0], 0)
		if err != nil {
			return false, err
		}
		msg.Answer = []dns.RR{opening}
		msg.Truncated = true
		s.pos = len(s.items)
	}

	s.packetsSent++
	last := s.Done()

	sign = first || last
	if !sign && s.signEveryNth > 0 && s.packetsSent%s.signEveryNth == 0 {
		sign = true
	}
	return sign, nil
}
