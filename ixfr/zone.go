package ixfr

import "github.com/miekg/dns"

// Zone is the small external-collaborator contract the core IXFR
// engine consumes from the zone database. It deliberately says
// nothing about RR storage, parsing, or zone-content validation
// beyond SOA well-formedness — those live entirely on the host side.
type Zone interface {
	// Name returns the zone apex owner name, fully qualified
	// (trailing dot), in lower case.
	Name() string

	// CurrentSerial returns the zone's current SOA serial.
	CurrentSerial() uint32

	// CurrentSOA returns the zone's current, complete SOA record, used
	// verbatim as the sole answer when a client already has the
	// current serial or newer.
	CurrentSOA() dns.RR

	// Chain returns the zone's version chain of stored IXFR segments.
	// Implementations own the chain for the lifetime of the zone; a
	// zone reload is expected to replace it with a fresh, empty Chain.
	Chain() *Chain
}

// ZoneFinder looks up a Zone by the owner name carried in an inbound
// query's question section. Implementations fold case as appropriate;
// the core itself does not.
type ZoneFinder interface {
	FindZone(owner string) (Zone, bool)
}

// AxfrFunc produces and writes the outbound messages for a full zone
// transfer directly to w. The core delegates to it whenever an
// incremental answer is impossible: a broken or absent chain or an
// unknown from-serial. Plain AXFR queries never reach the core; the
// host dispatches those itself. The core never
// constructs or paginates AXFR content itself — that, including
// however many wire messages the transfer takes, is the zone
// database's business.
type AxfrFunc func(w dns.ResponseWriter, zone Zone, query *dns.Msg) error
