// Package memzone is a minimal, in-memory ixfr.Zone implementation. It
// holds exactly what the IXFR engine needs from a zone database — an
// apex name, a current SOA, an owner/type RRset index for AXFR
// fallback content, and a version chain — and nothing else: no
// DNSSEC, no zone file parsing, no upstream transfer client. It exists
// to exercise and demonstrate the ixfr package end to end; a real
// deployment wires ixfr.Zone against its own zone database instead.
package memzone

import (
	"fmt"
	"strings"
	"sync"

	"github.com/miekg/dns"
	"github.com/twotwotwo/sorts"

	"github.com/ixfrd/ixfrd/ixfr"
)

// RRset is one owner/type group of records, trimmed from
// johanix-tdns's tdns.RRset to the fields an AXFR responder needs.
type RRset struct {
	Name   string
	RRtype uint16
	RRs    []dns.RR
}

// OwnerData indexes every RRset at one owner name, mirroring
// johanix-tdns's tdns.OwnerData shape.
type OwnerData struct {
	Name    string
	RRtypes map[uint16]*RRset
}

// Zone is a single authoritative zone held entirely in memory.
type Zone struct {
	mu     sync.RWMutex
	apex   string
	soa    *dns.SOA
	owners map[string]*OwnerData
	chain  *ixfr.Chain
}

// New creates an empty zone for apex, governed by cfg's IXFR storage
// budget. The zone has no content and no SOA until LoadSOA and Put are
// called.
func New(apex string, cfg ixfr.Config) *Zone {
	return &Zone{
		apex:   dns.Fqdn(strings.ToLower(apex)),
		owners: make(map[string]*OwnerData),
		chain:  ixfr.NewChain(cfg),
	}
}

// Name implements ixfr.Zone.
func (z *Zone) Name() string {
	return z.apex
}

// CurrentSerial implements ixfr.Zone.
func (z *Zone) CurrentSerial() uint32 {
	z.mu.RLock()
	defer z.mu.RUnlock()
	if z.soa == nil {
		return 0
	}
	return z.soa.Serial
}

// CurrentSOA implements ixfr.Zone.
func (z *Zone) CurrentSOA() dns.RR {
	z.mu.RLock()
	defer z.mu.RUnlock()
	if z.soa == nil {
		return nil
	}
	cp := *z.soa
	return &cp
}

// Chain implements ixfr.Zone.
func (z *Zone) Chain() *ixfr.Chain {
	return z.chain
}

// LoadSOA replaces the zone's current SOA record.
func (z *Zone) LoadSOA(soa *dns.SOA) error {
	if !strings.EqualFold(dns.Fqdn(soa.Hdr.Name), z.apex) {
		return fmt.Errorf("memzone: SOA owner %q does not match zone apex %q", soa.Hdr.Name, z.apex)
	}
	z.mu.Lock()
	defer z.mu.Unlock()
	z.soa = soa
	return nil
}

// Put inserts or replaces one RR, keyed by owner name and type. The
// SOA is not stored this way; use LoadSOA.
func (z *Zone) Put(rr dns.RR) {
	if rr.Header().Rrtype == dns.TypeSOA {
		return
	}
	name := strings.ToLower(rr.Header().Name)
	z.mu.Lock()
	defer z.mu.Unlock()
	od, ok := z.owners[name]
	if !ok {
		od = &OwnerData{Name: name, RRtypes: make(map[uint16]*RRset)}
		z.owners[name] = od
	}
	rrtype := rr.Header().Rrtype
	rs, ok := od.RRtypes[rrtype]
	if !ok {
		rs = &RRset{Name: name, RRtype: rrtype}
		od.RRtypes[rrtype] = rs
	}
	rs.RRs = append(rs.RRs, rr)
}

// Delete removes every RR at owner/rrtype.
func (z *Zone) Delete(owner string, rrtype uint16) {
	z.mu.Lock()
	defer z.mu.Unlock()
	od, ok := z.owners[strings.ToLower(owner)]
	if !ok {
		return
	}
	delete(od.RRtypes, rrtype)
}

// rrByOwner sorts a slice of RRs by owner name, giving AXFR output a
// stable order across calls despite the map iteration it is built
// from. Grounded on tdns/dnsutils.go's Owners sort.Interface.
type rrByOwner []dns.RR

func (s rrByOwner) Len() int           { return len(s) }
func (s rrByOwner) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }
func (s rrByOwner) Less(i, j int) bool { return s[i].Header().Name < s[j].Header().Name }

// AllRRs returns every non-SOA RR in the zone, sorted by owner name so
// repeated AXFR responses are stable even though the underlying index
// is an unordered map.
func (z *Zone) AllRRs() []dns.RR {
	z.mu.RLock()
	var out []dns.RR
	for _, od := range z.owners {
		for _, rs := range od.RRtypes {
			out = append(out, rs.RRs...)
		}
	}
	z.mu.RUnlock()
	sorts.Quicksort(rrByOwner(out))
	return out
}

// AxfrFunc implements ixfr.AxfrFunc by serving a full zone transfer in
// a single message: opening SOA, every RR in the zone, closing SOA.
// Real zones can outgrow one message; a production AxfrFunc would
// paginate across multiple dns.Msg writes the way the IXFR streamer
// does for incremental transfers. This minimal double does not, since
// nothing in its test fixtures exercises a zone anywhere near that
// size.
func AxfrFunc(w dns.ResponseWriter, zone ixfr.Zone, query *dns.Msg) error {
	z, ok := zone.(*Zone)
	if !ok {
		return fmt.Errorf("memzone: AxfrFunc called with a non-memzone Zone")
	}
	soa := z.CurrentSOA()
	if soa == nil {
		return ixfr.ErrNoSOA
	}

	reply := new(dns.Msg)
	reply.SetReply(query)
	reply.Answer = append(reply.Answer, soa)
	reply.Answer = append(reply.Answer, z.AllRRs()...)
	reply.Answer = append(reply.Answer, soa)

	return w.WriteMsg(reply)
}
