package main

import (
	"log"

	"github.com/miekg/dns"

	"github.com/ixfrd/ixfrd/internal/memzone"
	"github.com/ixfrd/ixfrd/ixfr"
)

// DnsEngine starts the DNS listener(s), one goroutine per
// address/network pair, following tdns/dnshandler.go's DnsEngine.
func DnsEngine(conf *Config) error {
	addresses := conf.DnsEngine.Addresses
	dns.HandleFunc(".", createHandler(conf))

	log.Printf("DnsEngine: addresses: %v", addresses)
	for _, addr := range addresses {
		for _, net := range []string{"udp", "tcp"} {
			go func(addr, net string) {
				log.Printf("DnsEngine: serving on %s (%s)\n", addr, net)
				server := &dns.Server{Addr: addr, Net: net}
				server.UDPSize = dns.DefaultMsgSize
				if err := server.ListenAndServe(); err != nil {
					log.Printf("Failed to set up the %s server: %s\n", net, err.Error())
				}
			}(addr, net)
		}
	}
	return nil
}

// createHandler dispatches inbound queries: IXFR and AXFR go to the
// transfer path, everything else gets a REFUSED (ixfrd answers
// transfer queries only, it is not a general-purpose authoritative
// responder). Grounded on tdns/dnshandler.go's createHandler, trimmed
// to the opcode/qtype switch relevant to transfers.
func createHandler(conf *Config) func(w dns.ResponseWriter, r *dns.Msg) {
	registry := conf.Internal.Registry

	return func(w dns.ResponseWriter, r *dns.Msg) {
		if len(r.Question) == 0 {
			m := new(dns.Msg)
			m.SetRcode(r, dns.RcodeFormatError)
			w.WriteMsg(m)
			return
		}
		qname := r.Question[0].Name
		qtype := r.Question[0].Qtype

		switch qtype {
		case dns.TypeIXFR:
			handleTransferQuery(w, r, registry, true)
		case dns.TypeAXFR:
			handleTransferQuery(w, r, registry, false)
		default:
			log.Printf("DnsHandler: refusing non-transfer query for %s %s", qname, dns.TypeToString[qtype])
			m := new(dns.Msg)
			m.SetRcode(r, dns.RcodeRefused)
			w.WriteMsg(m)
		}
	}
}

// handleTransferQuery answers one IXFR or plain AXFR query over
// whatever transport w is bound to, driving ixfr.HandleQuery and, for
// a multi-packet IXFR reply, looping writes until the streamer is
// done.
func handleTransferQuery(w dns.ResponseWriter, r *dns.Msg, registry *ZoneRegistry, isIxfr bool) {
	udp := w.RemoteAddr() != nil && w.RemoteAddr().Network() == "udp"

	// Absent EDNS0, the classic message size limits apply: 512 bytes
	// over UDP, 65535 over TCP. Leaving this at 0 would fall through to
	// WritePacket's maxPacketSize cap and let a non-EDNS0 UDP client
	// receive answers far larger than it can actually reassemble.
	peerMax := 65535
	if udp {
		peerMax = 512
	}
	if opt := r.IsEdns0(); opt != nil {
		peerMax = int(opt.UDPSize())
	}

	if !isIxfr {
		// Plain AXFR: no from-serial to validate, so answer directly via
		// the zone's own AxfrFunc rather than going through HandleQuery's
		// IXFR-specific authority-SOA parsing.
		qname := r.Question[0].Name
		zone, ok := registry.FindZone(qname)
		if !ok {
			m := new(dns.Msg)
			m.SetRcode(r, dns.RcodeNotAuth)
			w.WriteMsg(m)
			return
		}
		if err := memzone.AxfrFunc(w, zone, r); err != nil {
			log.Printf("AXFR for %s failed: %v", qname, err)
			m := new(dns.Msg)
			m.SetRcode(r, dns.RcodeServerFailure)
			w.WriteMsg(m)
		}
		return
	}

	resp, err := ixfr.HandleQuery(registry, memzone.AxfrFunc, w, r, peerMax, udp, 0)
	if err != nil {
		log.Printf("IXFR query failed: %v", err)
	}
	if resp.Outcome == ixfr.ReplyAxfr {
		// memzone.AxfrFunc already wrote its own reply.
		return
	}
	if err := w.WriteMsg(resp.Msg); err != nil {
		log.Printf("writing IXFR reply: %v", err)
		return
	}
	if resp.Streamer == nil {
		return
	}
	defer resp.Streamer.Close()
	for !resp.Streamer.Done() {
		next := new(dns.Msg)
		next.SetReply(r)
		if _, err := resp.Streamer.NextPacket(next, peerMax, udp); err != nil {
			log.Printf("streaming IXFR packet: %v", err)
			return
		}
		if err := w.WriteMsg(next); err != nil {
			log.Printf("writing IXFR continuation packet: %v", err)
			return
		}
	}
}
