package ixfr

import "github.com/miekg/dns"

// Outcome of handling a single inbound query, for logging and for the
// caller's control flow once HandleQuery returns.
type QueryOutcome int

const (
	ReplyError QueryOutcome = iota
	ReplyUpToDate
	ReplyAxfr
	ReplyIxfr
)

// Response is what HandleQuery produces: the first outgoing message,
// plus, for an IXFR reply that needs more than one packet, the
// Streamer the caller must keep feeding to subsequent TCP writes and
// must Close once the transfer is finished (successfully or not). When
// Outcome is ReplyAxfr, axfr has already written its own response(s)
// directly to the connection; Msg is a bare, unsent placeholder and
// the caller must not write it again.
type Response struct {
	Outcome  QueryOutcome
	Msg      *dns.Msg
	Streamer *Streamer
	Sign     bool
}

// HandleQuery is the entry point for an inbound transfer query already
// known to be IXFR (opcode/type dispatch happens upstream, in the
// DNS-library wiring). peerMax is the transport's effective message
// size limit (EDNS0 buffer size or the classic 512/65535 limit); a
// value of 0 or less means the streamer's own maxPacketSize cap
// (16384) applies instead. udp indicates whether framing and truncation rules
// for a connectionless transport apply. w is only used to hand off to
// axfr on fallback; HandleQuery never writes to it itself.
//
// Grounded on NSD's query_ixfr (original_source/ixfr.c).
func HandleQuery(finder ZoneFinder, axfr AxfrFunc, w dns.ResponseWriter, req *dns.Msg, peerMax int, udp bool, signEveryNth int) (*Response, error) {
	reply := new(dns.Msg)
	reply.SetReply(req)

	if len(req.Question) != 1 {
		reply.Rcode = dns.RcodeFormatError
		return &Response{Outcome: ReplyError, Msg: reply}, ErrFormatError
	}
	q := req.Question[0]

	if len(req.Ns) < 1 {
		reply.Rcode = dns.RcodeFormatError
		return &Response{Outcome: ReplyError, Msg: reply}, ErrFormatError
	}
	soa, ok := req.Ns[0].(*dns.SOA)
	if !ok {
		reply.Rcode = dns.RcodeFormatError
		return &Response{Outcome: ReplyError, Msg: reply}, ErrFormatError
	}
	fromSerial := soa.Serial

	// The authority and additional sections belonged to the query, not
	// to any reply we send back.
	req.Ns = nil
	req.Extra = nil

	zone, ok := finder.FindZone(q.Name)
	if !ok {
		reply.Rcode = dns.RcodeNotAuth
		return &Response{Outcome: ReplyError, Msg: reply}, ErrNotAuthorized
	}

	current := zone.CurrentSerial()
	sel := Select(zone.Chain(), fromSerial, current)
	logf("ixfr: query zone=%s from_serial=%d current_serial=%d outcome=%d\n", q.Name, fromSerial, current, sel.Outcome)

	switch sel.Outcome {
	case UpToDate:
		DefaultMetrics.QueriesUpToDate.Add(1)
		reply.Answer = []dns.RR{zone.CurrentSOA()}
		return &Response{Outcome: ReplyUpToDate, Msg: reply, Sign: true}, nil

	case AxfrFallback:
		if axfr == nil {
			logf("ixfr: zone=%s no AXFR fallback configured, answering SERVFAIL\n", q.Name)
			DefaultMetrics.QueriesError.Add(1)
			reply.Rcode = dns.RcodeServerFailure
			return &Response{Outcome: ReplyError, Msg: reply}, ErrChainBroken
		}
		if err := axfr(w, zone, req); err != nil {
			logf("ixfr: zone=%s AXFR fallback failed: %v\n", q.Name, err)
			DefaultMetrics.QueriesError.Add(1)
			reply.Rcode = dns.RcodeServerFailure
			return &Response{Outcome: ReplyError, Msg: reply}, err
		}
		DefaultMetrics.QueriesAxfr.Add(1)
		return &Response{Outcome: ReplyAxfr, Msg: reply}, nil

	case IxfrAvailable:
		final := sel.Segments[len(sel.Segments)-1]
		st, err := NewStreamer(sel.Segments, final, signEveryNth)
		if err != nil {
			logf("ixfr: zone=%s failed to build streamer: %v\n", q.Name, err)
			DefaultMetrics.QueriesError.Add(1)
			reply.Rcode = dns.RcodeServerFailure
			return &Response{Outcome: ReplyError, Msg: reply}, err
		}
		sign, err := st.NextPacket(reply, peerMax, udp)
		if err != nil {
			st.Close()
			DefaultMetrics.QueriesError.Add(1)
			reply.Rcode = dns.RcodeServerFailure
			return &Response{Outcome: ReplyError, Msg: reply}, err
		}
		DefaultMetrics.QueriesIxfr.Add(1)
		resp := &Response{Outcome: ReplyIxfr, Msg: reply, Sign: sign}
		if !st.Done() {
			resp.Streamer = st
		} else {
			st.Close()
		}
		return resp, nil

	default:
		reply.Rcode = dns.RcodeServerFailure
		return &Response{Outcome: ReplyError, Msg: reply}, ErrChainBroken
	}
}
