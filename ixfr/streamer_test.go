package ixfr

import (
	"testing"

	"github.com/miekg/dns"
)

func buildSegment(t *testing.T, old, new uint32, deletedRRs, addedRRs []string) *Segment {
	t.Helper()
	newSOA := mustPackRR(t, "example.com. 3600 IN SOA ns.example.com. host.example.com. "+itoa(new)+" 3600 600 86400 3600")
	oldSOA := mustPackRR(t, "example.com. 3600 IN SOA ns.example.com. host.example.com. "+itoa(old)+" 3600 600 86400 3600")

	var deleted, added []byte
	for _, s := range deletedRRs {
		deleted = appendRun(deleted, mustPackRR(t, s))
	}
	deleted = appendRun(deleted, newSOA)

	for _, s := range addedRRs {
		added = appendRun(added, mustPackRR(t, s))
	}
	added = appendRun(added, newSOA)

	return &Segment{
		OldSerial: old,
		NewSerial: new,
		OldSOA:    oldSOA,
		NewSOA:    newSOA,
		Deleted:   trimRun(deleted),
		Added:     trimRun(added),
	}
}

func itoa(n uint32) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func TestStreamerEmissionOrderSingleSegment(t *testing.T) {
	s1 := buildSegment(t, 1, 2,
		[]string{"www.example.com. 3600 IN A 192.0.2.1"},
		[]string{"www.example.com. 3600 IN A 192.0.2.2"})

	st, err := NewStreamer([]*Segment{s1}, s1, 0)
	if err != nil {
		t.Fatalf("NewStreamer: %v", err)
	}
	defer st.Close()

	if s1.pinned() != true {
		t.Fatal("segment should be pinned while streamer is open")
	}

	// opening new-SOA, old-SOA, deleted A, new-SOA (end of deleted run),
	// added A, new-SOA (end of added run) = 6 items.
	if len(st.items) != 6 {
		t.Fatalf("items = %d, want 6", len(st.items))
	}

	msg := new(dns.Msg)
	msg.SetQuestion("example.com.", dns.TypeIXFR)
	if err := st.WritePacket(msg, 0); err != nil {
		t.Fatalf("WritePacket: %v", err)
	}
	if !st.Done() {
		t.Fatal("stream should be done after a single unconstrained packet")
	}
	if len(msg.Answer) != 6 {
		t.Fatalf("answer count = %d, want 6", len(msg.Answer))
	}
	if _, ok := msg.Answer[0].(*dns.SOA); !ok {
		t.Error("first RR should be the opening SOA")
	}
}

func TestStreamerEmissionOrderMultiSegment(t *testing.T) {
	s1 := buildSegment(t, 1, 2,
		[]string{"www.example.com. 3600 IN A 192.0.2.1"},
		[]string{"www.example.com. 3600 IN A 192.0.2.2"})
	s2 := buildSegment(t, 2, 3,
		[]string{"mail.example.com. 3600 IN A 192.0.2.3"},
		[]string{"mail.example.com. 3600 IN A 192.0.2.4"})

	st, err := NewStreamer([]*Segment{s1, s2}, s2, 0)
	if err != nil {
		t.Fatalf("NewStreamer: %v", err)
	}
	defer st.Close()

	// opening new-SOA(3), old-SOA(1), delA, new-SOA(2), addA, new-SOA(2)
	// [segment two's old-SOA is NOT repeated: new-SOA(2) above already
	// opens its delete section], delB, new-SOA(3), addB, new-SOA(3) = 10.
	if len(st.items) != 10 {
		t.Fatalf("items = %d, want 10", len(st.items))
	}

	soaCount := func(serial uint32) int {
		n := 0
		for _, raw := range st.items {
			rr, _, err := dns.UnpackRR(raw, 0)
			if err != nil {
				t.Fatalf("UnpackRR: %v", err)
			}
			if soa, ok := rr.(*dns.SOA); ok && soa.Serial == serial {
				n++
			}
		}
		return n
	}
	if n := soaCount(2); n != 2 {
		t.Fatalf("SOA(2) appears %d times, want 2 (delete-end and add-end of segment one, never repeated as segment two's old-SOA)", n)
	}
	if n := soaCount(1); n != 1 {
		t.Fatalf("SOA(1) appears %d times, want 1 (only the very first segment's old-SOA)", n)
	}
}

func TestStreamerCloseReleasesPins(t *testing.T) {
	s1 := buildSegment(t, 1, 2, nil, nil)
	st, err := NewStreamer([]*Segment{s1}, s1, 0)
	if err != nil {
		t.Fatalf("NewStreamer: %v", err)
	}
	if !s1.pinned() {
		t.Fatal("expected pinned")
	}
	st.Close()
	if s1.pinned() {
		t.Fatal("expected unpinned after Close")
	}
}

func TestStreamerTruncatesOnUDPWhenTooSmall(t *testing.T) {
	s1 := buildSegment(t, 1, 2,
		[]string{"www.example.com. 3600 IN A 192.0.2.1"},
		[]string{"www.example.com. 3600 IN A 192.0.2.2"})
	st, err := NewStreamer([]*Segment{s1}, s1, 0)
	if err != nil {
		t.Fatalf("NewStreamer: %v", err)
	}
	defer st.Close()

	msg := new(dns.Msg)
	msg.SetQuestion("example.com.", dns.TypeIXFR)

	// A packet budget too small to fit more than the opening SOA.
	sign, err := st.NextPacket(msg, 40, true)
	if err != nil {
		t.Fatalf("NextPacket: %v", err)
	}
	if !msg.Truncated {
		t.Error("expected TC bit set")
	}
	if len(msg.Answer) != 1 {
		t.Fatalf("answer count = %d, want 1", len(msg.Answer))
	}
	if !st.Done() {
		t.Error("truncated stream should be marked done")
	}
	if !sign {
		t.Error("the only (first and last) packet must be signed")
	}
}

func TestStreamerMultiPacketTCPContinuation(t *testing.T) {
	s1 := buildSegment(t, 1, 2,
		[]string{"a.example.com. 3600 IN A 192.0.2.1", "b.example.com. 3600 IN A 192.0.2.2"},
		[]string{"c.example.com. 3600 IN A 192.0.2.3", "d.example.com. 3600 IN A 192.0.2.4"})
	st, err := NewStreamer([]*Segment{s1}, s1, 0)
	if err != nil {
		t.Fatalf("NewStreamer: %v", err)
	}
	defer st.Close()

	var packets int
	var firstSigned, lastSigned bool
	for !st.Done() {
		msg := new(dns.Msg)
		if packets == 0 {
			msg.SetQuestion("example.com.", dns.TypeIXFR)
		}
		// Tiny budget forces one RR per packet.
		sign, err := st.NextPacket(msg, 20, false)
		if err != nil {
			t.Fatalf("NextPacket: %v", err)
		}
		if packets == 0 {
			firstSigned = sign
		}
		if st.Done() {
			lastSigned = sign
		}
		packets++
		if packets > 20 {
			t.Fatal("too many packets, likely an infinite loop")
		}
	}
	if packets < 2 {
		t.Fatalf("expected multiple packets with a small budget, got %d", packets)
	}
	if !firstSigned {
		t.Error("first packet must be signed")
	}
	if !lastSigned {
		t.Error("last packet must be signed")
	}
}
