package ixfr

import (
	"errors"
	"testing"

	"github.com/miekg/dns"
)

func mustRR(t *testing.T, s string) dns.RR {
	t.Helper()
	rr, err := dns.NewRR(s)
	if err != nil {
		t.Fatalf("dns.NewRR(%q): %v", s, err)
	}
	return rr
}

func unlimitedChain() *Chain {
	return NewChain(Config{MaxCount: 100, MaxBytes: 0})
}

func TestBuilderHappyPath(t *testing.T) {
	chain := unlimitedChain()
	b := Begin(chain, "example.com.", 1, 2)

	if err := b.SetNewSOA(mustRR(t, "example.com. 3600 IN SOA ns.example.com. hostmaster.example.com. 2 3600 600 86400 3600")); err != nil {
		t.Fatalf("SetNewSOA: %v", err)
	}
	if err := b.SetOldSOA(mustRR(t, "example.com. 3600 IN SOA ns.example.com. hostmaster.example.com. 1 3600 600 86400 3600")); err != nil {
		t.Fatalf("SetOldSOA: %v", err)
	}
	if err := b.AddDeleted(mustRR(t, "www.example.com. 3600 IN A 192.0.2.1")); err != nil {
		t.Fatalf("AddDeleted: %v", err)
	}
	if err := b.AddAdded(mustRR(t, "www.example.com. 3600 IN A 192.0.2.2")); err != nil {
		t.Fatalf("AddAdded: %v", err)
	}

	seg, err := b.Finish("")
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if seg.OldSerial != 1 || seg.NewSerial != 2 {
		t.Errorf("segment serials = %d/%d, want 1/2", seg.OldSerial, seg.NewSerial)
	}
	if chain.Count() != 1 {
		t.Fatalf("chain count = %d, want 1", chain.Count())
	}

	// Both runs end with the new SOA, not the old one.
	if countRRs(seg.Deleted) != 2 {
		t.Errorf("deleted run has %d RRs, want 2 (1 deleted A + trailing SOA)", countRRs(seg.Deleted))
	}
	if countRRs(seg.Added) != 2 {
		t.Errorf("added run has %d RRs, want 2 (1 added A + trailing SOA)", countRRs(seg.Added))
	}
	trailingDel := lastRR(t, seg.Deleted)
	trailingAdd := lastRR(t, seg.Added)
	if trailingDel.(*dns.SOA).Serial != 2 {
		t.Errorf("trailing SOA in deleted run has serial %d, want 2 (new serial)", trailingDel.(*dns.SOA).Serial)
	}
	if trailingAdd.(*dns.SOA).Serial != 2 {
		t.Errorf("trailing SOA in added run has serial %d, want 2 (new serial)", trailingAdd.(*dns.SOA).Serial)
	}
}

func lastRR(t *testing.T, buf []byte) dns.RR {
	t.Helper()
	var last dns.RR
	err := walkRRs(buf, func(raw []byte) error {
		rr, _, err := dns.UnpackRR(raw, 0)
		if err != nil {
			return err
		}
		last = rr
		return nil
	})
	if err != nil {
		t.Fatalf("walkRRs: %v", err)
	}
	return last
}

func TestBuilderSkipsSOAInDeletedAndAdded(t *testing.T) {
	chain := unlimitedChain()
	b := Begin(chain, "example.com.", 1, 2)
	_ = b.SetNewSOA(mustRR(t, "example.com. 3600 IN SOA ns.example.com. hostmaster.example.com. 2 3600 600 86400 3600"))
	_ = b.SetOldSOA(mustRR(t, "example.com. 3600 IN SOA ns.example.com. hostmaster.example.com. 1 3600 600 86400 3600"))

	// A stray SOA passed to AddDeleted/AddAdded must not appear twice.
	if err := b.AddDeleted(mustRR(t, "example.com. 3600 IN SOA ns.example.com. hostmaster.example.com. 1 3600 600 86400 3600")); err != nil {
		t.Fatalf("AddDeleted(SOA): %v", err)
	}
	if err := b.AddAdded(mustRR(t, "example.com. 3600 IN SOA ns.example.com. hostmaster.example.com. 2 3600 600 86400 3600")); err != nil {
		t.Fatalf("AddAdded(SOA): %v", err)
	}
	seg, err := b.Finish("")
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if countRRs(seg.Deleted) != 1 {
		t.Errorf("deleted run has %d RRs, want 1 (only the trailing SOA)", countRRs(seg.Deleted))
	}
	if countRRs(seg.Added) != 1 {
		t.Errorf("added run has %d RRs, want 1 (only the trailing SOA)", countRRs(seg.Added))
	}
}

func TestBuilderRejectsWrongOwnerSOA(t *testing.T) {
	chain := unlimitedChain()
	b := Begin(chain, "example.com.", 1, 2)
	err := b.SetNewSOA(mustRR(t, "other.com. 3600 IN SOA ns.other.com. hostmaster.other.com. 2 3600 600 86400 3600"))
	if !errors.Is(err, ErrBadSOA) {
		t.Fatalf("SetNewSOA with wrong owner = %v, want ErrBadSOA", err)
	}
	if !b.Cancelled() {
		t.Error("builder should be cancelled after a bad SOA")
	}
}

func TestBuilderFinishWithoutOldSOAFails(t *testing.T) {
	chain := unlimitedChain()
	b := Begin(chain, "example.com.", 1, 2)
	_ = b.SetNewSOA(mustRR(t, "example.com. 3600 IN SOA ns.example.com. hostmaster.example.com. 2 3600 600 86400 3600"))
	_, err := b.Finish("")
	if !errors.Is(err, ErrBadSOA) {
		t.Fatalf("Finish without old SOA = %v, want ErrBadSOA", err)
	}
}

func TestBuilderCancelIsIdempotent(t *testing.T) {
	chain := unlimitedChain()
	b := Begin(chain, "example.com.", 1, 2)
	b.Cancel()
	b.Cancel()
	if !b.Cancelled() {
		t.Fatal("expected cancelled")
	}
	if err := b.SetNewSOA(mustRR(t, "example.com. 3600 IN SOA ns.example.com. hostmaster.example.com. 2 3600 600 86400 3600")); !errors.Is(err, ErrCancelled) {
		t.Errorf("SetNewSOA after cancel = %v, want ErrCancelled", err)
	}
}

func TestBuilderBudgetExceededCancelsBuild(t *testing.T) {
	chain := NewChain(Config{MaxCount: 1, MaxBytes: 1}) // impossibly small
	b := Begin(chain, "example.com.", 1, 2)
	_ = b.SetNewSOA(mustRR(t, "example.com. 3600 IN SOA ns.example.com. hostmaster.example.com. 2 3600 600 86400 3600"))
	err := b.SetOldSOA(mustRR(t, "example.com. 3600 IN SOA ns.example.com. hostmaster.example.com. 1 3600 600 86400 3600"))
	if !errors.Is(err, ErrBudgetExceeded) {
		t.Fatalf("SetOldSOA over budget = %v, want ErrBudgetExceeded", err)
	}
	if !b.Cancelled() {
		t.Error("builder should be cancelled when budget is exceeded")
	}
	if chain.Count() != 0 {
		t.Errorf("chain count = %d, want 0: nothing should have been committed", chain.Count())
	}
}

func TestBuilderDoubleFinishFails(t *testing.T) {
	chain := unlimitedChain()
	b := Begin(chain, "example.com.", 1, 2)
	_ = b.SetNewSOA(mustRR(t, "example.com. 3600 IN SOA ns.example.com. hostmaster.example.com. 2 3600 600 86400 3600"))
	_ = b.SetOldSOA(mustRR(t, "example.com. 3600 IN SOA ns.example.com. hostmaster.example.com. 1 3600 600 86400 3600"))
	if _, err := b.Finish(""); err != nil {
		t.Fatalf("first Finish: %v", err)
	}
	if _, err := b.Finish(""); !errors.Is(err, ErrNotIxfrBuild) {
		t.Errorf("second Finish = %v, want ErrNotIxfrBuild", err)
	}
}
