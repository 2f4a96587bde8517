package ixfr

import "testing"

func seg(old, new uint32) *Segment {
	return &Segment{OldSerial: old, NewSerial: new}
}

func TestSelectUpToDate(t *testing.T) {
	chain := unlimitedChain()
	res := Select(chain, 5, 5)
	if res.Outcome != UpToDate {
		t.Fatalf("Outcome = %v, want UpToDate", res.Outcome)
	}

	res = Select(chain, 9, 5)
	if res.Outcome != UpToDate {
		t.Fatalf("Outcome with newer query serial = %v, want UpToDate", res.Outcome)
	}
}

func TestSelectCurrentSerialNewerThanQueryIsNotUpToDate(t *testing.T) {
	chain := unlimitedChain()
	chain.Insert(seg(5, 9))
	res := Select(chain, 5, 9)
	if res.Outcome != IxfrAvailable {
		t.Fatalf("Outcome = %v, want IxfrAvailable", res.Outcome)
	}
}

func TestSelectNoChainFallsBackToAxfr(t *testing.T) {
	chain := unlimitedChain()
	res := Select(chain, 1, 5)
	if res.Outcome != AxfrFallback {
		t.Fatalf("Outcome = %v, want AxfrFallback", res.Outcome)
	}
}

func TestSelectUnknownFromSerialFallsBackToAxfr(t *testing.T) {
	chain := unlimitedChain()
	chain.Insert(seg(2, 3))
	res := Select(chain, 1, 3)
	if res.Outcome != AxfrFallback {
		t.Fatalf("Outcome = %v, want AxfrFallback", res.Outcome)
	}
}

func TestSelectSingleStep(t *testing.T) {
	chain := unlimitedChain()
	chain.Insert(seg(1, 2))
	res := Select(chain, 1, 2)
	if res.Outcome != IxfrAvailable {
		t.Fatalf("Outcome = %v, want IxfrAvailable", res.Outcome)
	}
	if len(res.Segments) != 1 || res.Segments[0].OldSerial != 1 {
		t.Fatalf("Segments = %+v", res.Segments)
	}
}

func TestSelectMultiStep(t *testing.T) {
	chain := unlimitedChain()
	chain.Insert(seg(1, 2))
	chain.Insert(seg(2, 3))
	chain.Insert(seg(3, 4))
	res := Select(chain, 1, 4)
	if res.Outcome != IxfrAvailable {
		t.Fatalf("Outcome = %v, want IxfrAvailable", res.Outcome)
	}
	want := []uint32{1, 2, 3}
	if len(res.Segments) != len(want) {
		t.Fatalf("Segments length = %d, want %d", len(res.Segments), len(want))
	}
	for i, s := range res.Segments {
		if s.OldSerial != want[i] {
			t.Errorf("Segments[%d].OldSerial = %d, want %d", i, s.OldSerial, want[i])
		}
	}
}

func TestSelectBrokenChainFallsBackToAxfr(t *testing.T) {
	chain := unlimitedChain()
	chain.Insert(seg(1, 2))
	chain.Insert(seg(3, 4)) // gap: nothing continues from new_serial 2
	res := Select(chain, 1, 4)
	if res.Outcome != AxfrFallback {
		t.Fatalf("Outcome = %v, want AxfrFallback", res.Outcome)
	}
}

func TestSelectChainDoesNotReachCurrentSerial(t *testing.T) {
	chain := unlimitedChain()
	chain.Insert(seg(1, 2))
	chain.Insert(seg(2, 3))
	// Current serial is 5, but the chain only reaches 3.
	res := Select(chain, 1, 5)
	if res.Outcome != AxfrFallback {
		t.Fatalf("Outcome = %v, want AxfrFallback", res.Outcome)
	}
}
