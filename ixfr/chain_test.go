package ixfr

import "testing"

func TestChainInsertFindOrdering(t *testing.T) {
	c := unlimitedChain()
	c.Insert(seg(5, 9))
	c.Insert(seg(1, 5))
	c.Insert(seg(9, 20))

	if c.Count() != 3 {
		t.Fatalf("Count = %d, want 3", c.Count())
	}

	first, ok := c.First()
	if !ok || first.OldSerial != 1 {
		t.Fatalf("First = %+v, want OldSerial 1", first)
	}
	last, ok := c.Last()
	if !ok || last.OldSerial != 9 {
		t.Fatalf("Last = %+v, want OldSerial 9", last)
	}

	mid, ok := c.Find(5)
	if !ok || mid.NewSerial != 9 {
		t.Fatalf("Find(5) = %+v, want NewSerial 9", mid)
	}
	if _, ok := c.Find(42); ok {
		t.Fatal("Find(42) found a segment that was never inserted")
	}

	next, ok := c.Next(first)
	if !ok || next.OldSerial != 5 {
		t.Fatalf("Next(first) = %+v, want OldSerial 5", next)
	}
	prev, ok := c.Previous(last)
	if !ok || prev.OldSerial != 5 {
		t.Fatalf("Previous(last) = %+v, want OldSerial 5", prev)
	}
	if _, ok := c.Next(last); ok {
		t.Fatal("Next(last) should have no successor")
	}
	if _, ok := c.Previous(first); ok {
		t.Fatal("Previous(first) should have no predecessor")
	}
}

func TestChainInsertDuplicateOldSerialPanics(t *testing.T) {
	c := unlimitedChain()
	c.Insert(seg(1, 5))

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected a panic inserting a duplicate old_serial")
		}
	}()
	c.Insert(seg(1, 9))
}

func TestChainRemove(t *testing.T) {
	c := unlimitedChain()
	s := seg(1, 5)
	c.Insert(s)
	c.Insert(seg(5, 9))

	c.Remove(s)
	if c.Count() != 1 {
		t.Fatalf("Count after Remove = %d, want 1", c.Count())
	}
	if _, ok := c.Find(1); ok {
		t.Fatal("removed segment is still findable")
	}
}

func TestChainClear(t *testing.T) {
	c := unlimitedChain()
	c.Insert(seg(1, 5))
	c.Insert(seg(5, 9))
	c.Clear()
	if c.Count() != 0 {
		t.Fatalf("Count after Clear = %d, want 0", c.Count())
	}
	if _, ok := c.First(); ok {
		t.Fatal("First should report nothing after Clear")
	}
}

func TestMakeSpaceRejectsWhenStorageDisabled(t *testing.T) {
	c := NewChain(Config{})
	if c.MakeSpace(10) {
		t.Fatal("MakeSpace should reject when MaxCount is 0")
	}
}

func TestMakeSpaceEvictsOldestToFitCount(t *testing.T) {
	c := NewChain(Config{MaxCount: 2})
	c.Insert(seg(1, 5))
	c.Insert(seg(5, 9))

	if !c.MakeSpace(1) {
		t.Fatal("MakeSpace should admit a third segment by evicting the oldest")
	}
	if c.Count() != 1 {
		t.Fatalf("Count after MakeSpace = %d, want 1 (oldest evicted so the count is strictly under MaxCount=2)", c.Count())
	}
	if _, ok := c.Find(1); ok {
		t.Fatal("oldest segment should have been evicted")
	}
}

func TestMakeSpaceRespectsPinnedSegments(t *testing.T) {
	c := NewChain(Config{MaxCount: 1})
	s := seg(1, 5)
	s.Pin()
	c.Insert(s)

	if c.MakeSpace(1) {
		t.Fatal("MakeSpace should refuse to admit when the only evictable segment is pinned")
	}
	if c.Count() != 1 {
		t.Fatalf("Count = %d, want 1 (pinned segment must survive)", c.Count())
	}
}

func TestMakeSpaceEnforcesByteBudget(t *testing.T) {
	c := NewChain(Config{MaxCount: 100, MaxBytes: headerSize + 10})
	small := seg(1, 5)
	small.Added = make([]byte, 5)
	c.Insert(small)

	if c.MakeSpace(headerSize + 1000) {
		t.Fatal("MakeSpace should reject a candidate that alone exceeds MaxBytes even after evicting everything else")
	}
	if c.Count() != 0 {
		t.Fatalf("Count = %d, want 0 (only segment evicted trying to make room)", c.Count())
	}
}

func TestTrimToCount(t *testing.T) {
	c := unlimitedChain()
	c.Insert(seg(1, 5))
	c.Insert(seg(5, 9))
	c.Insert(seg(9, 20))

	remaining := c.TrimToCount(1)
	if remaining != 1 {
		t.Fatalf("TrimToCount(1) returned %d, want 1", remaining)
	}
	last, ok := c.Last()
	if !ok || last.OldSerial != 9 {
		t.Fatalf("newest segment should survive trimming, got %+v", last)
	}
}

func TestTrimToCountStopsAtPinnedSegment(t *testing.T) {
	c := unlimitedChain()
	oldest := seg(1, 5)
	oldest.Pin()
	c.Insert(oldest)
	c.Insert(seg(5, 9))

	remaining := c.TrimToCount(0)
	if remaining != 1 {
		t.Fatalf("TrimToCount(0) returned %d, want 1 (pinned oldest segment blocks eviction)", remaining)
	}
	if _, ok := c.Find(1); !ok {
		t.Fatal("pinned segment should not have been evicted")
	}
}
