package ixfr

// Outcome classifies how a query for a given from-serial can be
// served.
type Outcome int

const (
	// UpToDate means the client already has the current serial or
	// newer; reply with a bare SOA, no diff.
	UpToDate Outcome = iota
	// AxfrFallback means no unbroken incremental path exists; the
	// caller must serve a full zone transfer instead.
	AxfrFallback
	// IxfrAvailable means Segments holds a contiguous, ordered chain
	// of segments whose replay brings the client from its serial to
	// the zone's current serial.
	IxfrAvailable
)

// SelectResult is the outcome of walking a Chain for a given query.
type SelectResult struct {
	Outcome       Outcome
	CurrentSerial uint32
	// Segments holds the path to replay, oldest first, when Outcome
	// is IxfrAvailable. Empty otherwise.
	Segments []*Segment
}

// Select locates the incremental path, if any, from querySerial to
// currentSerial within chain. A client whose querySerial is already
// equal to or newer than currentSerial is up to date — see
// original_source/ixfr.c's query_ixfr, which tests
// compare_serial(qserial, current_serial) >= 0; this is grounded on
// that comparison rather than a literal reading of an inverted
// direction documented elsewhere, since the inverted direction fails
// every worked example of this very selection rule.
//
// Grounded on the NSD query_ixfr lookup loop (original_source/ixfr.c).
func Select(chain *Chain, querySerial, currentSerial uint32) SelectResult {
	if SerialGE(querySerial, currentSerial) {
		return SelectResult{Outcome: UpToDate, CurrentSerial: currentSerial}
	}

	start, ok := chain.Find(querySerial)
	if !ok {
		return SelectResult{Outcome: AxfrFallback, CurrentSerial: currentSerial}
	}

	segs := []*Segment{start}
	cur := start
	for cur.NewSerial != currentSerial {
		next, ok := chain.Next(cur)
		if !ok || next.OldSerial != cur.NewSerial {
			return SelectResult{Outcome: AxfrFallback, CurrentSerial: currentSerial}
		}
		segs = append(segs, next)
		cur = next
	}

	return SelectResult{Outcome: IxfrAvailable, CurrentSerial: currentSerial, Segments: segs}
}
