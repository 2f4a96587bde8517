package ixfr

import "errors"

// Protocol errors: surfaced in the response RCODE, no internal state
// changes.
var (
	ErrFormatError   = errors.New("ixfr: malformed query")
	ErrNotAuthorized = errors.New("ixfr: not authoritative for zone")
	ErrNoSOA         = errors.New("ixfr: zone has no SOA")
)

// Builder / chain errors: never surfaced to the peer. Builder methods
// return them to the local caller; a builder that cancels also
// records it, observable via Builder.Cancelled().
var (
	ErrBudgetExceeded = errors.New("ixfr: segment exceeds chain budget")
	ErrCancelled      = errors.New("ixfr: builder is cancelled")
	ErrBadSOA         = errors.New("ixfr: malformed SOA rdata")
	ErrNotIxfrBuild   = errors.New("ixfr: builder already finished or cancelled")
)

// Chain/connector conditions. Select reports a missing, broken or
// non-matching chain as a plain AxfrFallback result, not an error.
// HandleQuery returns ErrChainBroken when no AXFR fallback is
// configured, and walkRRs returns ErrTruncatedRecord for malformed or
// compressed RR framing; ErrNoSuchSegment, ErrNoChain and
// ErrUncompressedRR are not returned anywhere in this package.
var (
	ErrChainBroken     = errors.New("ixfr: chain is not connected to current serial")
	ErrNoSuchSegment   = errors.New("ixfr: no segment for requested serial")
	ErrNoChain         = errors.New("ixfr: zone has no stored chain")
	ErrUncompressedRR  = errors.New("ixfr: compressed owner name inside segment")
	ErrTruncatedRecord = errors.New("ixfr: record framing runs past buffer end")
)

// Persistence errors.
var (
	ErrPersistWrite = errors.New("ixfr: failed to write persisted segment")
	ErrPersistRead  = errors.New("ixfr: failed to read persisted segment")
)
