package main

import (
	"fmt"
	"os"

	"github.com/miekg/dns"

	"github.com/ixfrd/ixfrd/internal/memzone"
)

// LoadZoneFile populates z from a standard DNS master file using
// miekg/dns's own zone parser. General zone-file management (reloads,
// includes, $GENERATE, signing) is explicitly out of scope here —
// this loader exists only to get a zone's content and SOA into memory
// so the IXFR engine has something to diff and transfer; a deployment
// with real zone-file machinery supplies its own ixfr.Zone
// implementation instead of memzone.
func LoadZoneFile(z *memzone.Zone, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening zone file %s: %w", path, err)
	}
	defer f.Close()

	zp := dns.NewZoneParser(f, z.Name(), path)
	sawSOA := false
	for rr, ok := zp.Next(); ok; rr, ok = zp.Next() {
		if soa, isSOA := rr.(*dns.SOA); isSOA {
			if err := z.LoadSOA(soa); err != nil {
				return err
			}
			sawSOA = true
			continue
		}
		z.Put(rr)
	}
	if err := zp.Err(); err != nil {
		return fmt.Errorf("parsing zone file %s: %w", path, err)
	}
	if !sawSOA {
		return fmt.Errorf("zone file %s has no SOA record", path)
	}
	return nil
}
