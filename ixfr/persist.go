package ixfr

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/miekg/dns"
)

// WriteToFile persists zone's in-memory chain to the numbered IXFR
// history files alongside its master file at zfile, maintaining the
// prefix invariant: at all times either files 1..m exist for some m,
// or no files exist at all.
//
// Grounded on NSD's ixfr_write_to_file and its helpers
// (original_source/ixfr.c).
func WriteToFile(zone Zone, zfile string) error {
	if err := SafeIxfrDir(zfile); err != nil {
		return err
	}

	chain := zone.Chain()
	target := TargetNumberFiles(chain.Config(), chain.Count())

	deleteSuperfluousFiles(zfile, target)
	chain.TrimToCount(target)

	if err := renameFiles(chain, zfile, target); err != nil {
		return err
	}
	if err := writeUnwrittenFiles(zone.Name(), chain, zfile); err != nil {
		return err
	}
	DefaultMetrics.PersistWrites.Add(1)
	return nil
}

// deleteSuperfluousFiles removes every history file beyond target,
// probing upward from target+1 until one is missing.
func deleteSuperfluousFiles(zfile string, target int) {
	i := target + 1
	if !IxfrFileExists(zfile, i) {
		return
	}
	for IxfrFileExists(zfile, i) {
		_ = os.Remove(IxfrFileName(zfile, i))
		i++
	}
}

// renameFiles walks the chain oldest first, moving any segment whose
// file already sits at the wrong position into its target slot
// (target, target-1, target-2, ...). It stops as soon as a segment is
// already correctly placed, since everything newer than it was placed
// correctly by a previous run. On a rename failure it unwinds every
// rename performed in this pass, deleting the new files and resetting
// FileIndex to 0, so the prefix invariant holds afterward.
func renameFiles(chain *Chain, zfile string, target int) error {
	if target <= 0 {
		return nil
	}

	segs := chain.All() // oldest first
	destnum := target
	var renamed []*Segment

	for _, seg := range segs {
		if seg.FileIndex == 0 {
			break
		}
		if seg.FileIndex == destnum {
			return nil
		}

		if IxfrFileExists(zfile, destnum) {
			_ = os.Remove(IxfrFileName(zfile, destnum))
		}

		oldName := IxfrFileName(zfile, seg.FileIndex)
		newName := IxfrFileName(zfile, destnum)
		if err := os.Rename(oldName, newName); err != nil {
			for _, r := range renamed {
				_ = os.Remove(IxfrFileName(zfile, r.FileIndex))
				r.FileIndex = 0
			}
			return err
		}
		seg.FileIndex = destnum
		renamed = append(renamed, seg)

		destnum--
		if destnum == 0 {
			return nil
		}
	}
	return nil
}

// writeUnwrittenFiles walks the chain newest first, writing every
// segment that has no file yet into files 1, 2, ... in that order. It
// stops at the first segment that already has a file, since renaming
// has already made everything older contiguous. On failure it deletes
// every file from the failed position onward.
func writeUnwrittenFiles(zoneName string, chain *Chain, zfile string) error {
	segs := chain.All() // oldest first
	num := 1
	for i := len(segs) - 1; i >= 0; i-- {
		seg := segs[i]
		if seg.FileIndex != 0 {
			break
		}
		if err := writeSegmentFile(zoneName, seg, zfile, num); err != nil {
			for k := num; IxfrFileExists(zfile, k); k++ {
				_ = os.Remove(IxfrFileName(zfile, k))
			}
			return err
		}
		seg.FileIndex = num
		num++
	}
	return nil
}

func writeSegmentFile(zoneName string, seg *Segment, zfile string, num int) error {
	name := IxfrFileName(zfile, num)
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "; IXFR data file\n; zone %s\n; from_serial %d\n; to_serial %d\n",
		zoneName, seg.OldSerial, seg.NewSerial); err != nil {
		return err
	}
	if seg.LogLine != "" {
		if _, err := fmt.Fprintf(f, "; %s\n", seg.LogLine); err != nil {
			return err
		}
	}

	for _, run := range [][]byte{seg.NewSOA, seg.OldSOA, seg.Deleted, seg.Added} {
		if err := writeRRLines(f, run); err != nil {
			return err
		}
	}
	return nil
}

// writeRRLines prints each RR in buf on its own line, in the host's
// zone master-file form, falling back to the generic "\#" unknown-type
// rendering for anything dns.RR.String() itself falls back to.
func writeRRLines(f *os.File, buf []byte) error {
	return walkRRs(buf, func(raw []byte) error {
		rr, _, err := dns.UnpackRR(raw, 0)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(f, rr.String())
		return err
	})
}

// ReadFromFile replaces zone's in-memory chain with what is recorded
// in the numbered IXFR history files alongside its master file at
// zfile, starting from file 1 (newest) and continuing while files
// exist, the configured segment count allows it, and the byte budget
// is not exceeded. A budget violation stops reading without discarding
// segments already loaded.
//
// Grounded on NSD's read side of ixfr.c (read_from_file, following
// ixfr_data_readrr / store_soa in spirit, reimplemented here against
// the master-file text format written by WriteToFile rather than
// re-parsing NSD's own on-disk layout).
func ReadFromFile(zone Zone, zfile string) error {
	chain := zone.Chain()
	chain.Clear()
	cfg := chain.Config()
	serial := zone.CurrentSerial()

	for k := 1; IxfrFileExists(zfile, k); k++ {
		if uint(chain.Count()) >= cfg.MaxCount {
			break
		}

		seg, oldSerial, err := readSegmentFile(zfile, k, serial)
		if err != nil {
			return err
		}
		// A plain budget test, not MakeSpace: files are read
		// newest-first, so admitting an older file must never evict
		// segments already read in this pass. If the candidate would
		// not fit, stop reading rather than discard newer history.
		if cfg.MaxBytes > 0 && uint(chain.TotalSize()+seg.dataSize()) > cfg.MaxBytes {
			break
		}
		chain.Insert(seg)
		serial = oldSerial
	}
	DefaultMetrics.PersistReads.Add(1)
	return nil
}

// readSegmentFile parses one IXFR history file, validating that its
// new-SOA serial matches expectedSerial (the serial the previously
// read, newer file left off at, or the zone's current serial for file
// 1). It returns the parsed segment and the old-SOA serial, which
// becomes the expected serial for the next (older) file.
func readSegmentFile(zfile string, fileNum int, expectedSerial uint32) (*Segment, uint32, error) {
	f, err := os.Open(IxfrFileName(zfile, fileNum))
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	r := newLineRRReader(f)

	newRR, ok, err := r.next()
	if err != nil {
		return nil, 0, err
	}
	if !ok {
		return nil, 0, ErrPersistRead
	}
	newSOA, ok := newRR.(*dns.SOA)
	if !ok || newSOA.Serial != expectedSerial {
		return nil, 0, ErrPersistRead
	}

	oldRR, ok, err := r.next()
	if err != nil {
		return nil, 0, err
	}
	if !ok {
		return nil, 0, ErrPersistRead
	}
	oldSOA, ok := oldRR.(*dns.SOA)
	if !ok {
		return nil, 0, ErrPersistRead
	}

	newSOAWire, err := encodeRR(newSOA)
	if err != nil {
		return nil, 0, err
	}
	oldSOAWire, err := encodeRR(oldSOA)
	if err != nil {
		return nil, 0, err
	}

	deleted, err := r.readRunUntilSOA(expectedSerial)
	if err != nil {
		return nil, 0, err
	}
	added, err := r.readRunUntilSOA(expectedSerial)
	if err != nil {
		return nil, 0, err
	}

	seg := &Segment{
		OldSerial: oldSOA.Serial,
		NewSerial: expectedSerial,
		OldSOA:    oldSOAWire,
		NewSOA:    newSOAWire,
		Deleted:   deleted,
		Added:     added,
		LogLine:   r.logLine,
		FileIndex: fileNum,
	}
	return seg, oldSOA.Serial, nil
}

// lineRRReader scans an IXFR history file's comment header and RR
// lines, surfacing each RR in turn.
type lineRRReader struct {
	scanner *bufio.Scanner
	logLine string
}

func newLineRRReader(f *os.File) *lineRRReader {
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	return &lineRRReader{scanner: scanner}
}

// next returns the next RR line, skipping and classifying comment
// lines along the way. The first comment line that isn't one of the
// fixed header fields is remembered as the segment's log line.
func (r *lineRRReader) next() (dns.RR, bool, error) {
	for r.scanner.Scan() {
		line := r.scanner.Text()
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ";") {
			rest := strings.TrimSpace(strings.TrimPrefix(line, ";"))
			switch {
			case rest == "IXFR data file":
			case strings.HasPrefix(rest, "zone "):
			case strings.HasPrefix(rest, "from_serial "):
			case strings.HasPrefix(rest, "to_serial "):
			default:
				if r.logLine == "" {
					r.logLine = rest
				}
			}
			continue
		}
		rr, err := dns.NewRR(line)
		if err != nil {
			return nil, false, err
		}
		return rr, true, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, false, err
	}
	return nil, false, nil
}

// readRunUntilSOA reads RRs, re-encoding each to wire form and
// concatenating them, until it reads an SOA whose serial equals
// closingSerial — that SOA is included in the run, matching how
// Builder.Finish appends the section-end SOA.
func (r *lineRRReader) readRunUntilSOA(closingSerial uint32) ([]byte, error) {
	var run []byte
	for {
		rr, ok, err := r.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrPersistRead
		}
		wire, err := encodeRR(rr)
		if err != nil {
			return nil, err
		}
		run = appendRun(run, wire)
		if soa, ok := rr.(*dns.SOA); ok && soa.Serial == closingSerial {
			break
		}
	}
	return trimRun(run), nil
}
