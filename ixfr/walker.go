package ixfr

// rrLength reports the length in bytes of the RR beginning at offset
// start within buf, or 0 if the RR is malformed or would run past the
// end of buf. Compression is forbidden: a label whose top two bits are
// set is rejected, since every segment byte run is required to carry
// uncompressed owner names.
//
// Grounded on NSD's count_rr_length (original_source/ixfr.c).
func rrLength(buf []byte, start int) int {
	n := len(buf)
	if start < 0 || start >= n {
		return 0
	}
	i := start

	// Owner name: sequence of length-prefixed labels, terminated by a
	// zero-length label.
	for {
		if i+1 > n {
			return 0
		}
		labelLen := int(buf[i])
		i++
		if labelLen == 0 {
			break
		}
		if labelLen&0xc0 != 0 {
			// Top two bits set: a compression pointer. Not allowed
			// inside a stored segment.
			return 0
		}
		if i+labelLen > n {
			return 0
		}
		i += labelLen
	}

	// Fixed RR header: type(2) class(2) ttl(4) rdlength(2).
	if i+10 > n {
		return 0
	}
	i += 8
	rdlen := int(buf[i])<<8 | int(buf[i+1])
	i += 2

	if i+rdlen > n {
		return 0
	}
	i += rdlen

	return i - start
}

// walkRRs calls fn once per RR found in buf, in order, passing the
// byte range [start, start+length) of each RR. It stops and returns
// ErrTruncatedRecord if any RR is malformed or runs past the end of
// buf before the whole buffer has been consumed.
func walkRRs(buf []byte, fn func(rr []byte) error) error {
	pos := 0
	for pos < len(buf) {
		n := rrLength(buf, pos)
		if n == 0 {
			return ErrTruncatedRecord
		}
		if err := fn(buf[pos : pos+n]); err != nil {
			return err
		}
		pos += n
	}
	return nil
}

// countRRs returns the number of RRs in buf, or -1 if buf is malformed.
func countRRs(buf []byte) int {
	count := 0
	err := walkRRs(buf, func([]byte) error {
		count++
		return nil
	})
	if err != nil {
		return -1
	}
	return count
}
