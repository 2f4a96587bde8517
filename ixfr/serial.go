package ixfr

// SerialLess reports whether a is strictly less than b under RFC 1982
// serial number arithmetic: a < b iff (b-a) mod 2^32 is in (0, 2^31).
func SerialLess(a, b uint32) bool {
	d := b - a
	return d != 0 && d < 1<<31
}

// SerialGE reports whether a is equal to or newer than b, i.e. !SerialLess(a, b).
func SerialGE(a, b uint32) bool {
	return !SerialLess(a, b)
}
