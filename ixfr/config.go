package ixfr

// Config holds the per-zone budget for stored IXFR history. MaxCount
// == 0 disables storage entirely: every builder call cancels.
// MaxBytes == 0 disables the byte cap; eviction then happens by count
// alone.
//
// ZoneIxfrConf (cmd/ixfrd/config.go) is the validated, externally
// loaded counterpart of this struct, mirroring the ZoneConf/ZoneData
// split in johanix-tdns's tdns/structs.go: operators configure
// ZoneIxfrConf via viper, and it is converted into a Config when the
// zone is loaded.
type Config struct {
	MaxCount uint
	MaxBytes uint
}

// StoresIxfr reports whether this configuration allows any IXFR
// history to be retained.
func (c Config) StoresIxfr() bool {
	return c.MaxCount > 0
}
