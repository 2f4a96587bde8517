package ixfr

import (
	"fmt"
	"log"

	"gopkg.in/natefinch/lumberjack.v2"
)

// logf is the package-level logging hook. Defaults to fmt.Printf so
// the package is usable standalone; a host binary overrides it with
// SetLoggerHandle to route through its own log file.
var logf = fmt.Printf

// SetLoggerHandle lets the host redirect every log line this package
// emits (query outcomes, builder budget cancellations, chain
// evictions) through its own logger.
func SetLoggerHandle(fptr func(string, ...any) (int, error)) {
	logf = fptr
}

// SetupFileLogging configures the standard log package to write to
// logfile through a rotating lumberjack writer, and points
// SetLoggerHandle's default at it. Intended for host binaries
// (cmd/ixfrd) that want this package's diagnostics in the same file as
// everything else.
func SetupFileLogging(logfile string) error {
	if logfile == "" {
		return fmt.Errorf("ixfr: SetupFileLogging requires a non-empty path")
	}
	log.SetFlags(log.Lshortfile | log.Ltime)
	log.SetOutput(&lumberjack.Logger{
		Filename:   logfile,
		MaxSize:    20,
		MaxBackups: 3,
		MaxAge:     14,
	})
	SetLoggerHandle(func(format string, args ...any) (int, error) {
		log.Printf(format, args...)
		return 0, nil
	})
	return nil
}
