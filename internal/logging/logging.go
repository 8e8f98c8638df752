package logging

import (
	"log"
	"os"
	"sync/atomic"
)

var (
	quiet  atomic.Bool
	logger = log.New(os.Stderr, "", log.LstdFlags)
)

// SetQuiet suppresses non-error output. Used by CLI commands that print
// machine-readable results on stdout.
func SetQuiet(on bool) {
	quiet.Store(on)
}

// Infof logs a formatted message under a component tag, e.g.
// Infof("Lanes", "task done lane=%s", lane).
func Infof(tag, format string, v ...any) {
	if quiet.Load() {
		return
	}
	logger.Printf("["+tag+"] "+format, v...)
}

// Warnf logs a formatted warning under a component tag.
func Warnf(tag, format string, v ...any) {
	if quiet.Load() {
		return
	}
	logger.Printf("["+tag+"] WARNING: "+format, v...)
}

// Errorf logs a formatted error. Errors print even in quiet mode.
func Errorf(tag, format string, v ...any) {
	logger.Printf("["+tag+"] ERROR: "+format, v...)
}
