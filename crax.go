// Package crax implements a small expression IR for describing exploit
// payload values: constants, sums, symbol-relative addresses, raw byte
// payloads, opaque metadata and deferred actions.
package crax

import (
	"errors"
	"fmt"
)

// Standard widths.
const (
	WidthInvalid = 0
	Width8       = 8
	Width64      = 64
)

var (
	ErrSymbolNotFound   = errors.New("symbol not found")
	ErrGOTEntryNotFound = errors.New("GOT entry not found")
)

// assert panics if condition is false.
func assert(condition bool, format string, args ...interface{}) {
	if !condition {
		panic(fmt.Sprintf("assert: "+format, args...))
	}
}
