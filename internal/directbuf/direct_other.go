//go:build !unix

package directbuf

import "github.com/meko-audio/audiofile/internal/bufhandler"

const directSupported = false

// Direct falls back to Heap on platforms without an mmap-backed
// implementation. Select already routes around this when directSupported
// is false; Direct is exported mainly so callers that want direct memory
// unconditionally get a defined (if degraded) behavior instead of a panic.
func Direct() bufhandler.Allocator {
	return Heap()
}
