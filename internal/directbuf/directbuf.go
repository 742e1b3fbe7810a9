// Package directbuf implements the two Buffer allocation strategies a
// facade chooses between for its bufhandler.Handler, via Select and
// internal/afconfig.UseDirectMemory (spec.md §6): a plain heap allocation,
// and a direct (out-of-heap, mmap
// anonymous-backed) allocation on platforms golang.org/x/sys/unix supports.
package directbuf

import "github.com/meko-audio/audiofile/internal/bufhandler"

// Heap returns a bufhandler.Allocator backed by ordinary Go heap slices.
// Release is a no-op; the allocation is reclaimed by the garbage collector.
func Heap() bufhandler.Allocator {
	return func(size int) (bufhandler.Buffer, error) {
		return &heapBuffer{b: make([]byte, size)}, nil
	}
}

type heapBuffer struct {
	b []byte
}

func (h *heapBuffer) Bytes() []byte {
	return h.b
}

func (h *heapBuffer) Release() error {
	h.b = nil
	return nil
}

// Select returns Direct() when useDirect is true and the current platform
// supports it, else Heap(). This is the single call site facades use so
// that the unix/non-unix split stays confined to this package.
func Select(useDirect bool) bufhandler.Allocator {
	if useDirect && directSupported {
		return Direct()
	}

	return Heap()
}
