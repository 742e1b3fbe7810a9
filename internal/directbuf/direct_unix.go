//go:build unix

package directbuf

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/meko-audio/audiofile/internal/afcore"
	"github.com/meko-audio/audiofile/internal/bufhandler"
)

const directSupported = true

// Direct returns a bufhandler.Allocator backed by an anonymous mmap
// region — memory outside the Go heap and therefore invisible to the
// garbage collector and immune to its moves, per spec.md §6's "direct
// (native) memory buffer" mode. Release must be called exactly once.
func Direct() bufhandler.Allocator {
	return func(size int) (bufhandler.Buffer, error) {
		if size <= 0 {
			size = 1
		}

		b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
		if err != nil {
			return nil, fmt.Errorf("%w: directbuf: mmap %d bytes: %w", afcore.ErrIo, size, err)
		}

		return &mmapBuffer{b: b}, nil
	}
}

type mmapBuffer struct {
	b []byte
}

func (m *mmapBuffer) Bytes() []byte {
	return m.b
}

func (m *mmapBuffer) Release() error {
	if m.b == nil {
		return nil
	}

	err := unix.Munmap(m.b)
	m.b = nil

	if err != nil {
		return fmt.Errorf("%w: directbuf: munmap: %w", afcore.ErrIo, err)
	}

	return nil
}
