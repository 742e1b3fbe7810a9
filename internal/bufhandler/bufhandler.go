// Package bufhandler implements the inner loop that moves audio frames
// between the application-facing de-interleaved float64 plane
// (afcore.Frames) and on-disk interleaved samples, via a bounded reusable
// byte buffer (spec.md §4.2, C3). One Handler instance is constructed per
// (sample format, byte order) pair and is owned exclusively by a single
// facade — the buffer is never shared across facades (spec.md §5).
package bufhandler

import (
	"fmt"
	"io"

	"github.com/meko-audio/audiofile/internal/afcore"
)

// Buffer is an owned byte-slice allocation. Release must be called exactly
// once when the Handler is done with it; for a heap allocation this is a
// no-op, for a direct (mmap) allocation it unmaps the region (spec.md §6,
// internal/directbuf).
type Buffer interface {
	Bytes() []byte
	Release() error
}

// Allocator constructs a Buffer of exactly size bytes.
type Allocator func(size int) (Buffer, error)

// Handler is a buffer handler: the cross product of {read, write, bidi} ×
// {sample format} × {endianness} collapses to this one generic type
// parameterized by a SampleCodec, per Design Note 9.
type Handler struct {
	codec       SampleCodec
	numChannels int
	frameSize   int
	bufFrames   int
	buf         Buffer
}

// New constructs a Handler for numChannels channels of codec-encoded
// samples, with a scratch buffer of bufFrames * frameSize bytes, where
// bufFrames = max(1, 65536/frameSize) per spec.md §4.2, obtained from alloc.
func New(codec SampleCodec, numChannels int, alloc Allocator) (*Handler, error) {
	if numChannels < 1 {
		return nil, fmt.Errorf("%w: numChannels must be >= 1, got %d", afcore.ErrInvalidArgument, numChannels)
	}

	frameSize := codec.BytesPerSample() * numChannels

	bufFrames := 65536 / frameSize
	if bufFrames < 1 {
		bufFrames = 1
	}

	buf, err := alloc(bufFrames * frameSize)
	if err != nil {
		return nil, err
	}

	return &Handler{
		codec:       codec,
		numChannels: numChannels,
		frameSize:   frameSize,
		bufFrames:   bufFrames,
		buf:         buf,
	}, nil
}

// Close releases the handler's scratch buffer.
func (h *Handler) Close() error {
	return h.buf.Release()
}

// FrameSize returns ceil(bitsPerSample/8) * numChannels for this handler.
func (h *Handler) FrameSize() int {
	return h.frameSize
}

// Read fills frames[c][off:off+length] for each non-absent channel row c,
// reading length*FrameSize() bytes from r in chunks of at most bufFrames
// frames. It fails with ErrEndOfFile if r yields fewer bytes than
// requested.
func (h *Handler) Read(r io.Reader, frames afcore.Frames, off, length int) error {
	if off < 0 || length < 0 {
		return fmt.Errorf("%w: negative offset or length", afcore.ErrInvalidArgument)
	}

	pos := off
	remaining := length
	bps := h.codec.BytesPerSample()

	for remaining > 0 {
		chunk := remaining
		if chunk > h.bufFrames {
			chunk = h.bufFrames
		}

		window := h.buf.Bytes()[:chunk*h.frameSize]
		if _, err := io.ReadFull(r, window); err != nil {
			return wrapReadErr(err)
		}

		for i := 0; i < chunk; i++ {
			base := i * h.frameSize

			for c := 0; c < h.numChannels; c++ {
				sample := window[base+c*bps : base+(c+1)*bps]
				if c < len(frames) && frames[c] != nil {
					frames[c][pos+i] = h.codec.Decode(sample)
				}
			}
		}

		pos += chunk
		remaining -= chunk
	}

	return nil
}

// Write encodes frames[c][off:off+length] for every channel c and writes
// length*FrameSize() interleaved bytes to w in chunks of at most bufFrames
// frames. Every channel in range [0, numChannels) must have a non-absent
// row; a null row surfaces ErrInvalidArgument (spec.md §4.2).
func (h *Handler) Write(w io.Writer, frames afcore.Frames, off, length int) error {
	if off < 0 || length < 0 {
		return fmt.Errorf("%w: negative offset or length", afcore.ErrInvalidArgument)
	}

	if len(frames) < h.numChannels {
		return fmt.Errorf("%w: frames has %d channels, handler needs %d", afcore.ErrInvalidArgument, len(frames), h.numChannels)
	}

	for c := 0; c < h.numChannels; c++ {
		if frames[c] == nil {
			return fmt.Errorf("%w: channel %d row is nil", afcore.ErrInvalidArgument, c)
		}
	}

	pos := off
	remaining := length
	bps := h.codec.BytesPerSample()

	for remaining > 0 {
		chunk := remaining
		if chunk > h.bufFrames {
			chunk = h.bufFrames
		}

		window := h.buf.Bytes()[:chunk*h.frameSize]

		for i := 0; i < chunk; i++ {
			base := i * h.frameSize

			for c := 0; c < h.numChannels; c++ {
				h.codec.Encode(frames[c][pos+i], window[base+c*bps:base+(c+1)*bps])
			}
		}

		if _, err := w.Write(window); err != nil {
			return fmt.Errorf("%w: %w", afcore.ErrIo, err)
		}

		pos += chunk
		remaining -= chunk
	}

	return nil
}

func wrapReadErr(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return fmt.Errorf("%w: %w", afcore.ErrEndOfFile, err)
	}

	return fmt.Errorf("%w: %w", afcore.ErrIo, err)
}
