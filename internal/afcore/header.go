package afcore

import (
	"fmt"
	"io"
)

// Header is what every parsed or emitted file header exposes: its spec, and
// the byte offset at which interleaved sample data begins.
type Header interface {
	Spec() Spec
	SampleDataOffset() int64
}

// Patch is one absolute-offset, pre-encoded rewrite a writable header needs
// applied once the final frame count is known. Bytes is a closure rather
// than a raw value so a single Patch can be recomputed if numFrames changes
// again before it is applied (the async facade's watermark race, spec.md
// §4.5). This is Design Note 9's "(absoluteOffset, width, fn: numFrames →
// value)" tuple, generalized to carry its own encoding.
type Patch struct {
	// Offset is the absolute byte offset from the start of the file.
	Offset int64
	// Bytes returns the encoded field value for the given frame count. Its
	// length is fixed across calls for a given Patch (4 bytes for a 32-bit
	// length field, 8 for a 64-bit one).
	Bytes func(numFrames int64) []byte
}

// LengthDerivable is implemented by headers whose format carries no
// authoritative frame count of its own (IRCAM) or can encode an explicit
// "unknown length" sentinel (NeXT's dataSize == 0xFFFFFFFF). When
// NumFramesUnknown reports true, the facade that owns a seekable backing
// store recomputes Spec.NumFrames from the store's total size rather than
// trusting the header's (possibly zero) value, per spec.md §8 scenario 4.
type LengthDerivable interface {
	NumFramesUnknown() bool
}

// Writable is a Header whose payload-length field(s) can be rewritten in
// place once the final frame count is known. Patches returns the full list
// of rewrites needed for numFrames; it does not perform any I/O itself, so
// both the synchronous facade (ApplyPatches, below) and the asynchronous
// facade (which must enqueue each patch as its own positioned write,
// spec.md §4.5) can drive it.
type Writable interface {
	Header
	Patches(numFrames int64) []Patch
}

// ApplyPatches writes every patch for numFrames to w at its absolute offset.
// It is the synchronous half of the back-patch protocol; flush() and
// close() on the sync facade (C6) call it directly.
func ApplyPatches(w io.WriterAt, numFrames int64, patches []Patch) error {
	for _, p := range patches {
		b := p.Bytes(numFrames)
		if _, err := w.WriteAt(b, p.Offset); err != nil {
			return fmt.Errorf("%w: back-patch at offset %d: %w", ErrIo, p.Offset, err)
		}
	}

	return nil
}
