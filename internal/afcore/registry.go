package afcore

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
)

// PeekSize is the number of leading bytes the identifier probes, per
// spec.md §4.3.6 ("buffer size >= 1024").
const PeekSize = 1024

var registry []Codec

// Register adds a codec to the registry in call order. Identify consults
// codecs in registration order and returns the first match, so registration
// order matters when two formats could both plausibly claim an ambiguous
// prefix (none do among the six formats this library recognizes, but the
// contract is preserved for extension).
func Register(c Codec) {
	registry = append(registry, c)
}

// Lookup returns the registered codec for t, or nil if none is registered.
func Lookup(t FileType) Codec {
	for _, c := range registry {
		if c.FileType() == t {
			return c
		}
	}

	return nil
}

// Identify peeks at up to PeekSize leading bytes of r via a *bufio.Reader
// (constructing one if r is not already a *bufio.Reader) and tries each
// registered identifiable codec in turn. Because Peek never advances the
// read position, this call — and the *bufio.Reader it returns — leaves the
// stream exactly where a caller who never called Identify would find it;
// the returned reader must be used for any subsequent Parse so the peeked
// bytes are not lost for non-seekable streams.
func Identify(r io.Reader) (FileType, bool, *bufio.Reader, error) {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReaderSize(r, PeekSize)
	}

	peek, err := br.Peek(PeekSize)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		// A real I/O error probing the stream is not attributable to any
		// one identifier; treat it as a failed probe rather than
		// propagating a confusing per-format error, matching the "treated
		// as non-match" spirit of spec.md §4.3.6.
		slog.Debug("audiofile: identify probe failed", "error", err)

		return 0, false, br, nil
	}

	for _, c := range registry {
		if !c.Capabilities().CanIdentify {
			continue
		}

		if c.Identify(peek) {
			return c.FileType(), true, br, nil
		}
	}

	return 0, false, br, nil
}

// ForRead returns the registered codec for t if it can read, else an error
// wrapping ErrUnsupportedOperation.
func ForRead(t FileType) (Codec, error) {
	c := Lookup(t)
	if c == nil || !c.Capabilities().CanRead {
		return nil, fmt.Errorf("%w: %s cannot be read", ErrUnsupportedOperation, t)
	}

	return c, nil
}

// ForWrite returns the registered codec for t if it can write, else an
// error wrapping ErrUnsupportedOperation.
func ForWrite(t FileType) (Codec, error) {
	c := Lookup(t)
	if c == nil || !c.Capabilities().CanWrite {
		return nil, fmt.Errorf("%w: %s cannot be written", ErrUnsupportedOperation, t)
	}

	return c, nil
}
