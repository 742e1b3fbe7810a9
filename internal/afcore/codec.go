package afcore

import "io"

// Codec bundles the three capability traits a header format may implement
// (spec.md §4.3, Design Note 9's "capability-trait set"). A format that
// cannot be identified from its bytes (Raw) simply returns false from
// CanIdentify() and is never consulted by Identify.
type Codec interface {
	FileType() FileType
	Capabilities() Capabilities

	// Identify reports whether peek — the first N bytes of the stream
	// (N >= 1024 when available, fewer at end of a short file) — matches
	// this format's magic. It must not be called if Capabilities().CanIdentify
	// is false.
	Identify(peek []byte) bool

	// Parse consumes a header from r, which is already positioned at the
	// start of the stream, and returns a Header positioned (in the sense
	// that SampleDataOffset reports) for sample I/O to begin. userSpec is
	// non-nil only for Raw, which has no header of its own to parse and
	// instead trusts the caller-supplied spec outright.
	Parse(r io.Reader, userSpec *Spec) (Header, error)

	// Emit writes an initial header for spec to w and returns a Writable
	// handle capable of back-patching its length field(s) later.
	Emit(w io.Writer, spec Spec) (Writable, error)
}
