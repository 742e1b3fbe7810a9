package afcore

import "errors"

// Error kinds from spec.md §7. Every error this library returns wraps
// exactly one of these via fmt.Errorf("%w: ...", Err...) so callers can
// discriminate with errors.Is.
var (
	// ErrUnrecognizedFormat means no registered identifier matched the input.
	ErrUnrecognizedFormat = errors.New("audiofile: unrecognized format")

	// ErrMalformedHeader means the header parsed partway then failed: magic
	// mismatch mid-parse, a chunk ran past its container, a required chunk
	// was absent, or a reserved field held an illegal value.
	ErrMalformedHeader = errors.New("audiofile: malformed header")

	// ErrUnsupportedFormat means the header parsed cleanly but names a
	// sample encoding, byte order, or compression tag this library does not
	// implement.
	ErrUnsupportedFormat = errors.New("audiofile: unsupported format")

	// ErrUnsupportedOperation means the operation is not valid for the
	// facade's current open mode or backing store (seek/flush/write on a
	// reader, read on a writer, seek on a stream).
	ErrUnsupportedOperation = errors.New("audiofile: unsupported operation")

	// ErrEndOfFile means the backing store ran out of bytes mid-sample.
	ErrEndOfFile = errors.New("audiofile: unexpected end of file")

	// ErrInvalidArgument means a bad offset, a negative length, or (on
	// write) a required channel row was null.
	ErrInvalidArgument = errors.New("audiofile: invalid argument")

	// ErrConcurrentModification means an async writer's numFrames watermark
	// changed out from under an in-flight header update.
	ErrConcurrentModification = errors.New("audiofile: concurrent modification")

	// ErrConcurrentAccess means a caller issued a new async operation while
	// one was already in flight on the same facade.
	ErrConcurrentAccess = errors.New("audiofile: concurrent access")

	// ErrIo wraps errors propagated verbatim from the backing store. Most
	// I/O errors from the standard library already carry their own
	// meaningful sentinel (io.EOF, fs.ErrNotExist, ...); this exists for
	// call sites that need a library-wide umbrella for errors.Is.
	ErrIo = errors.New("audiofile: i/o error")
)
