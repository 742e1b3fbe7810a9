package audiofile

import (
	"fmt"
	"io"

	"github.com/meko-audio/audiofile/internal/afcore"
)

// Identify peeks at source's leading bytes and reports which registered
// format, if any, they match. For a seekable source the stream position is
// restored afterward regardless of outcome (spec.md §8's "identify is
// non-destructive" property); for a non-seekable source, bytes consumed
// during the probe are not replayable by this convenience function — use
// OpenRead directly, which reuses the same buffered reader for all
// subsequent I/O instead of discarding it.
func Identify(source io.Reader) (FileType, bool, error) {
	seeker, seekable := source.(io.Seeker)

	var start int64

	if seekable {
		s, err := seeker.Seek(0, io.SeekCurrent)
		if err != nil {
			return 0, false, fmt.Errorf("%w: saving position before identify: %w", ErrIo, err)
		}

		start = s
	}

	ft, found, _, err := afcore.Identify(source)

	if seekable {
		if _, serr := seeker.Seek(start, io.SeekStart); serr != nil && err == nil {
			err = fmt.Errorf("%w: restoring position after identify: %w", ErrIo, serr)
		}
	}

	return ft, found, err
}

// ReadSpec identifies and parses source's header, returning its Spec
// without constructing a readable facade. Like Identify, it restores the
// stream position on a seekable source.
func ReadSpec(source io.Reader) (Spec, error) {
	seeker, seekable := source.(io.Seeker)

	var start int64

	if seekable {
		s, err := seeker.Seek(0, io.SeekCurrent)
		if err != nil {
			return Spec{}, fmt.Errorf("%w: saving position before readSpec: %w", ErrIo, err)
		}

		start = s
	}

	spec, _, err := parseHeader(source, seeker, seekable, nil)

	if seekable {
		if _, serr := seeker.Seek(start, io.SeekStart); serr != nil && err == nil {
			err = fmt.Errorf("%w: restoring position after readSpec: %w", ErrIo, serr)
		}
	}

	if err != nil {
		return Spec{}, err
	}

	return spec, nil
}

// parseHeader runs Identify + the matching codec's Parse, and — for a
// seekable source whose header reports an unknown frame count (NeXT's
// dataSize sentinel, or IRCAM which never carries one) — derives NumFrames
// from the store's actual size (spec.md §8 scenario 4). It returns the
// resolved spec and the parsed afcore.Header so OpenRead can reuse the
// latter without parsing twice.
func parseHeader(source io.Reader, seeker io.Seeker, seekable bool, userSpec *afcore.Spec) (Spec, afcore.Header, error) {
	ft, found, br, err := afcore.Identify(source)
	if err != nil {
		return Spec{}, nil, err
	}

	if !found {
		return Spec{}, nil, afcore.ErrUnrecognizedFormat
	}

	codec, err := afcore.ForRead(ft)
	if err != nil {
		return Spec{}, nil, err
	}

	header, err := codec.Parse(br, userSpec)
	if err != nil {
		return Spec{}, nil, err
	}

	spec := header.Spec()

	if ld, ok := header.(afcore.LengthDerivable); ok && ld.NumFramesUnknown() && seekable {
		size, err := seeker.Seek(0, io.SeekEnd)
		if err != nil {
			return Spec{}, nil, fmt.Errorf("%w: measuring stream size: %w", ErrIo, err)
		}

		frameSize := int64(spec.FrameSize())
		if frameSize > 0 {
			spec.NumFrames = (size - header.SampleDataOffset()) / frameSize
		}

		if _, err := seeker.Seek(header.SampleDataOffset(), io.SeekStart); err != nil {
			return Spec{}, nil, fmt.Errorf("%w: repositioning after size probe: %w", ErrIo, err)
		}
	}

	return spec, header, nil
}
