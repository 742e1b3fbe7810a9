// Package audiofile is the public surface of this library (spec.md §6): a
// synchronous AudioFile facade over the six container formats in
// internal/headerfmt, built on the shared internal/afcore types and the
// internal/bufhandler transcoding loop. This file re-exports the core
// types facade callers need so they never have to import internal/afcore
// directly.
package audiofile

import (
	"github.com/meko-audio/audiofile/internal/afcore"
	"github.com/meko-audio/audiofile/internal/sampleformat"

	// Registering the six format codecs is a side effect of importing
	// them; every facade user needs all six available, so the blank
	// imports live here rather than being left to each caller.
	_ "github.com/meko-audio/audiofile/internal/headerfmt/aiff"
	_ "github.com/meko-audio/audiofile/internal/headerfmt/ircam"
	_ "github.com/meko-audio/audiofile/internal/headerfmt/next"
	_ "github.com/meko-audio/audiofile/internal/headerfmt/raw"
	_ "github.com/meko-audio/audiofile/internal/headerfmt/wave"
	_ "github.com/meko-audio/audiofile/internal/headerfmt/wave64"
)

// FileType is the closed set of container formats this library recognizes.
type FileType = afcore.FileType

const (
	AIFF   = afcore.AIFF
	Wave   = afcore.Wave
	Wave64 = afcore.Wave64
	NeXT   = afcore.NeXT
	IRCAM  = afcore.IRCAM
	Raw    = afcore.Raw
)

// ByteOrder selects the byte order a multi-byte sample format is stored in.
type ByteOrder = afcore.ByteOrder

const (
	ByteOrderDefault = afcore.None
	BigEndian        = afcore.BigEndian
	LittleEndian     = afcore.LittleEndian
)

// SampleFormat is the closed set of on-disk sample encodings.
type SampleFormat = sampleformat.Format

const (
	UInt8   = sampleformat.UInt8
	Int8    = sampleformat.Int8
	Int16   = sampleformat.Int16
	Int24   = sampleformat.Int24
	Int32   = sampleformat.Int32
	Float32 = sampleformat.Float32
	Float64 = sampleformat.Float64
)

// Spec describes an audio stream's shape: container format, sample
// encoding, channel count, rate, byte order, and (for readers) frame count.
type Spec = afcore.Spec

// Frames is a de-interleaved, channel-major audio plane.
type Frames = afcore.Frames

// Error kinds (spec.md §7). Every error this package returns wraps exactly
// one of these.
var (
	ErrUnrecognizedFormat     = afcore.ErrUnrecognizedFormat
	ErrMalformedHeader        = afcore.ErrMalformedHeader
	ErrUnsupportedFormat      = afcore.ErrUnsupportedFormat
	ErrUnsupportedOperation   = afcore.ErrUnsupportedOperation
	ErrEndOfFile              = afcore.ErrEndOfFile
	ErrInvalidArgument        = afcore.ErrInvalidArgument
	ErrConcurrentModification = afcore.ErrConcurrentModification
	ErrConcurrentAccess       = afcore.ErrConcurrentAccess
	ErrIo                     = afcore.ErrIo
)

// Buffer allocates a Frames plane with numChannels rows of 8192 samples
// each, the default bufFrames spec.md §6 names for AudioFile.buffer.
func Buffer(numChannels int) Frames {
	return afcore.NewFrames(numChannels, 8192)
}

// BufferSized allocates a Frames plane with numChannels rows of bufFrames
// samples each.
func BufferSized(numChannels, bufFrames int) Frames {
	return afcore.NewFrames(numChannels, bufFrames)
}
