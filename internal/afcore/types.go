package afcore

import (
	"fmt"

	"github.com/meko-audio/audiofile/internal/sampleformat"
)

// ByteOrder selects the byte order a format uses to lay out multi-byte
// samples. Order is a tri-state: a caller may explicitly request an order a
// format supports more than one of (AIFF-C/sowt, WAV with a non-default
// encoder), or leave it None to mean "whatever this format's writer treats
// as its default."
type ByteOrder int

const (
	None ByteOrder = iota
	BigEndian
	LittleEndian
)

func (b ByteOrder) String() string {
	switch b {
	case BigEndian:
		return "BigEndian"
	case LittleEndian:
		return "LittleEndian"
	default:
		return "None"
	}
}

// FileType is a closed variant set of the container formats this library
// recognizes.
type FileType int

const (
	AIFF FileType = iota
	Wave
	Wave64
	NeXT
	IRCAM
	Raw
)

func (t FileType) String() string {
	switch t {
	case AIFF:
		return "AIFF"
	case Wave:
		return "Wave"
	case Wave64:
		return "Wave64"
	case NeXT:
		return "NeXT"
	case IRCAM:
		return "IRCAM"
	case Raw:
		return "Raw"
	default:
		return fmt.Sprintf("FileType(%d)", int(t))
	}
}

// Capabilities records what a registered codec can do. A format with
// CanIdentify=false (Raw) is never matched by the file-type identifier and
// must be opened by explicitly naming the type.
type Capabilities struct {
	CanIdentify bool
	CanRead     bool
	CanWrite    bool
}

// Spec is an immutable description of an audio stream's shape: its
// container format, sample encoding, channel count, rate, and (for readers)
// authoritative frame count.
type Spec struct {
	FileType     FileType
	SampleFormat sampleformat.Format
	NumChannels  int
	SampleRate   float64
	ByteOrder    ByteOrder
	NumFrames    int64

	// ChannelMask is WAV-specific: the WAVE_FORMAT_EXTENSIBLE speaker
	// assignment bitmask. Left 0 unless the caller sets it explicitly
	// (spec.md §9 open question: the format default is not populated).
	ChannelMask uint32
}

// FrameSize returns ceil(bitsPerSample/8) * numChannels, the invariant from
// spec.md §3.
func (s Spec) FrameSize() int {
	return sampleformat.FrameSize(s.SampleFormat, s.NumChannels)
}

// Validate checks the invariants spec.md §3 requires of every spec, whether
// supplied by a caller (openWrite, Raw) or produced by a header parser.
func (s Spec) Validate() error {
	if s.NumChannels < 1 {
		return fmt.Errorf("%w: numChannels must be >= 1, got %d", ErrInvalidArgument, s.NumChannels)
	}

	if s.SampleRate <= 0 {
		return fmt.Errorf("%w: sampleRate must be > 0, got %v", ErrInvalidArgument, s.SampleRate)
	}

	if !s.SampleFormat.Valid() {
		return fmt.Errorf("%w: invalid sample format %v", ErrInvalidArgument, s.SampleFormat)
	}

	if s.NumFrames < 0 {
		return fmt.Errorf("%w: numFrames must be >= 0, got %d", ErrInvalidArgument, s.NumFrames)
	}

	return nil
}
