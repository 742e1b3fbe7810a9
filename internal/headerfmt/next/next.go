// Package next implements the NeXT/Sun ".snd"/AU container (spec.md §4.1):
// a fixed 24-byte big-endian header with no chunk structure at all, the
// simplest of the six formats this library recognizes. dataSize may be the
// sentinel 0xFFFFFFFF ("unknown," historically used for streamed audio);
// on read Parse then leaves Spec.NumFrames at 0 and the header reports
// NumFramesUnknown, so a facade with a seekable backing store derives the
// frame count from the store's size instead.
package next

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/meko-audio/audiofile/internal/afcore"
	"github.com/meko-audio/audiofile/internal/sampleformat"
)

func init() {
	afcore.Register(codec{})
}

const magic = ".snd"

const unknownDataSize = 0xFFFFFFFF

const (
	encodingLinear8  = 2
	encodingLinear16 = 3
	encodingLinear24 = 4
	encodingLinear32 = 5
	encodingFloat32  = 6
	encodingFloat64  = 7
)

const headerLen = 24

// writeDataOffset is the dataOffset this codec emits: the fixed 24-byte
// header plus one zero 32-bit info-string word, the minimum info-string
// padding spec.md §4.3.1 requires on creation.
const writeDataOffset = headerLen + 4

type codec struct{}

func (codec) FileType() afcore.FileType { return afcore.NeXT }

func (codec) Capabilities() afcore.Capabilities {
	return afcore.Capabilities{CanIdentify: true, CanRead: true, CanWrite: true}
}

func (codec) Identify(peek []byte) bool {
	return len(peek) >= 4 && string(peek[0:4]) == magic
}

type header struct {
	spec             afcore.Spec
	sampleDataOffset int64
	dataSizeKnown    bool
}

func (h *header) Spec() afcore.Spec       { return h.spec }
func (h *header) SampleDataOffset() int64 { return h.sampleDataOffset }

// NumFramesUnknown reports true when this header was parsed from a dataSize
// sentinel (0xFFFFFFFF): the facade should derive NumFrames from the
// backing store's actual size instead (spec.md §8 scenario 4).
func (h *header) NumFramesUnknown() bool { return !h.dataSizeKnown }

func (codec) Parse(r io.Reader, _ *afcore.Spec) (afcore.Header, error) {
	var buf [headerLen]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, fmt.Errorf("%w: reading NeXT header: %w", afcore.ErrMalformedHeader, err)
	}

	if string(buf[0:4]) != magic {
		return nil, fmt.Errorf("%w: missing .snd magic", afcore.ErrMalformedHeader)
	}

	dataOffset := binary.BigEndian.Uint32(buf[4:8])
	dataSize := binary.BigEndian.Uint32(buf[8:12])
	encoding := binary.BigEndian.Uint32(buf[12:16])
	sampleRate := binary.BigEndian.Uint32(buf[16:20])
	numChannels := binary.BigEndian.Uint32(buf[20:24])

	if dataOffset < headerLen {
		return nil, fmt.Errorf("%w: dataOffset %d precedes fixed header", afcore.ErrMalformedHeader, dataOffset)
	}

	sf, err := sampleFormatFor(encoding)
	if err != nil {
		return nil, err
	}

	spec := afcore.Spec{
		FileType:     afcore.NeXT,
		SampleFormat: sf,
		NumChannels:  int(numChannels),
		SampleRate:   float64(sampleRate),
		ByteOrder:    afcore.BigEndian,
	}

	known := dataSize != unknownDataSize
	if known {
		frameSize := int64(spec.FrameSize())
		if frameSize > 0 {
			spec.NumFrames = int64(dataSize) / frameSize
		}
	}

	if extra := int64(dataOffset) - headerLen; extra > 0 {
		if _, err := io.CopyN(io.Discard, r, extra); err != nil {
			return nil, fmt.Errorf("%w: skipping info string: %w", afcore.ErrMalformedHeader, err)
		}
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}

	return &header{spec: spec, sampleDataOffset: int64(dataOffset), dataSizeKnown: known}, nil
}

func sampleFormatFor(encoding uint32) (sampleformat.Format, error) {
	switch encoding {
	case encodingLinear8:
		return sampleformat.Int8, nil
	case encodingLinear16:
		return sampleformat.Int16, nil
	case encodingLinear24:
		return sampleformat.Int24, nil
	case encodingLinear32:
		return sampleformat.Int32, nil
	case encodingFloat32:
		return sampleformat.Float32, nil
	case encodingFloat64:
		return sampleformat.Float64, nil
	default:
		return 0, fmt.Errorf("%w: NeXT encoding %d", afcore.ErrUnsupportedFormat, encoding)
	}
}

func encodingFor(sf sampleformat.Format) (uint32, error) {
	switch sf {
	case sampleformat.Int8:
		return encodingLinear8, nil
	case sampleformat.Int16:
		return encodingLinear16, nil
	case sampleformat.Int24:
		return encodingLinear24, nil
	case sampleformat.Int32:
		return encodingLinear32, nil
	case sampleformat.Float32:
		return encodingFloat32, nil
	case sampleformat.Float64:
		return encodingFloat64, nil
	default:
		return 0, fmt.Errorf("%w: NeXT cannot encode %v", afcore.ErrUnsupportedFormat, sf)
	}
}

func (codec) Emit(w io.Writer, spec afcore.Spec) (afcore.Writable, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	spec.ByteOrder = afcore.BigEndian

	encoding, err := encodingFor(spec.SampleFormat)
	if err != nil {
		return nil, err
	}

	var buf [writeDataOffset]byte
	copy(buf[0:4], magic)
	binary.BigEndian.PutUint32(buf[4:8], writeDataOffset)
	binary.BigEndian.PutUint32(buf[8:12], unknownDataSize) // back-patched below
	binary.BigEndian.PutUint32(buf[12:16], encoding)
	binary.BigEndian.PutUint32(buf[16:20], uint32(math.Floor(spec.SampleRate+0.5)))
	binary.BigEndian.PutUint32(buf[20:24], uint32(spec.NumChannels))
	// buf[24:28] stays zero: the one-word info string spec.md §4.3.1 requires.

	if _, err := w.Write(buf[:]); err != nil {
		return nil, fmt.Errorf("%w: writing NeXT header: %w", afcore.ErrIo, err)
	}

	return &header{spec: spec, sampleDataOffset: writeDataOffset, dataSizeKnown: true}, nil
}

func (h *header) Patches(int64) []afcore.Patch {
	frameSize := int64(h.spec.FrameSize())

	return []afcore.Patch{
		{
			Offset: 8,
			Bytes: func(nf int64) []byte {
				var b [4]byte
				binary.BigEndian.PutUint32(b[:], uint32(nf*frameSize))

				return b[:]
			},
		},
	}
}
