// Package ircam implements the IRCAM/BICSF sound file format (spec.md
// §4.1): a fixed 1024-byte header whose leading 4-byte magic number
// simultaneously identifies the format and selects which byte order the
// rest of the header (and the sample data that follows it) is encoded in.
// Sample data always begins at the fixed offset 1024, and this format
// carries no length field of its own — NumFrames is derived from the
// backing store's total size where the caller can report one, and left 0
// otherwise (spec.md §4.1 IRCAM note).
package ircam

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

const headerLen = 1024

// The four magic numbers real IRCAM/BICSF files use: two equivalent
// big-endian variants (from different historical header-version bumps) and
// their byte-swapped little-endian counterparts.
const (
	magicBE1 = 0x0001A364
	magicBE2 = 0x0002A364
	magicLE1 = 0x64A30100
	magicLE2 = 0x64A30200
)

// BICSF encoding codes (spec.md §4.3.4). These are not a small dense
// enumeration: the i8/i24/i32 codes carry a 0x40000 high bit, so they land
// far from i16's code 1 and f32's code 2.
const (
	encodingLinear16 = 0x1
	encodingFloat32  = 0x2
	encodingLinear32 = 0x40003
	encodingLinear8  = 0x40004
	encodingLinear24 = 0x40006
)

type codec struct{}

func (codec) FileType() afcore.FileType { return afcore.IRCAM }

func (codec) Capabilities() afcore.Capabilities {
	return afcore.Capabilities{CanIdentify: true, CanRead: true, CanWrite: true}
}

func magicOrder(magic uint32) (afcore.ByteOrder, bool) {
	switch magic {
	case magicBE1, magicBE2:
		return afcore.BigEndian, true
	case magicLE1, magicLE2:
		return afcore.LittleEndian, true
	default:
		return afcore.None, false
	}
}

func (codec) Identify(peek []byte) bool {
	if len(peek) < 4 {
		return false
	}

	_, ok := magicOrder(binary.BigEndian.Uint32(peek[0:4]))

	return ok
}

type header struct {
	spec             afcore.Spec
	sampleDataOffset int64
}

func (h *header) Spec() afcore.Spec       { return h.spec }
func (h *header) SampleDataOffset() int64 { return h.sampleDataOffset }

// NumFramesUnknown is always true: IRCAM carries no frame-count field at
// all, so the facade must derive it from the backing store's size.
func (h *header) NumFramesUnknown() bool { return true }

func (codec) Parse(r io.Reader, _ *afcore.Spec) (afcore.Header, error) {
	var buf [headerLen]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, fmt.Errorf("%w: reading IRCAM header: %w", afcore.ErrMalformedHeader, err)
	}

	order, ok := magicOrder(binary.BigEndian.Uint32(buf[0:4]))
	if !ok {
		return nil, fmt.Errorf("%w: unrecognized IRCAM magic", afcore.ErrMalformedHeader)
	}

	bo := byteOrderOf(order)

	sampleRate := bo.Uint32(buf[4:8]) // stored as a 32-bit float bit pattern
	numChannels := bo.Uint32(buf[8:12])
	encoding := bo.Uint32(buf[12:16])

	sf, err := sampleFormatFor(encoding)
	if err != nil {
		return nil, err
	}

	spec := afcore.Spec{
		FileType:     afcore.IRCAM,
		SampleFormat: sf,
		NumChannels:  int(numChannels),
		SampleRate:   float64(math.Float32frombits(sampleRate)),
		ByteOrder:    order,
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}

	return &header{spec: spec, sampleDataOffset: headerLen}, nil
}

func byteOrderOf(o afcore.ByteOrder) binary.ByteOrder {
	if o == afcore.LittleEndian {
		return binary.LittleEndian
	}

	return binary.BigEndian
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
	default:
		return 0, fmt.Errorf("%w: IRCAM encoding %#x", afcore.ErrUnsupportedFormat, encoding)
	}
}

// encodingFor has no case for Float64: BICSF's encoding table has no
// double-precision code.
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
	default:
		return 0, fmt.Errorf("%w: IRCAM cannot encode %v", afcore.ErrUnsupportedFormat, sf)
	}
}

// Emit writes the big-endian magic variant unless spec.ByteOrder is
// LittleEndian, in which case it selects the byte-swapped magic and encodes
// the header fields little-endian.
func (codec) Emit(w io.Writer, spec afcore.Spec) (afcore.Writable, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	encoding, err := encodingFor(spec.SampleFormat)
	if err != nil {
		return nil, err
	}

	order := spec.ByteOrder
	if order == afcore.None {
		order = afcore.BigEndian
	}

	magic := uint32(magicBE1)
	if order == afcore.LittleEndian {
		magic = magicLE1
	}

	bo := byteOrderOf(order)

	var buf [headerLen]byte
	binary.BigEndian.PutUint32(buf[0:4], magic) // magic itself always stored big-endian for identification
	bo.PutUint32(buf[4:8], math.Float32bits(float32(spec.SampleRate)))
	bo.PutUint32(buf[8:12], uint32(spec.NumChannels))
	bo.PutUint32(buf[12:16], encoding)

	if _, err := w.Write(buf[:]); err != nil {
		return nil, fmt.Errorf("%w: writing IRCAM header: %w", afcore.ErrIo, err)
	}

	spec.ByteOrder = order

	return &header{spec: spec, sampleDataOffset: headerLen}, nil
}

// Patches is empty: IRCAM carries no length field to back-patch. A reader
// derives NumFrames from the backing store's size (spec.md §4.1); a writer
// leaves that to whatever can observe the final file size after close.
func (h *header) Patches(int64) []afcore.Patch {
	return nil
}
