// Package aiff implements the AIFF and AIFF-C container format (spec.md
// §4.1), adapted from internal/aiff/parser.go: the chunked FORM/COMM/SSND
// structure and the 80-bit extended-float sample-rate field are unchanged
// in shape, but this version writes as well as reads, and recognizes the
// sowt/fl32/fl64/twos compression tags AIFF-C uses to carry non-default
// byte orders and floating-point samples instead of rejecting them.
package aiff

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/meko-audio/audiofile/internal/afcore"
	"github.com/meko-audio/audiofile/internal/bytecodec"
	"github.com/meko-audio/audiofile/internal/sampleformat"
)

func init() {
	afcore.Register(codec{})
}

type codec struct{}

func (codec) FileType() afcore.FileType { return afcore.AIFF }

func (codec) Capabilities() afcore.Capabilities {
	return afcore.Capabilities{CanIdentify: true, CanRead: true, CanWrite: true}
}

// Identify matches the 12-byte FORM/AIFF or FORM/AIFC signature.
func (codec) Identify(peek []byte) bool {
	if len(peek) < 12 {
		return false
	}

	if string(peek[0:4]) != "FORM" {
		return false
	}

	formType := string(peek[8:12])

	return formType == "AIFF" || formType == "AIFC"
}

// compression tags this codec recognizes in a COMM chunk's extension, and
// the (SampleFormat, ByteOrder) they carry.
const (
	comprNone = "NONE"
	comprLow  = "none"
	comprSowt = "sowt"
	comprFl32 = "fl32"
	comprFl64 = "fl64"
	comprTwos = "twos"
)

// compressionNameFor returns the human-readable compression name AIFC's
// COMM extension carries as a Pascal string alongside the 4-byte code
// (spec.md §4.3.2); third-party AIFC readers may expect this field even
// though this package's own reader ignores it.
func compressionNameFor(compr string) string {
	switch compr {
	case comprNone, comprTwos:
		return "not compressed"
	case comprSowt:
		return "little-endian"
	case comprFl32:
		return "IEEE 32-bit float"
	case comprFl64:
		return "IEEE 64-bit float"
	default:
		return ""
	}
}

// pascalString encodes s as a one-byte length prefix followed by its bytes,
// padded with a zero byte to keep the field's total length even.
func pascalString(s string) []byte {
	out := make([]byte, 1+len(s))
	out[0] = byte(len(s))
	copy(out[1:], s)

	if len(out)%2 != 0 {
		out = append(out, 0)
	}

	return out
}

type header struct {
	spec             afcore.Spec
	sampleDataOffset int64
}

func (h *header) Spec() afcore.Spec        { return h.spec }
func (h *header) SampleDataOffset() int64  { return h.sampleDataOffset }

// Parse reads a FORM/AIFF(-C) container from r, which must be positioned at
// the start of the stream.
func (codec) Parse(r io.Reader, _ *afcore.Spec) (afcore.Header, error) {
	var formHeader [12]byte
	if _, err := io.ReadFull(r, formHeader[:]); err != nil {
		return nil, fmt.Errorf("%w: reading FORM header: %w", afcore.ErrMalformedHeader, err)
	}

	if string(formHeader[0:4]) != "FORM" {
		return nil, fmt.Errorf("%w: missing FORM signature", afcore.ErrMalformedHeader)
	}

	formType := string(formHeader[8:12])
	if formType != "AIFF" && formType != "AIFC" {
		return nil, fmt.Errorf("%w: FORM type %q is not AIFF or AIFC", afcore.ErrMalformedHeader, formType)
	}

	var (
		pos                            int64 = 12
		commFound, ssndFound           bool
		spec                           afcore.Spec
		sampleDataOffset               int64
	)

	spec.FileType = afcore.AIFF

	for !(commFound && ssndFound) {
		var chunkHeader [8]byte
		if _, err := io.ReadFull(r, chunkHeader[:]); err != nil {
			if err == io.EOF {
				break
			}

			return nil, fmt.Errorf("%w: reading chunk header: %w", afcore.ErrMalformedHeader, err)
		}

		pos += 8

		chunkID := string(chunkHeader[0:4])
		chunkSize := binary.BigEndian.Uint32(chunkHeader[4:8])
		paddedSize := int64(chunkSize)
		if paddedSize%2 != 0 {
			paddedSize++
		}

		switch chunkID {
		case "COMM":
			numChannels, numFrames, bitsPerSample, sampleRate, order, sf, err := parseCOMM(r, chunkSize, formType)
			if err != nil {
				return nil, err
			}

			spec.NumChannels = numChannels
			spec.NumFrames = numFrames
			spec.SampleRate = sampleRate
			spec.ByteOrder = order
			spec.SampleFormat = sf

			_ = bitsPerSample

			if chunkSize%2 != 0 {
				io.CopyN(io.Discard, r, 1) //nolint:errcheck
			}

			commFound = true
			pos += paddedSize

		case "SSND":
			if chunkSize < 8 {
				return nil, fmt.Errorf("%w: SSND chunk too small", afcore.ErrMalformedHeader)
			}

			var ssndHeader [8]byte
			if _, err := io.ReadFull(r, ssndHeader[:]); err != nil {
				return nil, fmt.Errorf("%w: reading SSND header: %w", afcore.ErrMalformedHeader, err)
			}

			offset := binary.BigEndian.Uint32(ssndHeader[0:4])
			sampleDataOffset = pos + 8 + int64(offset)

			remaining := paddedSize - 8 - int64(offset)
			if remaining > 0 {
				if _, err := io.CopyN(io.Discard, r, remaining); err != nil && err != io.EOF {
					return nil, fmt.Errorf("%w: skipping SSND payload: %w", afcore.ErrMalformedHeader, err)
				}
			}

			ssndFound = true
			pos += paddedSize

		default:
			if _, err := io.CopyN(io.Discard, r, paddedSize); err != nil {
				return nil, fmt.Errorf("%w: skipping chunk %q: %w", afcore.ErrMalformedHeader, chunkID, err)
			}

			pos += paddedSize
		}
	}

	if !commFound {
		return nil, fmt.Errorf("%w: missing COMM chunk", afcore.ErrMalformedHeader)
	}

	if !ssndFound {
		return nil, fmt.Errorf("%w: missing SSND chunk", afcore.ErrMalformedHeader)
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}

	return &header{spec: spec, sampleDataOffset: sampleDataOffset}, nil
}

func parseCOMM(r io.Reader, size uint32, formType string) (numChannels int, numFrames int64, bits int, rate float64, order afcore.ByteOrder, sf sampleformat.Format, err error) {
	if size < 18 {
		return 0, 0, 0, 0, 0, 0, fmt.Errorf("%w: COMM chunk too small", afcore.ErrMalformedHeader)
	}

	var comm [18]byte
	if _, rerr := io.ReadFull(r, comm[:]); rerr != nil {
		return 0, 0, 0, 0, 0, 0, fmt.Errorf("%w: reading COMM: %w", afcore.ErrMalformedHeader, rerr)
	}

	numChannels = int(binary.BigEndian.Uint16(comm[0:2]))
	numFrames = int64(binary.BigEndian.Uint32(comm[2:6]))
	bits = int(binary.BigEndian.Uint16(comm[6:8]))
	rate = bytecodec.DecodeExtended(comm[8:18])
	order = afcore.BigEndian

	compr := comprNone

	if formType == "AIFC" {
		if size <= 18 {
			return 0, 0, 0, 0, 0, 0, fmt.Errorf("%w: AIFC COMM missing compression type", afcore.ErrMalformedHeader)
		}

		rest := make([]byte, size-18)
		if _, rerr := io.ReadFull(r, rest); rerr != nil {
			return 0, 0, 0, 0, 0, 0, fmt.Errorf("%w: reading COMM compression extension: %w", afcore.ErrMalformedHeader, rerr)
		}

		if len(rest) < 4 {
			return 0, 0, 0, 0, 0, 0, fmt.Errorf("%w: AIFC compression tag truncated", afcore.ErrMalformedHeader)
		}

		compr = string(rest[0:4])
	} else if size > 18 {
		if _, rerr := io.CopyN(io.Discard, r, int64(size-18)); rerr != nil {
			return 0, 0, 0, 0, 0, 0, fmt.Errorf("%w: skipping COMM extension: %w", afcore.ErrMalformedHeader, rerr)
		}
	}

	switch compr {
	case comprNone, comprLow, comprTwos:
		order = afcore.BigEndian

		switch bits {
		case 8:
			sf = sampleformat.Int8
		case 16:
			sf = sampleformat.Int16
		case 24:
			sf = sampleformat.Int24
		case 32:
			sf = sampleformat.Int32
		default:
			return 0, 0, 0, 0, 0, 0, fmt.Errorf("%w: AIFF bit depth %d", afcore.ErrUnsupportedFormat, bits)
		}

	case comprSowt:
		order = afcore.LittleEndian

		switch bits {
		case 8:
			sf = sampleformat.Int8
		case 16:
			sf = sampleformat.Int16
		case 24:
			sf = sampleformat.Int24
		case 32:
			sf = sampleformat.Int32
		default:
			return 0, 0, 0, 0, 0, 0, fmt.Errorf("%w: AIFC sowt bit depth %d", afcore.ErrUnsupportedFormat, bits)
		}

	case comprFl32:
		order = afcore.BigEndian
		sf = sampleformat.Float32

	case comprFl64:
		order = afcore.BigEndian
		sf = sampleformat.Float64

	default:
		return 0, 0, 0, 0, 0, 0, fmt.Errorf("%w: AIFC compression %q", afcore.ErrUnsupportedFormat, compr)
	}

	return numChannels, numFrames, bits, rate, order, sf, nil
}

// Emit writes a FORM/AIFF(-C) header for spec and returns a handle that
// back-patches the FORM and SSND chunk sizes and the COMM frame count once
// the frame count is known.
func (codec) Emit(w io.Writer, spec afcore.Spec) (afcore.Writable, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	isAIFC := spec.SampleFormat == sampleformat.Float32 ||
		spec.SampleFormat == sampleformat.Float64 ||
		spec.ByteOrder == afcore.LittleEndian

	compr, bits, order, err := compressionFor(spec)
	if err != nil {
		return nil, err
	}

	formType := "AIFF"
	if isAIFC {
		formType = "AIFC"
	}

	var buf [12]byte
	copy(buf[0:4], "FORM")
	copy(buf[8:12], formType)

	if _, err := w.Write(buf[:]); err != nil {
		return nil, fmt.Errorf("%w: writing FORM header: %w", afcore.ErrIo, err)
	}

	var comprName []byte

	commLen := uint32(18)
	if isAIFC {
		comprName = pascalString(compressionNameFor(compr))
		commLen += 4 + uint32(len(comprName))
	}

	var commHeader [8]byte
	copy(commHeader[0:4], "COMM")
	binary.BigEndian.PutUint32(commHeader[4:8], commLen)

	if _, err := w.Write(commHeader[:]); err != nil {
		return nil, fmt.Errorf("%w: writing COMM header: %w", afcore.ErrIo, err)
	}

	comm := make([]byte, commLen)
	binary.BigEndian.PutUint16(comm[0:2], uint16(spec.NumChannels))
	binary.BigEndian.PutUint32(comm[2:6], uint32(spec.NumFrames))
	binary.BigEndian.PutUint16(comm[6:8], uint16(bits))

	if err := bytecodec.EncodeExtended(spec.SampleRate, comm[8:18]); err != nil {
		return nil, fmt.Errorf("%w: %w", afcore.ErrInvalidArgument, err)
	}

	if isAIFC {
		copy(comm[18:22], compr)
		copy(comm[22:], comprName)
	}

	if _, err := w.Write(comm); err != nil {
		return nil, fmt.Errorf("%w: writing COMM body: %w", afcore.ErrIo, err)
	}

	ssndHeaderOffset := int64(12 + 8 + commLen)
	if commLen%2 != 0 {
		ssndHeaderOffset++ // COMM is padded to even; commLen is always even here (18, or 22 plus an even-length name)
	}

	var ssndHeader [16]byte
	copy(ssndHeader[0:4], "SSND")
	// size field (bytes 4:8) left 0, back-patched once numFrames is known.
	// offset (8:12) and blockSize (12:16) are both 0: no block alignment.

	if _, err := w.Write(ssndHeader[:]); err != nil {
		return nil, fmt.Errorf("%w: writing SSND header: %w", afcore.ErrIo, err)
	}

	sampleDataOffset := ssndHeaderOffset + 16

	spec.ByteOrder = order

	return &header{
		spec:             spec,
		sampleDataOffset: sampleDataOffset,
	}, nil
}

func compressionFor(spec afcore.Spec) (tag string, bits int, order afcore.ByteOrder, err error) {
	bits = spec.SampleFormat.BitsPerSample()

	switch spec.SampleFormat {
	case sampleformat.Float32:
		return comprFl32, bits, afcore.BigEndian, nil
	case sampleformat.Float64:
		return comprFl64, bits, afcore.BigEndian, nil
	case sampleformat.Int8, sampleformat.Int16, sampleformat.Int24, sampleformat.Int32:
		if spec.ByteOrder == afcore.LittleEndian {
			return comprSowt, bits, afcore.LittleEndian, nil
		}

		return comprNone, bits, afcore.BigEndian, nil
	default:
		return "", 0, 0, fmt.Errorf("%w: AIFF cannot encode %v", afcore.ErrUnsupportedFormat, spec.SampleFormat)
	}
}

// Patches reports the FORM length, COMM frame-count and SSND length
// rewrites needed once numFrames frames have been written. All closures
// recompute from nf so a Patch can be re-applied if the frame count changes
// again before it lands (spec.md §4.5).
func (h *header) Patches(int64) []afcore.Patch {
	frameSize := int64(h.spec.FrameSize())

	// The SSND chunk header lives 16 bytes before sample data (4 ID + 4 size
	// + 4 offset + 4 blockSize).
	ssndHeaderOffset := h.sampleDataOffset - 16
	ssndSizeOffset := ssndHeaderOffset + 4

	// COMM's body starts at 20 (12-byte FORM header + 8-byte COMM header);
	// sampleFrames follows the 2-byte channel count.
	const commFramesOffset = 22

	return []afcore.Patch{
		{
			Offset: commFramesOffset,
			Bytes: func(nf int64) []byte {
				var b [4]byte
				binary.BigEndian.PutUint32(b[:], uint32(nf))

				return b[:]
			},
		},
		{
			Offset: 4,
			Bytes: func(nf int64) []byte {
				totalFileSize := h.sampleDataOffset + nf*frameSize

				var b [4]byte
				binary.BigEndian.PutUint32(b[:], uint32(totalFileSize-8))

				return b[:]
			},
		},
		{
			Offset: ssndSizeOffset,
			Bytes: func(nf int64) []byte {
				var b [4]byte
				binary.BigEndian.PutUint32(b[:], uint32(8+nf*frameSize))

				return b[:]
			},
		},
	}
}
