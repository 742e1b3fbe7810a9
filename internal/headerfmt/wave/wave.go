// Package wave implements the Microsoft RIFF/WAVE container format
// (spec.md §4.1): a little-endian chunked format whose "fmt " chunk
// describes the sample encoding and whose "data" chunk holds interleaved
// samples. Files with more than two channels or more than 16 bits per
// sample are written using the WAVE_FORMAT_EXTENSIBLE fmt chunk layout,
// matching the convention real WAV encoders use to stay unambiguous about
// channel assignment and sample container size.
package wave

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/meko-audio/audiofile/internal/afcore"
	"github.com/meko-audio/audiofile/internal/sampleformat"
)

func init() {
	afcore.Register(codec{})
}

const (
	fmtPCM        = 1
	fmtIEEEFloat  = 3
	fmtExtensible = 0xFFFE
)

// subFormat GUIDs for WAVE_FORMAT_EXTENSIBLE: the format tag followed by
// the fixed "\x00\x00\x00\x00\x10\x00\x80\x00\x00\xAA\x00\x38\x9B\x71" tail
// every Microsoft media subtype GUID shares.
var guidTail = [14]byte{0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0xAA, 0x00, 0x38, 0x9B, 0x71}

type codec struct{}

func (codec) FileType() afcore.FileType { return afcore.Wave }

func (codec) Capabilities() afcore.Capabilities {
	return afcore.Capabilities{CanIdentify: true, CanRead: true, CanWrite: true}
}

func (codec) Identify(peek []byte) bool {
	if len(peek) < 12 {
		return false
	}

	return string(peek[0:4]) == "RIFF" && string(peek[8:12]) == "WAVE"
}

type header struct {
	spec             afcore.Spec
	sampleDataOffset int64
	dataSizeOffset   int64
}

func (h *header) Spec() afcore.Spec       { return h.spec }
func (h *header) SampleDataOffset() int64 { return h.sampleDataOffset }

func (codec) Parse(r io.Reader, _ *afcore.Spec) (afcore.Header, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return nil, fmt.Errorf("%w: reading RIFF header: %w", afcore.ErrMalformedHeader, err)
	}

	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%w: missing RIFF/WAVE signature", afcore.ErrMalformedHeader)
	}

	var (
		pos                   int64 = 12
		fmtFound, dataFound   bool
		spec                  afcore.Spec
		sampleDataOffset      int64
		dataSizeOffset        int64
	)

	spec.FileType = afcore.Wave
	spec.ByteOrder = afcore.LittleEndian

	for !dataFound {
		var ch [8]byte
		if _, err := io.ReadFull(r, ch[:]); err != nil {
			if err == io.EOF {
				break
			}

			return nil, fmt.Errorf("%w: reading chunk header: %w", afcore.ErrMalformedHeader, err)
		}

		pos += 8

		chunkID := string(ch[0:4])
		chunkSize := binary.LittleEndian.Uint32(ch[4:8])
		paddedSize := int64(chunkSize)
		if paddedSize%2 != 0 {
			paddedSize++
		}

		switch chunkID {
		case "fmt ":
			sf, numChannels, sampleRate, mask, err := parseFmt(r, chunkSize)
			if err != nil {
				return nil, err
			}

			spec.SampleFormat = sf
			spec.NumChannels = numChannels
			spec.SampleRate = sampleRate
			spec.ChannelMask = mask
			fmtFound = true

			if paddedSize > int64(chunkSize) {
				io.CopyN(io.Discard, r, paddedSize-int64(chunkSize)) //nolint:errcheck
			}

			pos += paddedSize

		case "data":
			if !fmtFound {
				return nil, fmt.Errorf("%w: data chunk before fmt chunk", afcore.ErrMalformedHeader)
			}

			dataSizeOffset = pos - 4
			sampleDataOffset = pos

			frameSize := int64(spec.FrameSize())
			if frameSize > 0 {
				spec.NumFrames = int64(chunkSize) / frameSize
			}

			if _, err := io.CopyN(io.Discard, r, paddedSize); err != nil && err != io.EOF {
				return nil, fmt.Errorf("%w: skipping data chunk: %w", afcore.ErrMalformedHeader, err)
			}

			dataFound = true
			pos += paddedSize

		default:
			if _, err := io.CopyN(io.Discard, r, paddedSize); err != nil {
				return nil, fmt.Errorf("%w: skipping chunk %q: %w", afcore.ErrMalformedHeader, chunkID, err)
			}

			pos += paddedSize
		}
	}

	if !fmtFound {
		return nil, fmt.Errorf("%w: missing fmt chunk", afcore.ErrMalformedHeader)
	}

	if !dataFound {
		return nil, fmt.Errorf("%w: missing data chunk", afcore.ErrMalformedHeader)
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}

	return &header{spec: spec, sampleDataOffset: sampleDataOffset, dataSizeOffset: dataSizeOffset}, nil
}

func parseFmt(r io.Reader, size uint32) (sf sampleformat.Format, numChannels int, rate float64, mask uint32, err error) {
	if size < 16 {
		return 0, 0, 0, 0, fmt.Errorf("%w: fmt chunk too small", afcore.ErrMalformedHeader)
	}

	body := make([]byte, size)
	if _, rerr := io.ReadFull(r, body); rerr != nil {
		return 0, 0, 0, 0, fmt.Errorf("%w: reading fmt chunk: %w", afcore.ErrMalformedHeader, rerr)
	}

	tag := binary.LittleEndian.Uint16(body[0:2])
	numChannels = int(binary.LittleEndian.Uint16(body[2:4]))
	rate = float64(binary.LittleEndian.Uint32(body[4:8]))
	bitsPerSample := int(binary.LittleEndian.Uint16(body[14:16]))

	if tag == fmtExtensible {
		if len(body) < 40 {
			return 0, 0, 0, 0, fmt.Errorf("%w: WAVE_FORMAT_EXTENSIBLE fmt chunk too small", afcore.ErrMalformedHeader)
		}

		validBits := int(binary.LittleEndian.Uint16(body[18:20]))
		if validBits != 0 {
			bitsPerSample = validBits
		}

		mask = binary.LittleEndian.Uint32(body[20:24])
		subTag := binary.LittleEndian.Uint16(body[24:26])
		tag = subTag
	}

	switch tag {
	case fmtPCM:
		if bitsPerSample == 8 {
			sf = sampleformat.UInt8
		} else {
			switch bitsPerSample {
			case 16:
				sf = sampleformat.Int16
			case 24:
				sf = sampleformat.Int24
			case 32:
				sf = sampleformat.Int32
			default:
				return 0, 0, 0, 0, fmt.Errorf("%w: WAV PCM bit depth %d", afcore.ErrUnsupportedFormat, bitsPerSample)
			}
		}

	case fmtIEEEFloat:
		switch bitsPerSample {
		case 32:
			sf = sampleformat.Float32
		case 64:
			sf = sampleformat.Float64
		default:
			return 0, 0, 0, 0, fmt.Errorf("%w: WAV float bit depth %d", afcore.ErrUnsupportedFormat, bitsPerSample)
		}

	default:
		return 0, 0, 0, 0, fmt.Errorf("%w: WAV format tag %#x", afcore.ErrUnsupportedFormat, tag)
	}

	return sf, numChannels, rate, mask, nil
}

// needsExtensible reports whether spec must be written using the
// WAVE_FORMAT_EXTENSIBLE fmt layout: more than two channels, or a
// bit depth wider than 16, are both ambiguous in the plain PCM/float fmt
// chunk's implicit channel-order and container-size assumptions.
func needsExtensible(spec afcore.Spec) bool {
	return spec.NumChannels > 2 || spec.SampleFormat.BitsPerSample() > 16
}

func (codec) Emit(w io.Writer, spec afcore.Spec) (afcore.Writable, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	spec.ByteOrder = afcore.LittleEndian

	formatTag, err := formatTagFor(spec.SampleFormat)
	if err != nil {
		return nil, err
	}

	extensible := needsExtensible(spec)

	fmtLen := uint32(16)
	if extensible {
		fmtLen = 40
	}

	var riff [12]byte
	copy(riff[0:4], "RIFF")
	copy(riff[8:12], "WAVE")

	if _, err := w.Write(riff[:]); err != nil {
		return nil, fmt.Errorf("%w: writing RIFF header: %w", afcore.ErrIo, err)
	}

	var fmtHeader [8]byte
	copy(fmtHeader[0:4], "fmt ")
	binary.LittleEndian.PutUint32(fmtHeader[4:8], fmtLen)

	if _, err := w.Write(fmtHeader[:]); err != nil {
		return nil, fmt.Errorf("%w: writing fmt header: %w", afcore.ErrIo, err)
	}

	body := make([]byte, fmtLen)
	bits := spec.SampleFormat.BitsPerSample()
	blockAlign := spec.FrameSize()
	byteRate := blockAlign * int(spec.SampleRate)

	tag := formatTag
	if extensible {
		tag = fmtExtensible
	}

	binary.LittleEndian.PutUint16(body[0:2], tag)
	binary.LittleEndian.PutUint16(body[2:4], uint16(spec.NumChannels))
	binary.LittleEndian.PutUint32(body[4:8], uint32(spec.SampleRate))
	binary.LittleEndian.PutUint32(body[8:12], uint32(byteRate))
	binary.LittleEndian.PutUint16(body[12:14], uint16(blockAlign))
	binary.LittleEndian.PutUint16(body[14:16], uint16(bits))

	if extensible {
		binary.LittleEndian.PutUint16(body[16:18], 22) // cbSize
		binary.LittleEndian.PutUint16(body[18:20], uint16(bits))
		binary.LittleEndian.PutUint32(body[20:24], spec.ChannelMask)
		binary.LittleEndian.PutUint16(body[24:26], formatTag)
		copy(body[26:40], guidTail[:])
	}

	if _, err := w.Write(body); err != nil {
		return nil, fmt.Errorf("%w: writing fmt body: %w", afcore.ErrIo, err)
	}

	dataHeaderOffset := int64(12 + 8 + fmtLen)
	dataSizeOffset := dataHeaderOffset + 4

	var dataHeader [8]byte
	copy(dataHeader[0:4], "data")

	if _, err := w.Write(dataHeader[:]); err != nil {
		return nil, fmt.Errorf("%w: writing data header: %w", afcore.ErrIo, err)
	}

	sampleDataOffset := dataHeaderOffset + 8

	return &header{spec: spec, sampleDataOffset: sampleDataOffset, dataSizeOffset: dataSizeOffset}, nil
}

func formatTagFor(sf sampleformat.Format) (uint16, error) {
	switch sf {
	case sampleformat.UInt8, sampleformat.Int16, sampleformat.Int24, sampleformat.Int32:
		return fmtPCM, nil
	case sampleformat.Float32, sampleformat.Float64:
		return fmtIEEEFloat, nil
	default:
		return 0, fmt.Errorf("%w: WAV cannot encode %v", afcore.ErrUnsupportedFormat, sf)
	}
}

func (h *header) Patches(int64) []afcore.Patch {
	frameSize := int64(h.spec.FrameSize())
	riffSizeOffset := int64(4)

	return []afcore.Patch{
		{
			Offset: riffSizeOffset,
			Bytes: func(nf int64) []byte {
				dataBytes := nf * frameSize
				riffSize := h.sampleDataOffset - 8 + dataBytes

				var b [4]byte
				binary.LittleEndian.PutUint32(b[:], uint32(riffSize))

				return b[:]
			},
		},
		{
			Offset: h.dataSizeOffset,
			Bytes: func(nf int64) []byte {
				var b [4]byte
				binary.LittleEndian.PutUint32(b[:], uint32(nf*frameSize))

				return b[:]
			},
		},
	}
}
