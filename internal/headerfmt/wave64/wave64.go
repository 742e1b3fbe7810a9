// Package wave64 implements the Sony Wave64 container format (spec.md
// §4.1): structurally the same fmt/data chunk model as WAV, but chunk tags
// are 16-byte GUIDs instead of 4-character codes, lengths are 64-bit and
// measured inclusive of each chunk's own 24-byte GUID+size header, and
// every chunk is padded to an 8-byte boundary rather than WAV's 2-byte one.
// This format exists specifically to lift WAV's 4 GiB file-size ceiling.
// Unlike package wave, the writer always emits the plain 16-byte PCM/float
// fmt body, never the WAVE_FORMAT_EXTENSIBLE layout, and the reader accepts
// only the plain PCM and IEEE-float format tags, rejecting EXTENSIBLE.
package wave64

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
	fmtPCM       = 1
	fmtIEEEFloat = 3
)

var (
	riffGUID = [16]byte{0x72, 0x69, 0x66, 0x66, 0x2E, 0x91, 0xCF, 0x11, 0xA5, 0xD6, 0x28, 0xDB, 0x04, 0xC1, 0x00, 0x00}
	waveGUID = [16]byte{0x77, 0x61, 0x76, 0x65, 0xF3, 0xAC, 0xD3, 0x11, 0x8C, 0xD1, 0x00, 0xC0, 0x4F, 0x8E, 0xDB, 0x8A}
	fmtGUID  = [16]byte{0x66, 0x6D, 0x74, 0x20, 0xF3, 0xAC, 0xD3, 0x11, 0x8C, 0xD1, 0x00, 0xC0, 0x4F, 0x8E, 0xDB, 0x8A}
	dataGUID = [16]byte{0x64, 0x61, 0x74, 0x61, 0xF3, 0xAC, 0xD3, 0x11, 0x8C, 0xD1, 0x00, 0xC0, 0x4F, 0x8E, 0xDB, 0x8A}
)

type codec struct{}

func (codec) FileType() afcore.FileType { return afcore.Wave64 }

func (codec) Capabilities() afcore.Capabilities {
	return afcore.Capabilities{CanIdentify: true, CanRead: true, CanWrite: true}
}

func (codec) Identify(peek []byte) bool {
	if len(peek) < 40 {
		return false
	}

	return bytesEqual(peek[0:16], riffGUID[:]) && bytesEqual(peek[24:40], waveGUID[:])
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

func align8(n int64) int64 {
	if n%8 != 0 {
		n += 8 - n%8
	}

	return n
}

type header struct {
	spec             afcore.Spec
	sampleDataOffset int64
	dataSizeOffset   int64
}

func (h *header) Spec() afcore.Spec       { return h.spec }
func (h *header) SampleDataOffset() int64 { return h.sampleDataOffset }

func (codec) Parse(r io.Reader, _ *afcore.Spec) (afcore.Header, error) {
	var top [40]byte
	if _, err := io.ReadFull(r, top[:]); err != nil {
		return nil, fmt.Errorf("%w: reading Wave64 top-level header: %w", afcore.ErrMalformedHeader, err)
	}

	if !bytesEqual(top[0:16], riffGUID[:]) || !bytesEqual(top[24:40], waveGUID[:]) {
		return nil, fmt.Errorf("%w: missing Wave64 RIFF/WAVE GUIDs", afcore.ErrMalformedHeader)
	}

	var (
		pos                 int64 = 40
		fmtFound, dataFound bool
		spec                afcore.Spec
		sampleDataOffset    int64
		dataSizeOffset      int64
	)

	spec.FileType = afcore.Wave64
	spec.ByteOrder = afcore.LittleEndian

	for !dataFound {
		var ch [24]byte
		n, err := io.ReadFull(r, ch[:])
		if err != nil {
			if err == io.EOF || (err == io.ErrUnexpectedEOF && n == 0) {
				break
			}

			return nil, fmt.Errorf("%w: reading chunk header: %w", afcore.ErrMalformedHeader, err)
		}

		chunkSize := int64(binary.LittleEndian.Uint64(ch[16:24])) // inclusive of this 24-byte header
		payloadSize := chunkSize - 24
		paddedChunk := align8(chunkSize)

		switch {
		case bytesEqual(ch[0:16], fmtGUID[:]):
			sf, numChannels, rate, mask, err := parseFmt(r, payloadSize)
			if err != nil {
				return nil, err
			}

			spec.SampleFormat = sf
			spec.NumChannels = numChannels
			spec.SampleRate = rate
			spec.ChannelMask = mask
			fmtFound = true

			if pad := paddedChunk - chunkSize; pad > 0 {
				io.CopyN(io.Discard, r, pad) //nolint:errcheck
			}

			pos += paddedChunk

		case bytesEqual(ch[0:16], dataGUID[:]):
			if !fmtFound {
				return nil, fmt.Errorf("%w: data chunk before fmt chunk", afcore.ErrMalformedHeader)
			}

			dataSizeOffset = pos + 16
			sampleDataOffset = pos + 24

			frameSize := int64(spec.FrameSize())
			if frameSize > 0 {
				spec.NumFrames = payloadSize / frameSize
			}

			if _, err := io.CopyN(io.Discard, r, paddedChunk-24); err != nil && err != io.EOF {
				return nil, fmt.Errorf("%w: skipping data chunk: %w", afcore.ErrMalformedHeader, err)
			}

			dataFound = true
			pos += paddedChunk

		default:
			if _, err := io.CopyN(io.Discard, r, paddedChunk-24); err != nil {
				return nil, fmt.Errorf("%w: skipping chunk: %w", afcore.ErrMalformedHeader, err)
			}

			pos += paddedChunk
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

func parseFmt(r io.Reader, size int64) (sf sampleformat.Format, numChannels int, rate float64, mask uint32, err error) {
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

	switch tag {
	case fmtPCM:
		switch bitsPerSample {
		case 8:
			sf = sampleformat.UInt8
		case 16:
			sf = sampleformat.Int16
		case 24:
			sf = sampleformat.Int24
		case 32:
			sf = sampleformat.Int32
		default:
			return 0, 0, 0, 0, fmt.Errorf("%w: Wave64 PCM bit depth %d", afcore.ErrUnsupportedFormat, bitsPerSample)
		}

	case fmtIEEEFloat:
		switch bitsPerSample {
		case 32:
			sf = sampleformat.Float32
		case 64:
			sf = sampleformat.Float64
		default:
			return 0, 0, 0, 0, fmt.Errorf("%w: Wave64 float bit depth %d", afcore.ErrUnsupportedFormat, bitsPerSample)
		}

	default:
		return 0, 0, 0, 0, fmt.Errorf("%w: Wave64 format tag %#x", afcore.ErrUnsupportedFormat, tag)
	}

	return sf, numChannels, rate, 0, nil
}

func (codec) Emit(w io.Writer, spec afcore.Spec) (afcore.Writable, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	spec.ByteOrder = afcore.LittleEndian

	tag, err := formatTagFor(spec.SampleFormat)
	if err != nil {
		return nil, err
	}

	if _, err := w.Write(riffGUID[:]); err != nil {
		return nil, fmt.Errorf("%w: writing riff GUID: %w", afcore.ErrIo, err)
	}

	riffSizeOffset := int64(16)

	var sizePlaceholder [8]byte
	if _, err := w.Write(sizePlaceholder[:]); err != nil {
		return nil, fmt.Errorf("%w: writing riff size placeholder: %w", afcore.ErrIo, err)
	}

	if _, err := w.Write(waveGUID[:]); err != nil {
		return nil, fmt.Errorf("%w: writing wave GUID: %w", afcore.ErrIo, err)
	}

	fmtBodyLen := int64(16)
	fmtChunkLen := 24 + fmtBodyLen

	if _, err := w.Write(fmtGUID[:]); err != nil {
		return nil, fmt.Errorf("%w: writing fmt GUID: %w", afcore.ErrIo, err)
	}

	var fmtSize [8]byte
	binary.LittleEndian.PutUint64(fmtSize[:], uint64(fmtChunkLen))

	if _, err := w.Write(fmtSize[:]); err != nil {
		return nil, fmt.Errorf("%w: writing fmt chunk size: %w", afcore.ErrIo, err)
	}

	body := make([]byte, fmtBodyLen)
	bits := spec.SampleFormat.BitsPerSample()
	blockAlign := spec.FrameSize()
	byteRate := blockAlign * int(spec.SampleRate)

	binary.LittleEndian.PutUint16(body[0:2], tag)
	binary.LittleEndian.PutUint16(body[2:4], uint16(spec.NumChannels))
	binary.LittleEndian.PutUint32(body[4:8], uint32(spec.SampleRate))
	binary.LittleEndian.PutUint32(body[8:12], uint32(byteRate))
	binary.LittleEndian.PutUint16(body[12:14], uint16(blockAlign))
	binary.LittleEndian.PutUint16(body[14:16], uint16(bits))

	if _, err := w.Write(body); err != nil {
		return nil, fmt.Errorf("%w: writing fmt body: %w", afcore.ErrIo, err)
	}

	pad := align8(fmtChunkLen) - fmtChunkLen
	if pad > 0 {
		if _, err := w.Write(make([]byte, pad)); err != nil {
			return nil, fmt.Errorf("%w: writing fmt chunk padding: %w", afcore.ErrIo, err)
		}
	}

	dataChunkOffset := 40 + align8(fmtChunkLen)
	dataSizeOffset := dataChunkOffset + 16

	if _, err := w.Write(dataGUID[:]); err != nil {
		return nil, fmt.Errorf("%w: writing data GUID: %w", afcore.ErrIo, err)
	}

	var dataSizePlaceholder [8]byte
	if _, err := w.Write(dataSizePlaceholder[:]); err != nil {
		return nil, fmt.Errorf("%w: writing data chunk size placeholder: %w", afcore.ErrIo, err)
	}

	sampleDataOffset := dataChunkOffset + 24

	_ = riffSizeOffset

	return &header{spec: spec, sampleDataOffset: sampleDataOffset, dataSizeOffset: dataSizeOffset}, nil
}

func formatTagFor(sf sampleformat.Format) (uint16, error) {
	switch sf {
	case sampleformat.UInt8, sampleformat.Int16, sampleformat.Int24, sampleformat.Int32:
		return fmtPCM, nil
	case sampleformat.Float32, sampleformat.Float64:
		return fmtIEEEFloat, nil
	default:
		return 0, fmt.Errorf("%w: Wave64 cannot encode %v", afcore.ErrUnsupportedFormat, sf)
	}
}

func (h *header) Patches(int64) []afcore.Patch {
	frameSize := int64(h.spec.FrameSize())

	return []afcore.Patch{
		{
			Offset: 16,
			Bytes: func(nf int64) []byte {
				totalSize := h.sampleDataOffset + nf*frameSize

				var b [8]byte
				binary.LittleEndian.PutUint64(b[:], uint64(totalSize))

				return b[:]
			},
		},
		{
			Offset: h.dataSizeOffset,
			Bytes: func(nf int64) []byte {
				dataChunkSize := 24 + nf*frameSize

				var b [8]byte
				binary.LittleEndian.PutUint64(b[:], uint64(dataChunkSize))

				return b[:]
			},
		},
	}
}
