package bufhandler

import (
	"fmt"

	"github.com/meko-audio/audiofile/internal/afcore"
	"github.com/meko-audio/audiofile/internal/bytecodec"
	"github.com/meko-audio/audiofile/internal/sampleformat"
)

// SampleCodec transcodes a single sample between its on-disk byte
// representation and the application-facing float64 domain. One instance
// exists per (sample format, byte order) pair this library supports — the
// "cross product of buffer handlers" Design Note 9 asks to be modeled as a
// small codec interface plus a generic frame loop (bufhandler.go) rather
// than as ~28 hand-written variants.
type SampleCodec interface {
	BytesPerSample() int
	Decode(b []byte) float64
	Encode(v float64, b []byte)
}

type uint8Codec struct{}

func (uint8Codec) BytesPerSample() int        { return 1 }
func (uint8Codec) Decode(b []byte) float64    { return uint8ToFloat(bytecodec.DecodeU8(b)) }
func (uint8Codec) Encode(v float64, b []byte) { bytecodec.EncodeU8(floatToUint8(v), b) }

type int8Codec struct{}

func (int8Codec) BytesPerSample() int { return 1 }
func (int8Codec) Decode(b []byte) float64 {
	return signedToFloat(int64(bytecodec.DecodeI8(b)), 8)
}
func (int8Codec) Encode(v float64, b []byte) {
	bytecodec.EncodeI8(int8(floatToSigned(v, 8)), b)
}

type int16Codec struct{ order bytecodec.ByteOrder }

func (int16Codec) BytesPerSample() int { return 2 }
func (c int16Codec) Decode(b []byte) float64 {
	return signedToFloat(int64(bytecodec.DecodeI16(c.order, b)), 16)
}
func (c int16Codec) Encode(v float64, b []byte) {
	bytecodec.EncodeI16(c.order, int16(floatToSigned(v, 16)), b)
}

type int24Codec struct{ order bytecodec.ByteOrder }

func (int24Codec) BytesPerSample() int { return 3 }
func (c int24Codec) Decode(b []byte) float64 {
	return signedToFloat(int64(bytecodec.DecodeI24(c.order, b)), 24)
}
func (c int24Codec) Encode(v float64, b []byte) {
	bytecodec.EncodeI24(c.order, int32(floatToSigned(v, 24)), b)
}

type int32Codec struct{ order bytecodec.ByteOrder }

func (int32Codec) BytesPerSample() int { return 4 }
func (c int32Codec) Decode(b []byte) float64 {
	return signedToFloat(int64(bytecodec.DecodeI32(c.order, b)), 32)
}
func (c int32Codec) Encode(v float64, b []byte) {
	bytecodec.EncodeI32(c.order, int32(floatToSigned(v, 32)), b)
}

type float32Codec struct{ order bytecodec.ByteOrder }

func (float32Codec) BytesPerSample() int { return 4 }
func (c float32Codec) Decode(b []byte) float64 {
	return float64(bytecodec.DecodeF32(c.order, b))
}
func (c float32Codec) Encode(v float64, b []byte) {
	bytecodec.EncodeF32(c.order, float32(v), b)
}

type float64Codec struct{ order bytecodec.ByteOrder }

func (float64Codec) BytesPerSample() int          { return 8 }
func (c float64Codec) Decode(b []byte) float64    { return bytecodec.DecodeF64(c.order, b) }
func (c float64Codec) Encode(v float64, b []byte) { bytecodec.EncodeF64(c.order, v, b) }

// NewSampleCodec returns the SampleCodec for format using the given byte
// order. order is ignored for single-byte formats.
func NewSampleCodec(format sampleformat.Format, order bytecodec.ByteOrder) (SampleCodec, error) {
	switch format {
	case sampleformat.UInt8:
		return uint8Codec{}, nil
	case sampleformat.Int8:
		return int8Codec{}, nil
	case sampleformat.Int16:
		return int16Codec{order}, nil
	case sampleformat.Int24:
		return int24Codec{order}, nil
	case sampleformat.Int32:
		return int32Codec{order}, nil
	case sampleformat.Float32:
		return float32Codec{order}, nil
	case sampleformat.Float64:
		return float64Codec{order}, nil
	default:
		return nil, fmt.Errorf("%w: no sample codec for %v", afcore.ErrUnsupportedFormat, format)
	}
}
