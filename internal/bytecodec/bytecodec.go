// Package bytecodec provides the primitive encoders and decoders that read
// and write raw sample bytes: signed/unsigned integers of 8, 16, 24, and 32
// bits, IEEE-754 floats of 32 and 64 bits, each in both byte orders, plus the
// 80-bit IEEE extended float used by AIFF's sample-rate field. Nothing above
// the byte slice is visible here — no frames, no channels, no files.
package bytecodec

import (
	"encoding/binary"
	"errors"
	"math"
)

// ErrExtendedRange is returned by EncodeExtended when the value cannot be
// represented: negative, zero, NaN, or infinite.
var ErrExtendedRange = errors.New("bytecodec: value out of range for 80-bit extended float")

// ByteOrder selects the endianness used by the codecs below. It intentionally
// mirrors encoding/binary.ByteOrder's two instances rather than redeclaring a
// parallel interface, since every primitive here is ultimately implemented in
// terms of encoding/binary.
type ByteOrder = binary.ByteOrder

var (
	BigEndian    = binary.BigEndian
	LittleEndian = binary.LittleEndian
)

// U8 reads/writes an unsigned 8-bit sample. Byte order is irrelevant for a
// single byte, so unlike the wider codecs these take no byte-order
// parameter.
func DecodeU8(b []byte) uint8 { return b[0] }
func EncodeU8(v uint8, b []byte) { b[0] = v }

// I8 reads/writes a signed 8-bit sample.
func DecodeI8(b []byte) int8     { return int8(b[0]) }
func EncodeI8(v int8, b []byte)  { b[0] = byte(v) }

// DecodeI16 reads a signed 16-bit sample using the given byte order.
func DecodeI16(order ByteOrder, b []byte) int16 {
	return int16(order.Uint16(b))
}

// EncodeI16 writes a signed 16-bit sample using the given byte order.
func EncodeI16(order ByteOrder, v int16, b []byte) {
	order.PutUint16(b, uint16(v))
}

// DecodeI32 reads a signed 32-bit sample using the given byte order.
func DecodeI32(order ByteOrder, b []byte) int32 {
	return int32(order.Uint32(b))
}

// EncodeI32 writes a signed 32-bit sample using the given byte order.
func EncodeI32(order ByteOrder, v int32, b []byte) {
	order.PutUint32(b, uint32(v))
}

// DecodeF32 reads an IEEE-754 32-bit float using the given byte order.
func DecodeF32(order ByteOrder, b []byte) float32 {
	return math.Float32frombits(order.Uint32(b))
}

// EncodeF32 writes an IEEE-754 32-bit float using the given byte order.
func EncodeF32(order ByteOrder, v float32, b []byte) {
	order.PutUint32(b, math.Float32bits(v))
}

// DecodeF64 reads an IEEE-754 64-bit float using the given byte order.
func DecodeF64(order ByteOrder, b []byte) float64 {
	return math.Float64frombits(order.Uint64(b))
}

// EncodeF64 writes an IEEE-754 64-bit float using the given byte order.
func EncodeF64(order ByteOrder, v float64, b []byte) {
	order.PutUint64(b, math.Float64bits(v))
}

// DecodeI24 reads a sign-extended 24-bit packed integer. For BigEndian the
// most-significant byte is first (b[0]); for LittleEndian it is last
// (b[2]), per spec.md §4.1.
func DecodeI24(order ByteOrder, b []byte) int32 {
	var b0, b1, b2 byte
	if order == binary.BigEndian {
		b0, b1, b2 = b[0], b[1], b[2]
	} else {
		b0, b1, b2 = b[2], b[1], b[0]
	}

	u := uint32(b0)<<16 | uint32(b1)<<8 | uint32(b2)
	if u&0x800000 != 0 {
		// Sign-extend the top byte of a 32-bit word with 1s.
		return int32(u | 0xFF000000)
	}

	return int32(u)
}

// EncodeI24 writes the low 24 bits of v as a packed 24-bit integer.
func EncodeI24(order ByteOrder, v int32, b []byte) {
	u := uint32(v)
	b0 := byte(u >> 16)
	b1 := byte(u >> 8)
	b2 := byte(u)

	if order == binary.BigEndian {
		b[0], b[1], b[2] = b0, b1, b2
	} else {
		b[0], b[1], b[2] = b2, b1, b0
	}
}

// extendedBias is the IEEE 754 80-bit extended float exponent bias.
const extendedBias = 16383

// DecodeExtended decodes a 10-byte big-endian IEEE-754 80-bit extended float,
// as used by AIFF's COMM.sampleRate field. It returns 0 for a decoded zero or
// a denormal (denormals never occur for the sample-rate range this library
// targets) and +Inf for an encoded infinity or NaN pattern.
func DecodeExtended(b []byte) float64 {
	sign := b[0] >> 7
	exponent := int(binary.BigEndian.Uint16(b[0:2])) & 0x7FFF
	mantissa := binary.BigEndian.Uint64(b[2:10])

	if exponent == 0 {
		return 0
	}

	if exponent == 0x7FFF {
		return math.Inf(1)
	}

	v := math.Ldexp(float64(mantissa), exponent-extendedBias-63)
	if sign == 1 {
		v = -v
	}

	return v
}

// EncodeExtended encodes a finite, positive float64 as a 10-byte big-endian
// IEEE-754 80-bit extended float into b (which must have len(b) >= 10).
// Negative, zero, NaN, and infinite inputs are rejected with ErrExtendedRange
// since AIFF sample rates are always positive and finite.
func EncodeExtended(v float64, b []byte) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return ErrExtendedRange
	}

	mantissa, exp := math.Frexp(v) // v == mantissa * 2^exp, mantissa in [0.5, 1)
	exponent := exp - 1 + extendedBias
	m64 := uint64(mantissa * (1 << 64)) // normalize so the explicit integer bit is bit 63

	binary.BigEndian.PutUint16(b[0:2], uint16(exponent)&0x7FFF)
	binary.BigEndian.PutUint64(b[2:10], m64)

	return nil
}
