// Package sampleformat enumerates the on-disk sample encodings this library
// understands and maps each to its bit width, signedness, and integer/float
// kind. It is the smallest, leaf-most piece of the codec stack: nothing here
// touches bytes or files, only the shape of a single sample.
package sampleformat

import "fmt"

// Format is a closed variant set of on-disk sample encodings.
type Format int

const (
	UInt8 Format = iota
	Int8
	Int16
	Int24
	Int32
	Float32
	Float64
)

// String implements fmt.Stringer.
func (f Format) String() string {
	switch f {
	case UInt8:
		return "UInt8"
	case Int8:
		return "Int8"
	case Int16:
		return "Int16"
	case Int24:
		return "Int24"
	case Int32:
		return "Int32"
	case Float32:
		return "Float32"
	case Float64:
		return "Float64"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// BitsPerSample returns the number of bits a single sample occupies on disk.
func (f Format) BitsPerSample() int {
	switch f {
	case UInt8, Int8:
		return 8
	case Int16:
		return 16
	case Int24:
		return 24
	case Int32, Float32:
		return 32
	case Float64:
		return 64
	default:
		return 0
	}
}

// BytesPerSample returns ceil(BitsPerSample/8).
func (f Format) BytesPerSample() int {
	return (f.BitsPerSample() + 7) / 8
}

// IsFloat reports whether the format is IEEE float PCM rather than integer PCM.
func (f Format) IsFloat() bool {
	return f == Float32 || f == Float64
}

// Signed reports whether integer samples of this format are signed. Float
// formats are considered signed (they span [-1, 1)).
func (f Format) Signed() bool {
	return f != UInt8
}

// Valid reports whether f is one of the recognized variants.
func (f Format) Valid() bool {
	switch f {
	case UInt8, Int8, Int16, Int24, Int32, Float32, Float64:
		return true
	default:
		return false
	}
}

// FrameSize returns ceil(bitsPerSample/8) * numChannels, the invariant from
// spec.md §3.
func FrameSize(f Format, numChannels int) int {
	return f.BytesPerSample() * numChannels
}
