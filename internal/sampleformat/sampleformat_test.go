package sampleformat

import "testing"

func TestBitsAndBytes(t *testing.T) {
	cases := []struct {
		f     Format
		bits  int
		bytes int
	}{
		{UInt8, 8, 1},
		{Int8, 8, 1},
		{Int16, 16, 2},
		{Int24, 24, 3},
		{Int32, 32, 4},
		{Float32, 32, 4},
		{Float64, 64, 8},
	}
	for _, c := range cases {
		if got := c.f.BitsPerSample(); got != c.bits {
			t.Errorf("%s.BitsPerSample() = %d, want %d", c.f, got, c.bits)
		}
		if got := c.f.BytesPerSample(); got != c.bytes {
			t.Errorf("%s.BytesPerSample() = %d, want %d", c.f, got, c.bytes)
		}
	}
}

func TestIsFloat(t *testing.T) {
	for _, f := range []Format{UInt8, Int8, Int16, Int24, Int32} {
		if f.IsFloat() {
			t.Errorf("%s.IsFloat() = true, want false", f)
		}
	}
	for _, f := range []Format{Float32, Float64} {
		if !f.IsFloat() {
			t.Errorf("%s.IsFloat() = false, want true", f)
		}
	}
}

func TestSigned(t *testing.T) {
	if Int8.Signed() != true || UInt8.Signed() != false {
		t.Errorf("signedness mismatch for 8-bit formats")
	}
}

func TestFrameSize(t *testing.T) {
	if got := FrameSize(Int16, 2); got != 4 {
		t.Errorf("FrameSize(Int16, 2) = %d, want 4", got)
	}
	if got := FrameSize(Int24, 1); got != 3 {
		t.Errorf("FrameSize(Int24, 1) = %d, want 3", got)
	}
}

func TestValid(t *testing.T) {
	if !Int16.Valid() {
		t.Errorf("Int16 should be valid")
	}
	if Format(99).Valid() {
		t.Errorf("Format(99) should not be valid")
	}
}
