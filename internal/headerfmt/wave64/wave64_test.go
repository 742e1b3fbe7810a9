package wave64

import (
	"bytes"
	"testing"

	"github.com/meko-audio/audiofile/internal/afcore"
	"github.com/meko-audio/audiofile/internal/sampleformat"
)

func TestEmitParseRoundTrip(t *testing.T) {
	spec := afcore.Spec{
		SampleFormat: sampleformat.Float32,
		NumChannels:  2,
		SampleRate:   96000,
	}

	var buf bytes.Buffer

	c := codec{}

	w, err := c.Emit(&buf, spec)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}

	const numFrames = 37 // not a multiple of 8, though 8-byte frames keep the payload 8-aligned

	buf.Write(make([]byte, numFrames*spec.FrameSize()))

	raw := buf.Bytes()
	for _, p := range w.Patches(numFrames) {
		copy(raw[p.Offset:], p.Bytes(numFrames))
	}

	if !c.Identify(raw) {
		t.Fatal("Identify rejected our own Emit output")
	}

	h, err := c.Parse(bytes.NewReader(raw), nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	got := h.Spec()
	if got.NumChannels != 2 || got.SampleRate != 96000 || got.SampleFormat != sampleformat.Float32 {
		t.Errorf("Spec = %+v", got)
	}

	if got.NumFrames != numFrames {
		t.Errorf("NumFrames = %d, want %d", got.NumFrames, numFrames)
	}
}

func TestAlign8(t *testing.T) {
	cases := map[int64]int64{0: 0, 1: 8, 7: 8, 8: 8, 9: 16, 24: 24, 25: 32}
	for in, want := range cases {
		if got := align8(in); got != want {
			t.Errorf("align8(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestIdentifyRejectsPlainWAV(t *testing.T) {
	c := codec{}
	if c.Identify([]byte("RIFF....WAVEfmt ")) {
		t.Error("Identify matched a plain RIFF/WAVE prefix")
	}
}
