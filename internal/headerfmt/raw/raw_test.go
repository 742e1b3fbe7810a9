package raw

import (
	"errors"
	"testing"

	"github.com/meko-audio/audiofile/internal/afcore"
	"github.com/meko-audio/audiofile/internal/sampleformat"
)

func TestIdentifyAlwaysFalse(t *testing.T) {
	c := codec{}
	if c.Identify([]byte("anything at all")) {
		t.Error("Raw.Identify must always return false")
	}
}

func TestParseRequiresUserSpec(t *testing.T) {
	c := codec{}

	_, err := c.Parse(nil, nil)
	if !errors.Is(err, afcore.ErrInvalidArgument) {
		t.Errorf("Parse(nil spec): err = %v, want ErrInvalidArgument", err)
	}
}

func TestParseUsesUserSpec(t *testing.T) {
	c := codec{}

	spec := afcore.Spec{SampleFormat: sampleformat.Int16, NumChannels: 2, SampleRate: 44100, NumFrames: 1000}

	h, err := c.Parse(nil, &spec)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if h.Spec().FileType != afcore.Raw {
		t.Errorf("FileType = %v, want Raw", h.Spec().FileType)
	}

	if h.SampleDataOffset() != 0 {
		t.Errorf("SampleDataOffset = %d, want 0", h.SampleDataOffset())
	}
}

func TestEmitWritesNothing(t *testing.T) {
	c := codec{}

	spec := afcore.Spec{SampleFormat: sampleformat.Float64, NumChannels: 1, SampleRate: 48000}

	w, err := c.Emit(nil, spec)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}

	if len(w.Patches(0)) != 0 {
		t.Error("Raw should have no back-patches")
	}
}
