// Package raw implements headerless PCM/float sample streams (spec.md
// §4.1): no magic, no chunk structure, and therefore no identifier — Raw
// can never be the result of Identify and must be named explicitly by the
// caller, who must also supply the full Spec since nothing in the stream
// itself describes it.
package raw

import (
	"fmt"
	"io"

	"github.com/meko-audio/audiofile/internal/afcore"
)

func init() {
	afcore.Register(codec{})
}

type codec struct{}

func (codec) FileType() afcore.FileType { return afcore.Raw }

func (codec) Capabilities() afcore.Capabilities {
	return afcore.Capabilities{CanIdentify: false, CanRead: true, CanWrite: true}
}

// Identify always returns false: Raw has no magic of its own and must
// never be matched implicitly (spec.md §4.3.6's Raw note).
func (codec) Identify([]byte) bool {
	return false
}

type header struct {
	spec afcore.Spec
}

func (h *header) Spec() afcore.Spec       { return h.spec }
func (h *header) SampleDataOffset() int64 { return 0 }

// Patches is always empty: Raw has no header fields to back-patch.
func (h *header) Patches(int64) []afcore.Patch { return nil }

// Parse requires userSpec to be supplied by the caller; Raw has nothing in
// the stream itself to parse a Spec from.
func (codec) Parse(_ io.Reader, userSpec *afcore.Spec) (afcore.Header, error) {
	if userSpec == nil {
		return nil, fmt.Errorf("%w: Raw requires an explicit spec", afcore.ErrInvalidArgument)
	}

	spec := *userSpec
	spec.FileType = afcore.Raw

	if spec.ByteOrder == afcore.None {
		spec.ByteOrder = afcore.LittleEndian
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}

	return &header{spec: spec}, nil
}

// Emit writes nothing: Raw has no header bytes at all.
func (codec) Emit(_ io.Writer, spec afcore.Spec) (afcore.Writable, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	spec.FileType = afcore.Raw

	if spec.ByteOrder == afcore.None {
		spec.ByteOrder = afcore.LittleEndian
	}

	return &header{spec: spec}, nil
}
