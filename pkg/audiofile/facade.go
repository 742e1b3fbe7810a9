package audiofile

import (
	"fmt"
	"io"

	"github.com/meko-audio/audiofile/internal/afconfig"
	"github.com/meko-audio/audiofile/internal/afcore"
	"github.com/meko-audio/audiofile/internal/bufhandler"
	"github.com/meko-audio/audiofile/internal/bytecodec"
	"github.com/meko-audio/audiofile/internal/directbuf"
)

type state int

const (
	stateClosed state = iota
	stateReadable
	stateWritable
)

// AudioFile is the synchronous facade (spec.md §4.4): a reader or a writer
// over one of the six container formats, backed by a single
// bufhandler.Handler of its own (the byte buffer is never shared across
// facades, spec.md §5).
type AudioFile struct {
	state state

	reader io.Reader // the stream to read sample data from (raw seeker or the retained bufio.Reader)
	writer io.Writer // the stream to write sample data to

	seeker   io.Seeker
	writerAt io.WriterAt // present only when the sink supports back-patching
	closer   io.Closer

	header   afcore.Header
	writable afcore.Writable
	handler  *bufhandler.Handler

	spec      afcore.Spec
	position  int64
	numFrames int64
}

func orderOf(o afcore.ByteOrder) bytecodec.ByteOrder {
	if o == afcore.LittleEndian {
		return bytecodec.LittleEndian
	}

	return bytecodec.BigEndian
}

func newHandler(spec afcore.Spec) (*bufhandler.Handler, error) {
	sc, err := bufhandler.NewSampleCodec(spec.SampleFormat, orderOf(spec.ByteOrder))
	if err != nil {
		return nil, err
	}

	alloc := directbuf.Select(afconfig.UseDirectMemory())

	return bufhandler.New(sc, spec.NumChannels, alloc)
}

// OpenRead probes source, parses its header, and returns a facade
// positioned at position=0. source should be an io.ReadSeeker to support
// seek(); a plain io.Reader still works but seek() then reports
// ErrUnsupportedOperation.
func OpenRead(source io.Reader) (*AudioFile, error) {
	seeker, seekable := source.(io.Seeker)

	spec, header, err := parseHeader(source, seeker, seekable, nil)
	if err != nil {
		return nil, err
	}

	return finishOpenRead(source, seeker, seekable, spec, header)
}

// OpenReadRaw opens source as headerless Raw audio of the given spec. Raw
// has no magic to identify by, so it cannot go through OpenRead.
func OpenReadRaw(source io.Reader, spec Spec) (*AudioFile, error) {
	spec.FileType = afcore.Raw

	codec, err := afcore.ForRead(afcore.Raw)
	if err != nil {
		return nil, err
	}

	header, err := codec.Parse(source, &spec)
	if err != nil {
		return nil, err
	}

	seeker, seekable := source.(io.Seeker)

	return finishOpenRead(source, seeker, seekable, header.Spec(), header)
}

func finishOpenRead(source io.Reader, seeker io.Seeker, seekable bool, spec afcore.Spec, header afcore.Header) (*AudioFile, error) {
	if seekable {
		if _, err := seeker.Seek(header.SampleDataOffset(), io.SeekStart); err != nil {
			return nil, fmt.Errorf("%w: positioning at sample data: %w", afcore.ErrIo, err)
		}
	}

	handler, err := newHandler(spec)
	if err != nil {
		return nil, err
	}

	af := &AudioFile{
		state:     stateReadable,
		reader:    source,
		header:    header,
		handler:   handler,
		spec:      spec,
		numFrames: spec.NumFrames,
	}

	if seekable {
		af.seeker = seeker
	}

	if closer, ok := source.(io.Closer); ok {
		af.closer = closer
	}

	return af, nil
}

// OpenWrite emits an initial header for spec to sink and returns a facade
// positioned at position=0, numFrames=0.
//
// spec.FileType is honored as given; this does not implement spec.md
// §4.3.3's auto-promotion of an oversized Wave write to Wave64 (a writer
// can't know its eventual payload size up front when the sink is a plain
// io.Writer with no announced length). Callers who expect to exceed
// 2^32-header bytes should request FileType: Wave64 directly.
func OpenWrite(sink io.Writer, spec Spec) (*AudioFile, error) {
	codec, err := afcore.ForWrite(spec.FileType)
	if err != nil {
		return nil, err
	}

	writable, err := codec.Emit(sink, spec)
	if err != nil {
		return nil, err
	}

	resolvedSpec := writable.Spec()

	handler, err := newHandler(resolvedSpec)
	if err != nil {
		return nil, err
	}

	af := &AudioFile{
		state:    stateWritable,
		writer:   sink,
		header:   writable,
		writable: writable,
		handler:  handler,
		spec:     resolvedSpec,
	}

	if seeker, ok := sink.(io.Seeker); ok {
		af.seeker = seeker
	}

	if wa, ok := sink.(io.WriterAt); ok {
		af.writerAt = wa
	}

	if closer, ok := sink.(io.Closer); ok {
		af.closer = closer
	}

	return af, nil
}

// Spec returns the facade's resolved audio spec.
func (af *AudioFile) Spec() afcore.Spec { return af.spec }

// NumFrames returns the highest frame index written so far (writers) or the
// header's declared frame count (readers).
func (af *AudioFile) NumFrames() int64 { return af.numFrames }

// Position returns the current frame position.
func (af *AudioFile) Position() int64 { return af.position }

// IsOpen reports whether the facade has not been closed.
func (af *AudioFile) IsOpen() bool { return af.state != stateClosed }

// IsReadable reports whether Read is valid in the facade's current state.
func (af *AudioFile) IsReadable() bool { return af.state == stateReadable }

// IsWritable reports whether Write is valid in the facade's current state.
func (af *AudioFile) IsWritable() bool { return af.state == stateWritable }

// Read fills frames[c][off:off+length] from the backing store and advances
// position by length.
func (af *AudioFile) Read(frames Frames, off, length int) error {
	if af.state != stateReadable {
		return fmt.Errorf("%w: read on a non-readable facade", afcore.ErrUnsupportedOperation)
	}

	if err := af.handler.Read(af.reader, frames, off, length); err != nil {
		return err
	}

	af.position += int64(length)

	return nil
}

// Write encodes frames[c][off:off+length] to the backing store, advances
// position by length, and raises numFrames to max(numFrames, position).
func (af *AudioFile) Write(frames Frames, off, length int) error {
	if af.state != stateWritable {
		return fmt.Errorf("%w: write on a non-writable facade", afcore.ErrUnsupportedOperation)
	}

	if err := af.handler.Write(af.writer, frames, off, length); err != nil {
		return err
	}

	af.position += int64(length)
	if af.position > af.numFrames {
		af.numFrames = af.position
	}

	return nil
}

// Seek repositions to frame index k. Only valid on a seekable backing
// store.
func (af *AudioFile) Seek(k int64) error {
	if af.seeker == nil {
		return fmt.Errorf("%w: seek on a stream-backed facade", afcore.ErrUnsupportedOperation)
	}

	abs := af.header.SampleDataOffset() + k*int64(af.spec.FrameSize())

	if _, err := af.seeker.Seek(abs, io.SeekStart); err != nil {
		return fmt.Errorf("%w: %w", afcore.ErrIo, err)
	}

	af.position = k

	return nil
}

// Flush back-patches the header's length field(s) with the current
// numFrames. Valid only for a writer whose sink supports positioned writes.
func (af *AudioFile) Flush() error {
	if af.state != stateWritable {
		return fmt.Errorf("%w: flush on a non-writable facade", afcore.ErrUnsupportedOperation)
	}

	if af.writerAt == nil {
		return fmt.Errorf("%w: flush on a stream-backed writer", afcore.ErrUnsupportedOperation)
	}

	return afcore.ApplyPatches(af.writerAt, af.numFrames, af.writable.Patches(af.numFrames))
}

// Close flushes (for writers) then releases the backing store. Close is
// idempotent in effect: a second call may surface an error but always
// leaves the facade Closed.
func (af *AudioFile) Close() error {
	if af.state == stateClosed {
		return nil
	}

	var flushErr error

	if af.state == stateWritable && af.writerAt != nil {
		flushErr = af.Flush()
	}

	af.state = stateClosed

	if err := af.releaseHandler(); err != nil && flushErr == nil {
		flushErr = err
	}

	if af.closer == nil {
		return flushErr
	}

	if err := af.closer.Close(); err != nil {
		if flushErr != nil {
			return flushErr
		}

		return fmt.Errorf("%w: %w", afcore.ErrIo, err)
	}

	return flushErr
}

// CleanUp releases the facade's resources, swallowing any release error —
// for callers on an error path who just want the descriptor gone.
func (af *AudioFile) CleanUp() {
	_ = af.Close()
}

func (af *AudioFile) releaseHandler() error {
	if af.handler == nil {
		return nil
	}

	return af.handler.Close()
}

// CopyTo reads n frames from af and writes them to target, using a scratch
// plane of at most 8192 frames (spec.md §4.4).
func (af *AudioFile) CopyTo(target *AudioFile, n int64) error {
	const maxChunk = 8192

	chunk := n
	if chunk > maxChunk {
		chunk = maxChunk
	}

	if chunk < 1 {
		chunk = 1
	}

	scratch := Buffer(af.spec.NumChannels)
	if int64(len(scratch[0])) != chunk {
		scratch = BufferSized(af.spec.NumChannels, int(chunk))
	}

	var copied int64

	for copied < n {
		want := n - copied
		if want > chunk {
			want = chunk
		}

		if err := af.Read(scratch, 0, int(want)); err != nil {
			return err
		}

		if err := target.Write(scratch, 0, int(want)); err != nil {
			return err
		}

		copied += want
	}

	return nil
}
