package async

import (
	"fmt"
	"sync"

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

// Spec and Frames are the same shapes the synchronous facade uses;
// re-exported here so callers of this package don't also need
// pkg/audiofile.
type Spec = afcore.Spec
type Frames = afcore.Frames

// AudioFile is the asynchronous facade (spec.md §4.5, C7): every blocking
// operation of pkg/audiofile.AudioFile has a counterpart here that returns
// a *Future instead. A single in-flight flag (guarded by mu) enforces
// spec.md §4.5's "at most one in-flight I/O operation per facade" — a
// second Read or Write issued before the first completes is rejected
// with ErrConcurrentAccess rather than queued. Flush does not take the
// flag; a Write that lands during a Flush is detected by updateAsync's
// watermark check instead.
type AudioFile struct {
	mu sync.Mutex

	channel  Channel
	state    state
	inFlight bool

	header   afcore.Header
	writable afcore.Writable
	codec    bufhandler.SampleCodec
	alloc    bufhandler.Allocator

	spec             afcore.Spec
	frameSize        int
	position         int64
	numFrames        int64
	patchedNumFrames int64
}

func orderOf(o afcore.ByteOrder) bytecodec.ByteOrder {
	if o == afcore.LittleEndian {
		return bytecodec.LittleEndian
	}

	return bytecodec.BigEndian
}

// OpenResult is what an OpenReadAsync/OpenWriteAsync completion delivers.
type OpenResult struct {
	AudioFile *AudioFile
	Err       error
}

// OpenFuture is the deferred<AudioFile> spec.md §6 names for the async
// open calls.
type OpenFuture struct {
	C <-chan OpenResult
}

func (f *OpenFuture) Await() (*AudioFile, error) {
	r := <-f.C
	return r.AudioFile, r.Err
}

// OpenReadAsync probes channel, parses its header, and completes with a
// facade positioned at position=0. Header identification and parsing run
// synchronously on a background goroutine — the caller's goroutine is
// never blocked.
func OpenReadAsync(channel Channel) *OpenFuture {
	c := make(chan OpenResult, 1)
	out := &OpenFuture{C: c}

	go func() {
		cr := &channelReader{ch: channel}

		ft, found, br, err := afcore.Identify(cr)
		if err != nil {
			c <- OpenResult{Err: err}
			return
		}

		if !found {
			c <- OpenResult{Err: afcore.ErrUnrecognizedFormat}
			return
		}

		codec, err := afcore.ForRead(ft)
		if err != nil {
			c <- OpenResult{Err: err}
			return
		}

		header, err := codec.Parse(br, nil)
		if err != nil {
			c <- OpenResult{Err: err}
			return
		}

		spec := header.Spec()

		sc, err := bufhandler.NewSampleCodec(spec.SampleFormat, orderOf(spec.ByteOrder))
		if err != nil {
			c <- OpenResult{Err: err}
			return
		}

		af := &AudioFile{
			channel:   channel,
			state:     stateReadable,
			header:    header,
			codec:     sc,
			alloc:     directbuf.Select(afconfig.UseDirectMemory()),
			spec:      spec,
			frameSize: spec.FrameSize(),
			numFrames: spec.NumFrames,
		}

		c <- OpenResult{AudioFile: af}
	}()

	return out
}

// OpenWriteAsync emits spec's initial header to channel and completes with
// a facade positioned at position=0, numFrames=0.
func OpenWriteAsync(channel Channel, spec afcore.Spec) *OpenFuture {
	c := make(chan OpenResult, 1)
	out := &OpenFuture{C: c}

	go func() {
		codec, err := afcore.ForWrite(spec.FileType)
		if err != nil {
			c <- OpenResult{Err: err}
			return
		}

		pw := &positionedWriter{ch: channel}

		writable, err := codec.Emit(pw, spec)
		if err != nil {
			c <- OpenResult{Err: err}
			return
		}

		resolvedSpec := writable.Spec()

		sc, err := bufhandler.NewSampleCodec(resolvedSpec.SampleFormat, orderOf(resolvedSpec.ByteOrder))
		if err != nil {
			c <- OpenResult{Err: err}
			return
		}

		af := &AudioFile{
			channel:   channel,
			state:     stateWritable,
			header:    writable,
			writable:  writable,
			codec:     sc,
			alloc:     directbuf.Select(afconfig.UseDirectMemory()),
			spec:      resolvedSpec,
			frameSize: resolvedSpec.FrameSize(),
		}

		c <- OpenResult{AudioFile: af}
	}()

	return out
}

// positionedWriter is an io.Writer that issues sequential positioned
// writes to a Channel, used only to emit the initial header during
// OpenWriteAsync (Codec.Emit wants an io.Writer).
type positionedWriter struct {
	ch  Channel
	pos int64
}

func (w *positionedWriter) Write(p []byte) (int, error) {
	n, err := w.ch.WriteAt(p, w.pos).Await()
	w.pos += int64(n)

	return n, err
}

// Spec returns the facade's resolved audio spec.
func (af *AudioFile) Spec() afcore.Spec {
	af.mu.Lock()
	defer af.mu.Unlock()

	return af.spec
}

// NumFrames returns the highest frame index written so far (writers) or
// the header's declared frame count (readers).
func (af *AudioFile) NumFrames() int64 {
	af.mu.Lock()
	defer af.mu.Unlock()

	return af.numFrames
}

// Position returns the current frame position.
func (af *AudioFile) Position() int64 {
	af.mu.Lock()
	defer af.mu.Unlock()

	return af.position
}

// Seek repositions to frame index k. Because every read/write this facade
// issues is already a positioned call against the Channel, no I/O is
// needed — this only updates the local cursor the next Read/Write uses.
func (af *AudioFile) Seek(k int64) {
	af.mu.Lock()
	af.position = k
	af.mu.Unlock()
}

func (af *AudioFile) tryBeginOp(requiredState state) error {
	af.mu.Lock()
	defer af.mu.Unlock()

	if af.inFlight {
		return fmt.Errorf("%w: another operation is in flight on this facade", afcore.ErrConcurrentAccess)
	}

	if af.state != requiredState {
		return fmt.Errorf("%w: operation invalid in the facade's current state", afcore.ErrUnsupportedOperation)
	}

	af.inFlight = true

	return nil
}

func (af *AudioFile) endOp() {
	af.mu.Lock()
	af.inFlight = false
	af.mu.Unlock()
}

// Read fills frames[c][off:off+length] from the backing channel and
// completes with length advanced into position once the underlying read
// lands. Only one Read or Write may be in flight at a time; a second
// issue before the first completes fails immediately with
// ErrConcurrentAccess.
func (af *AudioFile) Read(frames Frames, off, length int) (*Future, error) {
	if err := af.tryBeginOp(stateReadable); err != nil {
		return nil, err
	}

	af.mu.Lock()
	pos := af.position
	byteOff := af.header.SampleDataOffset() + pos*int64(af.frameSize)
	numChannels := af.spec.NumChannels
	af.mu.Unlock()

	buf, err := af.alloc(length * af.frameSize)
	if err != nil {
		af.endOp()
		return nil, err
	}

	scratch := buf.Bytes()
	inner := af.channel.ReadAt(scratch, byteOff)

	out, complete := newFuture()

	go func() {
		defer af.endOp()
		defer buf.Release()

		n, err := inner.Await()
		if err != nil {
			complete <- Result{N: n, Err: fmt.Errorf("%w: %w", afcore.ErrIo, err)}
			return
		}

		if n < len(scratch) {
			complete <- Result{N: n, Err: afcore.ErrEndOfFile}
			return
		}

		decodeInto(af.codec, numChannels, scratch, frames, off, length)

		af.mu.Lock()
		af.position = pos + int64(length)
		af.mu.Unlock()

		complete <- Result{N: length, Err: nil}
	}()

	return out, nil
}

// Write encodes frames[c][off:off+length] and completes once the
// underlying write lands, advancing position and raising numFrames to
// max(numFrames, position).
func (af *AudioFile) Write(frames Frames, off, length int) (*Future, error) {
	if err := af.tryBeginOp(stateWritable); err != nil {
		return nil, err
	}

	af.mu.Lock()
	pos := af.position
	byteOff := af.header.SampleDataOffset() + pos*int64(af.frameSize)
	numChannels := af.spec.NumChannels
	af.mu.Unlock()

	if len(frames) < numChannels {
		af.endOp()
		return nil, fmt.Errorf("%w: frames has %d channels, facade needs %d", afcore.ErrInvalidArgument, len(frames), numChannels)
	}

	for c := 0; c < numChannels; c++ {
		if frames[c] == nil {
			af.endOp()
			return nil, fmt.Errorf("%w: channel %d row is nil", afcore.ErrInvalidArgument, c)
		}
	}

	buf, err := af.alloc(length * af.frameSize)
	if err != nil {
		af.endOp()
		return nil, err
	}

	scratch := buf.Bytes()
	encodeFrom(af.codec, numChannels, frames, off, length, scratch)

	inner := af.channel.WriteAt(scratch, byteOff)

	out, complete := newFuture()

	go func() {
		defer af.endOp()
		defer buf.Release()

		n, err := inner.Await()
		if err != nil {
			complete <- Result{N: n, Err: fmt.Errorf("%w: %w", afcore.ErrIo, err)}
			return
		}

		af.mu.Lock()
		af.position = pos + int64(length)
		if af.position > af.numFrames {
			af.numFrames = af.position
		}
		af.mu.Unlock()

		complete <- Result{N: length, Err: nil}
	}()

	return out, nil
}

// updateAsync implements spec.md §4.5's back-patch protocol: snapshot the
// numFrames watermark, issue the header's patches for that snapshot, then
// reacquire the lock and verify the watermark hasn't moved under foot. A
// mismatch means a concurrent write advanced numFrames while this patch
// was in flight, so the just-written length is already stale;
// ErrConcurrentModification tells the caller to retry rather than trusting
// a corrupted-by-race length field.
//
// Unlike the spec's assumed single-cursor channel, Channel.WriteAt is
// already a positioned call, so there is no save-position/restore-position
// step to model explicitly — each patch write never disturbs the facade's
// own position field.
func (af *AudioFile) updateAsync() *Future {
	af.mu.Lock()
	numFrames0 := af.numFrames
	if numFrames0 == af.patchedNumFrames {
		af.mu.Unlock()
		return completed(Result{})
	}
	patches := af.writable.Patches(numFrames0)
	af.mu.Unlock()

	out, complete := newFuture()

	go func() {
		for _, p := range patches {
			b := p.Bytes(numFrames0)
			if _, err := af.channel.WriteAt(b, p.Offset).Await(); err != nil {
				complete <- Result{Err: fmt.Errorf("%w: back-patch at offset %d: %w", afcore.ErrIo, p.Offset, err)}
				return
			}
		}

		af.mu.Lock()
		defer af.mu.Unlock()

		if af.numFrames != numFrames0 {
			complete <- Result{Err: afcore.ErrConcurrentModification}
			return
		}

		af.patchedNumFrames = numFrames0
		complete <- Result{}
	}()

	return out
}

// Flush is the public entry to updateAsync: UnsupportedOperation for
// readers, since there is nothing to patch.
func (af *AudioFile) Flush() (*Future, error) {
	af.mu.Lock()
	st := af.state
	af.mu.Unlock()

	if st != stateWritable {
		return nil, fmt.Errorf("%w: flush on a non-writable facade", afcore.ErrUnsupportedOperation)
	}

	return af.updateAsync(), nil
}

// Close completes the update chain (flush, for a writer) before closing
// the channel; it is closeAsync in spec.md §4.5's naming.
func (af *AudioFile) Close() *Future {
	af.mu.Lock()
	st := af.state
	af.state = stateClosed
	af.mu.Unlock()

	out, complete := newFuture()

	go func() {
		var flushErr error

		if st == stateWritable {
			if _, err := af.updateAsync().Await(); err != nil {
				flushErr = err
			}
		}

		if err := af.channel.Close(); err != nil {
			if flushErr == nil {
				flushErr = fmt.Errorf("%w: %w", afcore.ErrIo, err)
			}
		}

		complete <- Result{Err: flushErr}
	}()

	return out
}

// CleanUp closes the facade and swallows any error, for callers on an
// error path who just want the channel released.
func (af *AudioFile) CleanUp() {
	_, _ = af.Close().Await()
}

// IsOpen reports whether the facade has not been closed.
func (af *AudioFile) IsOpen() bool {
	af.mu.Lock()
	defer af.mu.Unlock()

	return af.state != stateClosed
}

// IsReadable reports whether Read is valid in the facade's current state.
func (af *AudioFile) IsReadable() bool {
	af.mu.Lock()
	defer af.mu.Unlock()

	return af.state == stateReadable
}

// IsWritable reports whether Write is valid in the facade's current state.
func (af *AudioFile) IsWritable() bool {
	af.mu.Lock()
	defer af.mu.Unlock()

	return af.state == stateWritable
}

func decodeInto(codec bufhandler.SampleCodec, numChannels int, src []byte, frames Frames, off, length int) {
	bps := codec.BytesPerSample()
	frameSize := bps * numChannels

	for i := 0; i < length; i++ {
		base := i * frameSize

		for c := 0; c < numChannels; c++ {
			sample := src[base+c*bps : base+(c+1)*bps]
			if c < len(frames) && frames[c] != nil {
				frames[c][off+i] = codec.Decode(sample)
			}
		}
	}
}

func encodeFrom(codec bufhandler.SampleCodec, numChannels int, frames Frames, off, length int, dst []byte) {
	bps := codec.BytesPerSample()
	frameSize := bps * numChannels

	for i := 0; i < length; i++ {
		base := i * frameSize

		for c := 0; c < numChannels; c++ {
			codec.Encode(frames[c][off+i], dst[base+c*bps:base+(c+1)*bps])
		}
	}
}
