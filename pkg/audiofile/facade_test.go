package audiofile_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/meko-audio/audiofile/pkg/audiofile"
)

func concatFrames(a, b audiofile.Frames) audiofile.Frames {
	out := make(audiofile.Frames, len(a))

	for c := range a {
		combined := make([]float64, len(a[c])+len(b[c]))
		copy(combined, a[c])
		copy(combined[len(a[c]):], b[c])
		out[c] = combined
	}

	return out
}

// quantizeToFloat32 rounds every sample to float32 precision, the
// unavoidable loss spec.md §8's lossless-float invariant excepts ("modulo
// Float32 quantization of an f64 input").
func quantizeToFloat32(p audiofile.Frames) audiofile.Frames {
	out := make(audiofile.Frames, len(p))

	for c := range p {
		row := make([]float64, len(p[c]))
		for i, v := range p[c] {
			row[i] = float64(float32(v))
		}

		out[c] = row
	}

	return out
}

func genPlane(seed int64, numChannels, numFrames int) audiofile.Frames {
	r := rand.New(rand.NewSource(seed))

	p := audiofile.BufferSized(numChannels, numFrames)
	for c := range p {
		for i := range p[c] {
			p[c][i] = r.Float64()*2 - 1 // [-1, 1)
		}
	}

	return p
}

func writeAll(t *testing.T, af *audiofile.AudioFile, plane audiofile.Frames) {
	t.Helper()

	n := plane.NumFrames()

	const chunk = 4096

	for off := 0; off < n; off += chunk {
		length := chunk
		if off+length > n {
			length = n - off
		}

		if err := af.Write(plane, off, length); err != nil {
			t.Fatalf("write at %d: %v", off, err)
		}
	}
}

func readAll(t *testing.T, af *audiofile.AudioFile, numChannels int, n int) audiofile.Frames {
	t.Helper()

	out := audiofile.BufferSized(numChannels, n)

	const chunk = 4096

	for off := 0; off < n; off += chunk {
		length := chunk
		if off+length > n {
			length = n - off
		}

		if err := af.Read(out, off, length); err != nil {
			t.Fatalf("read at %d: %v", off, err)
		}
	}

	return out
}

// TestNeXTRoundTrip exercises spec.md §8 scenario 1: i16, 2 ch, 44100 Hz,
// 10000 frames generated across two distinct seeds, round-tripped through
// a NeXT file.
func TestNeXTRoundTrip(t *testing.T) {
	spec := audiofile.Spec{
		FileType:     audiofile.NeXT,
		SampleFormat: audiofile.Int16,
		NumChannels:  2,
		SampleRate:   44100,
	}

	first := genPlane(0, 2, 8192)
	second := genPlane(1, 2, 1808)

	var file memFile

	wf, err := audiofile.OpenWrite(&file, spec)
	if err != nil {
		t.Fatalf("OpenWrite: %v", err)
	}

	writeAll(t, wf, first)
	writeAll(t, wf, second)

	if err := wf.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if !bytes.HasPrefix(file.buf, []byte(".snd")) {
		t.Fatalf("file does not begin with .snd magic: %x", file.buf[:4])
	}

	dataOffset := binary.BigEndian.Uint32(file.buf[4:8])
	dataSize := binary.BigEndian.Uint32(file.buf[8:12])
	encoding := binary.BigEndian.Uint32(file.buf[12:16])
	sampleRate := binary.BigEndian.Uint32(file.buf[16:20])
	channels := binary.BigEndian.Uint32(file.buf[20:24])

	if dataOffset != 28 {
		t.Errorf("dataOffset = %d, want 28", dataOffset)
	}

	if dataSize != 40000 {
		t.Errorf("dataSize = %d, want 40000", dataSize)
	}

	if encoding != 3 {
		t.Errorf("encoding = %d, want 3 (linear16)", encoding)
	}

	if sampleRate != 44100 || channels != 2 {
		t.Errorf("sampleRate/channels = %d/%d, want 44100/2", sampleRate, channels)
	}

	file.pos = 0

	rf, err := audiofile.OpenRead(&file)
	if err != nil {
		t.Fatalf("OpenRead: %v", err)
	}
	defer rf.Close()

	if rf.NumFrames() != 10000 {
		t.Fatalf("NumFrames() = %d, want 10000", rf.NumFrames())
	}

	got := readAll(t, rf, 2, 10000)

	tolerance := 2.02 / 65536.0
	diff := cmp.Diff(concatFrames(first, second), got, cmpopts.EquateApprox(0, tolerance))
	if diff != "" {
		t.Errorf("round-tripped samples differ beyond PCM tolerance (-want +got):\n%s", diff)
	}
}

// TestWAVPromotesToExtensible exercises spec.md §8 scenario 2.
func TestWAVPromotesToExtensible(t *testing.T) {
	spec := audiofile.Spec{
		FileType:     audiofile.Wave,
		SampleFormat: audiofile.Float32,
		NumChannels:  6,
		SampleRate:   48000,
	}

	plane := genPlane(2, 6, 1000)

	var file memFile

	wf, err := audiofile.OpenWrite(&file, spec)
	if err != nil {
		t.Fatalf("OpenWrite: %v", err)
	}

	writeAll(t, wf, plane)

	if err := wf.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	formatTag := binary.LittleEndian.Uint16(file.buf[20:22])
	if formatTag != 0xFFFE {
		t.Fatalf("fmt tag = %#x, want 0xFFFE (EXTENSIBLE)", formatTag)
	}

	subFormat := file.buf[44:60]
	wantPrefix := []byte{0x03, 0x00, 0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0xAA, 0x00, 0x38, 0x9B, 0x71}
	if !bytes.Equal(subFormat, wantPrefix) {
		t.Errorf("subformat GUID = % x, want % x", subFormat, wantPrefix)
	}

	file.pos = 0

	rf, err := audiofile.OpenRead(&file)
	if err != nil {
		t.Fatalf("OpenRead: %v", err)
	}
	defer rf.Close()

	got := readAll(t, rf, 6, 1000)

	if diff := cmp.Diff(quantizeToFloat32(plane), got); diff != "" {
		t.Errorf("Float32 round trip not lossless (-want +got):\n%s", diff)
	}
}

// TestAIFCSowtRoundTrip exercises spec.md §8 scenario 3.
func TestAIFCSowtRoundTrip(t *testing.T) {
	spec := audiofile.Spec{
		FileType:     audiofile.AIFF,
		SampleFormat: audiofile.Int24,
		NumChannels:  1,
		SampleRate:   96000,
		ByteOrder:    audiofile.LittleEndian,
	}

	plane := genPlane(3, 1, 5)

	var file memFile

	wf, err := audiofile.OpenWrite(&file, spec)
	if err != nil {
		t.Fatalf("OpenWrite: %v", err)
	}

	writeAll(t, wf, plane)

	if err := wf.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if !bytes.Contains(file.buf[:64], []byte("sowt")) {
		t.Fatalf("expected sowt compression tag in COMM chunk, file head: %x", file.buf[:64])
	}

	file.pos = 0

	rf, err := audiofile.OpenRead(&file)
	if err != nil {
		t.Fatalf("OpenRead: %v", err)
	}
	defer rf.Close()

	if rf.Spec().ByteOrder != audiofile.LittleEndian {
		t.Errorf("ByteOrder = %v, want LittleEndian", rf.Spec().ByteOrder)
	}

	got := readAll(t, rf, 1, 5)

	tolerance := 2.02 / (1 << 24)
	diff := cmp.Diff(plane, got, cmpopts.EquateApprox(0, tolerance))
	if diff != "" {
		t.Errorf("sowt round trip differs beyond PCM tolerance (-want +got):\n%s", diff)
	}
}

// TestLengthSentinelRead exercises spec.md §8 scenario 4: a hand-built
// NeXT file whose dataSize is the 0xFFFFFFFF sentinel but whose physical
// payload is exactly 7 frames long.
func TestLengthSentinelRead(t *testing.T) {
	const numChannels = 1
	const frameSize = 2 // Int16 mono
	const numFrames = 7

	var buf bytes.Buffer
	buf.WriteString(".snd")

	var hdr [20]byte
	binary.BigEndian.PutUint32(hdr[0:4], 28)         // dataOffset
	binary.BigEndian.PutUint32(hdr[4:8], 0xFFFFFFFF) // dataSize sentinel
	binary.BigEndian.PutUint32(hdr[8:12], 3)         // linear16
	binary.BigEndian.PutUint32(hdr[12:16], 44100)
	binary.BigEndian.PutUint32(hdr[16:20], numChannels)
	buf.Write(hdr[:])
	buf.Write(make([]byte, 4)) // one-word info string, so sample data starts at dataOffset 28

	buf.Write(make([]byte, numFrames*frameSize*numChannels))

	file := memFile{buf: buf.Bytes()}

	rf, err := audiofile.OpenRead(&file)
	if err != nil {
		t.Fatalf("OpenRead: %v", err)
	}
	defer rf.Close()

	if rf.NumFrames() != numFrames {
		t.Fatalf("NumFrames() = %d, want %d", rf.NumFrames(), numFrames)
	}
}

// TestIdentifyDispatch exercises spec.md §8 scenario 6.
func TestIdentifyDispatch(t *testing.T) {
	aiffPrefix := []byte{0x46, 0x4F, 0x52, 0x4D, 0, 0, 0, 0, 0x41, 0x49, 0x46, 0x46}

	file := memFile{buf: append(append([]byte{}, aiffPrefix...), make([]byte, 64)...)}

	ft, found, err := audiofile.Identify(&file)
	if err != nil || !found || ft != audiofile.AIFF {
		t.Errorf("AIFF prefix: got (%v, %v, %v), want (AIFF, true, nil)", ft, found, err)
	}

	if file.pos != 0 {
		t.Errorf("stream position after Identify = %d, want 0", file.pos)
	}

	nextFile := memFile{buf: append([]byte(".snd"), make([]byte, 64)...)}

	ft, found, err = audiofile.Identify(&nextFile)
	if err != nil || !found || ft != audiofile.NeXT {
		t.Errorf("NeXT prefix: got (%v, %v, %v), want (NeXT, true, nil)", ft, found, err)
	}

	randomFile := memFile{buf: bytes.Repeat([]byte{0xAB}, 64)}

	_, found, err = audiofile.Identify(&randomFile)
	if err != nil || found {
		t.Errorf("random bytes: got (found=%v, err=%v), want (false, nil)", found, err)
	}

	if randomFile.pos != 0 {
		t.Errorf("stream position after failed Identify = %d, want 0", randomFile.pos)
	}
}

// TestCopyTo exercises the copyTo operation (spec.md §4.4): full transfer
// between a reader and a fresh writer preserves frame-for-frame content.
func TestCopyTo(t *testing.T) {
	spec := audiofile.Spec{
		FileType:     audiofile.Wave,
		SampleFormat: audiofile.Float64,
		NumChannels:  2,
		SampleRate:   48000,
	}

	plane := genPlane(4, 2, 20000) // more than one 8192-frame scratch chunk

	var srcFile memFile

	wf, err := audiofile.OpenWrite(&srcFile, spec)
	if err != nil {
		t.Fatalf("OpenWrite src: %v", err)
	}

	writeAll(t, wf, plane)

	if err := wf.Close(); err != nil {
		t.Fatalf("Close src: %v", err)
	}

	srcFile.pos = 0

	rf, err := audiofile.OpenRead(&srcFile)
	if err != nil {
		t.Fatalf("OpenRead src: %v", err)
	}
	defer rf.Close()

	var dstFile memFile

	wf2, err := audiofile.OpenWrite(&dstFile, spec)
	if err != nil {
		t.Fatalf("OpenWrite dst: %v", err)
	}

	if err := rf.CopyTo(wf2, rf.NumFrames()); err != nil {
		t.Fatalf("CopyTo: %v", err)
	}

	if err := wf2.Close(); err != nil {
		t.Fatalf("Close dst: %v", err)
	}

	if !bytes.Equal(srcFile.buf, dstFile.buf) {
		t.Error("copied file bytes differ from source")
	}
}

// TestPositioning exercises the seek invariant from spec.md §8.
func TestPositioning(t *testing.T) {
	spec := audiofile.Spec{
		FileType:     audiofile.Wave,
		SampleFormat: audiofile.Int16,
		NumChannels:  1,
		SampleRate:   44100,
	}

	plane := genPlane(5, 1, 1000)

	var file memFile

	wf, err := audiofile.OpenWrite(&file, spec)
	if err != nil {
		t.Fatalf("OpenWrite: %v", err)
	}

	writeAll(t, wf, plane)

	if err := wf.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	file.pos = 0

	rf, err := audiofile.OpenRead(&file)
	if err != nil {
		t.Fatalf("OpenRead: %v", err)
	}
	defer rf.Close()

	if err := rf.Seek(500); err != nil {
		t.Fatalf("Seek: %v", err)
	}

	if rf.Position() != 500 {
		t.Fatalf("Position() = %d, want 500", rf.Position())
	}

	viaSeek := readAll(t, rf, 1, 100)

	file.pos = 0

	rf2, err := audiofile.OpenRead(&file)
	if err != nil {
		t.Fatalf("OpenRead #2: %v", err)
	}
	defer rf2.Close()

	skip := audiofile.BufferSized(1, 500)
	if err := rf2.Read(skip, 0, 500); err != nil {
		t.Fatalf("skip read: %v", err)
	}

	viaSkip := readAll(t, rf2, 1, 100)

	if diff := cmp.Diff(viaSeek, viaSkip); diff != "" {
		t.Errorf("seek(500) and skip(500) disagree (-seek +skip):\n%s", diff)
	}
}

func TestWriteRejectsNilChannelRow(t *testing.T) {
	spec := audiofile.Spec{
		FileType:     audiofile.Wave,
		SampleFormat: audiofile.Int16,
		NumChannels:  2,
		SampleRate:   44100,
	}

	var file memFile

	wf, err := audiofile.OpenWrite(&file, spec)
	if err != nil {
		t.Fatalf("OpenWrite: %v", err)
	}
	defer wf.CleanUp()

	frames := audiofile.Frames{make([]float64, 10), nil}

	err = wf.Write(frames, 0, 10)
	if !errors.Is(err, audiofile.ErrInvalidArgument) {
		t.Errorf("Write with nil channel row: err = %v, want ErrInvalidArgument", err)
	}
}

func TestReadOnWriterRejected(t *testing.T) {
	spec := audiofile.Spec{
		FileType:     audiofile.Wave,
		SampleFormat: audiofile.Int16,
		NumChannels:  1,
		SampleRate:   44100,
	}

	var file memFile

	wf, err := audiofile.OpenWrite(&file, spec)
	if err != nil {
		t.Fatalf("OpenWrite: %v", err)
	}
	defer wf.CleanUp()

	out := audiofile.BufferSized(1, 10)

	err = wf.Read(out, 0, 10)
	if !errors.Is(err, audiofile.ErrUnsupportedOperation) {
		t.Errorf("Read on writer: err = %v, want ErrUnsupportedOperation", err)
	}
}

func TestOpenReadRaw(t *testing.T) {
	spec := audiofile.Spec{
		SampleFormat: audiofile.Float32,
		NumChannels:  2,
		SampleRate:   48000,
	}

	plane := genPlane(6, 2, 100)

	var file memFile

	wf, err := audiofile.OpenWrite(&file, audiofile.Spec{
		FileType:     audiofile.Raw,
		SampleFormat: spec.SampleFormat,
		NumChannels:  spec.NumChannels,
		SampleRate:   spec.SampleRate,
	})
	if err != nil {
		t.Fatalf("OpenWrite: %v", err)
	}

	writeAll(t, wf, plane)

	if err := wf.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	file.pos = 0

	rf, err := audiofile.OpenReadRaw(&file, spec)
	if err != nil {
		t.Fatalf("OpenReadRaw: %v", err)
	}
	defer rf.Close()

	got := readAll(t, rf, 2, 100)

	if diff := cmp.Diff(quantizeToFloat32(plane), got); diff != "" {
		t.Errorf("Raw round trip not lossless (-want +got):\n%s", diff)
	}
}

var _ io.ReadWriteSeeker = (*memFile)(nil)
var _ io.WriterAt = (*memFile)(nil)
var _ io.ReaderAt = (*memFile)(nil)
