package directbuf

import "testing"

func TestHeapAllocatorSizesAndZeroes(t *testing.T) {
	alloc := Heap()

	buf, err := alloc(256)
	if err != nil {
		t.Fatal(err)
	}
	defer buf.Release()

	if len(buf.Bytes()) != 256 {
		t.Errorf("len(Bytes()) = %d, want 256", len(buf.Bytes()))
	}

	for i, b := range buf.Bytes() {
		if b != 0 {
			t.Fatalf("byte %d = %d, want 0", i, b)
		}
	}
}

func TestHeapBufferWritable(t *testing.T) {
	alloc := Heap()

	buf, err := alloc(4)
	if err != nil {
		t.Fatal(err)
	}
	defer buf.Release()

	copy(buf.Bytes(), []byte{1, 2, 3, 4})

	if got := buf.Bytes(); got[0] != 1 || got[3] != 4 {
		t.Errorf("Bytes() = %v, want [1 2 3 4]", got)
	}
}

func TestHeapReleaseReturnsNil(t *testing.T) {
	alloc := Heap()

	buf, err := alloc(8)
	if err != nil {
		t.Fatal(err)
	}

	if err := buf.Release(); err != nil {
		t.Errorf("Release: %v", err)
	}
}

func TestSelectHeapWhenDirectNotRequested(t *testing.T) {
	alloc := Select(false)

	buf, err := alloc(16)
	if err != nil {
		t.Fatal(err)
	}
	defer buf.Release()

	if len(buf.Bytes()) != 16 {
		t.Errorf("len(Bytes()) = %d, want 16", len(buf.Bytes()))
	}
}

func TestDirectAllocatorRoundTrip(t *testing.T) {
	alloc := Select(true)

	buf, err := alloc(4096)
	if err != nil {
		t.Fatal(err)
	}
	defer buf.Release()

	b := buf.Bytes()
	if len(b) != 4096 {
		t.Fatalf("len(Bytes()) = %d, want 4096", len(b))
	}

	b[0] = 0xFF
	b[4095] = 0x7F

	if b[0] != 0xFF || b[4095] != 0x7F {
		t.Errorf("direct buffer did not retain writes")
	}

	if err := buf.Release(); err != nil {
		t.Errorf("Release: %v", err)
	}
}
