package memzero_test

import (
	"bytes"
	"testing"

	"treegroup/internal/util/memzero"
)

func TestZero(t *testing.T) {
	a := []byte("epoch secret")
	b := bytes.Repeat([]byte{0xff}, 32)
	memzero.Zero(a, nil, b, []byte{})
	if !bytes.Equal(a, make([]byte, len(a))) {
		t.Fatalf("first buffer not cleared: %x", a)
	}
	if !bytes.Equal(b, make([]byte, len(b))) {
		t.Fatalf("second buffer not cleared: %x", b)
	}
}

func TestZeroClearsSharedBacking(t *testing.T) {
	buf := []byte("joiner|leaf")
	memzero.Zero(buf[:6])
	if string(buf[6:]) != "|leaf" {
		t.Fatalf("tail changed: %q", buf[6:])
	}
	if !bytes.Equal(buf[:6], make([]byte, 6)) {
		t.Fatalf("prefix not cleared: %x", buf[:6])
	}
}
