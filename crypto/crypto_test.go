package crypto

import (
	"bytes"
	"testing"
)

func TestDigestDeterministic(t *testing.T) {
	d1 := Digest([]byte("Falcon"), []byte("a@x.com"))
	d2 := Digest([]byte("Falcon"), []byte("a@x.com"))
	if !bytes.Equal(d1, d2) {
		t.Fatal("Digest of identical input differs")
	}
	if len(d1) != HashSizeByte {
		t.Fatalf("Expect %d-byte digest, got %d", HashSizeByte, len(d1))
	}
}

func TestDigestDiffers(t *testing.T) {
	d1 := Digest([]byte("Falcon"))
	d2 := Digest([]byte("falcon"))
	if bytes.Equal(d1, d2) {
		t.Fatal("Digest of different input collides")
	}
}

func TestMakeRand(t *testing.T) {
	r1, err := MakeRand()
	if err != nil {
		t.Fatal(err)
	}
	r2, err := MakeRand()
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(r1, r2) {
		t.Fatal("MakeRand returned identical values")
	}
}
