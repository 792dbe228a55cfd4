package vault

import (
	"bytes"
	"testing"
)

func TestSealOpenRoundTrip(t *testing.T) {
	salt, err := MakeSalt()
	if err != nil {
		t.Fatal(err)
	}
	key := DeriveKey("hunter2hunter2", salt)
	ct, err := Seal(key, []byte("class MyBot(PokerBotAPI): pass"))
	if err != nil {
		t.Fatal(err)
	}
	pt, ok := Open(key, ct)
	if !ok {
		t.Fatal("Open failed with the sealing key")
	}
	if !bytes.Equal(pt, []byte("class MyBot(PokerBotAPI): pass")) {
		t.Fatal("Decrypted plaintext differs from original")
	}
}

func TestOpenWrongPassword(t *testing.T) {
	salt, err := MakeSalt()
	if err != nil {
		t.Fatal(err)
	}
	key := DeriveKey("correct-password", salt)
	ct, err := Seal(key, []byte("secret bot code"))
	if err != nil {
		t.Fatal(err)
	}
	wrong := DeriveKey("wrong-password", salt)
	if pt, ok := Open(wrong, ct); ok || pt != nil {
		t.Fatal("Open succeeded with a wrong key")
	}
}

func TestOpenTamperedCiphertext(t *testing.T) {
	salt, err := MakeSalt()
	if err != nil {
		t.Fatal(err)
	}
	key := DeriveKey("correct-password", salt)
	ct, err := Seal(key, []byte("secret bot code"))
	if err != nil {
		t.Fatal(err)
	}
	ct[len(ct)-1] ^= 0x01
	if _, ok := Open(key, ct); ok {
		t.Fatal("Open succeeded on tampered ciphertext")
	}
}

func TestOpenTruncated(t *testing.T) {
	key := DeriveKey("p", []byte("0123456789abcdef"))
	if _, ok := Open(key, []byte("short")); ok {
		t.Fatal("Open succeeded on a truncated message")
	}
}

func TestDeriveKeySaltSensitivity(t *testing.T) {
	s1 := []byte("0123456789abcdef")
	s2 := []byte("fedcba9876543210")
	if *DeriveKey("same-password", s1) == *DeriveKey("same-password", s2) {
		t.Fatal("Identical keys derived under different salts")
	}
}
