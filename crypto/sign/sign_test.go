package sign

import "testing"

func TestSignVerify(t *testing.T) {
	sk, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	pk, ok := sk.Public()
	if !ok {
		t.Fatal("Cannot derive public key")
	}
	msg := []byte("LOGIN_SUCCESS admin 127.0.0.1")
	sig := sk.Sign(msg)
	if !pk.Verify(msg, sig) {
		t.Fatal("Valid signature rejected")
	}
	msg[0] ^= 0x01
	if pk.Verify(msg, sig) {
		t.Fatal("Signature verified over a modified message")
	}
}
