package pwhash

import (
	"strings"
	"testing"
)

func TestHashVerify(t *testing.T) {
	encoded, err := Hash("correct horse battery staple")
	if err != nil {
		t.Fatal(err)
	}
	if !Verify("correct horse battery staple", encoded) {
		t.Fatal("Correct password failed to verify")
	}
	if Verify("correct horse battery stable", encoded) {
		t.Fatal("Wrong password verified")
	}
}

func TestHashIsSalted(t *testing.T) {
	h1, err := Hash("same-password")
	if err != nil {
		t.Fatal(err)
	}
	h2, err := Hash("same-password")
	if err != nil {
		t.Fatal(err)
	}
	if h1 == h2 {
		t.Fatal("Two hashes of the same password are identical")
	}
}

func TestVerifyMalformed(t *testing.T) {
	for _, encoded := range []string{
		"",
		"no-separator",
		"xyz$abc",
		strings.Repeat("0", 32) + "$" + "zz",
	} {
		if Verify("anything", encoded) {
			t.Fatalf("Malformed hash %q verified", encoded)
		}
	}
}
