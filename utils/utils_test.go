package utils

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileRefusesOverwrite(t *testing.T) {
	dir, err := ioutil.TempDir("", "utils")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	file := filepath.Join(dir, "artifact")
	if err := WriteFile(file, []byte("one"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := WriteFile(file, []byte("two"), 0600); err == nil {
		t.Fatal("Expected an error when overwriting an existing file")
	}
	buf, err := ioutil.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf, []byte("one")) {
		t.Fatal("Original file content was clobbered")
	}
}

func TestWriteFileAtomicReplaces(t *testing.T) {
	dir, err := ioutil.TempDir("", "utils")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	file := filepath.Join(dir, "record.json")
	if err := WriteFileAtomic(file, []byte("first"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := WriteFileAtomic(file, []byte("second"), 0600); err != nil {
		t.Fatal(err)
	}
	buf, err := ioutil.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf, []byte("second")) {
		t.Fatalf("Expect replaced content, got %s", buf)
	}
	// no leftover temporary files
	entries, err := ioutil.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expect 1 file in dir, got %d", len(entries))
	}
}

func TestResolvePath(t *testing.T) {
	got := ResolvePath("bots.db", "/etc/botvault/config.toml")
	if got != "/etc/botvault/bots.db" {
		t.Fatalf("Unexpected resolved path %s", got)
	}
	got = ResolvePath("/var/lib/botvault/bots.db", "/etc/botvault/config.toml")
	if got != "/var/lib/botvault/bots.db" {
		t.Fatalf("Absolute path must be kept as is, got %s", got)
	}
}
