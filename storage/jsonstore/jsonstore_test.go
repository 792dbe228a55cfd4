package jsonstore

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type table struct {
	Bots map[string]int `json:"bots"`
}

func TestLoadMissingDocument(t *testing.T) {
	dir, err := ioutil.TempDir("", "jsonstore")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	s := New(filepath.Join(dir, "metadata.json"))
	var tab table
	q, err := s.Load(&tab)
	if err != nil {
		t.Fatal(err)
	}
	if q != "" {
		t.Fatal("Missing document must not be quarantined")
	}
	if tab.Bots != nil {
		t.Fatal("Missing document must leave the value untouched")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir, err := ioutil.TempDir("", "jsonstore")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	s := New(filepath.Join(dir, "metadata.json"))
	if err := s.Save(&table{Bots: map[string]int{"Falcon": 3}}); err != nil {
		t.Fatal(err)
	}
	var tab table
	if _, err := s.Load(&tab); err != nil {
		t.Fatal(err)
	}
	if tab.Bots["Falcon"] != 3 {
		t.Fatalf("Expect Falcon=3, got %d", tab.Bots["Falcon"])
	}
}

func TestCorruptDocumentQuarantined(t *testing.T) {
	dir, err := ioutil.TempDir("", "jsonstore")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "metadata.json")
	if err := ioutil.WriteFile(path, []byte("{truncated"), 0600); err != nil {
		t.Fatal(err)
	}

	s := New(path)
	var tab table
	q, err := s.Load(&tab)
	if err != nil {
		t.Fatal(err)
	}
	if q == "" {
		t.Fatal("Corrupt document was not quarantined")
	}
	if !strings.Contains(q, ".corrupt.") {
		t.Fatalf("Unexpected quarantine path %s", q)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("Corrupt document still in place after quarantine")
	}
	// the workflow continues with an empty document
	if err := s.Save(&table{Bots: map[string]int{}}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load(&tab); err != nil {
		t.Fatal(err)
	}
}
