// Package jsonstore implements a durable JSON document store for the
// small metadata tables of the review, custody and admin subsystems.
//
// Every Save is atomic with respect to concurrent readers: the
// document is written to a temporary file and renamed into place, so a
// crash mid-write never leaves a corrupt or half-written document
// visible to a subsequent Load. A document that fails to parse on Load
// is quarantined (renamed aside) instead of propagating a parse
// failure to callers; the store then behaves as if it were empty.
// Serialization of mutations is the caller's responsibility.
package jsonstore

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"time"

	"github.com/botvault-sys/botvault-go/utils"
)

// A Store reads and rewrites one JSON document at a fixed path.
type Store struct {
	path string
}

// New constructs a Store for the document at path.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the location of the backing document.
func (s *Store) Path() string {
	return s.path
}

// Load decodes the document into v. A missing document leaves v
// untouched and returns ("", nil); the caller proceeds with its zero
// value. A document that cannot be decoded is moved to a quarantine
// file whose path is returned, and v is likewise left untouched.
func (s *Store) Load(v interface{}) (quarantined string, err error) {
	buf, err := ioutil.ReadFile(s.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if err := json.Unmarshal(buf, v); err != nil {
		q := fmt.Sprintf("%s.corrupt.%d", s.path, time.Now().Unix())
		if renameErr := os.Rename(s.path, q); renameErr != nil {
			return "", renameErr
		}
		return q, nil
	}
	return "", nil
}

// Save atomically rewrites the document with the encoding of v.
func (s *Store) Save(v interface{}) error {
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return utils.WriteFileAtomic(s.path, buf, 0600)
}
