// This module implements the encrypted custody store that holds
// approved bot code at rest. Code is encrypted under a key derived
// from the submitter's own password and a per-bot random salt, so a
// compromise of the storage medium alone discloses nothing. The store
// owns the ciphertext and salt artifacts and the bot metadata table;
// the review workflow only ever holds the name-to-identifier mapping.

package custody

import (
	"encoding/hex"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/botvault-sys/botvault-go/bot"
	"github.com/botvault-sys/botvault-go/crypto"
	"github.com/botvault-sys/botvault-go/crypto/vault"
	"github.com/botvault-sys/botvault-go/protocol"
	"github.com/botvault-sys/botvault-go/protocol/analyzer"
	"github.com/botvault-sys/botvault-go/storage/jsonstore"
	"github.com/botvault-sys/botvault-go/utils"
)

// identifierLen is the length of the hex content identifier computed
// from the ciphertext for fault diagnosis and artifact naming.
const identifierLen = 16

// A Record is the metadata kept per stored bot: the opaque content
// identifier and the running statistics. The ciphertext itself lives
// in the companion artifacts <id>.enc and <id>.salt.
type Record struct {
	ID         string    `json:"bot_id"`
	UploadedAt time.Time `json:"uploaded_at"`
	Wins       int       `json:"wins"`
	TotalGames int       `json:"total_games"`
}

type metadata struct {
	Bots map[string]*Record `json:"bots"`
}

// A Store keeps encrypted, approved bot code and its metadata in one
// directory. All operations serialize on the store's lock; mutations
// to the metadata table are atomic whole-file rewrites.
type Store struct {
	sync.Mutex
	dir     string
	meta    *jsonstore.Store
	bots    metadata
	runtime bot.Runtime
}

// New opens (creating if necessary) the custody store rooted at dir.
// Decrypted code is instantiated through runtime; the store itself
// never executes or persists plaintext. If the metadata table was
// corrupted, it is quarantined and the returned path is non-empty; the
// store continues with an empty table.
func New(dir string, runtime bot.Runtime) (s *Store, quarantined string, err error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, "", err
	}
	s = &Store{
		dir:     dir,
		meta:    jsonstore.New(filepath.Join(dir, "metadata.json")),
		bots:    metadata{Bots: make(map[string]*Record)},
		runtime: runtime,
	}
	quarantined, err = s.meta.Load(&s.bots)
	if err != nil {
		return nil, "", err
	}
	if s.bots.Bots == nil {
		s.bots.Bots = make(map[string]*Record)
	}
	return s, quarantined, nil
}

func (s *Store) encPath(id string) string {
	return filepath.Join(s.dir, id+".enc")
}

func (s *Store) saltPath(id string) string {
	return filepath.Join(s.dir, id+".salt")
}

// validate re-runs the structural check authoritatively and probes the
// runtime: code that is not loadable or does not satisfy the bot
// contract must never be persisted, even if a reviewer approved it.
func (s *Store) validate(name string, code []byte) error {
	if missing := analyzer.MissingMarkers(string(code)); missing != nil {
		return fmt.Errorf("%w: missing %v", protocol.ErrMalformedMessage, missing)
	}
	if _, err := s.runtime.Instantiate(name, code); err != nil {
		return fmt.Errorf("%w: %v", protocol.ErrMalformedMessage, err)
	}
	return nil
}

// Store validates, encrypts and persists code under name, keyed by
// password, and returns the content identifier of the new ciphertext.
// It fails with protocol.ReqNameExisted if the name is taken and with
// protocol.ErrMalformedMessage if the code fails the structural check
// or cannot be instantiated.
func (s *Store) Store(name string, code []byte, password string) (string, error) {
	s.Lock()
	defer s.Unlock()
	return s.storeLocked(name, code, password, nil)
}

func (s *Store) storeLocked(name string, code []byte, password string, stats *Record) (string, error) {
	if _, ok := s.bots.Bots[name]; ok {
		return "", protocol.ReqNameExisted
	}
	if err := s.validate(name, code); err != nil {
		return "", err
	}

	salt, err := vault.MakeSalt()
	if err != nil {
		return "", err
	}
	key := vault.DeriveKey(password, salt)
	ciphertext, err := vault.Seal(key, code)
	if err != nil {
		return "", err
	}
	id := hex.EncodeToString(crypto.Digest(ciphertext))[:identifierLen]

	if err := utils.WriteFile(s.encPath(id), ciphertext, 0600); err != nil {
		return "", err
	}
	if err := utils.WriteFile(s.saltPath(id), salt, 0600); err != nil {
		os.Remove(s.encPath(id))
		return "", err
	}

	rec := &Record{ID: id, UploadedAt: time.Now()}
	if stats != nil {
		rec.Wins = stats.Wins
		rec.TotalGames = stats.TotalGames
	}
	s.bots.Bots[name] = rec
	if err := s.meta.Save(&s.bots); err != nil {
		delete(s.bots.Bots, name)
		os.Remove(s.encPath(id))
		os.Remove(s.saltPath(id))
		return "", err
	}
	return id, nil
}

// Load decrypts the named bot with the supplied password and
// instantiates it through the runtime. Every failure — unknown name,
// wrong password, tampered or missing artifacts, uninstantiable code —
// yields nil, indistinguishably, to avoid oracle leaks. Plaintext is
// never written to disk.
func (s *Store) Load(name, password string) bot.Player {
	s.Lock()
	defer s.Unlock()
	return s.loadLocked(name, password)
}

func (s *Store) loadLocked(name, password string) bot.Player {
	rec, ok := s.bots.Bots[name]
	if !ok {
		return nil
	}
	salt, err := ioutil.ReadFile(s.saltPath(rec.ID))
	if err != nil || len(salt) != vault.SaltSize {
		return nil
	}
	ciphertext, err := ioutil.ReadFile(s.encPath(rec.ID))
	if err != nil {
		return nil
	}
	key := vault.DeriveKey(password, salt)
	code, ok := vault.Open(key, ciphertext)
	if !ok {
		return nil
	}
	player, err := s.runtime.Instantiate(name, code)
	if err != nil {
		return nil
	}
	return player
}

// Update replaces the named bot's code after proving ownership by
// decrypting the current version with the supplied password. The old
// ciphertext and salt are removed, the new code goes through the full
// Store path, and the running statistics carry forward unchanged.
func (s *Store) Update(name string, newCode []byte, password string) (string, error) {
	s.Lock()
	defer s.Unlock()

	rec, ok := s.bots.Bots[name]
	if !ok {
		return "", protocol.ReqNameNotFound
	}
	if s.loadLocked(name, password) == nil {
		return "", protocol.ErrUnauthorized
	}
	// validate before touching the existing artifacts, so a bad
	// update leaves the old version intact
	if err := s.validate(name, newCode); err != nil {
		return "", err
	}

	stats := *rec
	os.Remove(s.encPath(rec.ID))
	os.Remove(s.saltPath(rec.ID))
	delete(s.bots.Bots, name)

	return s.storeLocked(name, newCode, password, &stats)
}

// Delete removes the named bot's artifacts and metadata entry, with
// the same password proof of ownership as Update.
func (s *Store) Delete(name, password string) error {
	s.Lock()
	defer s.Unlock()

	rec, ok := s.bots.Bots[name]
	if !ok {
		return protocol.ReqNameNotFound
	}
	if s.loadLocked(name, password) == nil {
		return protocol.ErrUnauthorized
	}

	os.Remove(s.encPath(rec.ID))
	os.Remove(s.saltPath(rec.ID))
	delete(s.bots.Bots, name)
	return s.meta.Save(&s.bots)
}

// List returns the metadata view of every stored bot, sorted by name.
// It never touches ciphertext.
func (s *Store) List() []protocol.BotView {
	s.Lock()
	defer s.Unlock()

	views := make([]protocol.BotView, 0, len(s.bots.Bots))
	for name, rec := range s.bots.Bots {
		v := protocol.BotView{
			Name:       name,
			ID:         rec.ID,
			Wins:       rec.Wins,
			TotalGames: rec.TotalGames,
		}
		if rec.TotalGames > 0 {
			v.WinRate = float64(rec.Wins) / float64(rec.TotalGames) * 100
		}
		views = append(views, v)
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Name < views[j].Name })
	return views
}

// Exists reports whether a bot is stored under name.
func (s *Store) Exists(name string) bool {
	s.Lock()
	defer s.Unlock()
	_, ok := s.bots.Bots[name]
	return ok
}

// RecordResult records one finished game for the named bot,
// incrementing the win counter if it won. One call is one game.
func (s *Store) RecordResult(name string, won bool) error {
	s.Lock()
	defer s.Unlock()

	rec, ok := s.bots.Bots[name]
	if !ok {
		return protocol.ReqNameNotFound
	}
	rec.TotalGames++
	if won {
		rec.Wins++
	}
	return s.meta.Save(&s.bots)
}
