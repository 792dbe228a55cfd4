// This module implements the identity and access guard that gates
// every reviewer action. It authenticates reviewer accounts against
// salted, iterated password hashes, enforces per-origin rate limiting
// and lockout, and records a tamper-evident, size-capped audit trail.
// The guard is independent of the review and custody subsystems; the
// server boundary consults it before dispatching any mutating review
// operation.

package guard

import (
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/botvault-sys/botvault-go/crypto"
	"github.com/botvault-sys/botvault-go/crypto/pwhash"
	"github.com/botvault-sys/botvault-go/crypto/sign"
	"github.com/botvault-sys/botvault-go/protocol"
	"github.com/botvault-sys/botvault-go/storage/jsonstore"
)

const (
	// MinPasswordLength is the policy minimum for reviewer passwords.
	MinPasswordLength = 12
	// auditCap bounds the audit trail; the oldest entries are dropped
	// on write, never on read.
	auditCap = 1000
)

// An Account is one reviewer account record.
type Account struct {
	PasswordHash string     `json:"password_hash"`
	CreatedAt    time.Time  `json:"created_at"`
	CreatedBy    string     `json:"created_by,omitempty"`
	LastLogin    *time.Time `json:"last_login"`
	IsActive     bool       `json:"is_active"`
}

type adminTable struct {
	Admins   map[string]*Account `json:"admins"`
	AuditLog []*AuditEvent       `json:"audit_log"`
}

// A User is the identity returned on successful authentication.
type User struct {
	Username  string     `json:"username"`
	LastLogin *time.Time `json:"last_login"`
}

// A Guard owns the durable admin store (accounts plus audit trail)
// and the injected in-memory rate state. All mutations serialize on
// the guard's lock and rewrite the store atomically.
type Guard struct {
	sync.Mutex
	store   *jsonstore.Store
	table   adminTable
	rate    *RateState
	signKey sign.PrivateKey
}

// New opens (creating if necessary) the admin store at path. Audit
// events are signed with signKey. A corrupted store is quarantined and
// its path returned; the guard then starts with no accounts, to be
// re-bootstrapped.
func New(path string, rate *RateState, signKey sign.PrivateKey) (g *Guard, quarantined string, err error) {
	g = &Guard{
		store:   jsonstore.New(path),
		table:   adminTable{Admins: make(map[string]*Account)},
		rate:    rate,
		signKey: signKey,
	}
	quarantined, err = g.store.Load(&g.table)
	if err != nil {
		return nil, "", err
	}
	if g.table.Admins == nil {
		g.table.Admins = make(map[string]*Account)
	}
	return g, quarantined, nil
}

// appendEvent signs, chains and appends one audit event and persists
// the store. Callers hold the guard's lock.
func (g *Guard) appendEvent(kind, actor, origin, detail string) error {
	var prev *AuditEvent
	if n := len(g.table.AuditLog); n > 0 {
		prev = g.table.AuditLog[n-1]
	}
	g.table.AuditLog = append(g.table.AuditLog, newAuditEvent(g.signKey, prev, kind, actor, origin, detail))
	if n := len(g.table.AuditLog); n > auditCap {
		g.table.AuditLog = g.table.AuditLog[n-auditCap:]
	}
	return g.store.Save(&g.table)
}

// SetRateState swaps the guard's rate state, e.g. after a policy
// reload. Accumulated request windows and failure counts are dropped
// with the old state.
func (g *Guard) SetRateState(rate *RateState) {
	g.Lock()
	defer g.Unlock()
	g.rate = rate
}

// Record appends an audit event for an action taken outside the guard
// itself (e.g. a reviewer approving a bot).
func (g *Guard) Record(kind, actor, origin, detail string) error {
	g.Lock()
	defer g.Unlock()
	return g.appendEvent(kind, actor, origin, detail)
}

// failLocked records one failed attempt: the failure counter advances
// and an audit event is appended. A failing audit write is returned
// instead of the uniform credential error, since the attempt was not
// recorded.
func (g *Guard) failLocked(username, origin, detail string) error {
	g.rate.RecordFailure(origin)
	if err := g.appendEvent(EventLoginFail, username, origin, detail); err != nil {
		return err
	}
	return protocol.ErrUnauthorized
}

// Authenticate verifies a reviewer's credentials from the given
// origin. It short-circuits with protocol.ErrRateLimited or
// protocol.ErrLockedOut before touching the account table, and
// otherwise returns a uniform protocol.ErrUnauthorized for unknown
// users, disabled accounts and wrong passwords alike, so callers learn
// nothing about which of the three it was. Every attempt, success or
// failure, appends an audit event.
func (g *Guard) Authenticate(username, password, origin string) (*User, error) {
	g.Lock()
	defer g.Unlock()

	if !g.rate.Allow(origin) {
		if err := g.appendEvent(EventRateLimit, username, origin, "Too many requests"); err != nil {
			return nil, err
		}
		return nil, protocol.ErrRateLimited
	}
	if remaining, locked := g.rate.LockedOut(origin); locked {
		if err := g.appendEvent(EventLockedOut, username, origin,
			fmt.Sprintf("Origin locked for another %ds", int(remaining.Seconds()))); err != nil {
			return nil, err
		}
		return nil, protocol.ErrLockedOut
	}

	account, ok := g.table.Admins[username]
	if !ok {
		return nil, g.failLocked(username, origin, "Invalid username")
	}
	if !account.IsActive {
		return nil, g.failLocked(username, origin, "Account disabled")
	}
	if !pwhash.Verify(password, account.PasswordHash) {
		return nil, g.failLocked(username, origin, "Invalid password")
	}

	g.rate.ResetFailures(origin)
	lastLogin := account.LastLogin
	now := time.Now()
	account.LastLogin = &now
	if err := g.appendEvent(EventLoginSuccess, username, origin, "Successful login"); err != nil {
		return nil, err
	}
	return &User{Username: username, LastLogin: lastLogin}, nil
}

// ChangePassword rotates a reviewer's password after verifying the
// current one. The new password must satisfy the length policy.
func (g *Guard) ChangePassword(username, oldPassword, newPassword, origin string) error {
	g.Lock()
	defer g.Unlock()

	account, ok := g.table.Admins[username]
	if !ok || !pwhash.Verify(oldPassword, account.PasswordHash) {
		return protocol.ErrUnauthorized
	}
	if len(newPassword) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters",
			protocol.ErrMalformedMessage, MinPasswordLength)
	}
	hash, err := pwhash.Hash(newPassword)
	if err != nil {
		return err
	}
	account.PasswordHash = hash
	return g.appendEvent(EventPasswordChange, username, origin, "Password changed")
}

// CreateAdmin creates a new reviewer account on behalf of creator.
func (g *Guard) CreateAdmin(username, password, creator, origin string) error {
	g.Lock()
	defer g.Unlock()

	if _, ok := g.table.Admins[username]; ok {
		return protocol.ReqNameExisted
	}
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters",
			protocol.ErrMalformedMessage, MinPasswordLength)
	}
	hash, err := pwhash.Hash(password)
	if err != nil {
		return err
	}
	g.table.Admins[username] = &Account{
		PasswordHash: hash,
		CreatedAt:    time.Now(),
		CreatedBy:    creator,
		IsActive:     true,
	}
	return g.appendEvent(EventAdminCreated, username, origin, "Created by "+creator)
}

// Bootstrap creates the initial reviewer account with a random
// password and returns that password. It fails if any account already
// exists; it is meant to be called once, from the init command, which
// prints the password exactly once.
func (g *Guard) Bootstrap(username string) (string, error) {
	g.Lock()
	defer g.Unlock()

	if len(g.table.Admins) > 0 {
		return "", protocol.ReqNameExisted
	}
	raw, err := crypto.MakeRand()
	if err != nil {
		return "", err
	}
	password := base64.RawURLEncoding.EncodeToString(raw[:18])
	hash, err := pwhash.Hash(password)
	if err != nil {
		return "", err
	}
	g.table.Admins[username] = &Account{
		PasswordHash: hash,
		CreatedAt:    time.Now(),
		IsActive:     true,
	}
	if err := g.appendEvent(EventAdminCreated, username, "system", "Bootstrap account"); err != nil {
		return "", err
	}
	return password, nil
}

// AuditLog returns up to limit of the most recent audit events,
// oldest of those first.
func (g *Guard) AuditLog(limit int) []*AuditEvent {
	g.Lock()
	defer g.Unlock()

	n := len(g.table.AuditLog)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]*AuditEvent, limit)
	copy(out, g.table.AuditLog[n-limit:])
	return out
}

// VerifyAuditLog checks the whole retained audit chain against the
// given public key.
func (g *Guard) VerifyAuditLog(pk sign.PublicKey) error {
	g.Lock()
	defer g.Unlock()
	return VerifyChain(g.table.AuditLog, pk)
}
