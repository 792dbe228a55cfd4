package guard

import (
	"encoding/hex"
	"strconv"
	"time"

	"github.com/botvault-sys/botvault-go/crypto"
	"github.com/botvault-sys/botvault-go/crypto/sign"
	"github.com/botvault-sys/botvault-go/protocol"
	"github.com/google/uuid"
)

// The kinds of events recorded in the audit trail.
const (
	EventLoginSuccess   = "LOGIN_SUCCESS"
	EventLoginFail      = "LOGIN_FAIL"
	EventRateLimit      = "RATE_LIMIT"
	EventLockedOut      = "LOCKED_OUT"
	EventPasswordChange = "PASSWORD_CHANGE"
	EventAdminCreated   = "ADMIN_CREATED"
	EventBotApproved    = "BOT_APPROVED"
	EventBotRejected    = "BOT_REJECTED"
	EventBotRevision    = "BOT_REVISION_REQUESTED"
)

// An AuditEvent is one entry of the append-only audit trail. Each
// event embeds the digest of its predecessor and an ed25519 signature
// over its own digest, so any removal, reordering or mutation of past
// entries breaks the chain.
type AuditEvent struct {
	ID         string    `json:"id"`
	Time       time.Time `json:"timestamp"`
	Kind       string    `json:"event"`
	Actor      string    `json:"username"`
	Origin     string    `json:"ip"`
	Detail     string    `json:"details"`
	PrevDigest string    `json:"prev_digest"`
	Signature  []byte    `json:"signature"`
}

// digest computes the event's chain digest: a hash over the
// predecessor's digest and every payload field.
func (e *AuditEvent) digest() []byte {
	return crypto.Digest(
		[]byte(e.PrevDigest),
		[]byte(e.ID),
		[]byte(strconv.FormatInt(e.Time.UnixNano(), 10)),
		[]byte(e.Kind),
		[]byte(e.Actor),
		[]byte(e.Origin),
		[]byte(e.Detail),
	)
}

// newAuditEvent creates and signs an event chained to prev. prev is
// nil for the first event of a trail (or the oldest retained one after
// the cap dropped its predecessors).
func newAuditEvent(signKey sign.PrivateKey, prev *AuditEvent,
	kind, actor, origin, detail string) *AuditEvent {
	e := &AuditEvent{
		ID:     uuid.New().String(),
		Time:   time.Now(),
		Kind:   kind,
		Actor:  actor,
		Origin: origin,
		Detail: detail,
	}
	if prev != nil {
		e.PrevDigest = hex.EncodeToString(prev.digest())
	}
	e.Signature = signKey.Sign(e.digest())
	return e
}

// VerifyChain checks every signature and predecessor digest of the
// trail, oldest first. Events dropped by the retention cap leave the
// oldest retained event with a dangling PrevDigest, which is accepted.
// It returns protocol.ErrAuditLog on the first broken link.
func VerifyChain(events []*AuditEvent, pk sign.PublicKey) error {
	for i, e := range events {
		if !pk.Verify(e.digest(), e.Signature) {
			return protocol.ErrAuditLog
		}
		if i == 0 {
			continue
		}
		if e.PrevDigest != hex.EncodeToString(events[i-1].digest()) {
			return protocol.ErrAuditLog
		}
	}
	return nil
}
