// Defines the submission record shared by the review workflow and the
// server boundary, and the read-only views returned to clients.

package protocol

import (
	"time"

	"github.com/botvault-sys/botvault-go/protocol/analyzer"
)

// A Status is the review state of a submission. Approved and Rejected
// are terminal; RevisionRequested returns to PendingReview on
// resubmission by the original submitter.
type Status string

const (
	PendingReview     Status = "pending_review"
	Approved          Status = "approved"
	Rejected          Status = "rejected"
	RevisionRequested Status = "revision_requested"
)

// Terminal reports whether a submission in this status can never
// transition again. Plaintext artifacts are destroyed the moment a
// submission reaches a terminal status.
func (s Status) Terminal() bool {
	return s == Approved || s == Rejected
}

// A ReviewNote is one entry of a submission's ordered review history.
type ReviewNote struct {
	Time   time.Time `json:"time"`
	Action string    `json:"action"`
	Notes  string    `json:"notes"`
}

// A Submission is the durable record of one attempt to get a named bot
// approved. The plaintext code and the encoded submitter secret are
// not part of the record; they live in the pending-artifact store
// under the submission id until a terminal transition destroys them.
type Submission struct {
	ID            string       `json:"id"`
	Name          string       `json:"bot_name"`
	Email         string       `json:"submitter_email"`
	Status        Status       `json:"status"`
	SubmittedAt   time.Time    `json:"submitted_at"`
	Notes         []ReviewNote `json:"review_notes"`
	RevisionCount int          `json:"revision_count"`
	// StoredID is the custody identifier recorded on approval; empty
	// in any other status.
	StoredID string `json:"stored_id,omitempty"`
}

// A SubmissionView is the reviewer's view of a pending submission,
// embedding the plaintext code and a safety-analysis report computed
// fresh on every read.
type SubmissionView struct {
	ID            string           `json:"id"`
	Name          string           `json:"bot_name"`
	Email         string           `json:"submitter_email"`
	Status        Status           `json:"status"`
	SubmittedAt   time.Time        `json:"submitted_at"`
	Code          string           `json:"code"`
	CodeLines     int              `json:"code_lines"`
	Safety        *analyzer.Report `json:"safety_check"`
	Notes         []ReviewNote     `json:"review_notes"`
	RevisionCount int              `json:"revision_count"`
}

// A SubmissionSummary is the submitter's view of their own
// submissions. It never exposes code or other users' records.
type SubmissionSummary struct {
	ID            string       `json:"id"`
	Name          string       `json:"bot_name"`
	Status        Status       `json:"status"`
	SubmittedAt   time.Time    `json:"submitted_at"`
	Notes         []ReviewNote `json:"review_notes"`
	RevisionCount int          `json:"revision_count"`
}

// A BotView is one row of the custody store listing: metadata and
// running statistics only, never ciphertext.
type BotView struct {
	Name       string  `json:"name"`
	ID         string  `json:"bot_id"`
	Wins       int     `json:"wins"`
	TotalGames int     `json:"total_games"`
	WinRate    float64 `json:"win_rate"`
}
