// Package review implements the submission review workflow: the state
// machine every submitted bot passes through between arrival and its
// terminal verdict. Pending plaintext code and the encoded submitter
// secret live in a pending-artifact store keyed by submission id;
// approval hands both to the custody store and destroys the artifacts
// atomically, and rejection destroys them without custody ever seeing
// the code.
package review

import (
	"encoding/base64"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/botvault-sys/botvault-go/crypto"
	"github.com/botvault-sys/botvault-go/protocol"
	"github.com/botvault-sys/botvault-go/protocol/analyzer"
	"github.com/botvault-sys/botvault-go/protocol/custody"
	"github.com/botvault-sys/botvault-go/storage/jsonstore"
	"github.com/botvault-sys/botvault-go/storage/kv"
)

// submission ids are the leading hex of a digest over the name, the
// submitter and the arrival time.
const idLen = 12

// A Notifier delivers submission lifecycle notices: verdicts and
// receipts to the submitter, queue alerts to the reviewers.
// Implementations must never block the workflow on delivery failures;
// the workflow calls these outside its lock and ignores any outcome.
type Notifier interface {
	SubmissionReceived(email, name, id string)
	SubmissionApproved(email, name string)
	SubmissionRejected(email, name, reason string)
	RevisionRequested(email, name, feedback string)
	NewSubmissionAlert(name, id string)
	ResubmissionAlert(name, id string)
}

type submissionTable struct {
	Submissions map[string]*protocol.Submission `json:"submissions"`
}

// A Workflow owns the durable submission table and the pending-artifact
// store, and drives every state transition. All mutations serialize on
// the workflow's lock; notifications fire after the lock is released.
type Workflow struct {
	sync.Mutex
	store     *jsonstore.Store
	table     submissionTable
	artifacts kv.DB
	vault     *custody.Store
	notifier  Notifier
}

func codeKey(id string) []byte   { return []byte("code:" + id) }
func secretKey(id string) []byte { return []byte("secret:" + id) }

// New opens the submission table at path over the given artifact store
// and custody store. A corrupted table is quarantined and its path
// returned; pending artifacts for the lost records remain in the
// artifact store until a retention sweep. notifier may be nil.
func New(path string, artifacts kv.DB, vault *custody.Store, notifier Notifier) (w *Workflow, quarantined string, err error) {
	w = &Workflow{
		store:     jsonstore.New(path),
		table:     submissionTable{Submissions: make(map[string]*protocol.Submission)},
		artifacts: artifacts,
		vault:     vault,
		notifier:  notifier,
	}
	quarantined, err = w.store.Load(&w.table)
	if err != nil {
		return nil, "", err
	}
	if w.table.Submissions == nil {
		w.table.Submissions = make(map[string]*protocol.Submission)
	}
	return w, quarantined, nil
}

// Submit opens a new submission in PendingReview. The name must not
// collide with an approved bot in custody (protocol.ReqNameExisted) or
// with another active submission (protocol.ReqSubmissionPending). The
// secret is the submitter's custody password; it is held encoded with
// the pending artifacts and handed to the custody store on approval.
func (w *Workflow) Submit(name, email, code, secret string) (string, error) {
	if name == "" || email == "" || code == "" || secret == "" {
		return "", protocol.ErrMalformedMessage
	}

	w.Lock()
	id, err := w.submitLocked(name, email, code, secret)
	w.Unlock()
	if err != nil {
		return "", err
	}
	if w.notifier != nil {
		w.notifier.SubmissionReceived(email, name, id)
		w.notifier.NewSubmissionAlert(name, id)
	}
	return id, nil
}

func (w *Workflow) submitLocked(name, email, code, secret string) (string, error) {
	if w.vault.Exists(name) {
		return "", protocol.ReqNameExisted
	}
	for _, sub := range w.table.Submissions {
		if sub.Name == name && !sub.Status.Terminal() {
			return "", protocol.ReqSubmissionPending
		}
	}

	now := time.Now()
	id := hex.EncodeToString(crypto.Digest(
		[]byte(name),
		[]byte(email),
		[]byte(strconv.FormatInt(now.UnixNano(), 10)),
	))[:idLen]

	batch := w.artifacts.NewBatch()
	batch.Put(codeKey(id), []byte(code))
	batch.Put(secretKey(id), []byte(base64.StdEncoding.EncodeToString([]byte(secret))))
	if err := w.artifacts.Write(batch); err != nil {
		return "", err
	}

	w.table.Submissions[id] = &protocol.Submission{
		ID:          id,
		Name:        name,
		Email:       email,
		Status:      protocol.PendingReview,
		SubmittedAt: now,
	}
	if err := w.store.Save(&w.table); err != nil {
		return "", err
	}
	return id, nil
}

// Resubmit replaces the code of a RevisionRequested submission and
// returns it to PendingReview. Only the original submitter may
// resubmit, and only from RevisionRequested.
func (w *Workflow) Resubmit(id, email, code string) error {
	if code == "" {
		return protocol.ErrMalformedMessage
	}

	w.Lock()
	sub, err := w.resubmitLocked(id, email, code)
	w.Unlock()
	if err != nil {
		return err
	}
	if w.notifier != nil {
		w.notifier.ResubmissionAlert(sub.Name, sub.ID)
	}
	return nil
}

func (w *Workflow) resubmitLocked(id, email, code string) (*protocol.Submission, error) {
	sub, ok := w.table.Submissions[id]
	if !ok {
		return nil, protocol.ReqNameNotFound
	}
	if sub.Email != email {
		return nil, protocol.ErrUnauthorized
	}
	if sub.Status != protocol.RevisionRequested {
		return nil, protocol.ErrInvalidState
	}

	if err := w.artifacts.Put(codeKey(id), []byte(code)); err != nil {
		return nil, err
	}
	sub.Status = protocol.PendingReview
	sub.Notes = append(sub.Notes, protocol.ReviewNote{
		Time:   time.Now(),
		Action: "resubmitted",
		Notes:  "Revision " + strconv.Itoa(sub.RevisionCount),
	})
	if err := w.store.Save(&w.table); err != nil {
		return nil, err
	}
	return sub, nil
}

// Approve moves a PendingReview submission into custody. The custody
// store revalidates the code's structure and encrypts it under the
// submitter's secret; only if that whole handoff succeeds does the
// submission turn Approved, its plaintext artifacts destroyed and the
// custody identifier recorded. On any custody failure the submission
// stays PendingReview with its artifacts intact.
func (w *Workflow) Approve(id, notes string) (string, error) {
	w.Lock()
	sub, storedID, err := w.approveLocked(id, notes)
	w.Unlock()
	if err != nil {
		return "", err
	}
	if w.notifier != nil {
		w.notifier.SubmissionApproved(sub.Email, sub.Name)
	}
	return storedID, nil
}

func (w *Workflow) approveLocked(id, notes string) (*protocol.Submission, string, error) {
	sub, ok := w.table.Submissions[id]
	if !ok {
		return nil, "", protocol.ReqNameNotFound
	}
	if sub.Status != protocol.PendingReview {
		return nil, "", protocol.ErrInvalidState
	}

	code, err := w.artifacts.Get(codeKey(id))
	if err != nil {
		return nil, "", protocol.ErrServer
	}
	encoded, err := w.artifacts.Get(secretKey(id))
	if err != nil {
		return nil, "", protocol.ErrServer
	}
	secret, err := base64.StdEncoding.DecodeString(string(encoded))
	if err != nil {
		return nil, "", protocol.ErrServer
	}

	storedID, err := w.vault.Store(sub.Name, code, string(secret))
	if err != nil {
		return nil, "", err
	}

	sub.Status = protocol.Approved
	sub.StoredID = storedID
	sub.Notes = append(sub.Notes, protocol.ReviewNote{
		Time:   time.Now(),
		Action: "approved",
		Notes:  notes,
	})
	// the saved table is the commit point; if it cannot be persisted,
	// undo the custody handoff so a retried approve starts from a clean
	// PendingReview with its artifacts intact
	if err := w.store.Save(&w.table); err != nil {
		w.vault.Delete(sub.Name, string(secret))
		sub.Status = protocol.PendingReview
		sub.StoredID = ""
		sub.Notes = sub.Notes[:len(sub.Notes)-1]
		return nil, "", err
	}

	batch := w.artifacts.NewBatch()
	batch.Delete(codeKey(id))
	batch.Delete(secretKey(id))
	if err := w.artifacts.Write(batch); err != nil {
		return nil, "", err
	}
	return sub, storedID, nil
}

// Reject turns a PendingReview submission into its terminal Rejected
// status and destroys its artifacts. The code never reaches custody.
func (w *Workflow) Reject(id, reason string) error {
	w.Lock()
	sub, err := w.rejectLocked(id, reason)
	w.Unlock()
	if err != nil {
		return err
	}
	if w.notifier != nil {
		w.notifier.SubmissionRejected(sub.Email, sub.Name, reason)
	}
	return nil
}

func (w *Workflow) rejectLocked(id, reason string) (*protocol.Submission, error) {
	sub, ok := w.table.Submissions[id]
	if !ok {
		return nil, protocol.ReqNameNotFound
	}
	if sub.Status != protocol.PendingReview {
		return nil, protocol.ErrInvalidState
	}
	sub.Status = protocol.Rejected
	sub.Notes = append(sub.Notes, protocol.ReviewNote{
		Time:   time.Now(),
		Action: "rejected",
		Notes:  reason,
	})
	if err := w.destroyArtifactsLocked(sub.ID); err != nil {
		return nil, err
	}
	return sub, nil
}

// RequestRevision sends a PendingReview submission back to its
// submitter with feedback. The code is retained so the reviewer's
// feedback can reference it and the submitter can diff against it.
func (w *Workflow) RequestRevision(id, feedback string) error {
	w.Lock()
	sub, err := w.requestRevisionLocked(id, feedback)
	w.Unlock()
	if err != nil {
		return err
	}
	if w.notifier != nil {
		w.notifier.RevisionRequested(sub.Email, sub.Name, feedback)
	}
	return nil
}

func (w *Workflow) requestRevisionLocked(id, feedback string) (*protocol.Submission, error) {
	sub, ok := w.table.Submissions[id]
	if !ok {
		return nil, protocol.ReqNameNotFound
	}
	if sub.Status != protocol.PendingReview {
		return nil, protocol.ErrInvalidState
	}
	sub.Status = protocol.RevisionRequested
	sub.RevisionCount++
	sub.Notes = append(sub.Notes, protocol.ReviewNote{
		Time:   time.Now(),
		Action: "revision_requested",
		Notes:  feedback,
	})
	if err := w.store.Save(&w.table); err != nil {
		return nil, err
	}
	return sub, nil
}

// destroyArtifactsLocked removes a submission's plaintext code and
// encoded secret in one batch and persists the submission table.
func (w *Workflow) destroyArtifactsLocked(id string) error {
	batch := w.artifacts.NewBatch()
	batch.Delete(codeKey(id))
	batch.Delete(secretKey(id))
	if err := w.artifacts.Write(batch); err != nil {
		return err
	}
	return w.store.Save(&w.table)
}

// Pending returns the reviewer's queue: every PendingReview submission
// with its code and a freshly computed safety report, oldest first.
func (w *Workflow) Pending() []*protocol.SubmissionView {
	return w.List(protocol.PendingReview)
}

// List returns submission views filtered by status; an empty status
// means all. Safety reports are recomputed on every read since code
// changes through resubmission. Terminal submissions have no code left
// to show.
func (w *Workflow) List(status protocol.Status) []*protocol.SubmissionView {
	w.Lock()
	defer w.Unlock()

	var views []*protocol.SubmissionView
	for _, sub := range w.table.Submissions {
		if status != "" && sub.Status != status {
			continue
		}
		views = append(views, w.viewLocked(sub))
	}
	sort.Slice(views, func(i, j int) bool {
		return views[i].SubmittedAt.Before(views[j].SubmittedAt)
	})
	return views
}

func (w *Workflow) viewLocked(sub *protocol.Submission) *protocol.SubmissionView {
	v := &protocol.SubmissionView{
		ID:            sub.ID,
		Name:          sub.Name,
		Email:         sub.Email,
		Status:        sub.Status,
		SubmittedAt:   sub.SubmittedAt,
		Notes:         append([]protocol.ReviewNote(nil), sub.Notes...),
		RevisionCount: sub.RevisionCount,
	}
	if sub.Status.Terminal() {
		return v
	}
	code, err := w.artifacts.Get(codeKey(sub.ID))
	if err != nil {
		return v
	}
	v.Code = string(code)
	v.CodeLines = strings.Count(v.Code, "\n") + 1
	v.Safety = analyzer.Analyze(v.Code)
	return v
}

// UserSubmissions returns the given submitter's own submissions as
// summaries, oldest first. Summaries never carry code.
func (w *Workflow) UserSubmissions(email string) []*protocol.SubmissionSummary {
	w.Lock()
	defer w.Unlock()

	var out []*protocol.SubmissionSummary
	for _, sub := range w.table.Submissions {
		if sub.Email != email {
			continue
		}
		out = append(out, &protocol.SubmissionSummary{
			ID:            sub.ID,
			Name:          sub.Name,
			Status:        sub.Status,
			SubmittedAt:   sub.SubmittedAt,
			Notes:         append([]protocol.ReviewNote(nil), sub.Notes...),
			RevisionCount: sub.RevisionCount,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SubmittedAt.Before(out[j].SubmittedAt)
	})
	return out
}

// Get returns the view of one submission.
func (w *Workflow) Get(id string) (*protocol.SubmissionView, error) {
	w.Lock()
	defer w.Unlock()

	sub, ok := w.table.Submissions[id]
	if !ok {
		return nil, protocol.ReqNameNotFound
	}
	return w.viewLocked(sub), nil
}
