// Defines the message format of the BotVault request protocol and
// constructors for the response messages.

package protocol

// The types of requests clients send to a BotVault server. Submitter
// requests are accepted on the public address; reviewer requests only
// on the admin address and only with valid reviewer credentials.
const (
	SubmitType = iota
	ResubmitType
	UserSubmissionsType
	ListBotsType
	RecordResultType
	UpdateBotType
	DeleteBotType

	ListPendingType
	ListSubmissionsType
	ApproveType
	RejectType
	RequestRevisionType
	ChangePasswordType
	CreateAdminType
	AuditLogType
)

// A Request is the envelope for every client message. Credentials are
// only consulted for reviewer request types; Origin is filled in by
// the server from the connection and ignored if supplied by a client.
type Request struct {
	Type        int
	Credentials *Credentials `json:",omitempty"`
	Origin      string       `json:"-"`
	Request     interface{}
}

// Credentials carry a reviewer's username and password. They gate the
// mutating review operations and the admin account operations.
type Credentials struct {
	Username string
	Password string
}

// A SubmitRequest asks the review workflow to open a new submission.
// Secret is the submitter's custody password; it is encoded and held
// with the pending artifacts until approval hands it to the custody
// store, and destroyed on any terminal transition.
type SubmitRequest struct {
	Name   string
	Code   string
	Email  string
	Secret string
}

// A ResubmitRequest replaces the code of a RevisionRequested
// submission. Email must match the original submitter.
type ResubmitRequest struct {
	SubmissionID string
	Code         string
	Email        string
}

// A UserSubmissionsRequest lists the submissions of one submitter.
type UserSubmissionsRequest struct {
	Email string
}

// A ListSubmissionsRequest lists submissions, optionally filtered by
// status. An empty Status means all.
type ListSubmissionsRequest struct {
	Status Status `json:",omitempty"`
}

// An ApproveRequest approves a pending submission.
type ApproveRequest struct {
	SubmissionID string
	Notes        string
}

// A RejectRequest rejects a pending submission with a reason.
type RejectRequest struct {
	SubmissionID string
	Reason       string
}

// A RequestRevisionRequest sends a submission back to its submitter
// with feedback.
type RequestRevisionRequest struct {
	SubmissionID string
	Feedback     string
}

// A ChangePasswordRequest rotates the requesting reviewer's password.
// The envelope credentials must hold the current password.
type ChangePasswordRequest struct {
	NewPassword string
}

// A CreateAdminRequest creates a new reviewer account.
type CreateAdminRequest struct {
	Username string
	Password string
}

// An AuditLogRequest returns the most recent audit events.
type AuditLogRequest struct {
	Limit int
}

// An UpdateBotRequest replaces an approved bot's code in the custody
// store, with password proof of ownership. Statistics carry over.
type UpdateBotRequest struct {
	Name     string
	Code     string
	Password string
}

// A DeleteBotRequest removes an approved bot, with password proof.
type DeleteBotRequest struct {
	Name     string
	Password string
}

// A RecordResultRequest records one finished game for a bot.
type RecordResultRequest struct {
	Name string
	Won  bool
}

// A Response indicates the result of a request with an error code and
// an optional body (a view, a list of views, or a submission id).
type Response struct {
	Error ErrorCode
	Body  interface{} `json:",omitempty"`
}

// NewErrorResponse creates a response carrying only an outcome code.
func NewErrorResponse(e ErrorCode) *Response {
	return &Response{Error: e}
}

// NewResponse creates a successful response with the given body.
func NewResponse(body interface{}) *Response {
	return &Response{Error: ReqSuccess, Body: body}
}
