// Defines the error codes the BotVault server may return to a client.

package protocol

// An ErrorCode implements the error interface and indicates the
// outcome of a client request. Codes in the Req range are expected
// results of well-formed requests (name conflicts, unknown ids and the
// like) and are recovered at the call site; codes in the Err range are
// request or server failures. Storage and crypto details are logged
// server-side and never distinguished to the caller.
type ErrorCode int

const (
	ReqSuccess ErrorCode = iota + 100
	ReqNameExisted
	ReqSubmissionPending
	ReqNameNotFound
)

const (
	ErrMalformedMessage ErrorCode = iota + 200
	ErrUnauthorized
	ErrInvalidState
	ErrRateLimited
	ErrLockedOut
	ErrAuditLog
	ErrServer
)

// Errors contains the codes that indicate a request or server error
// as opposed to an expected request result.
var Errors = map[ErrorCode]bool{
	ErrMalformedMessage: true,
	ErrUnauthorized:     true,
	ErrInvalidState:     true,
	ErrRateLimited:      true,
	ErrLockedOut:        true,
	ErrAuditLog:         true,
	ErrServer:           true,
}

var errorMessages = map[ErrorCode]string{
	ReqSuccess:           "[botvault] Successful request",
	ReqNameExisted:       "[botvault] Bot name is already taken",
	ReqSubmissionPending: "[botvault] A submission for this name is already under review",
	ReqNameNotFound:      "[botvault] No such submission or bot",

	ErrMalformedMessage: "[botvault] Malformed client request",
	ErrUnauthorized:     "[botvault] Invalid credentials",
	ErrInvalidState:     "[botvault] Operation not valid for the current status",
	ErrRateLimited:      "[botvault] Too many requests, retry after the stated interval",
	ErrLockedOut:        "[botvault] Too many failed attempts, retry after the stated interval",
	ErrAuditLog:         "[botvault] Error while auditing",
	ErrServer:           "[botvault] Internal server error",
}

func (e ErrorCode) Error() string {
	if m, ok := errorMessages[e]; ok {
		return m
	}
	return errorMessages[ErrServer]
}
