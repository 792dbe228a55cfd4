// Defines methods/functions to encode/decode messages between client
// and server. Currently this module supports JSON marshal/unmarshal only.

package application

import (
	"encoding/json"

	"github.com/botvault-sys/botvault-go/protocol"
	"github.com/botvault-sys/botvault-go/protocol/guard"
)

// MarshalRequest returns a JSON encoding of a submitter request.
func MarshalRequest(reqType int, request interface{}) ([]byte, error) {
	return json.Marshal(&protocol.Request{
		Type:    reqType,
		Request: request,
	})
}

// MarshalReviewerRequest returns a JSON encoding of a reviewer request
// carrying the reviewer's credentials.
func MarshalReviewerRequest(reqType int, creds *protocol.Credentials,
	request interface{}) ([]byte, error) {
	return json.Marshal(&protocol.Request{
		Type:        reqType,
		Credentials: creds,
		Request:     request,
	})
}

// UnmarshalRequest parses a JSON-encoded request msg and
// creates the corresponding protocol.Request, which will be handled
// by the server.
func UnmarshalRequest(msg []byte) (*protocol.Request, error) {
	var content json.RawMessage
	req := protocol.Request{
		Request: &content,
	}
	if err := json.Unmarshal(msg, &req); err != nil {
		return nil, err
	}
	var request interface{}
	switch req.Type {
	case protocol.SubmitType:
		request = new(protocol.SubmitRequest)
	case protocol.ResubmitType:
		request = new(protocol.ResubmitRequest)
	case protocol.UserSubmissionsType:
		request = new(protocol.UserSubmissionsRequest)
	case protocol.RecordResultType:
		request = new(protocol.RecordResultRequest)
	case protocol.UpdateBotType:
		request = new(protocol.UpdateBotRequest)
	case protocol.DeleteBotType:
		request = new(protocol.DeleteBotRequest)
	case protocol.ListSubmissionsType:
		request = new(protocol.ListSubmissionsRequest)
	case protocol.ApproveType:
		request = new(protocol.ApproveRequest)
	case protocol.RejectType:
		request = new(protocol.RejectRequest)
	case protocol.RequestRevisionType:
		request = new(protocol.RequestRevisionRequest)
	case protocol.ChangePasswordType:
		request = new(protocol.ChangePasswordRequest)
	case protocol.CreateAdminType:
		request = new(protocol.CreateAdminRequest)
	case protocol.AuditLogType:
		request = new(protocol.AuditLogRequest)
	case protocol.ListBotsType, protocol.ListPendingType:
		// no payload
		req.Request = nil
		return &req, nil
	default:
		return nil, protocol.ErrMalformedMessage
	}
	if err := json.Unmarshal(content, &request); err != nil {
		return nil, err
	}
	req.Request = request
	return &req, nil
}

// MarshalResponse returns a JSON encoding of the server's response.
func MarshalResponse(response *protocol.Response) ([]byte, error) {
	return json.Marshal(response)
}

// UnmarshalResponse decodes the given message into a protocol.Response
// according to the given request type t. The request types are integer
// constants defined in the protocol package.
func UnmarshalResponse(t int, msg []byte) *protocol.Response {
	type rawResponse struct {
		Error protocol.ErrorCode
		Body  json.RawMessage
	}
	var res rawResponse
	if err := json.Unmarshal(msg, &res); err != nil {
		return &protocol.Response{
			Error: protocol.ErrMalformedMessage,
		}
	}

	// Body is omitempty for the places where Error is in Errors
	if res.Body == nil {
		return &protocol.Response{
			Error: res.Error,
		}
	}

	var body interface{}
	switch t {
	case protocol.SubmitType, protocol.ApproveType, protocol.UpdateBotType:
		// a submission id or custody identifier
		body = new(string)
	case protocol.ListPendingType, protocol.ListSubmissionsType:
		body = new([]*protocol.SubmissionView)
	case protocol.UserSubmissionsType:
		body = new([]*protocol.SubmissionSummary)
	case protocol.ListBotsType:
		body = new([]protocol.BotView)
	case protocol.AuditLogType:
		body = new([]*guard.AuditEvent)
	default:
		return &protocol.Response{
			Error: res.Error,
		}
	}
	if err := json.Unmarshal(res.Body, body); err != nil {
		return &protocol.Response{
			Error: protocol.ErrMalformedMessage,
		}
	}
	return &protocol.Response{
		Error: res.Error,
		Body:  body,
	}
}

func malformedClientMsg(err error) *protocol.Response {
	// check if we're just propagating a message
	if err == nil {
		err = protocol.ErrMalformedMessage
	}
	return protocol.NewErrorResponse(protocol.ErrMalformedMessage)
}
