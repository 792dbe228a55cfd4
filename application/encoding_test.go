package application

import (
	"testing"

	"github.com/botvault-sys/botvault-go/protocol"
)

func TestUnmarshalSubmitRequest(t *testing.T) {
	msg, err := MarshalRequest(protocol.SubmitType, &protocol.SubmitRequest{
		Name:   "Falcon",
		Email:  "ada@example.com",
		Code:   "class Falcon(PokerBotAPI): ...",
		Secret: "hunter2hunter2",
	})
	if err != nil {
		t.Fatal(err)
	}
	req, err := UnmarshalRequest(msg)
	if err != nil {
		t.Fatal(err)
	}
	sub, ok := req.Request.(*protocol.SubmitRequest)
	if !ok {
		t.Fatalf("Expect a SubmitRequest, got %T", req.Request)
	}
	if sub.Name != "Falcon" || sub.Secret != "hunter2hunter2" {
		t.Fatalf("Round trip lost fields: %+v", sub)
	}
}

func TestUnmarshalReviewerRequestKeepsCredentials(t *testing.T) {
	msg, err := MarshalReviewerRequest(protocol.ApproveType,
		&protocol.Credentials{Username: "admin", Password: "pw"},
		&protocol.ApproveRequest{SubmissionID: "abc123", Notes: "ok"})
	if err != nil {
		t.Fatal(err)
	}
	req, err := UnmarshalRequest(msg)
	if err != nil {
		t.Fatal(err)
	}
	if req.Credentials == nil || req.Credentials.Username != "admin" {
		t.Fatalf("Credentials lost in transit: %+v", req.Credentials)
	}
	if _, ok := req.Request.(*protocol.ApproveRequest); !ok {
		t.Fatalf("Expect an ApproveRequest, got %T", req.Request)
	}
}

func TestUnmarshalRequestUnknownType(t *testing.T) {
	msg, err := MarshalRequest(999, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := UnmarshalRequest(msg); err != protocol.ErrMalformedMessage {
		t.Fatalf("Expect ErrMalformedMessage, got %v", err)
	}
}

func TestUnmarshalResponseBotList(t *testing.T) {
	msg, err := MarshalResponse(protocol.NewResponse([]protocol.BotView{
		{Name: "Falcon", ID: "deadbeef", Wins: 3, TotalGames: 10, WinRate: 30},
	}))
	if err != nil {
		t.Fatal(err)
	}
	res := UnmarshalResponse(protocol.ListBotsType, msg)
	if res.Error != protocol.ReqSuccess {
		t.Fatalf("Expect success, got %v", res.Error)
	}
	bots := *res.Body.(*[]protocol.BotView)
	if len(bots) != 1 || bots[0].Name != "Falcon" || bots[0].WinRate != 30 {
		t.Fatalf("Round trip lost fields: %+v", bots)
	}
}

func TestUnmarshalResponseErrorOnly(t *testing.T) {
	msg, err := MarshalResponse(protocol.NewErrorResponse(protocol.ErrUnauthorized))
	if err != nil {
		t.Fatal(err)
	}
	res := UnmarshalResponse(protocol.ListPendingType, msg)
	if res.Error != protocol.ErrUnauthorized || res.Body != nil {
		t.Fatalf("Expect a bare error response, got %+v", res)
	}
}
