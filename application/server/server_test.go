package server

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/botvault-sys/botvault-go/application"
	"github.com/botvault-sys/botvault-go/application/testutil"
	"github.com/botvault-sys/botvault-go/crypto/sign"
	"github.com/botvault-sys/botvault-go/protocol"
	"github.com/botvault-sys/botvault-go/protocol/custody"
	"github.com/botvault-sys/botvault-go/protocol/guard"
)

const validBot = `
from bot_api import PokerBotAPI, PlayerAction

class Falcon(PokerBotAPI):
    def get_action(self, game_state, hole_cards, legal_actions, min_bet, max_bet):
        return PlayerAction.CALL, 0

    def hand_complete(self, game_state, hand_result):
        pass
`

// newTestServer builds a server over a temp data directory with one
// bootstrapped reviewer account, bypassing the network layer. The rate
// limit is generous so tests drive many requests from one origin.
func newTestServer(t *testing.T) (*BotVaultServer, *protocol.Credentials) {
	server, creds, _ := newTestServerConfig(t)
	return server, creds
}

func newTestServerConfig(t *testing.T) (*BotVaultServer, *protocol.Credentials, *Config) {
	t.Helper()
	dir, err := ioutil.TempDir("", "botvaultserver")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	signKey, err := sign.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	policies := NewPolicies(filepath.Join(dir, "sign.priv"), signKey)
	policies.MaxRequests = 1000

	conf := NewConfig(filepath.Join(dir, "config.toml"), "toml", nil,
		&application.LoggerConfig{Environment: "development"},
		dir, policies, nil)

	server, err := NewBotVaultServer(conf, custody.StubRuntime{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { server.artifacts.Close() })

	password, err := server.guard.Bootstrap("admin")
	if err != nil {
		t.Fatal(err)
	}
	return server, &protocol.Credentials{Username: "admin", Password: password}, conf
}

func submit(t *testing.T, server *BotVaultServer, name string) string {
	t.Helper()
	res := server.HandleRequests(&protocol.Request{
		Type:   protocol.SubmitType,
		Origin: "10.0.0.1",
		Request: &protocol.SubmitRequest{
			Name:   name,
			Email:  "ada@example.com",
			Code:   validBot,
			Secret: "falcon-secret",
		},
	})
	if res.Error != protocol.ReqSuccess {
		t.Fatalf("Submit failed: %v", res.Error)
	}
	id, ok := res.Body.(string)
	if !ok || id == "" {
		t.Fatalf("Submit returned no id: %+v", res.Body)
	}
	return id
}

func TestSubmitReviewLifecycle(t *testing.T) {
	server, creds := newTestServer(t)
	id := submit(t, server, "Falcon")

	// the reviewer queue requires credentials
	res := server.HandleRequests(&protocol.Request{
		Type:   protocol.ListPendingType,
		Origin: "10.0.0.2",
	})
	if res.Error != protocol.ErrUnauthorized {
		t.Fatalf("Expect ErrUnauthorized without credentials, got %v", res.Error)
	}

	res = server.HandleRequests(&protocol.Request{
		Type:        protocol.ListPendingType,
		Credentials: creds,
		Origin:      "10.0.0.2",
	})
	if res.Error != protocol.ReqSuccess {
		t.Fatalf("ListPending failed: %v", res.Error)
	}
	views := res.Body.([]*protocol.SubmissionView)
	if len(views) != 1 || views[0].ID != id {
		t.Fatalf("Expect the submitted bot in the queue, got %+v", views)
	}

	res = server.HandleRequests(&protocol.Request{
		Type:        protocol.ApproveType,
		Credentials: creds,
		Origin:      "10.0.0.2",
		Request:     &protocol.ApproveRequest{SubmissionID: id, Notes: "Solid"},
	})
	if res.Error != protocol.ReqSuccess {
		t.Fatalf("Approve failed: %v", res.Error)
	}
	if storedID := res.Body.(string); storedID == "" {
		t.Fatal("Approve returned no custody identifier")
	}

	res = server.HandleRequests(&protocol.Request{
		Type:   protocol.ListBotsType,
		Origin: "10.0.0.1",
	})
	bots := res.Body.([]protocol.BotView)
	if len(bots) != 1 || bots[0].Name != "Falcon" {
		t.Fatalf("Expect Falcon in the roster, got %+v", bots)
	}
}

func TestReviewActionsAudited(t *testing.T) {
	server, creds := newTestServer(t)
	id := submit(t, server, "Falcon")

	res := server.HandleRequests(&protocol.Request{
		Type:        protocol.RejectType,
		Credentials: creds,
		Origin:      "10.0.0.2",
		Request:     &protocol.RejectRequest{SubmissionID: id, Reason: "Opens sockets"},
	})
	if res.Error != protocol.ReqSuccess {
		t.Fatalf("Reject failed: %v", res.Error)
	}

	res = server.HandleRequests(&protocol.Request{
		Type:        protocol.AuditLogType,
		Credentials: creds,
		Origin:      "10.0.0.2",
		Request:     &protocol.AuditLogRequest{Limit: 0},
	})
	if res.Error != protocol.ReqSuccess {
		t.Fatalf("AuditLog failed: %v", res.Error)
	}
	events := res.Body.([]*guard.AuditEvent)
	var sawReject bool
	for _, e := range events {
		if e.Kind == guard.EventBotRejected && e.Actor == "admin" {
			sawReject = true
		}
	}
	if !sawReject {
		t.Fatalf("Rejection not audited: %+v", events)
	}
}

func TestInvalidCredentialsUniform(t *testing.T) {
	server, creds := newTestServer(t)

	for _, bad := range []*protocol.Credentials{
		{Username: creds.Username, Password: "wrong"},
		{Username: "nobody", Password: creds.Password},
	} {
		res := server.HandleRequests(&protocol.Request{
			Type:        protocol.ListPendingType,
			Credentials: bad,
			Origin:      "10.0.0.3",
		})
		if res.Error != protocol.ErrUnauthorized {
			t.Fatalf("Expect ErrUnauthorized, got %v", res.Error)
		}
	}
}

func TestUnknownRequestType(t *testing.T) {
	server, _ := newTestServer(t)
	res := server.HandleRequests(&protocol.Request{Type: 999, Origin: "10.0.0.1"})
	if res.Error != protocol.ErrMalformedMessage {
		t.Fatalf("Expect ErrMalformedMessage, got %v", res.Error)
	}
}

// runServerAt starts a full server over its own temp data directory,
// listening on the single given address.
func runServerAt(t *testing.T, addr *Address) {
	t.Helper()
	dir, err := ioutil.TempDir("", "botvaultserver")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	signKey, err := sign.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	policies := NewPolicies(filepath.Join(dir, "sign.priv"), signKey)
	policies.MaxRequests = 1000

	conf := NewConfig(filepath.Join(dir, "config.toml"), "toml", []*Address{addr},
		&application.LoggerConfig{Environment: "development"}, dir, policies, nil)
	server, err := NewBotVaultServer(conf, custody.StubRuntime{})
	if err != nil {
		t.Fatal(err)
	}
	server.Run(conf.Addresses)
	t.Cleanup(func() { server.Shutdown() })
	// give the listener a moment to come up
	time.Sleep(50 * time.Millisecond)
}

func TestRecordResultGatedToEngineEndpoint(t *testing.T) {
	public := filepath.Join(os.TempDir(), "botvaultpublic.sock")
	engine := filepath.Join(os.TempDir(), "botvaultengine.sock")
	os.Remove(public)
	os.Remove(engine)

	runServerAt(t, &Address{
		ServerAddress:   &application.ServerAddress{Address: "unix://" + public},
		AllowSubmission: true,
	})
	runServerAt(t, &Address{
		ServerAddress: &application.ServerAddress{Address: "unix://" + engine},
		AllowEngine:   true,
	})

	msg, err := application.MarshalRequest(protocol.RecordResultType,
		&protocol.RecordResultRequest{Name: "Falcon", Won: true})
	if err != nil {
		t.Fatal(err)
	}

	// the public submission endpoint refuses result recording outright
	res, err := testutil.NewUnixClientTo(public, msg)
	if err != nil {
		t.Fatal(err)
	}
	if response := application.UnmarshalResponse(protocol.RecordResultType, res); response.Error != protocol.ErrMalformedMessage {
		t.Fatalf("Expect ErrMalformedMessage on the public endpoint, got %v", response.Error)
	}

	// the engine endpoint dispatches it; no bot of that name exists yet
	res, err = testutil.NewUnixClientTo(engine, msg)
	if err != nil {
		t.Fatal(err)
	}
	if response := application.UnmarshalResponse(protocol.RecordResultType, res); response.Error != protocol.ReqNameNotFound {
		t.Fatalf("Expect ReqNameNotFound on the engine endpoint, got %v", response.Error)
	}
}

func TestStoresSurviveRestart(t *testing.T) {
	server, creds, conf := newTestServerConfig(t)
	id := submit(t, server, "Falcon")

	res := server.HandleRequests(&protocol.Request{
		Type:        protocol.ApproveType,
		Credentials: creds,
		Origin:      "10.0.0.2",
		Request:     &protocol.ApproveRequest{SubmissionID: id, Notes: "ok"},
	})
	if res.Error != protocol.ReqSuccess {
		t.Fatalf("Approve failed: %v", res.Error)
	}

	// reopening the stores over the same data directory must find the
	// approved bot
	if err := server.artifacts.Close(); err != nil {
		t.Fatal(err)
	}
	reopened, err := NewBotVaultServer(conf, custody.StubRuntime{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { reopened.artifacts.Close() })

	res = reopened.HandleRequests(&protocol.Request{
		Type:   protocol.ListBotsType,
		Origin: "10.0.0.1",
	})
	bots := res.Body.([]protocol.BotView)
	if len(bots) != 1 || bots[0].Name != "Falcon" {
		t.Fatalf("Roster lost across restart: %+v", bots)
	}
}
