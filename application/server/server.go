// Package server implements the BotVault server: the review workflow,
// the encrypted custody store and the admin guard wrapped with a
// network layer that decodes requests, establishes their origin,
// gates reviewer operations behind authentication and encodes the
// responses.
package server

import (
	"errors"
	"path/filepath"

	"github.com/botvault-sys/botvault-go/application"
	"github.com/botvault-sys/botvault-go/bot"
	"github.com/botvault-sys/botvault-go/protocol"
	"github.com/botvault-sys/botvault-go/protocol/custody"
	"github.com/botvault-sys/botvault-go/protocol/guard"
	"github.com/botvault-sys/botvault-go/protocol/review"
	"github.com/botvault-sys/botvault-go/storage/kv"
	"github.com/botvault-sys/botvault-go/storage/kv/leveldbkv"
)

// submitterReqs, engineReqs and reviewerReqs partition the request
// types between the three endpoint roles. Recording game results is
// the tournament runner's inbound channel; it is never exposed on a
// submission-only address.
var submitterReqs = []int{
	protocol.SubmitType,
	protocol.ResubmitType,
	protocol.UserSubmissionsType,
	protocol.ListBotsType,
	protocol.UpdateBotType,
	protocol.DeleteBotType,
}

var engineReqs = []int{
	protocol.RecordResultType,
}

var reviewerReqs = []int{
	protocol.ListPendingType,
	protocol.ListSubmissionsType,
	protocol.ApproveType,
	protocol.RejectType,
	protocol.RequestRevisionType,
	protocol.ChangePasswordType,
	protocol.CreateAdminType,
	protocol.AuditLogType,
}

// A BotVaultServer represents a BotVault server. It wraps the review
// workflow, the custody store and the admin guard with a network layer
// which handles requests/responses and their encoding/decoding, and
// consults the guard before dispatching any reviewer operation.
type BotVaultServer struct {
	*application.ServerBase
	workflow  *review.Workflow
	vault     *custody.Store
	guard     *guard.Guard
	artifacts kv.DB
}

var _ application.Server = (*BotVaultServer)(nil)

// NewBotVaultServer creates a new BotVault server from the given
// configuration. Decrypted bot code is instantiated through runtime,
// supplied by the embedding tournament engine.
func NewBotVaultServer(conf *Config, runtime bot.Runtime) (*BotVaultServer, error) {
	// determine this server's request permissions
	perms := make(map[*application.ServerAddress]map[int]bool)
	for _, addr := range conf.Addresses {
		perms[addr.ServerAddress] = make(map[int]bool)
		for _, t := range submitterReqs {
			perms[addr.ServerAddress][t] = addr.AllowSubmission
		}
		for _, t := range engineReqs {
			perms[addr.ServerAddress][t] = addr.AllowEngine
		}
		for _, t := range reviewerReqs {
			perms[addr.ServerAddress][t] = addr.AllowReview
		}
	}

	sb := application.NewServerBase(conf.CommonConfig, "Listen", perms)

	vault, quarantined, err := custody.New(filepath.Join(conf.DataDir, "vault"), runtime)
	if err != nil {
		return nil, err
	}
	if quarantined != "" {
		sb.Logger().Warn("Custody metadata corrupted and quarantined; operator review required",
			"quarantined", quarantined)
	}

	artifacts, err := leveldbkv.OpenDB(filepath.Join(conf.DataDir, "artifacts"))
	if err != nil {
		return nil, err
	}

	g, quarantined, err := guard.New(filepath.Join(conf.DataDir, "admins.json"),
		conf.Policies.NewRateState(), conf.Policies.signKey)
	if err != nil {
		artifacts.Close()
		return nil, err
	}
	if quarantined != "" {
		sb.Logger().Warn("Admin table corrupted and quarantined; re-bootstrap required",
			"quarantined", quarantined)
	}

	mailer := application.NewMailer(conf.SMTP, sb.Logger())
	workflow, quarantined, err := review.New(filepath.Join(conf.DataDir, "submissions.json"),
		artifacts, vault, mailer)
	if err != nil {
		artifacts.Close()
		return nil, err
	}
	if quarantined != "" {
		sb.Logger().Warn("Submission table corrupted and quarantined; pending artifacts retained",
			"quarantined", quarantined)
	}

	return &BotVaultServer{
		ServerBase: sb,
		workflow:   workflow,
		vault:      vault,
		guard:      g,
		artifacts:  artifacts,
	}, nil
}

// ConfigHotReload implements hot-reloading the access policies by
// listening for SIGUSR2 signal.
func (server *BotVaultServer) ConfigHotReload() {
	server.HotReload(func() {
		file, encoding := server.ConfigInfo()
		conf := new(Config)
		if err := conf.Load(file, encoding); err != nil {
			// error occurred while reading the server config;
			// simply abort the reload
			server.Logger().Error(err.Error())
			return
		}
		server.guard.SetRateState(conf.Policies.NewRateState())
		server.Logger().Info("Policies reloaded!")
	})
}

// respond maps an operation outcome to a wire response. Protocol error
// codes pass through unchanged; anything else (storage faults, crypto
// failures) is logged server-side and collapsed to ErrServer so no
// internal detail reaches the client.
func (server *BotVaultServer) respond(body interface{}, err error) *protocol.Response {
	if err == nil {
		return protocol.NewResponse(body)
	}
	var code protocol.ErrorCode
	if errors.As(err, &code) {
		return protocol.NewErrorResponse(code)
	}
	server.Logger().Error(err.Error())
	return protocol.NewErrorResponse(protocol.ErrServer)
}

// HandleRequests validates the request message and passes it to the
// appropriate operation handler according to the request type.
// Reviewer request types authenticate the envelope credentials against
// the guard before any operation runs.
func (server *BotVaultServer) HandleRequests(req *protocol.Request) *protocol.Response {
	switch req.Type {
	case protocol.SubmitType:
		if msg, ok := req.Request.(*protocol.SubmitRequest); ok {
			id, err := server.workflow.Submit(msg.Name, msg.Email, msg.Code, msg.Secret)
			return server.respond(id, err)
		}
	case protocol.ResubmitType:
		if msg, ok := req.Request.(*protocol.ResubmitRequest); ok {
			return server.respond(nil, server.workflow.Resubmit(msg.SubmissionID, msg.Email, msg.Code))
		}
	case protocol.UserSubmissionsType:
		if msg, ok := req.Request.(*protocol.UserSubmissionsRequest); ok {
			return protocol.NewResponse(server.workflow.UserSubmissions(msg.Email))
		}
	case protocol.ListBotsType:
		return protocol.NewResponse(server.vault.List())
	case protocol.RecordResultType:
		if msg, ok := req.Request.(*protocol.RecordResultRequest); ok {
			return server.respond(nil, server.vault.RecordResult(msg.Name, msg.Won))
		}
	case protocol.UpdateBotType:
		if msg, ok := req.Request.(*protocol.UpdateBotRequest); ok {
			id, err := server.vault.Update(msg.Name, []byte(msg.Code), msg.Password)
			return server.respond(id, err)
		}
	case protocol.DeleteBotType:
		if msg, ok := req.Request.(*protocol.DeleteBotRequest); ok {
			return server.respond(nil, server.vault.Delete(msg.Name, msg.Password))
		}
	default:
		if req.Type < protocol.ListPendingType || req.Type > protocol.AuditLogType {
			return protocol.NewErrorResponse(protocol.ErrMalformedMessage)
		}
		return server.handleReviewerRequests(req)
	}
	return protocol.NewErrorResponse(protocol.ErrMalformedMessage)
}

func (server *BotVaultServer) handleReviewerRequests(req *protocol.Request) *protocol.Response {
	if req.Credentials == nil {
		return protocol.NewErrorResponse(protocol.ErrUnauthorized)
	}
	user, err := server.guard.Authenticate(req.Credentials.Username,
		req.Credentials.Password, req.Origin)
	if err != nil {
		return server.respond(nil, err)
	}

	switch req.Type {
	case protocol.ListPendingType:
		return protocol.NewResponse(server.workflow.Pending())
	case protocol.ListSubmissionsType:
		if msg, ok := req.Request.(*protocol.ListSubmissionsRequest); ok {
			return protocol.NewResponse(server.workflow.List(msg.Status))
		}
	case protocol.ApproveType:
		if msg, ok := req.Request.(*protocol.ApproveRequest); ok {
			storedID, err := server.workflow.Approve(msg.SubmissionID, msg.Notes)
			if err == nil {
				server.guard.Record(guard.EventBotApproved, user.Username,
					req.Origin, "Approved submission "+msg.SubmissionID)
			}
			return server.respond(storedID, err)
		}
	case protocol.RejectType:
		if msg, ok := req.Request.(*protocol.RejectRequest); ok {
			err := server.workflow.Reject(msg.SubmissionID, msg.Reason)
			if err == nil {
				server.guard.Record(guard.EventBotRejected, user.Username,
					req.Origin, "Rejected submission "+msg.SubmissionID)
			}
			return server.respond(nil, err)
		}
	case protocol.RequestRevisionType:
		if msg, ok := req.Request.(*protocol.RequestRevisionRequest); ok {
			err := server.workflow.RequestRevision(msg.SubmissionID, msg.Feedback)
			if err == nil {
				server.guard.Record(guard.EventBotRevision, user.Username,
					req.Origin, "Requested revision of submission "+msg.SubmissionID)
			}
			return server.respond(nil, err)
		}
	case protocol.ChangePasswordType:
		if msg, ok := req.Request.(*protocol.ChangePasswordRequest); ok {
			return server.respond(nil, server.guard.ChangePassword(user.Username,
				req.Credentials.Password, msg.NewPassword, req.Origin))
		}
	case protocol.CreateAdminType:
		if msg, ok := req.Request.(*protocol.CreateAdminRequest); ok {
			return server.respond(nil, server.guard.CreateAdmin(msg.Username,
				msg.Password, user.Username, req.Origin))
		}
	case protocol.AuditLogType:
		if msg, ok := req.Request.(*protocol.AuditLogRequest); ok {
			return protocol.NewResponse(server.guard.AuditLog(msg.Limit))
		}
	}
	return protocol.NewErrorResponse(protocol.ErrMalformedMessage)
}

// Run implements the main functionality of the BotVault server.
// It listens for all declared connections with corresponding
// permissions.
func (server *BotVaultServer) Run(addrs []*Address) {
	hasReviewPerm := false
	for _, addr := range addrs {
		hasReviewPerm = hasReviewPerm || addr.AllowReview
		if addr.AllowSubmission {
			server.Verb = "Accepting submissions"
		}
		server.ListenAndHandle(addr.ServerAddress, server.HandleRequests)
	}

	if !hasReviewPerm {
		server.Logger().Warn("None of the addresses permit review operations")
	}

	server.RunInBackground(server.ConfigHotReload)
}

// Shutdown closes all of the server's connections and its stores and
// shuts down the server.
func (server *BotVaultServer) Shutdown() error {
	if err := server.ServerBase.Shutdown(); err != nil {
		return err
	}
	return server.artifacts.Close()
}
