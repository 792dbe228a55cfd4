package custody

import (
	"fmt"

	"github.com/botvault-sys/botvault-go/bot"
	"github.com/botvault-sys/botvault-go/protocol/analyzer"
)

// A StubPlayer is the Player produced by StubRuntime in tests. It
// keeps the instantiated source so tests can check that decryption
// returned the original code.
type StubPlayer struct {
	Name   string
	Source []byte
}

var _ bot.Player = (*StubPlayer)(nil)

func (p *StubPlayer) GetAction(st *bot.RoundState, hole []bot.Card,
	legal []bot.Action, minBet, maxBet int) (bot.Action, int) {
	return bot.Call, 0
}

func (p *StubPlayer) HandComplete(st *bot.RoundState, res *bot.HandResult) {}

// A StubRuntime stands in for the tournament engine's loader in
// tests. Like the real engine it refuses source that does not satisfy
// the bot contract.
type StubRuntime struct{}

var _ bot.Runtime = StubRuntime{}

func (StubRuntime) Instantiate(name string, source []byte) (bot.Player, error) {
	if missing := analyzer.MissingMarkers(string(source)); missing != nil {
		return nil, fmt.Errorf("bot %s does not satisfy the contract: missing %v", name, missing)
	}
	return &StubPlayer{Name: name, Source: source}, nil
}
