package bot

import (
	"fmt"

	"github.com/botvault-sys/botvault-go/protocol/analyzer"
)

// A StaticPlayer is the inert Player produced by StaticRuntime. It
// checks when it can and folds otherwise, and never raises.
type StaticPlayer struct {
	name string
}

var _ Player = (*StaticPlayer)(nil)

func (p *StaticPlayer) GetAction(st *RoundState, hole []Card,
	legal []Action, minBet, maxBet int) (Action, int) {
	for _, a := range legal {
		if a == Check {
			return Check, 0
		}
	}
	return Fold, 0
}

func (p *StaticPlayer) HandComplete(st *RoundState, res *HandResult) {}

// StaticRuntime is the Runtime a standalone BotVault server uses when
// it is not embedded in a tournament engine. It enforces the bot
// contract structurally and produces inert players; an embedding
// engine supplies its own Runtime to actually execute stored bots.
type StaticRuntime struct{}

var _ Runtime = StaticRuntime{}

// Instantiate checks source against the bot contract and returns an
// inert player for name.
func (StaticRuntime) Instantiate(name string, source []byte) (Player, error) {
	if missing := analyzer.MissingMarkers(string(source)); missing != nil {
		return nil, fmt.Errorf("bot %s does not satisfy the contract: missing %v", name, missing)
	}
	return &StaticPlayer{name: name}, nil
}
