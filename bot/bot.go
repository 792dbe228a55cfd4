// Package bot defines the capability contract between the custody
// store and the tournament engine. Approved bot code is only ever
// handed to the engine as a Player obtained through a Runtime; the
// game rules themselves live in the engine, outside this repository.
package bot

// An Action is one of the legal poker moves a bot may select.
type Action string

const (
	Fold  Action = "fold"
	Check Action = "check"
	Call  Action = "call"
	Raise Action = "raise"
	AllIn Action = "all_in"
)

// A Card is a playing card in the engine's encoding, e.g. "As" or "Td".
type Card string

// A RoundState is the engine's view of the table handed to a bot on
// every decision: the community cards, the pot and the amount the bot
// must match to stay in the hand.
type RoundState struct {
	HandNumber uint64
	Street     string
	Community  []Card
	Pot        int
	ToCall     int
}

// A HandResult reports the outcome of a completed hand to a bot.
type HandResult struct {
	Won       bool
	ChipDelta int
	Detail    string
}

// Player is the capability set every tournament bot must expose:
// an action-selection call and a hand-completion callback. These two
// entry points are exactly what the analyzer's structural check
// verifies exist in submitted code.
type Player interface {
	// GetAction selects the bot's move given the round state, its
	// private hole cards, the legal actions and the bet bounds. The
	// returned amount is only meaningful for Raise and AllIn.
	GetAction(st *RoundState, hole []Card, legal []Action, minBet, maxBet int) (Action, int)

	// HandComplete is invoked once per finished hand with the final
	// round state and the bot's result.
	HandComplete(st *RoundState, res *HandResult)
}

// A Runtime instantiates decrypted bot source as an in-memory Player.
// The tournament engine provides the implementation; the custody store
// only holds a reference and never writes plaintext source to disk.
// Instantiate must fail for source that does not satisfy the Player
// capability set.
type Runtime interface {
	Instantiate(name string, source []byte) (Player, error)
}
