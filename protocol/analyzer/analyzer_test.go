package analyzer

import (
	"strings"
	"testing"
)

const cleanBot = `
from bot_api import PokerBotAPI, PlayerAction

class MyBot(PokerBotAPI):
    def get_action(self, game_state, hole_cards, legal_actions, min_bet, max_bet):
        return PlayerAction.CALL, 0

    def hand_complete(self, game_state, hand_result):
        pass
`

func TestCleanBotIsSafe(t *testing.T) {
	r := Analyze(cleanBot)
	if r.Severity != SeveritySafe {
		t.Fatalf("Expect safe, got %s (flags %v)", r.Severity, r.Flags)
	}
	if !r.IsSafe || r.TotalFlags != 0 {
		t.Fatalf("Expect no flags, got %d", r.TotalFlags)
	}
}

func TestProcessExecutionIsDangerous(t *testing.T) {
	r := Analyze(cleanBot + "\nimport subprocess\n")
	if r.Severity != SeverityDangerous {
		t.Fatalf("Expect dangerous, got %s", r.Severity)
	}
	if r.IsSafe {
		t.Fatal("Dangerous report marked safe")
	}
}

func TestMediumPatternIsSuspicious(t *testing.T) {
	r := Analyze(cleanBot + "\nimport urllib\n")
	if r.Severity != SeveritySuspicious {
		t.Fatalf("Expect suspicious, got %s", r.Severity)
	}
}

func TestHighPatternOutranksMedium(t *testing.T) {
	r := Analyze(cleanBot + "\nimport urllib\nimport subprocess\n")
	if r.Severity != SeverityDangerous {
		t.Fatalf("Expect dangerous, got %s", r.Severity)
	}
	if r.TotalFlags != 2 {
		t.Fatalf("Expect 2 flags, got %d", r.TotalFlags)
	}
}

func TestMissingEntryPointIsInvalid(t *testing.T) {
	code := strings.Replace(cleanBot, "def hand_complete", "def hand_done", 1)
	r := Analyze(code)
	if r.Severity != SeverityInvalid {
		t.Fatalf("Expect invalid, got %s", r.Severity)
	}
}

func TestMissingCapabilityIsInvalid(t *testing.T) {
	code := strings.Replace(cleanBot, "PokerBotAPI", "SomeOtherAPI", -1)
	r := Analyze(code)
	if r.Severity != SeverityInvalid {
		t.Fatalf("Expect invalid, got %s", r.Severity)
	}
}

func TestInvalidOutranksDangerous(t *testing.T) {
	r := Analyze("import os\nos.system('rm -rf /')\n")
	if r.Severity != SeverityInvalid {
		t.Fatalf("Expect invalid, got %s", r.Severity)
	}
}

func TestLargeBotInformationalFlag(t *testing.T) {
	r := Analyze(cleanBot + strings.Repeat("# filler\n", 600))
	if r.Severity != SeveritySafe {
		t.Fatalf("A large but clean bot must stay safe, got %s", r.Severity)
	}
	if r.TotalFlags != 1 {
		t.Fatalf("Expect exactly the size flag, got %d", r.TotalFlags)
	}
	if r.Flags[0].Severity != "low" {
		t.Fatalf("Size flag must be low severity, got %s", r.Flags[0].Severity)
	}
	if r.IsSafe != true {
		t.Fatal("Informational flag must not clear IsSafe")
	}
}

func TestMissingMarkers(t *testing.T) {
	missing := MissingMarkers("def get_action(self): pass")
	if len(missing) != 2 {
		t.Fatalf("Expect 2 missing markers, got %v", missing)
	}
	if missing[0] != "PokerBotAPI" || missing[1] != "def hand_complete" {
		t.Fatalf("Unexpected missing markers %v", missing)
	}
	if got := MissingMarkers(cleanBot); got != nil {
		t.Fatalf("Clean bot reported missing markers %v", got)
	}
}
