// Package analyzer implements the automated safety analysis of
// submitted bot code. It scans for a fixed catalogue of dangerous
// patterns and verifies the structural markers of the bot contract.
// Pattern findings are advisory for the human reviewer; the structural
// check is also re-run authoritatively by the custody store before any
// code is encrypted and persisted.
package analyzer

import "strings"

// A Severity classifies a whole report or a single flag.
const (
	SeveritySafe       = "safe"
	SeveritySuspicious = "suspicious"
	SeverityDangerous  = "dangerous"
	SeverityInvalid    = "invalid"

	flagLow    = "low"
	flagMedium = "medium"
	flagHigh   = "high"
)

// Structural markers of the bot contract: the capability declaration
// and the two mandatory entry points the tournament engine calls.
const (
	markerCapability   = "PokerBotAPI"
	markerGetAction    = "def get_action"
	markerHandComplete = "def hand_complete"
)

// largeBotLines is the line count above which a submission gets a
// low-severity informational flag.
const largeBotLines = 500

// A Flag is one finding: the matched pattern, a reviewer-facing
// description and the finding's own severity.
type Flag struct {
	Pattern     string `json:"pattern"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

// A Report is the result of analyzing one submission.
type Report struct {
	Severity   string `json:"severity"`
	Flags      []Flag `json:"flags"`
	TotalFlags int    `json:"total_flags"`
	IsSafe     bool   `json:"is_safe"`
}

type pattern struct {
	text        string
	description string
	high        bool
}

// The fixed catalogue of dangerous constructs. High patterns (process
// or command execution, dynamic code evaluation) escalate the report
// to dangerous; the rest escalate to suspicious.
var dangerousPatterns = []pattern{
	{"os.system", "Command execution (os.system)", true},
	{"subprocess", "Subprocess execution", true},
	{"eval(", "Dynamic code evaluation (eval)", true},
	{"exec(", "Dynamic code execution (exec)", true},
	{"__import__", "Dynamic imports", false},
	{"open(", "File operations", false},
	{"requests.", "Network requests", false},
	{"urllib", "Network requests", false},
	{"socket", "Network sockets", false},
	{"pickle", "Pickle serialization (potential RCE)", false},
	{"os.remove", "File deletion", false},
	{"os.rmdir", "Directory deletion", false},
	{"shutil", "File system operations", false},
	{"sys.exit", "Program termination", false},
	{"__builtins__", "Built-ins manipulation", false},
	{"globals()", "Global scope access", false},
	{"locals()", "Local scope access", false},
	{"compile(", "Code compilation", false},
}

// MissingMarkers returns the structural markers absent from code, in
// catalogue order: the capability declaration first, then the two
// entry points. An empty result means the code satisfies the bot
// contract structurally.
func MissingMarkers(code string) []string {
	var missing []string
	for _, m := range []string{markerCapability, markerGetAction, markerHandComplete} {
		if !strings.Contains(code, m) {
			missing = append(missing, m)
		}
	}
	return missing
}

// Analyze scans code and returns a fresh report. It is a pure
// function of its input; reports are never cached since code may be
// replaced between reads through resubmission.
func Analyze(code string) *Report {
	r := &Report{Severity: SeveritySafe}

	for _, p := range dangerousPatterns {
		if !strings.Contains(code, p.text) {
			continue
		}
		sev := flagMedium
		if p.high {
			sev = flagHigh
		}
		r.Flags = append(r.Flags, Flag{
			Pattern:     p.text,
			Description: p.description,
			Severity:    sev,
		})
		if p.high {
			r.Severity = SeverityDangerous
		} else if r.Severity != SeverityDangerous {
			r.Severity = SeveritySuspicious
		}
	}

	for _, m := range MissingMarkers(code) {
		r.Flags = append(r.Flags, Flag{
			Pattern:     "Missing " + m,
			Description: "Required bot contract marker " + m + " not found",
			Severity:    flagHigh,
		})
		r.Severity = SeverityInvalid
	}

	if lines := strings.Count(code, "\n") + 1; lines > largeBotLines {
		r.Flags = append(r.Flags, Flag{
			Pattern:     "Large file",
			Description: "Bot is unusually large",
			Severity:    flagLow,
		})
	}

	r.TotalFlags = len(r.Flags)
	r.IsSafe = r.Severity == SeveritySafe
	return r
}
