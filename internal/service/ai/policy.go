package ai

import (
	"regexp"
	"strings"
)

// Signal carries what the first generation pass revealed about the model's
// own confidence.
type Signal struct {
	MarkerSeen bool
}

// Policy decides whether retrieval augmentation should run before the final
// generation pass. Implementations must be deterministic given the same
// message and signal; model randomness stays behind the generation client.
type Policy interface {
	Name() string

	// WantsProbe reports whether the first pass should carry the
	// confidence-probe instruction for this message.
	WantsProbe(message string) bool

	// Decide reports whether to augment, given the probe signal.
	Decide(message string, sig Signal) bool
}

// personalStatement matches messages that state facts about the user
// themselves. Augmentation is never triggered for these, regardless of any
// confidence signal.
var personalStatement = regexp.MustCompile(`(?i)\b(my name is|call me|i am called|my (email|birthday|address|age) is|i (live|work|was born) (in|at|on))\b`)

func isPersonalStatement(message string) bool {
	return personalStatement.MatchString(message)
}

// ConfidenceProbe is the canonical policy: let the model answer from internal
// knowledge first and only search when it flags itself as unsure.
type ConfidenceProbe struct{}

func (ConfidenceProbe) Name() string { return "confidence-probe" }

func (ConfidenceProbe) WantsProbe(message string) bool {
	return !isPersonalStatement(message)
}

func (p ConfidenceProbe) Decide(message string, sig Signal) bool {
	if isPersonalStatement(message) {
		return false
	}
	return sig.MarkerSeen
}

// Keyword augments when the message contains a recency/lookup trigger word.
// Kept as a swappable variant for tests and offline use; it ignores the
// confidence signal entirely.
type Keyword struct {
	Triggers []string
}

// DefaultKeywordTriggers are the lookup cues the keyword policy reacts to.
var DefaultKeywordTriggers = []string{
	"today", "latest", "current", "news", "price", "weather", "score", "release",
}

func (Keyword) Name() string { return "keyword" }

func (Keyword) WantsProbe(string) bool { return false }

func (p Keyword) Decide(message string, _ Signal) bool {
	if isPersonalStatement(message) {
		return false
	}

	triggers := p.Triggers
	if len(triggers) == 0 {
		triggers = DefaultKeywordTriggers
	}

	lowered := strings.ToLower(message)
	for _, trigger := range triggers {
		if strings.Contains(lowered, trigger) {
			return true
		}
	}
	return false
}

// AlwaysOn augments every message except personal statements. Test variant.
type AlwaysOn struct{}

func (AlwaysOn) Name() string { return "always-on" }

func (AlwaysOn) WantsProbe(string) bool { return false }

func (AlwaysOn) Decide(message string, _ Signal) bool {
	return !isPersonalStatement(message)
}

// PolicyByName maps the config selector to a policy implementation,
// defaulting to the confidence probe.
func PolicyByName(name string) Policy {
	switch name {
	case "keyword":
		return Keyword{}
	case "always-on":
		return AlwaysOn{}
	default:
		return ConfidenceProbe{}
	}
}
