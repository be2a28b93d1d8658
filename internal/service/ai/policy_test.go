package ai

import "testing"

func TestConfidenceProbeFollowsMarker(t *testing.T) {
	p := ConfidenceProbe{}

	if !p.WantsProbe("who won the 2026 world cup final?") {
		t.Fatal("expected probe for a factual question")
	}
	if p.Decide("who won the 2026 world cup final?", Signal{MarkerSeen: false}) {
		t.Fatal("expected no augmentation without the marker")
	}
	if !p.Decide("who won the 2026 world cup final?", Signal{MarkerSeen: true}) {
		t.Fatal("expected augmentation when the marker was seen")
	}
}

func TestPersonalStatementsNeverAugment(t *testing.T) {
	messages := []string{
		"my name is Alice",
		"Call me Bob",
		"I am called Charlie",
		"my birthday is June 3rd",
		"I live in Berlin",
	}

	policies := []Policy{ConfidenceProbe{}, Keyword{}, AlwaysOn{}}
	for _, policy := range policies {
		for _, msg := range messages {
			if policy.Decide(msg, Signal{MarkerSeen: true}) {
				t.Fatalf("%s: augmented personal statement %q", policy.Name(), msg)
			}
		}
	}

	if (ConfidenceProbe{}).WantsProbe("my name is Alice") {
		t.Fatal("probe requested for a personal statement")
	}
}

func TestConfidenceProbeIsDeterministic(t *testing.T) {
	p := ConfidenceProbe{}
	msg := "what is the latest Go release?"
	sig := Signal{MarkerSeen: true}

	first := p.Decide(msg, sig)
	for i := 0; i < 10; i++ {
		if p.Decide(msg, sig) != first {
			t.Fatal("policy decision changed across identical inputs")
		}
	}
}

func TestKeywordPolicy(t *testing.T) {
	p := Keyword{}

	if !p.Decide("what is the weather in Paris", Signal{}) {
		t.Fatal("expected keyword trigger on weather")
	}
	if p.Decide("explain goroutines", Signal{}) {
		t.Fatal("unexpected trigger without keywords")
	}
	if p.WantsProbe("what is the weather") {
		t.Fatal("keyword policy should not request a probe")
	}

	custom := Keyword{Triggers: []string{"foobar"}}
	if !custom.Decide("tell me about FOOBAR", Signal{}) {
		t.Fatal("expected case-insensitive custom trigger")
	}
}

func TestAlwaysOnPolicy(t *testing.T) {
	p := AlwaysOn{}

	if !p.Decide("explain goroutines", Signal{}) {
		t.Fatal("expected always-on to augment plain questions")
	}
	if p.Decide("my name is Alice", Signal{}) {
		t.Fatal("always-on must still honor the blocklist")
	}
}

func TestPolicyByName(t *testing.T) {
	if PolicyByName("keyword").Name() != "keyword" {
		t.Fatal("wrong policy for keyword")
	}
	if PolicyByName("always-on").Name() != "always-on" {
		t.Fatal("wrong policy for always-on")
	}
	if PolicyByName("confidence-probe").Name() != "confidence-probe" {
		t.Fatal("wrong policy for confidence-probe")
	}
	if PolicyByName("").Name() != "confidence-probe" {
		t.Fatal("expected confidence-probe default")
	}
}
