package learning

import "testing"

func TestAssessReaction(t *testing.T) {
	cases := []struct {
		reaction string
		want     Effectiveness
	}{
		{"yes, sounds good! when works for you?", EffectHigh},
		{"what are my options", EffectHigh},
		{"not interested, remove me", EffectLow},
		{"that's too expensive for me", EffectLow},
		{"hmm", EffectMedium},
		{"", EffectMedium},
	}

	for _, tc := range cases {
		if got := AssessReaction(tc.reaction); got != tc.want {
			t.Fatalf("expected %q for %q, got %q", tc.want, tc.reaction, got)
		}
	}
}

func TestAssessReactionMixedSignalsBalanceOut(t *testing.T) {
	// One positive and one negative indicator cancel to medium.
	if got := AssessReaction("sounds good but i'm busy"); got != EffectMedium {
		t.Fatalf("expected medium for mixed signals, got %q", got)
	}
}

func TestClassifyStage(t *testing.T) {
	cases := []struct {
		name    string
		message string
		index   int
		total   int
		want    string
	}{
		{"first message is opening", "schedule a call with me", 0, 10, "opening"},
		{"scheduling words", "what times are you available?", 3, 10, "appointment_setting"},
		{"qualification words", "is this your first policy?", 2, 10, "qualification"},
		{"late in conversation", "just following up one last time", 9, 10, "closing"},
		{"default", "let me explain", 2, 10, "objection"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyStage(tc.message, tc.index, tc.total); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
