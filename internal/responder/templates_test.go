package responder

import (
	"testing"
	"time"
)

func TestRenderSubstitutesVars(t *testing.T) {
	content := "You are texting {{leadName}} ({{leadEmail}}) as a {{botType}} bot. Today is {{currentDate}}."
	vars := Vars{
		LeadName:  "Sam Jones",
		LeadEmail: "sam@example.com",
		BotType:   "appointment",
		Now:       time.Date(2026, 3, 4, 15, 30, 0, 0, time.UTC),
	}

	got := Render(content, vars)
	want := "You are texting Sam Jones (sam@example.com) as a appointment bot. Today is 3/4/2026."
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestRenderFallsBackToThere(t *testing.T) {
	got := Render("Hi {{leadName}}!", Vars{LeadName: "  "})
	if got != "Hi there!" {
		t.Fatalf("expected fallback name, got %q", got)
	}
}
