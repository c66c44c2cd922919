package nurture

import (
	"strings"
	"testing"
)

func TestRespondOpeningSendsIntro(t *testing.T) {
	lead := LeadInfo{FirstName: "Sam", Email: "sam@example.com", State: "Ohio"}

	res := Respond(StageOpening, lead, "info please", nil)

	if res.NextStage != StagePermission {
		t.Fatalf("expected next stage permission, got %q", res.NextStage)
	}
	if !strings.Contains(res.Response, "Sam") || !strings.Contains(res.Response, "Ohio") {
		t.Fatalf("expected intro to interpolate lead fields, got %q", res.Response)
	}
	if !strings.Contains(res.Response, "sam@example.com") {
		t.Fatalf("expected intro to mention the email, got %q", res.Response)
	}
}

func TestRespondOpeningDoesNotRepeatIntro(t *testing.T) {
	lead := LeadInfo{FirstName: "Sam", Email: "sam@example.com", State: "Ohio"}
	history := []Turn{
		{Role: "assistant", Content: "Hi Sam, I'm Nick Neessen."},
	}

	res := Respond(StageOpening, lead, "hello?", history)

	if strings.Contains(res.Response, "Nick Neessen") {
		t.Fatalf("expected intro not to repeat, got %q", res.Response)
	}
	if res.NextStage != StagePermission {
		t.Fatalf("expected next stage permission, got %q", res.NextStage)
	}
}

func TestRespondObjectionPreemptsStage(t *testing.T) {
	lead := LeadInfo{FirstName: "Sam"}
	history := []Turn{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "would you like to include your spouse as well?"},
	}

	res := Respond(StageSpouseCoverage, lead, "just send me a quote please", history)

	if res.Stage != StageObjectionHandling {
		t.Fatalf("expected objection handling, got %q", res.Stage)
	}
	if !strings.Contains(res.Response, "mortgage protection isn't like car insurance") {
		t.Fatalf("expected quote objection response, got %q", res.Response)
	}
	if res.NextStage != StageSpouseCoverage {
		t.Fatalf("expected the stage pointer to be preserved, got %q", res.NextStage)
	}
}

func TestRespondPermission(t *testing.T) {
	lead := LeadInfo{FirstName: "Sam"}
	history := []Turn{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "Do you mind if I ask you a couple questions before we hop on a call?"},
	}

	res := Respond(StagePermission, lead, "sure, go ahead", history)
	if res.NextStage != StageFirstVsReplacement {
		t.Fatalf("expected advance to first_vs_replacement, got %q", res.NextStage)
	}

	res = Respond(StagePermission, lead, "why do you need that", history)
	if res.NextStage != StagePermission {
		t.Fatalf("expected a non-answer to stay at permission, got %q", res.NextStage)
	}
	if res.Stage != StageObjectionHandling {
		t.Fatalf("expected reassurance path, got %q", res.Stage)
	}
}

func TestRespondFirstVsReplacement(t *testing.T) {
	lead := LeadInfo{FirstName: "Sam"}
	history := []Turn{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "will this be your first policy or are you looking to replace coverage?"},
	}

	res := Respond(StageFirstVsReplacement, lead, "this would be my first", history)
	if res.NextStage != StageSpouseCoverage {
		t.Fatalf("expected advance to spouse_coverage, got %q", res.NextStage)
	}

	res = Respond(StageFirstVsReplacement, lead, "I want to replace my current plan", history)
	if res.NextStage != StageSpouseCoverage {
		t.Fatalf("expected replacement answer to advance, got %q", res.NextStage)
	}
	if !strings.Contains(res.Response, "replace existing coverage") {
		t.Fatalf("expected replacement acknowledgement, got %q", res.Response)
	}

	res = Respond(StageFirstVsReplacement, lead, "maybe", history)
	if res.NextStage != StageFirstVsReplacement {
		t.Fatalf("expected unclear answer to repeat the question, got %q", res.NextStage)
	}
}

func TestRespondSpouseCoverage(t *testing.T) {
	lead := LeadInfo{FirstName: "Sam", State: "Ohio"}
	history := []Turn{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "would you like to include your spouse as well?"},
	}

	res := Respond(StageSpouseCoverage, lead, "my wife and I", history)
	if res.NextStage != StageLicenseConfirm {
		t.Fatalf("expected advance to license_confirm, got %q", res.NextStage)
	}
	if !strings.Contains(res.Response, "both you and your spouse") {
		t.Fatalf("expected spouse acknowledgement, got %q", res.Response)
	}
	if !strings.Contains(res.Response, "Ohio insurance license") {
		t.Fatalf("expected license question with state, got %q", res.Response)
	}

	res = Respond(StageSpouseCoverage, lead, "just me", history)
	if !strings.Contains(res.Response, "just coverage for yourself") {
		t.Fatalf("expected solo acknowledgement, got %q", res.Response)
	}
}

func TestRespondLicenseConfirm(t *testing.T) {
	lead := LeadInfo{FirstName: "Sam", Email: "sam@example.com"}
	history := []Turn{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "Have you received my Ohio insurance license in your email?"},
	}

	res := Respond(StageLicenseConfirm, lead, "yes, got it", history)
	if res.NextStage != StageAppointmentBooking {
		t.Fatalf("expected advance to appointment_booking, got %q", res.NextStage)
	}

	res = Respond(StageLicenseConfirm, lead, "nothing in my inbox", history)
	if res.NextStage != StageLicenseConfirm {
		t.Fatalf("expected resend to stay at license_confirm, got %q", res.NextStage)
	}
	if !strings.Contains(res.Response, "sam@example.com") {
		t.Fatalf("expected resend to mention the email, got %q", res.Response)
	}
}

func TestRespondAppointmentStageHandsOff(t *testing.T) {
	lead := LeadInfo{FirstName: "Sam"}
	history := []Turn{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "I have some available times today or tomorrow"},
	}

	res := Respond(StageAppointmentBooking, lead, "tomorrow works", history)
	if res.Stage != StageAppointmentBooking {
		t.Fatalf("expected appointment stage, got %q", res.Stage)
	}
}

func TestDetectObjection(t *testing.T) {
	cases := []struct {
		message string
		want    Objection
	}{
		{"can you just send me a quote", ObjectionQuote},
		{"just email me the details", ObjectionEmailInfo},
		{"please send me information", ObjectionEmailInfo},
		{"i'm not interested", ObjectionNotInterested},
		{"no thanks", ObjectionNotInterested},
		{"i'm too busy for this", ObjectionBusy},
		{"i have no time right now", ObjectionBusy},
	}

	for _, tc := range cases {
		got, ok := DetectObjection(tc.message)
		if !ok {
			t.Fatalf("expected objection for %q", tc.message)
		}
		if got != tc.want {
			t.Fatalf("expected %q for %q, got %q", tc.want, tc.message, got)
		}
	}

	if _, ok := DetectObjection("sounds good, what times do you have"); ok {
		t.Fatal("expected no objection for a cooperative reply")
	}
}
