package nurture

import (
	"fmt"
	"strings"
)

// LeadInfo is the lead context the dialogue scripts interpolate.
type LeadInfo struct {
	FirstName string
	Email     string
	State     string
}

// Result is the outcome of one dialogue turn. NextStage is the stage the
// conversation should persist; Response is the outbound SMS text. When
// Stage is StageAppointmentBooking the caller hands off to the booking
// flow instead of sending Response.
type Result struct {
	Stage     Stage
	NextStage Stage
	Response  string
}

// Respond computes the bot's reply for an inbound message. The machine is
// pure: all state arrives via the persisted stage and history.
func Respond(persisted Stage, lead LeadInfo, userMessage string, history []Turn) Result {
	userResponse := strings.ToLower(strings.TrimSpace(userMessage))
	stage := ResolveStage(persisted, history)

	// Objections preempt stage progression. The stage pointer is kept so
	// a later cooperative reply resumes where the script left off.
	if objection, ok := DetectObjection(userResponse); ok {
		res := handleObjection(objection)
		res.NextStage = stage
		return res
	}

	switch stage {
	case StagePermission:
		return handlePermission(userResponse)
	case StageFirstVsReplacement:
		return handleFirstVsReplacement(userResponse)
	case StageSpouseCoverage:
		return handleSpouseCoverage(lead, userResponse)
	case StageLicenseConfirm:
		return handleLicenseConfirm(lead, userResponse)
	case StageAppointmentBooking:
		return Result{
			Stage:     StageAppointmentBooking,
			NextStage: StageAppointmentBooking,
			Response:  "Let me check my calendar and show you some available times...",
		}
	default:
		return handleOpening(lead, history)
	}
}

// Objection identifies which stall or brush-off the lead used.
type Objection string

const (
	ObjectionQuote         Objection = "quote"
	ObjectionEmailInfo     Objection = "email_info"
	ObjectionNotInterested Objection = "not_interested"
	ObjectionBusy          Objection = "busy"
	ObjectionGeneric       Objection = "generic"
)

// objectionPhrases maps trigger phrases to objection kinds, checked in
// order so the more specific stalls win.
var objectionPhrases = []struct {
	phrase string
	kind   Objection
}{
	{"just send me a quote", ObjectionQuote},
	{"just email me", ObjectionEmailInfo},
	{"send me information", ObjectionEmailInfo},
	{"not interested", ObjectionNotInterested},
	{"no thanks", ObjectionNotInterested},
	{"too busy", ObjectionBusy},
	{"no time", ObjectionBusy},
}

// DetectObjection scans a lowercased user message for objection phrases.
func DetectObjection(userResponse string) (Objection, bool) {
	for _, entry := range objectionPhrases {
		if strings.Contains(userResponse, entry.phrase) {
			return entry.kind, true
		}
	}
	return "", false
}

func handleOpening(lead LeadInfo, history []Turn) Result {
	// A re-delivered or out-of-order message must not repeat the intro.
	if introSent(history) || len(history) > 2 {
		return Result{
			Stage:     StageOpening,
			NextStage: StagePermission,
			Response:  "Do you mind if I ask you a couple questions before we hop on a call?",
		}
	}

	state := lead.State
	if state == "" {
		state = "state"
	}
	return Result{
		Stage:     StageOpening,
		NextStage: StagePermission,
		Response: fmt.Sprintf(
			"Hi %s, I'm Nick Neessen. I was assigned to go over mortgage protection options with you. I sent you an email of my %s insurance license to %s. Looking forward to speaking!",
			lead.FirstName, state, lead.Email,
		),
	}
}

func handlePermission(userResponse string) Result {
	positive := []string{"sure", "yes", "ok", "go ahead", "yeah", "yep", "fine", "okay"}
	for _, word := range positive {
		if strings.Contains(userResponse, word) {
			return Result{
				Stage:     StagePermission,
				NextStage: StageFirstVsReplacement,
				Response:  "Perfect! Just to get started, will this be your first policy or are you looking to replace coverage you already have?",
			}
		}
	}

	return Result{
		Stage:     StageObjectionHandling,
		NextStage: StagePermission,
		Response:  "I understand you might have questions. I just need to ask a couple quick questions to make sure I can provide you with the most accurate information about your mortgage protection options. It'll just take a minute - is that okay?",
	}
}

func handleFirstVsReplacement(userResponse string) Result {
	isFirst := strings.Contains(userResponse, "first") ||
		strings.Contains(userResponse, "new") ||
		strings.Contains(userResponse, "don't have")
	isReplacement := strings.Contains(userResponse, "replace") ||
		strings.Contains(userResponse, "current") ||
		strings.Contains(userResponse, "have some") ||
		strings.Contains(userResponse, "existing")

	switch {
	case isFirst:
		return Result{
			Stage:     StageFirstVsReplacement,
			NextStage: StageSpouseCoverage,
			Response:  "Great! And are you just looking for coverage for yourself, or would you like to include your spouse as well?",
		}
	case isReplacement:
		return Result{
			Stage:     StageFirstVsReplacement,
			NextStage: StageSpouseCoverage,
			Response:  "I see, looking to replace existing coverage. And will this new coverage be for just yourself, or for you and your spouse?",
		}
	default:
		return Result{
			Stage:     StageFirstVsReplacement,
			NextStage: StageFirstVsReplacement,
			Response:  "Just to clarify - do you currently have any mortgage protection coverage, or would this be your first policy?",
		}
	}
}

func handleSpouseCoverage(lead LeadInfo, userResponse string) Result {
	justMe := strings.Contains(userResponse, "just me") ||
		strings.Contains(userResponse, "myself") ||
		strings.Contains(userResponse, "only me") ||
		strings.Contains(userResponse, "single")
	includeSpouse := strings.Contains(userResponse, "spouse") ||
		strings.Contains(userResponse, "wife") ||
		strings.Contains(userResponse, "husband") ||
		strings.Contains(userResponse, "both") ||
		strings.Contains(userResponse, "us")

	var prefix string
	switch {
	case justMe:
		prefix = "Got it, just coverage for yourself. "
	case includeSpouse:
		prefix = "Perfect, coverage for both you and your spouse. "
	default:
		prefix = "I want to make sure I understand - "
	}

	state := lead.State
	if state == "" {
		state = "state"
	}

	return Result{
		Stage:     StageSpouseCoverage,
		NextStage: StageLicenseConfirm,
		Response: prefix + fmt.Sprintf(
			"Have you received my %s insurance license in your email? I always send that first so you know you're working with a licensed professional.",
			state,
		),
	}
}

func handleLicenseConfirm(lead LeadInfo, userResponse string) Result {
	confirmed := strings.Contains(userResponse, "yes") ||
		strings.Contains(userResponse, "got it") ||
		strings.Contains(userResponse, "received") ||
		strings.Contains(userResponse, "saw it")

	if confirmed {
		return Result{
			Stage:     StageLicenseConfirm,
			NextStage: StageAppointmentBooking,
			Response:  "Excellent! Now that we have the basics covered, I'd love to set up a quick call to go over your specific options. I have some time available today or tomorrow - what works better for your schedule?",
		}
	}

	return Result{
		Stage:     StageLicenseConfirm,
		NextStage: StageLicenseConfirm,
		Response: fmt.Sprintf(
			"No worries! Let me resend that to %s. You should receive my license within a few minutes. Once you get that, we can hop on a quick call to review your mortgage protection options.",
			lead.Email,
		),
	}
}

func handleObjection(objection Objection) Result {
	var response string
	switch objection {
	case ObjectionQuote:
		response = "I understand you'd like to see numbers, but mortgage protection isn't like car insurance where I can just give you a standard quote. The coverage amount and premium depends on your specific situation - your age, health, mortgage balance, and what you're trying to protect. That's why I need just a few minutes on the phone to make sure you get accurate information that actually fits your needs. Would tomorrow morning or afternoon work better for a quick 10-minute call?"
	case ObjectionEmailInfo:
		response = "I totally understand wanting information first. I already sent you my license, and I can certainly follow up with details. But here's the thing - mortgage protection options vary quite a bit based on your specific situation. Rather than sending generic information that might not apply to you, would you be open to a quick 10-minute call where I can give you information that's actually relevant to your mortgage and situation?"
	case ObjectionNotInterested:
		response = "I completely understand! Can I ask what's making you feel that way? Is it that you already have coverage, or are you concerned about the cost? I just want to make sure you have accurate information before making a decision."
	case ObjectionBusy:
		response = "I totally get that - everyone's schedule is crazy! That's actually why I try to keep these calls super short. I'm talking about 10-15 minutes max, just enough time to make sure you understand your options. I have some early morning slots or even evening time slots if that works better. What time of day usually works best for you?"
	default:
		response = "I hear you, and I want to make sure this is worth your time. Since you took the time to request information about mortgage protection, I'm assuming you want to make sure your family and home are protected if something happens to you. All I'm asking for is 10 minutes to make sure you have the right information to make an informed decision. Would that be fair?"
	}

	return Result{
		Stage:     StageObjectionHandling,
		NextStage: StageObjectionHandling,
		Response:  response,
	}
}
