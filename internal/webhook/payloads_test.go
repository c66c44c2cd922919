package webhook

import "testing"

func TestIsInboundSMS(t *testing.T) {
	payload := ClosePayload{Event: CloseEvent{
		ObjectType: CloseObjectTypeSMS,
		Action:     CloseActionCreated,
		Data:       CloseEventData{Direction: CloseDirectionInbound},
	}}
	if !payload.IsInboundSMS() {
		t.Fatal("expected inbound sms to match")
	}

	outbound := payload
	outbound.Event.Data.Direction = "outbound"
	if outbound.IsInboundSMS() {
		t.Fatal("expected outbound sms not to match")
	}

	updated := payload
	updated.Event.Action = "updated"
	if updated.IsInboundSMS() {
		t.Fatal("expected updated events not to match")
	}

	call := payload
	call.Event.ObjectType = "activity.call"
	if call.IsInboundSMS() {
		t.Fatal("expected non-sms activity not to match")
	}
}
