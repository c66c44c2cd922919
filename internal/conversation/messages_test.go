package conversation

import "testing"

func TestNullIfEmpty(t *testing.T) {
	if got := nullIfEmpty(""); got != nil {
		t.Fatalf("expected nil for an empty activity id, got %q", *got)
	}

	got := nullIfEmpty("acti_123")
	if got == nil || *got != "acti_123" {
		t.Fatalf("expected a pointer to the id, got %v", got)
	}
}
