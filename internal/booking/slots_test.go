package booking

import (
	"strings"
	"testing"
	"time"
)

func testRules() SlotRules {
	return DefaultSlotRules(time.UTC)
}

func TestBuildSlotsHonorsLeadTime(t *testing.T) {
	// Monday mid-morning. Slots must be at least 30 minutes out.
	now := time.Date(2026, 1, 5, 10, 15, 0, 0, time.UTC)

	slots := BuildSlots(now, Preferences{Day: DayAny}, testRules())

	if len(slots) != maxOffered {
		t.Fatalf("expected %d slots, got %d", maxOffered, len(slots))
	}
	want := []int{11, 12, 13}
	for i, slot := range slots {
		if slot.Hour() != want[i] {
			t.Fatalf("expected hour %d at index %d, got %d", want[i], i, slot.Hour())
		}
		if !slot.After(now.Add(30 * time.Minute)) {
			t.Fatalf("slot %v violates the minimum lead time", slot)
		}
	}
}

func TestBuildSlotsTomorrowOnly(t *testing.T) {
	now := time.Date(2026, 1, 5, 10, 15, 0, 0, time.UTC)

	slots := BuildSlots(now, Preferences{Day: DayTomorrow}, testRules())

	if len(slots) != maxOffered {
		t.Fatalf("expected %d slots, got %d", maxOffered, len(slots))
	}
	for _, slot := range slots {
		if slot.Day() != 6 {
			t.Fatalf("expected all slots on the 6th, got %v", slot)
		}
	}
	if slots[0].Hour() != 9 {
		t.Fatalf("expected first slot at business open, got %d", slots[0].Hour())
	}
}

func TestBuildSlotsSkipsWeekend(t *testing.T) {
	// Friday late afternoon. The 48 hour window covers the weekend, so
	// only the remaining Friday slot qualifies.
	now := time.Date(2026, 1, 9, 16, 0, 0, 0, time.UTC)

	slots := BuildSlots(now, Preferences{Day: DayAny}, testRules())

	if len(slots) != 1 {
		t.Fatalf("expected a single Friday slot, got %d", len(slots))
	}
	if slots[0].Weekday() != time.Friday || slots[0].Hour() != 17 {
		t.Fatalf("expected Friday 17:00, got %v", slots[0])
	}
}

func TestBuildSlotsHourConstraints(t *testing.T) {
	now := time.Date(2026, 1, 5, 10, 15, 0, 0, time.UTC)
	before := 13

	slots := BuildSlots(now, Preferences{Day: DayToday, Before: &before}, testRules())

	if len(slots) != 2 {
		t.Fatalf("expected 2 slots before 13:00, got %d", len(slots))
	}
	for _, slot := range slots {
		if slot.Hour() >= before {
			t.Fatalf("expected slots before %d:00, got %v", before, slot)
		}
	}
}

func TestFormatSlotList(t *testing.T) {
	slots := []time.Time{
		time.Date(2026, 1, 5, 15, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 6, 9, 0, 0, 0, time.UTC),
	}

	msg := FormatSlotList(slots, time.UTC)

	if !strings.Contains(msg, "1. Monday, Jan 5 at 3:00 PM") {
		t.Fatalf("expected numbered first slot, got %q", msg)
	}
	if !strings.Contains(msg, "2. Tuesday, Jan 6 at 9:00 AM") {
		t.Fatalf("expected numbered second slot, got %q", msg)
	}
}
