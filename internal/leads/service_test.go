package leads

import (
	"testing"
	"time"
)

func TestAgeOfBoundary(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	exactly14 := now.Add(-14 * 24 * time.Hour)
	if got := AgeOf(Lead{CRMCreatedAt: &exactly14}, now); got != AgeFresh {
		t.Fatalf("expected a 14 day old lead to be fresh, got %q", got)
	}

	over14 := now.Add(-14*24*time.Hour - time.Second)
	if got := AgeOf(Lead{CRMCreatedAt: &over14}, now); got != AgeAged {
		t.Fatalf("expected a lead past 14 days to be aged, got %q", got)
	}
}

func TestAgeOfUnknownCreationIsAged(t *testing.T) {
	now := time.Now()
	if got := AgeOf(Lead{}, now); got != AgeAged {
		t.Fatalf("expected unknown creation date to count as aged, got %q", got)
	}
}

func TestSplitName(t *testing.T) {
	cases := []struct {
		full        string
		first, last string
	}{
		{"", "", ""},
		{"Cher", "Cher", ""},
		{"Sam Jones", "Sam", "Jones"},
		{"Mary Anne van der Berg", "Mary", "Anne van der Berg"},
		{"  padded   name  ", "padded", "name"},
	}

	for _, tc := range cases {
		first, last := splitName(tc.full)
		if first != tc.first || last != tc.last {
			t.Fatalf("splitName(%q) = %q, %q; expected %q, %q", tc.full, first, last, tc.first, tc.last)
		}
	}
}
