package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"(502) 555-0134", "+15025550134"},
		{"+1 502 555 0134", "+15025550134"},
		{"  +15025550134  ", "+15025550134"},
		{"not a number", "not a number"},
		{"", ""},
	}

	for _, tc := range cases {
		if got := NormalizeE164(tc.input); got != tc.want {
			t.Fatalf("NormalizeE164(%q) = %q, expected %q", tc.input, got, tc.want)
		}
	}
}

func TestSameNumber(t *testing.T) {
	if !SameNumber("(502) 555-0134", "+15025550134") {
		t.Fatal("expected formats of the same number to match")
	}
	if SameNumber("+15025550134", "+15025550199") {
		t.Fatal("expected different numbers not to match")
	}
	if SameNumber("", "") {
		t.Fatal("expected empty inputs not to match")
	}
}
