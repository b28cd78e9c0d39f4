package views

import (
	"testing"
	"time"
)

func TestParseWhen(t *testing.T) {
	loc := time.FixedZone("X", 2*3600)

	got, clear, err := ParseWhen("2026-03-04", loc)
	if err != nil || clear || got == nil {
		t.Fatalf("date only: %v %v %v", got, clear, err)
	}
	if want := time.Date(2026, 3, 4, 23, 59, 0, 0, loc); !got.Equal(want) {
		t.Fatalf("date only means end of day: want %v got %v", want, got)
	}

	got, _, err = ParseWhen("2026-03-04T09:30", loc)
	if err != nil || !got.Equal(time.Date(2026, 3, 4, 9, 30, 0, 0, loc)) {
		t.Fatalf("local datetime: %v %v", got, err)
	}
	got, _, err = ParseWhen("2026-03-04 09:30:15", loc)
	if err != nil || got.Second() != 15 {
		t.Fatalf("seconds: %v %v", got, err)
	}
	got, _, err = ParseWhen("2026-03-04T09:30:00Z", loc)
	if err != nil || !got.Equal(time.Date(2026, 3, 4, 9, 30, 0, 0, time.UTC)) {
		t.Fatalf("rfc3339: %v %v", got, err)
	}

	if got, clear, err := ParseWhen("None", loc); err != nil || !clear || got != nil {
		t.Fatalf("none clears: %v %v %v", got, clear, err)
	}
	for _, bad := range []string{"", "tomorrow", "2026-13-01"} {
		if _, _, err := ParseWhen(bad, loc); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestParseMonth(t *testing.T) {
	now := time.Date(2026, 5, 17, 12, 0, 0, 0, time.UTC)
	if m, err := ParseMonth("", now); err != nil || !m.Equal(now) {
		t.Fatalf("empty means now: %v %v", m, err)
	}
	m, err := ParseMonth("2026-02", now)
	if err != nil || m.Month() != time.February || m.Year() != 2026 {
		t.Fatalf("got %v %v", m, err)
	}
	if _, err := ParseMonth("Feb 2026", now); err == nil {
		t.Fatalf("expected error")
	}
}
