package clock

import (
	"testing"
	"time"
)

func TestReal_ReturnsUTC(t *testing.T) {
	now := Real{}.Now()
	if now.Location() != time.UTC {
		t.Errorf("Real.Now() location = %v, want UTC", now.Location())
	}
}

func TestFake_SetAndAdvance(t *testing.T) {
	start := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	f := NewFake(start)

	if !f.Now().Equal(start) {
		t.Errorf("Now() = %v, want %v", f.Now(), start)
	}

	f.Advance(48 * time.Hour)
	if want := start.Add(48 * time.Hour); !f.Now().Equal(want) {
		t.Errorf("after Advance: Now() = %v, want %v", f.Now(), want)
	}

	reset := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f.Set(reset)
	if !f.Now().Equal(reset) {
		t.Errorf("after Set: Now() = %v, want %v", f.Now(), reset)
	}
}
