package clock

import (
	"testing"
	"time"
)

func TestSystemNow(t *testing.T) {
	now, valid := System{}.Now()
	// The test host's clock is synchronized; a failure here means the
	// validity threshold is wrong, not the host.
	if !valid {
		t.Error("system clock should be valid on a running host")
	}
	if now.IsZero() {
		t.Error("system clock returned the zero time")
	}
}

func TestFakeNowAndAdvance(t *testing.T) {
	f := &Fake{Time: time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC), Valid: true}

	now, valid := f.Now()
	if !valid {
		t.Error("expected valid")
	}
	if !now.Equal(f.Time) {
		t.Errorf("Now: got %v, want %v", now, f.Time)
	}

	f.Advance(90 * time.Second)
	now, _ = f.Now()
	if want := time.Date(2026, 3, 9, 8, 1, 30, 0, time.UTC); !now.Equal(want) {
		t.Errorf("after Advance: got %v, want %v", now, want)
	}
}

func TestFakeInvalid(t *testing.T) {
	f := &Fake{Time: time.Unix(60, 0)}
	if _, valid := f.Now(); valid {
		t.Error("expected invalid")
	}
}
