// Package pixels decides and drives the indicator LEDs. The pattern is a
// pure function of (container empty, online); the blink cadence and the
// actual LED output are kept behind small, separately testable pieces.
package pixels

import "time"

// Pattern is the indicator state to display.
type Pattern int

const (
	// Off means no alerts.
	Off Pattern = iota
	// AllRed means the container is empty and the network is fine.
	AllRed
	// WifiOnly means the network is down and the container is fine.
	WifiOnly
	// RedAndWifi means the container is empty and the network is down.
	RedAndWifi
)

func (p Pattern) String() string {
	switch p {
	case Off:
		return "OFF"
	case AllRed:
		return "ALL_RED"
	case WifiOnly:
		return "WIFI_ONLY"
	case RedAndWifi:
		return "RED_AND_WIFI"
	}
	return "UNKNOWN"
}

// Decide maps the alert inputs to a display pattern.
func Decide(containerEmpty, online bool) Pattern {
	switch {
	case containerEmpty && !online:
		return RedAndWifi
	case containerEmpty:
		return AllRed
	case !online:
		return WifiOnly
	}
	return Off
}

// DefaultBlinkInterval is the alert blink cadence.
const DefaultBlinkInterval = 300 * time.Millisecond

// Strip drives the physical LEDs.
type Strip interface {
	// Apply displays the pattern, or blanks the strip when lit is false.
	Apply(p Pattern, lit bool) error

	// Close blanks the strip and releases resources.
	Close() error
}

// Blinker alternates the strip between lit and dark while an alert pattern
// is active, and blanks it when there is nothing to show.
type Blinker struct {
	strip    Strip
	interval time.Duration

	lastToggle time.Time
	lit        bool
}

// NewBlinker creates a Blinker over the given strip.
func NewBlinker(strip Strip, interval time.Duration) *Blinker {
	return &Blinker{strip: strip, interval: interval}
}

// Update advances the blink state for the given pattern. Call on every
// driver tick.
func (b *Blinker) Update(now time.Time, p Pattern) error {
	if p == Off {
		if b.lit {
			b.lit = false
			return b.strip.Apply(Off, false)
		}
		return nil
	}

	if !b.lastToggle.IsZero() && now.Sub(b.lastToggle) < b.interval {
		return nil
	}
	b.lastToggle = now
	b.lit = !b.lit
	return b.strip.Apply(p, b.lit)
}

// FakeStrip records applied patterns for test assertions.
type FakeStrip struct {
	// Applied contains every Apply call in order.
	Applied []AppliedPattern

	// ApplyError, if set, will be returned by Apply.
	ApplyError error

	// Closed tracks if Close was called.
	Closed bool
}

// AppliedPattern is one recorded Apply call.
type AppliedPattern struct {
	Pattern Pattern
	Lit     bool
}

// Apply records the call.
func (f *FakeStrip) Apply(p Pattern, lit bool) error {
	if f.ApplyError != nil {
		return f.ApplyError
	}
	f.Applied = append(f.Applied, AppliedPattern{Pattern: p, Lit: lit})
	return nil
}

// Close marks the strip as closed.
func (f *FakeStrip) Close() error {
	f.Closed = true
	return nil
}
