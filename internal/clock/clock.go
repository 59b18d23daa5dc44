// Package clock provides wall-clock access with an explicit "time not yet
// known" state. On a freshly booted device the system clock starts near the
// epoch until NTP sync completes; every time-dependent decision in the core
// must degrade to a no-op rather than trust such a clock.
package clock

import "time"

// minValidEpoch is the threshold below which the system clock is considered
// unset. Any real synchronized clock is far past it.
const minValidEpoch = 100000

// Clock reports the current wall-clock time and whether it can be trusted.
type Clock interface {
	// Now returns the current local time and whether the clock has been
	// synchronized. When valid is false the time value must not be used.
	Now() (now time.Time, valid bool)
}

// System is the real clock. It trusts the OS time once it is past the
// validity threshold.
type System struct{}

// Now returns the system time and its validity.
func (System) Now() (time.Time, bool) {
	now := time.Now()
	return now, now.Unix() >= minValidEpoch
}

// Fake is a scripted clock for tests.
type Fake struct {
	// Time is the value returned by Now.
	Time time.Time

	// Valid controls whether the clock reports as synchronized.
	Valid bool
}

// Now returns the scripted time and validity.
func (f *Fake) Now() (time.Time, bool) {
	return f.Time, f.Valid
}

// Advance moves the fake clock forward.
func (f *Fake) Advance(d time.Duration) {
	f.Time = f.Time.Add(d)
}
