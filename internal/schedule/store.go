package schedule

import (
	"log"
	"time"
)

// Store holds the six schedule slots plus the per-slot fired state and the
// day-of-year tracking needed for single-fire-per-day semantics. One Store
// is kept per schedule source (remote-fed and cache-fed); both behave
// identically.
//
// Not safe for concurrent use; the driver loop is the only caller.
type Store struct {
	slots [MaxSlots]Slot

	// lastYearDay is the last observed day-of-year, or -1 before the
	// first observation with a valid clock.
	lastYearDay int

	// name tags log lines so the remote-fed and cache-fed stores can be
	// told apart.
	name string
}

// NewStore creates an empty schedule store. The name appears in log output.
func NewStore(name string) *Store {
	return &Store{
		lastYearDay: -1,
		name:        name,
	}
}

// Load replaces all slots with the given document and recomputes each slot's
// signature. A slot whose signature changed since the previous load (or that
// became disabled) has its fired flag cleared; other slots keep their fired
// state, so a no-op reload never re-arms anything.
func (s *Store) Load(doc Document) {
	old := s.slots
	s.slots = doc

	for i := range s.slots {
		s.slots[i].signature = fingerprint(s.slots[i])

		if s.slots[i].signature != old[i].signature {
			if old[i].firedToday {
				log.Printf("schedule[%s]: slot %d changed, re-armed", s.name, i)
			}
			s.slots[i].firedToday = false
			continue
		}
		s.slots[i].firedToday = old[i].firedToday
	}

	for i := range s.slots {
		if !s.slots[i].Enabled {
			s.slots[i].firedToday = false
			s.slots[i].signature = 0
		}
	}
}

// Slot returns a copy of the slot at index i.
func (s *Store) Slot(i int) Slot {
	return s.slots[i]
}

// Slots returns a copy of all slots.
func (s *Store) Slots() [MaxSlots]Slot {
	return s.slots
}

// DueFeeding reports whether a feeding is due at the given wall-clock time.
// It fires the lowest-index armed slot whose hour and minute equal now, marks
// that slot fired, and returns its details. At most one slot fires per call;
// callers poll at sub-minute resolution and pick up the rest on later calls.
//
// When valid is false (clock not yet synchronized) nothing fires and no state
// is mutated, so a bad epoch can never trigger a daily reset.
func (s *Store) DueFeeding(now time.Time, valid bool) (Feeding, bool) {
	if !valid {
		return Feeding{}, false
	}

	s.resetDailyFired(now)

	for i := range s.slots {
		if !s.slots[i].Enabled || s.slots[i].firedToday {
			continue
		}
		if now.Hour() != s.slots[i].Hour || now.Minute() != s.slots[i].Minute {
			continue
		}

		s.slots[i].firedToday = true
		return Feeding{
			AmountGrams: s.slots[i].AmountGrams,
			Hour:        s.slots[i].Hour,
			Minute:      s.slots[i].Minute,
			MealName:    s.slots[i].MealName,
		}, true
	}

	return Feeding{}, false
}

// resetDailyFired clears every slot's fired flag once per new calendar day.
// The very first observation only records the current day; there is nothing
// to reset yet.
func (s *Store) resetDailyFired(now time.Time) {
	yday := now.YearDay()

	if s.lastYearDay == -1 {
		s.lastYearDay = yday
		return
	}

	if yday != s.lastYearDay {
		s.lastYearDay = yday
		for i := range s.slots {
			s.slots[i].firedToday = false
		}
	}
}
