// Package schedule contains the feeding schedule store and due-feeding logic.
// This package has NO external dependencies (no filesystem, network, or
// time.Now). Time is always injectable via time.Time parameters.
package schedule

import (
	"fmt"
	"hash/fnv"
)

// MaxSlots is the fixed number of schedule slots per day.
const MaxSlots = 6

// MaxMealName is the byte limit for a meal name. Longer names are truncated.
const MaxMealName = 23

// Slot is one configured feeding opportunity.
type Slot struct {
	Enabled     bool
	Hour        int
	Minute      int
	AmountGrams int
	MealName    string

	// signature is a change-detection fingerprint over the slot's content.
	// A disabled slot's signature is 0.
	signature uint32

	// firedToday is true once the slot has dispensed for the current
	// calendar day. Only meaningful while Enabled.
	firedToday bool
}

// Signature returns the slot's content fingerprint (0 when disabled).
func (s Slot) Signature() uint32 {
	return s.signature
}

// FiredToday reports whether the slot already dispensed today.
func (s Slot) FiredToday() bool {
	return s.firedToday
}

func (s Slot) String() string {
	if !s.Enabled {
		return "(disabled)"
	}
	if s.MealName != "" {
		return fmt.Sprintf("%02d:%02d grams=%d meal=%s", s.Hour, s.Minute, s.AmountGrams, s.MealName)
	}
	return fmt.Sprintf("%02d:%02d grams=%d", s.Hour, s.Minute, s.AmountGrams)
}

// Feeding is a due feeding returned by the evaluator.
type Feeding struct {
	AmountGrams int
	Hour        int
	Minute      int
	MealName    string
}

// fingerprint computes the slot's FNV-1a content signature over the fields
// that matter for change detection: hour, minute, amount, meal name.
// Editing any of them re-arms the slot; a disabled slot hashes to 0.
func fingerprint(s Slot) uint32 {
	if !s.Enabled {
		return 0
	}
	h := fnv.New32a()
	h.Write([]byte{byte(s.Hour), byte(s.Minute)})
	h.Write([]byte{byte(s.AmountGrams), byte(s.AmountGrams >> 8), byte(s.AmountGrams >> 16), byte(s.AmountGrams >> 24)})
	h.Write([]byte(s.MealName))
	return h.Sum32()
}

// truncateMealName enforces the MaxMealName byte limit.
func truncateMealName(name string) string {
	if len(name) > MaxMealName {
		return name[:MaxMealName]
	}
	return name
}
