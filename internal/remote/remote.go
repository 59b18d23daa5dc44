// Package remote provides the remote store abstraction the sync engine
// depends on, with a Firebase Realtime Database implementation, an MQTT
// implementation, and a fake for testing.
package remote

import (
	"fmt"
	"time"
)

// Store is the remote sync contract consumed by the core. Implementations
// never retry internally: a failed push is reported as false and recovery
// is entirely the telemetry queue's job, so the online and offline failure
// paths share one mechanism.
type Store interface {
	// FetchSchedule returns the raw schedule document, or ok=false when
	// the document is absent or the transport failed. It never panics or
	// propagates transport errors to the core.
	FetchSchedule() (raw []byte, ok bool)

	// PushWeight uploads one per-feeding weight record.
	PushWeight(rec WeightRecord) bool

	// PushMealNotification appends to the date-bucketed meal log.
	PushMealNotification(n MealNotification) bool

	// PushContainerStatus updates the container-empty status fields.
	PushContainerStatus(st ContainerStatus) bool

	// Reachable reports whether the remote store is believed reachable.
	Reachable() bool

	// Close releases transport resources.
	Close() error
}

// WeightRecord is one per-feeding weight entry, written under an
// auto-incrementing index in the weights collection.
type WeightRecord struct {
	AmountGrams   int     `json:"amount_grams"`
	Hour          string  `json:"hour"` // "HH:MM"
	MealName      string  `json:"meal_name"`
	Day           string  `json:"day"`
	Date          string  `json:"date"` // "YYYY-MM-DD"
	PrevWeight    int     `json:"prev_current_weight"`
	CurrentWeight int     `json:"new_current_weight"`
}

// MealNotification is one entry in the per-day meal notification log.
type MealNotification struct {
	TS          int64  `json:"ts"`
	Type        string `json:"type"`
	MealName    string `json:"meal_name"`
	Hour        int    `json:"hour"`
	Minute      int    `json:"minute"`
	AmountGrams int    `json:"amount_grams"`
	EventID     int64  `json:"eventId"`

	// Date selects the daily bucket; not part of the entry body.
	Date string `json:"-"`
}

// NotificationDispensed is the meal notification type for a completed feed.
const NotificationDispensed = "dispensed"

// ContainerStatus is the container-empty state pushed on edges.
type ContainerStatus struct {
	Empty bool

	// EventID identifies this edge (epoch seconds, or uptime seconds
	// while the clock is unknown).
	EventID int64
}

// FormatHour renders an hour/minute pair the way the weights collection
// stores it.
func FormatHour(hour, minute int) string {
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// requestTimeout bounds every remote operation so a dead network cannot
// stall the driver loop past one poll cycle budget.
const requestTimeout = 5 * time.Second
