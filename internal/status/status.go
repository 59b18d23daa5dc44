// Package status provides a thread-safe status tracker for the feeder
// daemon. It is designed to be read by HTTP handlers while the driver loop
// writes it.
package status

import (
	"sync"
	"time"

	"github.com/inbarayasoo/smart-dog-feeder/internal/feeder"
)

// Config contains daemon configuration for display.
type Config struct {
	PollMs   int64
	FetchMs  int64
	FlushMs  int64
	Backend  string
	Target   string // RTDB URL or MQTT broker
	DeviceID string
	DataDir  string
	HTTPAddr string
}

// Feeding is the last completed feeding, for display.
type Feeding struct {
	Time        time.Time
	MealName    string
	AmountGrams int
	GramsServed float64
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	ContainerEmpty bool
	Online         bool
	ClockValid     bool
	Dispensing     bool
	WeightGrams    float64
	QueueDepth     int
	LastFeeding    *Feeding
	Counters       feeder.Counters
	StartTime      time.Time
	Now            time.Time
	Config         Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update sets the per-tick state. Called from the driver loop on every tick.
func (t *Tracker) Update(containerEmpty, online, clockValid, dispensing bool, weight float64, queueDepth int, counters feeder.Counters) {
	t.mu.Lock()
	t.snap.ContainerEmpty = containerEmpty
	t.snap.Online = online
	t.snap.ClockValid = clockValid
	t.snap.Dispensing = dispensing
	t.snap.WeightGrams = weight
	t.snap.QueueDepth = queueDepth
	t.snap.Counters = counters
	t.mu.Unlock()
}

// SetLastFeeding records the most recent completed feeding.
func (t *Tracker) SetLastFeeding(f Feeding) {
	t.mu.Lock()
	t.snap.LastFeeding = &f
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
