// Package feeder contains the offline-first synchronization engine: schedule
// refresh with durable caching, due-feeding evaluation against either the
// remote-fed or the cache-fed schedule, and the push-or-enqueue telemetry
// path with its queue drain.
package feeder

import (
	"log"
	"time"

	"github.com/inbarayasoo/smart-dog-feeder/internal/clock"
	"github.com/inbarayasoo/smart-dog-feeder/internal/localstore"
	"github.com/inbarayasoo/smart-dog-feeder/internal/remote"
	"github.com/inbarayasoo/smart-dog-feeder/internal/schedule"
)

// Config holds the engine's throttle intervals.
type Config struct {
	// FetchInterval throttles remote schedule fetches.
	FetchInterval time.Duration

	// CacheParseInterval throttles re-reading the cached schedule.
	CacheParseInterval time.Duration

	// FlushInterval throttles telemetry queue drains.
	FlushInterval time.Duration
}

// DefaultConfig returns the production throttle intervals.
func DefaultConfig() Config {
	return Config{
		FetchInterval:      15 * time.Second,
		CacheParseInterval: 5 * time.Second,
		FlushInterval:      30 * time.Second,
	}
}

// Counters tracks engine activity for the status tracker.
type Counters struct {
	FeedingsFired  int
	WeightsPushed  int
	WeightsQueued  int
	RecordsFlushed int
	FetchOK        int
	FetchFailed    int
}

// Engine coordinates the remote store, the durable local store, and the two
// schedule stores. All methods are called from the single driver loop; the
// engine holds no locks.
type Engine struct {
	remote remote.Store
	local  *localstore.Store
	clock  clock.Clock
	cfg    Config

	// onlineSched is fed from remote fetches, offlineSched from the
	// durable cache. Each keeps its own fired state; the evaluator logic
	// is the same schedule.Store implementation either way.
	onlineSched  *schedule.Store
	offlineSched *schedule.Store

	lastFetch      time.Time
	lastCacheParse time.Time
	lastFlush      time.Time

	// cacheCRC remembers which cached document the offline store was
	// parsed from, so an unchanged cache is not re-parsed.
	cacheCRC     uint32
	haveCacheCRC bool

	// pendingContainer holds a container status that has not been
	// accepted by the remote store yet; it is retried every tick.
	pendingContainer *remote.ContainerStatus

	startedAt time.Time
	counters  Counters
}

// NewEngine creates the sync engine. startedAt anchors the uptime-based
// event IDs used while the wall clock is unknown.
func NewEngine(rs remote.Store, local *localstore.Store, clk clock.Clock, cfg Config, startedAt time.Time) *Engine {
	return &Engine{
		remote:       rs,
		local:        local,
		clock:        clk,
		cfg:          cfg,
		onlineSched:  schedule.NewStore("remote"),
		offlineSched: schedule.NewStore("cache"),
		startedAt:    startedAt,
	}
}

// Counters returns a snapshot of the activity counters.
func (e *Engine) Counters() Counters {
	return e.counters
}

// QueueLen reports the number of records pending upload.
func (e *Engine) QueueLen() int {
	return e.local.QueueLen()
}

// Online reports whether the remote store is currently reachable.
func (e *Engine) Online() bool {
	return e.remote.Reachable()
}

// Tick performs the periodic housekeeping: throttled schedule refresh,
// pending container-status retry, and throttled queue drain. now is the
// driver's tick time and is only used for throttling; wall-clock validity
// is checked separately where it matters.
func (e *Engine) Tick(now time.Time) {
	e.refreshSchedule(now)
	e.retryContainerStatus()
	e.flushQueue(now)
}

// refreshSchedule fetches the remote schedule when online (at most every
// FetchInterval), caches it durably, and loads it into the remote-fed store.
// A document that fails to parse leaves the previous slots untouched.
func (e *Engine) refreshSchedule(now time.Time) {
	if !e.remote.Reachable() {
		return
	}
	if !e.lastFetch.IsZero() && now.Sub(e.lastFetch) < e.cfg.FetchInterval {
		return
	}
	e.lastFetch = now

	raw, ok := e.remote.FetchSchedule()
	if !ok {
		e.counters.FetchFailed++
		return
	}
	e.counters.FetchOK++

	if err := e.local.StoreScheduleIfChanged(raw); err != nil {
		log.Printf("engine: cache schedule: %v", err)
	}

	doc, err := schedule.ParseDocument(raw)
	if err != nil {
		log.Printf("engine: remote schedule rejected: %v", err)
		return
	}
	e.onlineSched.Load(doc)
}

// ensureOfflineSchedule keeps the cache-fed store in sync with the cache
// file. Parsing is throttled and skipped while the cache content is
// unchanged.
func (e *Engine) ensureOfflineSchedule(now time.Time) {
	if !e.lastCacheParse.IsZero() && now.Sub(e.lastCacheParse) < e.cfg.CacheParseInterval {
		return
	}
	e.lastCacheParse = now

	crc, ok := e.local.ScheduleCRC()
	if !ok {
		return
	}
	if e.haveCacheCRC && crc == e.cacheCRC {
		return
	}

	raw, ok := e.local.LoadSchedule()
	if !ok {
		return
	}
	doc, err := schedule.ParseDocument(raw)
	if err != nil {
		log.Printf("engine: cached schedule rejected: %v", err)
		return
	}
	e.offlineSched.Load(doc)
	e.cacheCRC = crc
	e.haveCacheCRC = true
}

// DueFeeding asks whether a feeding is due right now. While the remote store
// is reachable the remote-fed schedule decides; otherwise the cache-fed one
// does. Both enforce the same single-fire-per-day semantics. With an
// unsynchronized clock nothing is ever due.
func (e *Engine) DueFeeding(now time.Time) (schedule.Feeding, bool) {
	wall, valid := e.clock.Now()
	if !valid {
		return schedule.Feeding{}, false
	}

	var feeding schedule.Feeding
	var due bool
	if e.remote.Reachable() {
		feeding, due = e.onlineSched.DueFeeding(wall, true)
	} else {
		e.ensureOfflineSchedule(now)
		feeding, due = e.offlineSched.DueFeeding(wall, true)
	}

	if due {
		e.counters.FeedingsFired++
	}
	return feeding, due
}

// RecordFeeding reports a completed feeding with the bowl weight before and
// after. Online, the record is pushed directly and a meal notification is
// logged. A failed push, like every record produced offline, lands in the
// durable queue for the next flush.
func (e *Engine) RecordFeeding(feeding schedule.Feeding, prevWeight, currentWeight float64) {
	wall, valid := e.clock.Now()

	var ts int64
	var day, dateISO string
	if valid {
		ts = wall.Unix()
		day = wall.Weekday().String()
		dateISO = wall.Format("2006-01-02")
	}

	if e.remote.Reachable() {
		pushed := e.remote.PushWeight(remote.WeightRecord{
			AmountGrams:   feeding.AmountGrams,
			Hour:          remote.FormatHour(feeding.Hour, feeding.Minute),
			MealName:      feeding.MealName,
			Day:           day,
			Date:          dateISO,
			PrevWeight:    int(prevWeight + 0.5),
			CurrentWeight: int(currentWeight + 0.5),
		})
		if pushed {
			e.counters.WeightsPushed++
			e.logMealNotification(feeding, ts, dateISO)
			return
		}
		log.Printf("engine: weight push failed, queueing for retry")
	}

	rec := localstore.Record{
		Type:          localstore.RecordTypeWeightUpdate,
		TS:            ts,
		AmountGrams:   feeding.AmountGrams,
		Hour:          feeding.Hour,
		Minute:        feeding.Minute,
		MealName:      feeding.MealName,
		Day:           day,
		DateISO:       dateISO,
		PrevWeight:    prevWeight,
		CurrentWeight: currentWeight,
	}
	if err := e.local.Enqueue(rec); err != nil {
		log.Printf("engine: enqueue weight record: %v", err)
		return
	}
	e.counters.WeightsQueued++
}

// logMealNotification appends to the per-day meal log. It is online-only
// best effort: a miss is not queued, the weights collection stays the source
// of record.
func (e *Engine) logMealNotification(feeding schedule.Feeding, ts int64, dateISO string) {
	if dateISO == "" {
		return
	}
	ok := e.remote.PushMealNotification(remote.MealNotification{
		TS:          ts,
		Type:        remote.NotificationDispensed,
		MealName:    feeding.MealName,
		Hour:        feeding.Hour,
		Minute:      feeding.Minute,
		AmountGrams: feeding.AmountGrams,
		EventID:     e.eventID(),
		Date:        dateISO,
	})
	if !ok {
		log.Printf("engine: meal notification push failed")
	}
}

// PublishContainerEmpty records a container-empty edge. The status is pushed
// immediately when possible and otherwise retried on every tick until the
// remote store accepts it.
func (e *Engine) PublishContainerEmpty(empty bool) {
	st := remote.ContainerStatus{Empty: empty, EventID: e.eventID()}
	e.pendingContainer = &st
	e.retryContainerStatus()
}

func (e *Engine) retryContainerStatus() {
	if e.pendingContainer == nil || !e.remote.Reachable() {
		return
	}
	if e.remote.PushContainerStatus(*e.pendingContainer) {
		log.Printf("engine: container status published (empty=%v)", e.pendingContainer.Empty)
		e.pendingContainer = nil
	}
}

// flushQueue drains the telemetry queue when online, at most once per
// FlushInterval. A partial flush just stops; the next interval resumes from
// the failed record.
func (e *Engine) flushQueue(now time.Time) {
	if !e.remote.Reachable() {
		return
	}
	if !e.lastFlush.IsZero() && now.Sub(e.lastFlush) < e.cfg.FlushInterval {
		return
	}
	e.lastFlush = now

	if e.local.QueueLen() == 0 {
		return
	}

	flushed := 0
	outcome, err := e.local.Flush(func(rec localstore.Record) bool {
		ok := e.remote.PushWeight(remote.WeightRecord{
			AmountGrams:   rec.AmountGrams,
			Hour:          remote.FormatHour(rec.Hour, rec.Minute),
			MealName:      rec.MealName,
			Day:           rec.Day,
			Date:          rec.DateISO,
			PrevWeight:    int(rec.PrevWeight + 0.5),
			CurrentWeight: int(rec.CurrentWeight + 0.5),
		})
		if ok {
			flushed++
		}
		return ok
	})
	e.counters.RecordsFlushed += flushed

	if err != nil {
		log.Printf("engine: queue flush: %v", err)
		return
	}
	switch outcome {
	case localstore.FullySynced:
		if flushed > 0 {
			log.Printf("engine: queue fully drained (%d records)", flushed)
		}
	case localstore.PartialRemaining:
		log.Printf("engine: queue flush stopped after %d records, rest kept for retry", flushed)
	}
}

// eventID returns an identifier for a status edge: epoch seconds when the
// clock is known, seconds of uptime otherwise.
func (e *Engine) eventID() int64 {
	wall, valid := e.clock.Now()
	if valid {
		return wall.Unix()
	}
	return int64(time.Since(e.startedAt) / time.Second)
}
