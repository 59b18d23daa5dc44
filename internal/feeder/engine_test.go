package feeder

import (
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/inbarayasoo/smart-dog-feeder/internal/clock"
	"github.com/inbarayasoo/smart-dog-feeder/internal/localstore"
	"github.com/inbarayasoo/smart-dog-feeder/internal/remote"
	"github.com/inbarayasoo/smart-dog-feeder/internal/schedule"
)

var testDoc = []byte(`{"0":{"hour":"08:00","amount_grams":40,"meal_name":"breakfast"}}`)

func testFeeding() schedule.Feeding {
	return schedule.Feeding{AmountGrams: 40, Hour: 8, Minute: 0, MealName: "breakfast"}
}

func newTestEngine(t *testing.T, wall time.Time) (*Engine, *remote.FakeStore, *clock.Fake) {
	t.Helper()
	clk := &clock.Fake{Time: wall, Valid: true}
	local, err := localstore.NewStore(afero.NewMemMapFs(), "/data", clk)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	store := remote.NewFakeStore()
	store.Schedule = testDoc
	return NewEngine(store, local, clk, DefaultConfig(), wall), store, clk
}

func TestTickFetchesAndCachesSchedule(t *testing.T) {
	now := time.Date(2026, 3, 9, 7, 0, 0, 0, time.UTC)
	e, store, _ := newTestEngine(t, now)

	e.Tick(now)

	if store.FetchCalls != 1 {
		t.Errorf("fetch calls: got %d, want 1", store.FetchCalls)
	}
	if e.Counters().FetchOK != 1 {
		t.Errorf("FetchOK: got %d, want 1", e.Counters().FetchOK)
	}

	// The fetched document must land in the durable cache too.
	raw, ok := e.local.LoadSchedule()
	if !ok {
		t.Fatal("schedule not cached")
	}
	if string(raw) != string(testDoc) {
		t.Errorf("cache content: got %s", raw)
	}
}

func TestFetchThrottled(t *testing.T) {
	now := time.Date(2026, 3, 9, 7, 0, 0, 0, time.UTC)
	e, store, _ := newTestEngine(t, now)

	e.Tick(now)
	e.Tick(now.Add(time.Second))
	if store.FetchCalls != 1 {
		t.Errorf("fetch calls inside the interval: got %d, want 1", store.FetchCalls)
	}

	e.Tick(now.Add(DefaultConfig().FetchInterval + time.Second))
	if store.FetchCalls != 2 {
		t.Errorf("fetch calls after the interval: got %d, want 2", store.FetchCalls)
	}
}

func TestFetchFailureCounted(t *testing.T) {
	now := time.Date(2026, 3, 9, 7, 0, 0, 0, time.UTC)
	e, store, _ := newTestEngine(t, now)
	store.FetchFails = true

	e.Tick(now)
	if e.Counters().FetchFailed != 1 {
		t.Errorf("FetchFailed: got %d, want 1", e.Counters().FetchFailed)
	}
}

func TestDueFeedingOnline(t *testing.T) {
	now := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
	e, _, _ := newTestEngine(t, now)

	e.Tick(now)
	feeding, due := e.DueFeeding(now)
	if !due {
		t.Fatal("expected a due feeding at the slot minute")
	}
	if feeding.MealName != "breakfast" {
		t.Errorf("meal: got %q", feeding.MealName)
	}
	if e.Counters().FeedingsFired != 1 {
		t.Errorf("FeedingsFired: got %d, want 1", e.Counters().FeedingsFired)
	}

	if _, due := e.DueFeeding(now.Add(time.Second)); due {
		t.Error("slot fired twice")
	}
}

func TestDueFeedingOfflineUsesCache(t *testing.T) {
	now := time.Date(2026, 3, 9, 7, 0, 0, 0, time.UTC)
	e, store, clk := newTestEngine(t, now)

	// One online tick populates the cache, then the link drops.
	e.Tick(now)
	store.Online = false
	clk.Time = time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)

	feeding, due := e.DueFeeding(clk.Time)
	if !due {
		t.Fatal("cache-fed schedule should fire while offline")
	}
	if feeding.AmountGrams != 40 {
		t.Errorf("amount: got %d, want 40", feeding.AmountGrams)
	}
}

func TestDueFeedingColdBootOfflineWithCache(t *testing.T) {
	now := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
	clk := &clock.Fake{Time: now, Valid: true}
	fs := afero.NewMemMapFs()

	// Seed the cache as a previous run would have.
	prev, err := localstore.NewStore(fs, "/data", clk)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := prev.StoreScheduleIfChanged(testDoc); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	local, err := localstore.NewStore(fs, "/data", clk)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	store := remote.NewFakeStore()
	store.Online = false
	e := NewEngine(store, local, clk, DefaultConfig(), now)

	if _, due := e.DueFeeding(now); !due {
		t.Error("a device booting offline should feed from the cached schedule")
	}
}

func TestDueFeedingInvalidClock(t *testing.T) {
	now := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
	e, _, clk := newTestEngine(t, now)
	e.Tick(now)

	clk.Valid = false
	if _, due := e.DueFeeding(now); due {
		t.Error("nothing should be due with an unsynchronized clock")
	}
}

func TestBadRemoteDocumentKeepsPreviousSchedule(t *testing.T) {
	now := time.Date(2026, 3, 9, 7, 0, 0, 0, time.UTC)
	e, store, clk := newTestEngine(t, now)
	e.Tick(now)

	// The next fetch returns garbage; the loaded slots must survive.
	store.Schedule = []byte(`"oops"`)
	e.Tick(now.Add(DefaultConfig().FetchInterval + time.Second))

	clk.Time = time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
	if _, due := e.DueFeeding(clk.Time); !due {
		t.Error("previous schedule should still fire after a bad fetch")
	}
}

func TestRecordFeedingOnlinePushes(t *testing.T) {
	now := time.Date(2026, 3, 9, 8, 0, 30, 0, time.UTC)
	e, store, _ := newTestEngine(t, now)

	e.RecordFeeding(testFeeding(), 100.4, 139.6)

	if len(store.Weights) != 1 {
		t.Fatalf("weights pushed: got %d, want 1", len(store.Weights))
	}
	rec := store.Weights[0]
	if rec.Hour != "08:00" {
		t.Errorf("hour: got %q, want 08:00", rec.Hour)
	}
	if rec.Day != "Monday" {
		t.Errorf("day: got %q, want Monday", rec.Day)
	}
	if rec.Date != "2026-03-09" {
		t.Errorf("date: got %q", rec.Date)
	}
	if rec.PrevWeight != 100 || rec.CurrentWeight != 140 {
		t.Errorf("weights: got %d -> %d, want 100 -> 140 (rounded)", rec.PrevWeight, rec.CurrentWeight)
	}

	if len(store.MealNotifications) != 1 {
		t.Fatalf("meal notifications: got %d, want 1", len(store.MealNotifications))
	}
	n := store.MealNotifications[0]
	if n.Type != remote.NotificationDispensed {
		t.Errorf("notification type: got %q", n.Type)
	}
	if n.Date != "2026-03-09" {
		t.Errorf("notification date: got %q", n.Date)
	}
	if n.EventID != now.Unix() {
		t.Errorf("eventId: got %d, want %d", n.EventID, now.Unix())
	}

	if e.Counters().WeightsPushed != 1 {
		t.Errorf("WeightsPushed: got %d, want 1", e.Counters().WeightsPushed)
	}
	if e.QueueLen() != 0 {
		t.Errorf("queue length: got %d, want 0", e.QueueLen())
	}
}

func TestRecordFeedingPushFailureQueues(t *testing.T) {
	now := time.Date(2026, 3, 9, 8, 0, 30, 0, time.UTC)
	e, store, _ := newTestEngine(t, now)
	store.PushFails = true

	e.RecordFeeding(testFeeding(), 100, 140)

	if e.QueueLen() != 1 {
		t.Fatalf("queue length: got %d, want 1", e.QueueLen())
	}
	if e.Counters().WeightsQueued != 1 {
		t.Errorf("WeightsQueued: got %d, want 1", e.Counters().WeightsQueued)
	}
	if len(store.MealNotifications) != 0 {
		t.Errorf("no notification should go out for a failed weight push, got %d", len(store.MealNotifications))
	}
}

func TestRecordFeedingOfflineQueues(t *testing.T) {
	now := time.Date(2026, 3, 9, 8, 0, 30, 0, time.UTC)
	e, store, _ := newTestEngine(t, now)
	store.Online = false

	e.RecordFeeding(testFeeding(), 100, 140)

	if len(store.Weights) != 0 {
		t.Errorf("no push should happen offline, got %d", len(store.Weights))
	}
	if e.QueueLen() != 1 {
		t.Errorf("queue length: got %d, want 1", e.QueueLen())
	}
}

func TestRecordFeedingInvalidClockZeroTimestamp(t *testing.T) {
	now := time.Date(2026, 3, 9, 8, 0, 30, 0, time.UTC)
	e, store, clk := newTestEngine(t, now)
	store.Online = false
	clk.Valid = false

	e.RecordFeeding(testFeeding(), 100, 140)

	var recs []localstore.Record
	if _, err := e.local.Flush(func(rec localstore.Record) bool {
		recs = append(recs, rec)
		return true
	}); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("queued records: got %d, want 1", len(recs))
	}
	if recs[0].TS != 0 {
		t.Errorf("TS: got %d, want 0 while the clock is unknown", recs[0].TS)
	}
	if recs[0].Day != "" || recs[0].DateISO != "" {
		t.Errorf("day/date should be empty without a clock: got %q %q", recs[0].Day, recs[0].DateISO)
	}
}

func TestTickFlushesQueueWhenBackOnline(t *testing.T) {
	now := time.Date(2026, 3, 9, 8, 0, 30, 0, time.UTC)
	e, store, _ := newTestEngine(t, now)
	store.Online = false

	for i := 0; i < 3; i++ {
		f := testFeeding()
		f.AmountGrams = 10 + i
		e.RecordFeeding(f, 100, 140)
	}
	if e.QueueLen() != 3 {
		t.Fatalf("queue length: got %d, want 3", e.QueueLen())
	}

	store.Online = true
	e.Tick(now.Add(time.Minute))

	if e.QueueLen() != 0 {
		t.Errorf("queue length after flush: got %d, want 0", e.QueueLen())
	}
	if len(store.Weights) != 3 {
		t.Fatalf("weights pushed: got %d, want 3", len(store.Weights))
	}
	for i, rec := range store.Weights {
		if rec.AmountGrams != 10+i {
			t.Errorf("record %d out of order: amount %d", i, rec.AmountGrams)
		}
	}
	if e.Counters().RecordsFlushed != 3 {
		t.Errorf("RecordsFlushed: got %d, want 3", e.Counters().RecordsFlushed)
	}
}

func TestTickPartialFlushKeepsRemainder(t *testing.T) {
	now := time.Date(2026, 3, 9, 8, 0, 30, 0, time.UTC)
	e, store, _ := newTestEngine(t, now)
	store.Online = false

	for i := 0; i < 3; i++ {
		e.RecordFeeding(testFeeding(), 100, 140)
	}

	store.Online = true
	store.FailWeightsAfter = 1
	e.Tick(now.Add(time.Minute))

	if len(store.Weights) != 1 {
		t.Errorf("weights pushed: got %d, want 1", len(store.Weights))
	}
	if e.QueueLen() != 2 {
		t.Errorf("queue length: got %d, want 2", e.QueueLen())
	}

	// Next flush interval picks up the rest.
	store.FailWeightsAfter = 0
	e.Tick(now.Add(time.Minute + DefaultConfig().FlushInterval + time.Second))
	if e.QueueLen() != 0 {
		t.Errorf("queue length after retry: got %d, want 0", e.QueueLen())
	}
	if len(store.Weights) != 3 {
		t.Errorf("weights pushed after retry: got %d, want 3", len(store.Weights))
	}
}

func TestPublishContainerEmptyImmediate(t *testing.T) {
	now := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
	e, store, _ := newTestEngine(t, now)

	e.PublishContainerEmpty(true)

	if len(store.ContainerStatuses) != 1 {
		t.Fatalf("container statuses: got %d, want 1", len(store.ContainerStatuses))
	}
	if !store.ContainerStatuses[0].Empty {
		t.Error("expected an empty status")
	}
	if store.ContainerStatuses[0].EventID != now.Unix() {
		t.Errorf("eventId: got %d, want %d", store.ContainerStatuses[0].EventID, now.Unix())
	}
}

func TestPublishContainerEmptyRetriedUntilAccepted(t *testing.T) {
	now := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
	e, store, _ := newTestEngine(t, now)
	store.Online = false

	e.PublishContainerEmpty(true)
	if len(store.ContainerStatuses) != 0 {
		t.Fatal("nothing should be pushed while offline")
	}

	// Ticks while offline change nothing; the first online tick delivers.
	e.Tick(now.Add(time.Second))
	store.Online = true
	e.Tick(now.Add(2 * time.Second))

	if len(store.ContainerStatuses) != 1 {
		t.Fatalf("container statuses: got %d, want 1", len(store.ContainerStatuses))
	}

	// Delivered means delivered: no duplicate on later ticks.
	e.Tick(now.Add(3 * time.Second))
	if len(store.ContainerStatuses) != 1 {
		t.Errorf("status delivered twice: got %d", len(store.ContainerStatuses))
	}
}

func TestEventIDUptimeFallback(t *testing.T) {
	clk := &clock.Fake{Time: time.Unix(60, 0), Valid: false}
	local, err := localstore.NewStore(afero.NewMemMapFs(), "/data", clk)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	store := remote.NewFakeStore()

	// The uptime fallback anchors on the real start time.
	startedAt := time.Now().Add(-42 * time.Second)
	e := NewEngine(store, local, clk, DefaultConfig(), startedAt)

	e.PublishContainerEmpty(true)

	if len(store.ContainerStatuses) != 1 {
		t.Fatal("expected one pushed status")
	}
	if id := store.ContainerStatuses[0].EventID; id < 42 || id > 45 {
		t.Errorf("eventId: got %d, want ~42 seconds of uptime", id)
	}
}
