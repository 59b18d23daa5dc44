package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event          string       `json:"event,omitempty"`
	ContainerEmpty bool         `json:"container_empty"`
	Online         bool         `json:"online"`
	ClockValid     bool         `json:"clock_valid"`
	Dispensing     bool         `json:"dispensing"`
	WeightGrams    float64      `json:"weight_grams"`
	QueueDepth     int          `json:"queue_depth"`
	LastFeeding    *FeedingJSON `json:"last_feeding,omitempty"`
	UptimeSeconds  int64        `json:"uptime_seconds"`
	StartTime      string       `json:"start_time"`
	Timestamp      string       `json:"timestamp"`
	Counters       CountersJSON `json:"counters"`
	Config         ConfigJSON   `json:"config"`
}

// FeedingJSON is the JSON representation of the last feeding.
type FeedingJSON struct {
	Time        string  `json:"time"`
	MealName    string  `json:"meal_name"`
	AmountGrams int     `json:"amount_grams"`
	GramsServed float64 `json:"grams_served"`
}

// CountersJSON is the JSON representation of the engine counters.
type CountersJSON struct {
	FeedingsFired  int `json:"feedings_fired"`
	WeightsPushed  int `json:"weights_pushed"`
	WeightsQueued  int `json:"weights_queued"`
	RecordsFlushed int `json:"records_flushed"`
	FetchOK        int `json:"fetch_ok"`
	FetchFailed    int `json:"fetch_failed"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs   int64  `json:"poll_ms"`
	FetchMs  int64  `json:"fetch_ms"`
	FlushMs  int64  `json:"flush_ms"`
	Backend  string `json:"backend"`
	Target   string `json:"target"`
	DeviceID string `json:"device_id"`
	DataDir  string `json:"data_dir"`
	HTTPAddr string `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		ContainerEmpty: snap.ContainerEmpty,
		Online:         snap.Online,
		ClockValid:     snap.ClockValid,
		Dispensing:     snap.Dispensing,
		WeightGrams:    snap.WeightGrams,
		QueueDepth:     snap.QueueDepth,
		UptimeSeconds:  int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:      snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:      snap.Now.UTC().Format(time.RFC3339),
		Counters: CountersJSON{
			FeedingsFired:  snap.Counters.FeedingsFired,
			WeightsPushed:  snap.Counters.WeightsPushed,
			WeightsQueued:  snap.Counters.WeightsQueued,
			RecordsFlushed: snap.Counters.RecordsFlushed,
			FetchOK:        snap.Counters.FetchOK,
			FetchFailed:    snap.Counters.FetchFailed,
		},
		Config: ConfigJSON{
			PollMs:   snap.Config.PollMs,
			FetchMs:  snap.Config.FetchMs,
			FlushMs:  snap.Config.FlushMs,
			Backend:  snap.Config.Backend,
			Target:   snap.Config.Target,
			DeviceID: snap.Config.DeviceID,
			DataDir:  snap.Config.DataDir,
			HTTPAddr: snap.Config.HTTPAddr,
		},
	}

	if snap.LastFeeding != nil {
		inner.LastFeeding = &FeedingJSON{
			Time:        snap.LastFeeding.Time.UTC().Format(time.RFC3339),
			MealName:    snap.LastFeeding.MealName,
			AmountGrams: snap.LastFeeding.AmountGrams,
			GramsServed: snap.LastFeeding.GramsServed,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for a heartbeat or lifecycle
// event, tagged with the event name.
func FormatStatusEvent(snap Snapshot, event string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
