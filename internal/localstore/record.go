package localstore

import "encoding/json"

// RecordTypeWeightUpdate is the only record type currently queued.
const RecordTypeWeightUpdate = "weight_update"

// Record is one offline-pending telemetry event, stored as a single JSON
// line in the queue file. TS is epoch seconds, or 0 when the wall clock was
// unknown at enqueue time (a zero-TS record is never age-pruned).
type Record struct {
	Type          string  `json:"type"`
	TS            int64   `json:"ts"`
	AmountGrams   int     `json:"amount_grams"`
	Hour          int     `json:"hour"`
	Minute        int     `json:"minute"`
	MealName      string  `json:"meal_name"`
	Day           string  `json:"day"`
	DateISO       string  `json:"date_iso"`
	PrevWeight    float64 `json:"prev_weight"`
	CurrentWeight float64 `json:"current_weight"`
}

// encodeRecord serializes a record to one queue line (no trailing newline).
func encodeRecord(rec Record) ([]byte, error) {
	return json.Marshal(rec)
}

// decodeRecord parses one queue line. An error means the line is corrupt and
// should be dropped, not that processing should stop.
func decodeRecord(line []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(line, &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}
