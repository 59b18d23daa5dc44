package remote

import (
	"encoding/json"
	"testing"
)

func TestFormatHour(t *testing.T) {
	tests := []struct {
		hour, minute int
		want         string
	}{
		{0, 0, "00:00"},
		{8, 0, "08:00"},
		{8, 5, "08:05"},
		{18, 30, "18:30"},
		{23, 59, "23:59"},
	}
	for _, tt := range tests {
		if got := FormatHour(tt.hour, tt.minute); got != tt.want {
			t.Errorf("FormatHour(%d, %d): got %q, want %q", tt.hour, tt.minute, got, tt.want)
		}
	}
}

func TestWeightRecordFieldNames(t *testing.T) {
	raw, err := json.Marshal(WeightRecord{
		AmountGrams:   40,
		Hour:          "08:00",
		MealName:      "breakfast",
		Day:           "Monday",
		Date:          "2026-03-09",
		PrevWeight:    100,
		CurrentWeight: 140,
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	// The companion app reads these exact keys; renaming any of them is a
	// breaking change.
	for _, key := range []string{
		"amount_grams", "hour", "meal_name", "day", "date",
		"prev_current_weight", "new_current_weight",
	} {
		if _, present := got[key]; !present {
			t.Errorf("missing field %q", key)
		}
	}
}

func TestFakeStorePartialWeightFailure(t *testing.T) {
	f := NewFakeStore()
	f.FailWeightsAfter = 2

	for i := 0; i < 4; i++ {
		f.PushWeight(WeightRecord{AmountGrams: i})
	}
	if len(f.Weights) != 2 {
		t.Errorf("accepted %d weights, want 2", len(f.Weights))
	}
}
