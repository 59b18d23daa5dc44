package schedule

import (
	"strings"
	"testing"
)

func TestParseDocumentObject(t *testing.T) {
	raw := []byte(`{
		"0": {"hour": "08:00", "amount_grams": 40, "meal_name": "breakfast"},
		"3": {"hour": "18:30", "amount_grams": 55, "meal_name": "dinner"}
	}`)

	doc, err := ParseDocument(raw)
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}

	if !doc[0].Enabled {
		t.Fatal("slot 0 should be enabled")
	}
	if doc[0].Hour != 8 || doc[0].Minute != 0 {
		t.Errorf("slot 0 time: got %02d:%02d, want 08:00", doc[0].Hour, doc[0].Minute)
	}
	if doc[0].AmountGrams != 40 {
		t.Errorf("slot 0 amount: got %d, want 40", doc[0].AmountGrams)
	}
	if doc[0].MealName != "breakfast" {
		t.Errorf("slot 0 meal: got %q, want %q", doc[0].MealName, "breakfast")
	}

	if !doc[3].Enabled {
		t.Fatal("slot 3 should be enabled")
	}
	if doc[3].Hour != 18 || doc[3].Minute != 30 {
		t.Errorf("slot 3 time: got %02d:%02d, want 18:30", doc[3].Hour, doc[3].Minute)
	}

	for _, i := range []int{1, 2, 4, 5} {
		if doc[i].Enabled {
			t.Errorf("slot %d should be disabled", i)
		}
	}
}

func TestParseDocumentArray(t *testing.T) {
	raw := []byte(`[
		{"hour": "07:15", "amount_grams": 30},
		{"hour": "12:00", "amount_grams": 25, "meal_name": "lunch"}
	]`)

	doc, err := ParseDocument(raw)
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}

	if !doc[0].Enabled || doc[0].Hour != 7 || doc[0].Minute != 15 {
		t.Errorf("slot 0: got %+v", doc[0])
	}
	if !doc[1].Enabled || doc[1].MealName != "lunch" {
		t.Errorf("slot 1: got %+v", doc[1])
	}
	if doc[2].Enabled {
		t.Error("slot 2 should be disabled")
	}
}

func TestParseDocumentArrayExtraEntriesIgnored(t *testing.T) {
	var b strings.Builder
	b.WriteString("[")
	for i := 0; i < 8; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(`{"hour": "06:00", "amount_grams": 10}`)
	}
	b.WriteString("]")

	doc, err := ParseDocument([]byte(b.String()))
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	for i := 0; i < MaxSlots; i++ {
		if !doc[i].Enabled {
			t.Errorf("slot %d should be enabled", i)
		}
	}
}

func TestParseDocumentHourFormats(t *testing.T) {
	tests := []struct {
		name   string
		hour   string
		wantH  int
		wantM  int
		wantOK bool
	}{
		{"plain", "08:30", 8, 30, true},
		{"with seconds", "08:30:45", 8, 30, true},
		{"iso datetime", "2026-03-09T21:05:00", 21, 5, true},
		{"midnight", "00:00", 0, 0, true},
		{"last minute", "23:59", 23, 59, true},
		{"hour out of range", "24:00", 0, 0, false},
		{"minute out of range", "12:60", 0, 0, false},
		{"no colon", "0830", 0, 0, false},
		{"too short", "8:30", 0, 0, false},
		{"letters", "ab:cd", 0, 0, false},
		{"empty", "", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, m, ok := parseHourMinute(tt.hour)
			if ok != tt.wantOK {
				t.Fatalf("parseHourMinute(%q): ok=%v, want %v", tt.hour, ok, tt.wantOK)
			}
			if ok && (h != tt.wantH || m != tt.wantM) {
				t.Errorf("parseHourMinute(%q): got %02d:%02d, want %02d:%02d", tt.hour, h, m, tt.wantH, tt.wantM)
			}
		})
	}
}

func TestParseDocumentRejectedEntriesDisableSlot(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"bad hour", `{"0": {"hour": "25:00", "amount_grams": 40}}`},
		{"zero amount", `{"0": {"hour": "08:00", "amount_grams": 0}}`},
		{"negative amount", `{"0": {"hour": "08:00", "amount_grams": -5}}`},
		{"missing hour", `{"0": {"amount_grams": 40}}`},
		{"entry not an object", `{"0": 7}`},
		{"non-numeric key", `{"first": {"hour": "08:00", "amount_grams": 40}}`},
		{"index out of range", `{"9": {"hour": "08:00", "amount_grams": 40}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseDocument([]byte(tt.raw))
			if err != nil {
				t.Fatalf("ParseDocument should tolerate bad entries, got error: %v", err)
			}
			for i := range doc {
				if doc[i].Enabled {
					t.Errorf("slot %d should be disabled", i)
				}
			}
		})
	}
}

func TestParseDocumentHardErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"null", "null"},
		{"string", `"schedule"`},
		{"number", "42"},
		{"truncated object", `{"0": {"hour"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseDocument([]byte(tt.raw)); err == nil {
				t.Errorf("ParseDocument(%q): expected error", tt.raw)
			}
		})
	}
}

func TestParseDocumentTruncatesMealName(t *testing.T) {
	long := strings.Repeat("x", MaxMealName+10)
	raw := []byte(`{"0": {"hour": "08:00", "amount_grams": 40, "meal_name": "` + long + `"}}`)

	doc, err := ParseDocument(raw)
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	if got := len(doc[0].MealName); got != MaxMealName {
		t.Errorf("meal name length: got %d, want %d", got, MaxMealName)
	}
}
