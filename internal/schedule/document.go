package schedule

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Document is a parsed schedule document: up to MaxSlots entries, indexed by
// slot position. Absent or rejected entries are disabled slots.
type Document [MaxSlots]Slot

// slotJSON is one slot as it appears in the remote document.
type slotJSON struct {
	Hour        string `json:"hour"`
	AmountGrams int    `json:"amount_grams"`
	MealName    string `json:"meal_name"`
}

// ParseDocument parses a schedule document. The document is either a JSON
// object keyed "0".."5" or a JSON array of at most 6 entries. A slot entry
// with a bad time string or a non-positive amount is treated as absent, not
// as an error. A document that is neither an object nor an array is a hard
// parse failure.
func ParseDocument(raw []byte) (Document, error) {
	var doc Document

	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return doc, fmt.Errorf("schedule document: empty")
	}

	switch trimmed[0] {
	case '{':
		var byIndex map[string]json.RawMessage
		if err := json.Unmarshal(raw, &byIndex); err != nil {
			return doc, fmt.Errorf("schedule document: %w", err)
		}
		for key, entry := range byIndex {
			i, err := strconv.Atoi(key)
			if err != nil || i < 0 || i >= MaxSlots {
				continue
			}
			doc[i] = parseSlot(entry)
		}
	case '[':
		var entries []json.RawMessage
		if err := json.Unmarshal(raw, &entries); err != nil {
			return doc, fmt.Errorf("schedule document: %w", err)
		}
		for i, entry := range entries {
			if i >= MaxSlots {
				break
			}
			doc[i] = parseSlot(entry)
		}
	default:
		return doc, fmt.Errorf("schedule document: expected JSON object or array")
	}

	return doc, nil
}

// parseSlot parses a single slot entry. Any rejection leaves the slot
// disabled rather than failing the whole document.
func parseSlot(raw json.RawMessage) Slot {
	var entry slotJSON
	if err := json.Unmarshal(raw, &entry); err != nil {
		return Slot{}
	}

	hour, minute, ok := parseHourMinute(entry.Hour)
	if !ok {
		return Slot{}
	}
	if entry.AmountGrams <= 0 {
		return Slot{}
	}

	return Slot{
		Enabled:     true,
		Hour:        hour,
		Minute:      minute,
		AmountGrams: entry.AmountGrams,
		MealName:    truncateMealName(entry.MealName),
	}
}

// parseHourMinute parses "HH:MM" with optional trailing characters, or an
// ISO-8601 string with a 'T' date prefix (the date part is ignored).
func parseHourMinute(s string) (hour, minute int, ok bool) {
	if s == "" {
		return 0, 0, false
	}
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		s = s[i+1:]
	}

	if len(s) < 5 || s[2] != ':' {
		return 0, 0, false
	}
	if !isDigit(s[0]) || !isDigit(s[1]) || !isDigit(s[3]) || !isDigit(s[4]) {
		return 0, 0, false
	}

	hour = int(s[0]-'0')*10 + int(s[1]-'0')
	minute = int(s[3]-'0')*10 + int(s[4]-'0')
	if hour > 23 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
