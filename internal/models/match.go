package models

import (
	"fmt"
	"strings"
)

// Match represents a single event plus its associated market/odds data.
// ID and Date are the validated top-level fields; Doc carries the full
// document as it will be persisted, markets and all, with any inherited
// store identity ("_id") already stripped.
type Match struct {
	ID   string
	Date string
	Doc  map[string]interface{}
}

// MalformedRecordError indicates a raw record lacks the data needed to
// populate a required field. The record is skipped; its shard is not.
type MalformedRecordError struct {
	Position int
	Reason   string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record at position %d: %s", e.Position, e.Reason)
}

// NormalizeMatch converts a raw decoded record into a Match ready for
// insertion. It derives a missing or empty date from the record ID and
// unconditionally strips any pre-existing "_id" field so the store assigns
// a fresh identity. The input map is never mutated.
func NormalizeMatch(raw map[string]interface{}, position int) (*Match, error) {
	id, ok := raw["id"].(string)
	if !ok || id == "" {
		return nil, &MalformedRecordError{Position: position, Reason: "missing or non-string id"}
	}

	date, _ := raw["date"].(string)
	if date == "" {
		derived, err := DateFromID(id)
		if err != nil {
			return nil, &MalformedRecordError{Position: position, Reason: err.Error()}
		}
		date = derived
	}

	doc := make(map[string]interface{}, len(raw)+1)
	for k, v := range raw {
		if k == "_id" {
			continue
		}
		doc[k] = v
	}
	doc["date"] = date

	return &Match{ID: id, Date: date, Doc: doc}, nil
}

// DateFromID extracts the date token embedded in a match ID.
// By upstream convention the date is the second-to-last underscore-delimited
// segment (e.g. "evt_20250115_003" -> "20250115"). Any change to the ID
// format upstream breaks this rule and must be revalidated here, not
// papered over.
func DateFromID(id string) (string, error) {
	parts := strings.Split(id, "_")
	if len(parts) < 2 {
		return "", fmt.Errorf("id %q has no date segment", id)
	}
	return parts[len(parts)-2], nil
}
