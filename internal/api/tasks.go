package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Categories are the task groups of the catalog, in the order they are
// claimed.
var Categories = []string{
	"Daily Tasks",
	"Daily login",
	"Social Tasks",
	"Special Tasks",
	"Bonus Reward",
}

// Task is an unclaimed reward task. It is also the claim request body.
type Task struct {
	TaskID string      `json:"taskId"`
	Point  json.Number `json:"point,omitempty"`
}

// UserRank is the account summary returned by /user-rank.
type UserRank struct {
	ID         string      `json:"_id"`
	Rank       json.Number `json:"rank"`
	TotalPoint json.Number `json:"totalPoint"`
}

type catalogEntry struct {
	ID      json.RawMessage `json:"_id"`
	Point   json.RawMessage `json:"point"`
	Claimed json.RawMessage `json:"claimed"`
}

// ParseTasks flattens a task catalog into its unclaimed tasks. A category
// may hold a list of entries or a single entry. Unknown categories, null
// values and malformed entries are skipped. A body that is valid JSON but
// not an object holds no tasks.
func ParseTasks(body []byte) ([]Task, error) {
	tasks := []Task{}

	body = bytes.TrimSpace(body)
	if !json.Valid(body) {
		return nil, fmt.Errorf("failed to parse task catalog: invalid JSON")
	}
	if body[0] != '{' {
		return tasks, nil
	}

	var catalog map[string]json.RawMessage
	if err := json.Unmarshal(body, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse task catalog: %w", err)
	}

	for _, category := range Categories {
		raw := bytes.TrimSpace(catalog[category])
		if len(raw) == 0 {
			continue
		}

		switch raw[0] {
		case '[':
			var entries []json.RawMessage
			if err := json.Unmarshal(raw, &entries); err != nil {
				continue
			}
			for _, e := range entries {
				if t, ok := unclaimed(e); ok {
					tasks = append(tasks, t)
				}
			}
		case '{':
			if t, ok := unclaimed(raw); ok {
				tasks = append(tasks, t)
			}
		}
	}

	return tasks, nil
}

func unclaimed(raw json.RawMessage) (Task, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return Task{}, false
	}
	var e catalogEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Task{}, false
	}
	if truthy(e.Claimed) {
		return Task{}, false
	}
	return Task{TaskID: scalarText(e.ID), Point: number(e.Point)}, true
}

// truthy reports whether a JSON value counts as set: false, 0, "", null
// and a missing value do not.
func truthy(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false
	}
	switch raw[0] {
	case 'n', 'f':
		return false
	case 't', '{', '[':
		return true
	case '"':
		return len(raw) > 2
	}
	f, err := strconv.ParseFloat(string(raw), 64)
	return err != nil || f != 0
}

// scalarText returns a JSON string unquoted and a number as written.
func scalarText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
		return ""
	}
	if _, err := strconv.ParseFloat(string(raw), 64); err == nil {
		return string(raw)
	}
	return ""
}

// number returns a numeric or numeric-string point value, or "" when the
// value is missing or not a number.
func number(raw json.RawMessage) json.Number {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return ""
	}
	return n
}
