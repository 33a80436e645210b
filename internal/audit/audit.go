// Package audit records claim events as JSON Lines (JSONL) files, one per
// account. The files are output only; the claim loop never reads them back.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// EventType classifies a claim event.
type EventType string

const (
	EventClaim       EventType = "claim"
	EventNotFound    EventType = "not-found"
	EventClaimFailed EventType = "claim-failed"
	EventRank        EventType = "rank"
	EventError       EventType = "error"
)

const eventSuffix = ".events.jsonl"

// Event represents a single audit log entry.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Account   string    `json:"account"`
	Task      string    `json:"task,omitempty"`
	Details   string    `json:"details,omitempty"`
}

// Logger writes and reads claim events for accounts.
// Events are stored in {dir}/{account}.events.jsonl.
type Logger struct {
	dir string
}

// NewLogger creates a new audit logger rooted at dir.
func NewLogger(dir string) *Logger {
	return &Logger{dir: dir}
}

// eventPath returns the path to the JSONL event log for an account.
func (l *Logger) eventPath(account string) string {
	return filepath.Join(l.dir, filepath.Base(account)+eventSuffix)
}

// Log appends an event to the account's audit log.
func (l *Logger) Log(event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return fmt.Errorf("failed to create audit log directory: %w", err)
	}

	f, err := os.OpenFile(l.eventPath(event.Account), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	return nil
}

// LogEvent is a convenience method that creates and logs an event.
func (l *Logger) LogEvent(eventType EventType, account, task, details string) error {
	return l.Log(Event{
		Timestamp: time.Now(),
		Type:      eventType,
		Account:   account,
		Task:      task,
		Details:   details,
	})
}

// Events reads all events for an account in chronological order.
func (l *Logger) Events(account string) ([]Event, error) {
	f, err := os.Open(l.eventPath(account))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			continue // Skip malformed lines
		}
		events = append(events, event)
	}

	if err := scanner.Err(); err != nil {
		return events, fmt.Errorf("error reading audit log: %w", err)
	}

	return events, nil
}

// Accounts lists the accounts that have an audit log, sorted by name.
func (l *Logger) Accounts() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read audit directory: %w", err)
	}

	var accounts []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, eventSuffix) {
			continue
		}
		accounts = append(accounts, strings.TrimSuffix(name, eventSuffix))
	}
	sort.Strings(accounts)
	return accounts, nil
}

// Remove deletes the audit log for an account.
func (l *Logger) Remove(account string) error {
	path := l.eventPath(account)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
