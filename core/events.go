package core

import "time"

// EventType enumerates domain events.
type EventType string

const (
	EventPointsAwarded     EventType = "points_awarded"
	EventAwardSuppressed   EventType = "award_suppressed"
	EventLevelUp           EventType = "level_up"
	EventMilestoneUnlocked EventType = "milestone_unlocked"
)

// Event represents an immutable domain event.
type Event struct {
	Type       EventType      `json:"type"`
	Time       time.Time      `json:"time"`
	Account    AccountID      `json:"account"`
	Action     ActionID       `json:"action,omitempty"`
	ContentRef ContentRef     `json:"content_ref,omitempty"`
	Delta      int64          `json:"delta,omitempty"`
	Balance    int64          `json:"balance,omitempty"`
	Level      string         `json:"level,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func NewPointsAwarded(account AccountID, action ActionID, ref ContentRef, delta int64, balance int64) Event {
	return Event{Type: EventPointsAwarded, Time: time.Now().UTC(), Account: account, Action: action, ContentRef: ref, Delta: delta, Balance: balance}
}

func NewAwardSuppressed(account AccountID, action ActionID, ref ContentRef) Event {
	return Event{Type: EventAwardSuppressed, Time: time.Now().UTC(), Account: account, Action: action, ContentRef: ref}
}

func NewLevelUp(account AccountID, level string, balance int64) Event {
	return Event{Type: EventLevelUp, Time: time.Now().UTC(), Account: account, Level: level, Balance: balance}
}

func NewMilestoneUnlocked(account AccountID, bonus ActionID, delta int64, balance int64) Event {
	return Event{Type: EventMilestoneUnlocked, Time: time.Now().UTC(), Account: account, Action: bonus, Delta: delta, Balance: balance}
}
