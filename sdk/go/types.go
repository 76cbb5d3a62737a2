package sdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// AwardResult mirrors the public JSON surface of the award endpoint.
type AwardResult struct {
	Granted    bool     `json:"granted"`
	Reason     string   `json:"reason,omitempty"`
	Points     int64    `json:"points,omitempty"`
	NewBalance int64    `json:"new_balance"`
	LevelUp    string   `json:"level_up,omitempty"`
	Milestones []string `json:"milestones,omitempty"`
}

// Level mirrors one level table entry.
type Level struct {
	Name     string   `json:"name"`
	Min      int64    `json:"min"`
	Benefits []string `json:"benefits,omitempty"`
}

// Transaction mirrors one ledger entry.
type Transaction struct {
	ID           string         `json:"id"`
	Account      string         `json:"account"`
	Action       string         `json:"action"`
	ContentRef   string         `json:"content_ref,omitempty"`
	Delta        int64          `json:"delta"`
	BalanceAfter int64          `json:"balance_after"`
	Kind         string         `json:"kind"`
	Reason       string         `json:"reason,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Stats mirrors the stats endpoint response.
type Stats struct {
	Account      string        `json:"account"`
	Balance      int64         `json:"balance"`
	TotalEarned  int64         `json:"total_earned"`
	Level        Level         `json:"level"`
	NextLevel    string        `json:"next_level,omitempty"`
	PointsToNext int64         `json:"points_to_next,omitempty"`
	Recent       []Transaction `json:"recent"`
}

// Event mirrors the WebSocket event stream payload.
type Event struct {
	Type       string         `json:"type"`
	Time       time.Time      `json:"time"`
	Account    string         `json:"account"`
	Action     string         `json:"action,omitempty"`
	ContentRef string         `json:"content_ref,omitempty"`
	Delta      int64          `json:"delta,omitempty"`
	Balance    int64          `json:"balance,omitempty"`
	Level      string         `json:"level,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// LeaderboardEntry mirrors one leaderboard row.
type LeaderboardEntry struct {
	Account string `json:"account"`
	Balance int64  `json:"balance"`
}

// HealthStatus describes the /healthz response.
type HealthStatus struct {
	Status string                 `json:"status"`
	Checks map[string]interface{} `json:"checks"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func decodeJSON(resp *http.Response, target any) error {
	if resp.StatusCode >= http.StatusBadRequest {
		var e apiError
		if err := json.NewDecoder(resp.Body).Decode(&e); err == nil && e.Code != "" {
			return fmt.Errorf("request failed: status %d: %s: %s", resp.StatusCode, e.Code, e.Message)
		}
		return fmt.Errorf("request failed: status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(target)
}

// ErrEmptyAccountID is returned when the account id is empty.
var ErrEmptyAccountID = errors.New("account id is required")
