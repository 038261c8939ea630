package domain

import "time"

// Status of one chat request.
type Status string

// Chat request statuses.
const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// ChatState is the per-request pipeline state: one per (user, session,
// restaurant, query). Stages fill their fields append-only; once the unified
// response is produced the state is immutable and snapshotted into the
// session history.
type ChatState struct {
	ID           string
	UserID       string
	SessionID    string
	RestaurantID string
	Query        string
	QueryParts   map[string][]string
	Intents      []Intent
	MenuResults  map[string][]DishResult
	InfoResults  map[string]InfoAnswer
	Response     string
	Status       Status
	Timestamp    time.Time
}

// SessionContext is one reconstructed history entry for a prior turn.
type SessionContext struct {
	Query       string
	Intents     []Intent
	MenuResults map[string][]DishResult
	InfoResults map[string]InfoAnswer
}
