package models

import "time"

type SessionStatus string

const (
	SessionOpen       SessionStatus = "open"
	SessionCommitting SessionStatus = "committing"
	SessionCommitted  SessionStatus = "committed"
	SessionAborted    SessionStatus = "aborted"
)

// InventorySession is a physical count of one location. Counts are only
// accepted while the session is open; a commit claims the session
// (open -> committing) before any correction reaches the ledger.
type InventorySession struct {
	ID             string          `json:"id"`
	Location       string          `json:"location"`
	OpenedBy       string          `json:"opened_by"`
	OpenedAt       time.Time       `json:"opened_at"`
	Status         SessionStatus   `json:"status"`
	Counts         map[int64]int64 `json:"counts"`
	ClosedAt       *time.Time      `json:"closed_at,omitempty"`
	FailedProducts []int64         `json:"failed_products,omitempty"`
}
