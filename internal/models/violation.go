package models

import "time"

// Violation is an append-only record of a member visiting a tracked domain.
type Violation struct {
	ID        string    `db:"id" json:"id"`
	GroupID   string    `db:"group_id" json:"group_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Domain    string    `db:"domain" json:"domain"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ViolationEvent is the payload pushed to group subscribers when a
// violation is detected.
type ViolationEvent struct {
	Username  string `json:"username"`
	Domain    string `json:"domain"`
	GroupName string `json:"groupName"`
	GroupID   string `json:"groupId"`
}

// WSEvent wraps payloads emitted over WebSocket connections.
type WSEvent struct {
	Type      string          `json:"type"`
	Violation *ViolationEvent `json:"violation,omitempty"`
}
