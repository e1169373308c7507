package models

import "time"

// Group is an accountability group identified by its invite code.
type Group struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	InviteCode string    `db:"invite_code" json:"invite_code"`
	CreatedBy  string    `db:"created_by" json:"created_by"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// GroupWithJoinedAt is a group row augmented with the caller's join time.
type GroupWithJoinedAt struct {
	Group
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}
