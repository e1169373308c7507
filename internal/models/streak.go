package models

import "time"

// Streak is the current clean interval for one member of one group.
// BrokenAt nil means the streak is active. Exactly one row exists per
// membership; it is rewritten in place, no interval history is kept.
type Streak struct {
	GroupID   string     `db:"group_id" json:"group_id"`
	UserID    string     `db:"user_id" json:"user_id"`
	StartedAt time.Time  `db:"started_at" json:"started_at"`
	BrokenAt  *time.Time `db:"broken_at" json:"broken_at"`
}

// LeaderboardMember is one row of the leaderboard view: a member joined
// with their streak and their most recent violation in the group.
type LeaderboardMember struct {
	ID            string     `db:"id" json:"id"`
	Username      string     `db:"username" json:"username"`
	StartedAt     time.Time  `db:"started_at" json:"started_at"`
	BrokenAt      *time.Time `db:"broken_at" json:"broken_at"`
	LastViolation *time.Time `db:"last_violation" json:"last_violation"`
}
