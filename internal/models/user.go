package models

import "time"

// User is a registered member. Usernames are stored lowercase so
// uniqueness is case-insensitive.
type User struct {
	ID        string    `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
