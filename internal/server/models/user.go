package models

import "time"

// User is the persisted identity record. PasswordHash is never serialised
// to clients.
type User struct {
	ID           int64
	UserName     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
