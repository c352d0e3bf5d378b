package domain

import "time"

// User represents an account holder. PasswordHash is empty on values
// handed out by the service layer.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
