package db

import (
	"time"

	"github.com/google/uuid"
)

// User is the only persisted record. ID is the storage key and is never
// serialized; PasswordHash never leaves the service.
type User struct {
	ID           int64     `json:"-"`
	UserID       uuid.UUID `json:"user_id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
