// Package session stores refresh tokens, revoked access tokens and theme
// editing-session checkpoints.
package session

import (
	"errors"
	"time"

	"helpcenter/api/internal/theme"
)

// ErrNotFound is returned for missing or expired entries.
var ErrNotFound = errors.New("session: not found or expired")

// TokenData holds the data stored for each refresh token
type TokenData struct {
	UserID      string    `json:"user_id"`
	TenantID    string    `json:"tenant_id"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

// EditCheckpoint is the persisted state of one theme editing session.
type EditCheckpoint struct {
	ID        string             `json:"id"`
	TenantID  string             `json:"tenant_id"`
	UserID    string             `json:"user_id"`
	State     theme.SessionState `json:"state"`
	UpdatedAt time.Time          `json:"updated_at"`
}

func refreshTTL(expiresAt time.Time) time.Duration {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour // Default 30 days
	}
	return ttl
}
