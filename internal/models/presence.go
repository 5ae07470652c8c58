package models

import "time"

// TypingUser is an ephemeral "is typing" signal scoped to a chat channel.
type TypingUser struct {
	Channel   string    `json:"channel"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}
