// Package store persists push subscriptions in PostgreSQL and keeps ephemeral
// state (dispatch bus, typing presence, one-time codes) in Redis.
package store

import (
	"context"
	"time"

	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/models"
)

// DispatchChannel is both the Redis pub/sub channel and the Postgres NOTIFY
// channel carrying JSON dispatch requests.
const (
	DispatchChannel      = "push_dispatch"
	RedisDispatchChannel = "push:dispatch"
)

// SubscriptionStore handles push subscription rows (PostgreSQL).
type SubscriptionStore interface {
	SavePushSubscription(ctx context.Context, sub models.PushSubscription) (models.PushSubscription, error)
	GetPushSubscriptions(ctx context.Context, userID string) ([]models.PushSubscription, error)
	GetPushSubscription(ctx context.Context, userID, endpoint string) (models.PushSubscription, error)
	DeletePushSubscription(ctx context.Context, userID, endpoint string) error
	DeletePushSubscriptionByID(ctx context.Context, id string) error
}

// PresenceStore handles channel-scoped typing signals (Redis).
type PresenceStore interface {
	SetTyping(ctx context.Context, channel, userID string, ttl time.Duration) error
	ClearTyping(ctx context.Context, channel, userID string) error
	TypingUsers(ctx context.Context, channel string) ([]models.TypingUser, error)
}

// OTPStore holds one-time login secrets (Redis).
type OTPStore interface {
	SaveOTPSecret(ctx context.Context, email, secret string, ttl time.Duration) error
	GetOTPSecret(ctx context.Context, email string) (string, error)
	IncrOTPAttempts(ctx context.Context, email string, ttl time.Duration) (int64, error)
	DeleteOTP(ctx context.Context, email string) error
}

// DispatchPublisher hands dispatch requests to whichever worker consumes the bus.
type DispatchPublisher interface {
	PublishDispatch(ctx context.Context, req models.DispatchRequest) error
}

// NotificationHandler receives raw dispatch payloads from a trigger source.
type NotificationHandler func(ctx context.Context, payload []byte)
