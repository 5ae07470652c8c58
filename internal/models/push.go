package models

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/errs"
)

// PushSubscription is one browser/device registered to receive pushes for a user.
type PushSubscription struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Endpoint  string    `json:"endpoint"`
	P256dh    string    `json:"p256dh"`
	Auth      string    `json:"auth"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SubscriptionKeys mirrors the "keys" object of a browser PushSubscription.toJSON().
type SubscriptionKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// SubscriptionRequest is the body the browser posts after subscribing.
type SubscriptionRequest struct {
	Endpoint string           `json:"endpoint"`
	Keys     SubscriptionKeys `json:"keys"`
}

// Subscription builds the row for userID.
func (r SubscriptionRequest) Subscription(userID string) PushSubscription {
	return PushSubscription{
		UserID:   userID,
		Endpoint: strings.TrimSpace(r.Endpoint),
		P256dh:   strings.TrimSpace(r.Keys.P256dh),
		Auth:     strings.TrimSpace(r.Keys.Auth),
	}
}

// Validate rejects rows whose endpoint/p256dh/auth triple is incomplete or whose
// endpoint is not a usable push-service URL.
func (s PushSubscription) Validate() error {
	if s.UserID == "" {
		return fmt.Errorf("%w: user id is required", errs.ErrInvalidSubscription)
	}
	if s.Endpoint == "" || s.P256dh == "" || s.Auth == "" {
		return fmt.Errorf("%w: endpoint, p256dh and auth are required", errs.ErrInvalidSubscription)
	}
	u, err := url.Parse(s.Endpoint)
	if err != nil || u.Host == "" {
		return fmt.Errorf("%w: endpoint is not an absolute URL", errs.ErrInvalidSubscription)
	}
	switch u.Scheme {
	case "https":
	case "http":
		if !isLoopback(u.Hostname()) {
			return fmt.Errorf("%w: endpoint must use https", errs.ErrInvalidSubscription)
		}
	default:
		return fmt.Errorf("%w: unsupported endpoint scheme %q", errs.ErrInvalidSubscription, u.Scheme)
	}
	return nil
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
