package models

import (
	"fmt"
	"strings"

	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/errs"
)

// DispatchRequest asks for a push to every subscription of UserID.
type DispatchRequest struct {
	UserID string            `json:"userId"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Data   *NotificationData `json:"data,omitempty"`
}

// Validate requires userId, title and body.
func (r DispatchRequest) Validate() error {
	var missing []string
	if strings.TrimSpace(r.UserID) == "" {
		missing = append(missing, "userId")
	}
	if strings.TrimSpace(r.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(r.Body) == "" {
		missing = append(missing, "body")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", errs.ErrInvalidRequest, strings.Join(missing, ", "))
	}
	return nil
}

// Payload converts the request into the notification the client would render.
func (r DispatchRequest) Payload() NotificationPayload {
	p := DefaultNotificationPayload()
	p.Title = r.Title
	p.Body = r.Body
	if r.Data != nil {
		p.Data = *r.Data
	}
	return p
}

// DispatchResult aggregates per-subscription outcomes of one dispatch.
type DispatchResult struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
	Pruned int `json:"pruned"`
}
