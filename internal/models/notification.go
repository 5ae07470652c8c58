package models

// Notification types carried in NotificationData.Type.
const (
	NotificationDirectMessage = "direct_message"
	NotificationGroupMessage  = "group_message"
	NotificationPublicMessage = "public_message"
	NotificationCall          = "call"
)

// Defaults shown when a push arrives without a usable payload.
const (
	DefaultNotificationTitle = "New Message"
	DefaultNotificationBody  = "You have a new notification"
	DefaultNotificationIcon  = "/icons/icon-192x192.png"
	DefaultNotificationBadge = "/icons/icon-72x72.png"
)

// NotificationData routes a notification click back into the app.
type NotificationData struct {
	Type     string `json:"type,omitempty"`
	SenderID string `json:"senderId,omitempty"`
	GroupID  string `json:"groupId,omitempty"`
	URL      string `json:"url,omitempty"`
}

// NotificationPayload is the logical content of a push. It is only transmitted
// when payload encryption is enabled; otherwise the service worker shows defaults.
type NotificationPayload struct {
	Title string           `json:"title"`
	Body  string           `json:"body"`
	Icon  string           `json:"icon,omitempty"`
	Badge string           `json:"badge,omitempty"`
	Data  NotificationData `json:"data"`
}

// DefaultNotificationPayload is what the service worker renders for an empty push.
func DefaultNotificationPayload() NotificationPayload {
	return NotificationPayload{
		Title: DefaultNotificationTitle,
		Body:  DefaultNotificationBody,
		Icon:  DefaultNotificationIcon,
		Badge: DefaultNotificationBadge,
	}
}
