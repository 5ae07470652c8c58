package swruntime

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strconv"
	"time"

	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/models"
)

// Notification actions.
const (
	ActionOpen  = "open"
	ActionClose = "close"
)

// VibratePattern is used for every notification.
var VibratePattern = []int{200, 100, 200}

type Action struct {
	Action string `json:"action"`
	Title  string `json:"title"`
}

// Notification is what the worker passes to showNotification.
type Notification struct {
	Title              string                  `json:"title"`
	Body               string                  `json:"body"`
	Icon               string                  `json:"icon"`
	Badge              string                  `json:"badge"`
	Tag                string                  `json:"tag"`
	Vibrate            []int                   `json:"vibrate"`
	Actions            []Action                `json:"actions"`
	RequireInteraction bool                    `json:"requireInteraction"`
	Data               models.NotificationData `json:"data"`
}

// PushKind records which branch decoded a push body.
type PushKind int

const (
	// PushEmpty: the push carried no data, the normal case for payload-less sends.
	PushEmpty PushKind = iota
	// PushJSON: the data was a JSON object.
	PushJSON
	// PushText: the data was not JSON and is used verbatim as the body.
	PushText
)

func (k PushKind) String() string {
	switch k {
	case PushEmpty:
		return "empty"
	case PushJSON:
		return "json"
	case PushText:
		return "text"
	default:
		return "unknown"
	}
}

// PushMessage is the decoded push body.
type PushMessage struct {
	Kind    PushKind
	Payload models.NotificationPayload
}

// DecodePush interprets push data; it never fails, falling back to defaults.
func DecodePush(data []byte) PushMessage {
	payload := models.DefaultNotificationPayload()
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return PushMessage{Kind: PushEmpty, Payload: payload}
	}

	var fields map[string]json.RawMessage
	if trimmed[0] != '{' || json.Unmarshal(trimmed, &fields) != nil {
		payload.Body = string(data)
		return PushMessage{Kind: PushText, Payload: payload}
	}

	// Fields of the wrong type are ignored, the rest of the object still applies.
	for key, dst := range map[string]*string{
		"title": &payload.Title,
		"body":  &payload.Body,
		"icon":  &payload.Icon,
		"badge": &payload.Badge,
	} {
		if v := stringField(fields, key); v != "" {
			*dst = v
		}
	}

	var route map[string]json.RawMessage
	if raw, ok := fields["data"]; ok && json.Unmarshal(raw, &route) == nil {
		payload.Data = models.NotificationData{
			Type:     stringField(route, "type"),
			SenderID: stringField(route, "senderId"),
			GroupID:  stringField(route, "groupId"),
			URL:      stringField(route, "url"),
		}
	}
	return PushMessage{Kind: PushJSON, Payload: payload}
}

func stringField(fields map[string]json.RawMessage, key string) string {
	var s string
	if raw, ok := fields[key]; ok && json.Unmarshal(raw, &s) == nil {
		return s
	}
	return ""
}

// NotificationTag derives the uniqueness tag from t.
func NotificationTag(t time.Time) string {
	return "askify-" + strconv.FormatInt(t.UnixMilli(), 10)
}

// Render builds the notification shown for msg at time now. The tag is always
// derived from now, so every push produces its own notification.
func Render(msg PushMessage, now time.Time) Notification {
	p := msg.Payload
	return Notification{
		Title:   p.Title,
		Body:    p.Body,
		Icon:    p.Icon,
		Badge:   p.Badge,
		Tag:     NotificationTag(now),
		Vibrate: append([]int(nil), VibratePattern...),
		Actions: []Action{
			{Action: ActionOpen, Title: "Open"},
			{Action: ActionClose, Title: "Close"},
		},
		RequireInteraction: true,
		Data:               p.Data,
	}
}

// ClickTarget maps notification data to the in-app path opened on click.
func ClickTarget(data models.NotificationData) string {
	switch data.Type {
	case models.NotificationDirectMessage:
		return "/chat?user=" + url.QueryEscape(data.SenderID)
	case models.NotificationGroupMessage:
		return "/chat?group=" + url.QueryEscape(data.GroupID)
	case models.NotificationPublicMessage:
		return "/public-chat"
	case models.NotificationCall:
		return "/chat"
	}
	if data.URL != "" {
		return data.URL
	}
	return "/"
}
