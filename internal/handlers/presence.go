package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/models"
)

// TypingTTL is how long a typing signal lives without being refreshed.
const TypingTTL = 5 * time.Second

// SetTypingHandler starts or stops the caller's typing signal in a channel.
func (h *Handler) SetTypingHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Channel string `json:"channel"`
		Typing  *bool  `json:"typing"`
	}
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.Channel) == "" {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	var err error
	if req.Typing == nil || *req.Typing {
		err = h.Presence.SetTyping(r.Context(), req.Channel, currentUser(r), TypingTTL)
	} else {
		err = h.Presence.ClearTyping(r.Context(), req.Channel, currentUser(r))
	}
	if err != nil {
		h.fail(w, err, "Failed to update typing status")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetTypingHandler lists who is typing in a channel, excluding the caller.
func (h *Handler) GetTypingHandler(w http.ResponseWriter, r *http.Request) {
	channel := strings.TrimSpace(r.URL.Query().Get("channel"))
	if channel == "" {
		http.Error(w, "channel is required", http.StatusBadRequest)
		return
	}
	users, err := h.Presence.TypingUsers(r.Context(), channel)
	if err != nil {
		h.fail(w, err, "Failed to load typing status")
		return
	}

	me := currentUser(r)
	out := make([]models.TypingUser, 0, len(users))
	for _, u := range users {
		if u.UserID != me {
			out = append(out, u)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": out})
}
