package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/auth"
	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/errs"
	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/models"
	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/swruntime"
)

// maxPushData is the largest push body a push service accepts.
const maxPushData = 4096

// GetVAPIDKeyHandler returns the public VAPID key the browser subscribes with.
func (h *Handler) GetVAPIDKeyHandler(w http.ResponseWriter, r *http.Request) {
	pair, err := h.Keys.VAPIDKeys()
	if err != nil {
		h.Log.Error("vapid keys unavailable", zap.Error(err))
		http.Error(w, "Push notifications are not configured", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"publicKey": pair.PublicKey})
}

// SubscribePushHandler upserts the caller's subscription on (user, endpoint).
func (h *Handler) SubscribePushHandler(w http.ResponseWriter, r *http.Request) {
	var req models.SubscriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	saved, err := h.Subs.SavePushSubscription(r.Context(), req.Subscription(currentUser(r)))
	if err != nil {
		h.fail(w, err, "Failed to save subscription")
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// UnsubscribePushHandler deletes the caller's subscription for an endpoint.
func (h *Handler) UnsubscribePushHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Endpoint string `json:"endpoint"`
	}
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.Endpoint) == "" {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if err := h.Subs.DeletePushSubscription(r.Context(), currentUser(r), strings.TrimSpace(req.Endpoint)); err != nil {
		h.fail(w, err, "Failed to delete subscription")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubscriptionStatusHandler reports whether the endpoint is stored for the caller.
func (h *Handler) SubscriptionStatusHandler(w http.ResponseWriter, r *http.Request) {
	endpoint := strings.TrimSpace(r.URL.Query().Get("endpoint"))
	if endpoint == "" {
		http.Error(w, "endpoint is required", http.StatusBadRequest)
		return
	}
	_, err := h.Subs.GetPushSubscription(r.Context(), currentUser(r), endpoint)
	switch {
	case errors.Is(err, errs.ErrNotFound):
		writeJSON(w, http.StatusOK, map[string]bool{"subscribed": false})
	case err != nil:
		h.fail(w, err, "Failed to load subscription")
	default:
		writeJSON(w, http.StatusOK, map[string]bool{"subscribed": true})
	}
}

type dispatchResponse struct {
	Success bool   `json:"success"`
	Sent    int    `json:"sent"`
	Failed  int    `json:"failed"`
	Error   string `json:"error,omitempty"`
}

// SendPushHandler is the dispatch trigger. Any authenticated user may push to
// any user; webhooks may authenticate with a body signature instead.
func (h *Handler) SendPushHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dispatchResponse{Error: "invalid request body"})
		return
	}
	if !h.authorizeDispatch(r, body) {
		writeJSON(w, http.StatusUnauthorized, dispatchResponse{Error: "unauthorized"})
		return
	}

	var req models.DispatchRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, dispatchResponse{Error: "invalid request body"})
		return
	}

	res, err := h.Dispatcher.Dispatch(r.Context(), req)
	switch {
	case errors.Is(err, errs.ErrInvalidRequest):
		writeJSON(w, http.StatusBadRequest, dispatchResponse{Error: "Missing required fields: userId, title, body"})
		return
	case errors.Is(err, errs.ErrMissingVAPIDKeys):
		h.Log.Error("push dispatch aborted", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, dispatchResponse{Error: "VAPID keys not configured"})
		return
	case err != nil:
		h.Log.Error("push dispatch failed", zap.String("user_id", req.UserID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, dispatchResponse{Error: "dispatch failed"})
		return
	}
	writeJSON(w, http.StatusOK, dispatchResponse{Success: true, Sent: res.Sent, Failed: res.Failed})
}

func (h *Handler) authorizeDispatch(r *http.Request, body []byte) bool {
	if sig := r.Header.Get(SignatureHeader); sig != "" {
		return validSignature(h.WebhookSecret, body, sig)
	}
	tok, ok := auth.BearerToken(r)
	if !ok {
		return false
	}
	_, err := h.Tokens.Verify(tok)
	return err == nil
}

type previewResponse struct {
	Kind         string                 `json:"kind"`
	Notification swruntime.Notification `json:"notification"`
	Target       string                 `json:"target"`
}

// PreviewPushHandler renders push data exactly as the service worker would.
// An empty body previews the payload-less notification.
func (h *Handler) PreviewPushHandler(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxPushData+1))
	if err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if len(data) > maxPushData {
		http.Error(w, "push data exceeds 4096 bytes", http.StatusRequestEntityTooLarge)
		return
	}
	msg := swruntime.DecodePush(data)
	n := swruntime.Render(msg, h.now())
	writeJSON(w, http.StatusOK, previewResponse{
		Kind:         msg.Kind.String(),
		Notification: n,
		Target:       swruntime.ClickTarget(n.Data),
	})
}
