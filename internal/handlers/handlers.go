// Package handlers exposes the push service over HTTP.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/auth"
	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/errs"
	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/logging"
	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/models"
	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/push"
	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/store"
)

const maxBodyBytes = 64 << 10

// Dispatcher sends a push to every subscription of a user.
type Dispatcher interface {
	Dispatch(ctx context.Context, req models.DispatchRequest) (models.DispatchResult, error)
}

type Handler struct {
	Subs       store.SubscriptionStore
	Presence   store.PresenceStore
	Dispatcher Dispatcher
	Keys       push.KeyProvider
	Tokens     *auth.Tokens
	Sessions   *auth.Sessions
	OTP        *auth.OTPService

	// WebhookSecret enables X-Askify-Signature as an alternative to bearer auth
	// on the dispatch trigger. Empty disables it.
	WebhookSecret string
	Assets        fs.FS
	CacheVersion  string
	Gatherer      prometheus.Gatherer
	Health        func(ctx context.Context) error
	Log           *zap.Logger
	Now           func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// Routes returns the service mux wrapped in logging and panic recovery.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /functions/v1/send-push-notification", cors(h.SendPushHandler))
	mux.HandleFunc("OPTIONS /functions/v1/send-push-notification", cors(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	mux.HandleFunc("GET /api/push/vapid-public-key", h.GetVAPIDKeyHandler)
	mux.HandleFunc("POST /api/push/subscriptions", h.AuthMiddleware(h.SubscribePushHandler))
	mux.HandleFunc("DELETE /api/push/subscriptions", h.AuthMiddleware(h.UnsubscribePushHandler))
	mux.HandleFunc("GET /api/push/subscriptions/status", h.AuthMiddleware(h.SubscriptionStatusHandler))
	mux.HandleFunc("POST /api/push/preview", h.AuthMiddleware(h.PreviewPushHandler))

	mux.HandleFunc("POST /api/session", h.AuthMiddleware(h.LoginSessionHandler))
	mux.HandleFunc("DELETE /api/session", h.LogoutSessionHandler)
	mux.HandleFunc("POST /api/auth/otp/send", h.SendOTPHandler)
	mux.HandleFunc("POST /api/auth/otp/verify", h.VerifyOTPHandler)

	mux.HandleFunc("POST /api/presence/typing", h.AuthMiddleware(h.SetTypingHandler))
	mux.HandleFunc("GET /api/presence/typing", h.AuthMiddleware(h.GetTypingHandler))

	h.registerPWARoutes(mux)

	gatherer := h.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /healthz", h.HealthHandler)

	return logging.Recover(h.Log, logging.Middleware(h.Log, mux))
}

// HealthHandler reports whether the backing stores are reachable.
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if h.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.Health(ctx); err != nil {
			h.Log.Warn("health check failed", zap.Error(err))
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return errs.ErrInvalidRequest
	}
	return nil
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrInvalidRequest), errors.Is(err, errs.ErrInvalidSubscription):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrUnauthenticated), errors.Is(err, errs.ErrInvalidOTP):
		return http.StatusUnauthorized
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrTooManyAttempts):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as plain text, hiding internal errors behind msg.
func (h *Handler) fail(w http.ResponseWriter, err error, msg string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.Log.Error(msg, zap.Error(err))
		http.Error(w, msg, status)
		return
	}
	http.Error(w, err.Error(), status)
}

func cors(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type, x-askify-signature")
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		next(w, r)
	}
}
