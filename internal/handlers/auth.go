package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/auth"
)

// authenticate resolves the caller from a bearer token, falling back to the
// session cookie.
func (h *Handler) authenticate(r *http.Request) (string, bool) {
	if tok, ok := auth.BearerToken(r); ok {
		id, err := h.Tokens.Verify(tok)
		if err != nil {
			return "", false
		}
		return id, true
	}
	if h.Sessions != nil {
		return h.Sessions.UserID(r)
	}
	return "", false
}

// AuthMiddleware rejects unauthenticated requests and stores the user id in the
// request context.
func (h *Handler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := h.authenticate(r)
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
	}
}

// currentUser is only valid behind AuthMiddleware.
func currentUser(r *http.Request) string {
	id, _ := auth.UserID(r.Context())
	return id
}

// LoginSessionHandler binds the bearer-authenticated user to a cookie session so
// the service worker can re-register subscriptions on its own.
func (h *Handler) LoginSessionHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Login(w, r, currentUser(r)); err != nil {
		h.Log.Error("failed to save session", zap.Error(err))
		http.Error(w, "Failed to save session", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LogoutSessionHandler clears the session cookie.
func (h *Handler) LogoutSessionHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Logout(w, r); err != nil {
		h.Log.Error("failed to clear session", zap.Error(err))
		http.Error(w, "Failed to clear session", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
