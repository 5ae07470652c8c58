package auth

import (
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	sessionName   = "askify-session"
	sessionUserID = "user_id"
)

// Sessions is the cookie session used by the service worker, which cannot send
// bearer headers when it re-subscribes on pushsubscriptionchange.
type Sessions struct {
	store *sessions.CookieStore
}

func NewSessions(keys Keys, secure bool, maxAge int) *Sessions {
	store := sessions.NewCookieStore(keys.SessionHash, keys.SessionBlock)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Sessions{store: store}
}

// Login binds userID to the session cookie.
func (s *Sessions) Login(w http.ResponseWriter, r *http.Request, userID string) error {
	session, _ := s.store.Get(r, sessionName)
	session.Values[sessionUserID] = userID
	return session.Save(r, w)
}

// Logout expires the session cookie.
func (s *Sessions) Logout(w http.ResponseWriter, r *http.Request) error {
	session, _ := s.store.Get(r, sessionName)
	delete(session.Values, sessionUserID)
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

// UserID returns the user bound to the request's session cookie.
func (s *Sessions) UserID(r *http.Request) (string, bool) {
	session, err := s.store.Get(r, sessionName)
	if err != nil {
		return "", false
	}
	id, ok := session.Values[sessionUserID].(string)
	return id, ok && id != ""
}
