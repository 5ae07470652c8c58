package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/errs"
)

const secret = "0123456789abcdef0123456789abcdef"

func testKeys(t *testing.T) Keys {
	t.Helper()
	k, err := DeriveKeys(secret)
	require.NoError(t, err)
	return k
}

func TestDeriveKeys(t *testing.T) {
	k := testKeys(t)
	assert.Len(t, k.Token, 32)
	assert.NotEqual(t, k.Token, k.SessionHash)
	assert.NotEqual(t, k.SessionHash, k.SessionBlock)

	again := testKeys(t)
	assert.Equal(t, k, again)

	_, err := DeriveKeys("short")
	require.Error(t, err)
}

func TestTokens_IssueVerify(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	tokens := NewTokens(testKeys(t).Token, time.Hour)
	tokens.now = func() time.Time { return now }

	tok, exp, err := tokens.Issue("user-1")
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), exp)

	sub, err := tokens.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", sub)

	tokens.now = func() time.Time { return now.Add(2 * time.Hour) }
	_, err = tokens.Verify(tok)
	require.ErrorIs(t, err, errs.ErrUnauthenticated)
}

func TestTokens_Rejects(t *testing.T) {
	tokens := NewTokens(testKeys(t).Token, time.Hour)

	other := NewTokens([]byte("another-key-another-key-another!!"), time.Hour)
	forged, _, err := other.Issue("user-1")
	require.NoError(t, err)
	_, err = tokens.Verify(forged)
	require.ErrorIs(t, err, errs.ErrUnauthenticated)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer: tokenIssuer, Subject: "user-1",
	}).SignedString(testKeys(t).Token)
	require.NoError(t, err)
	_, err = tokens.Verify(noExp)
	require.ErrorIs(t, err, errs.ErrUnauthenticated)

	noSub, _, err := tokens.Issue("")
	require.NoError(t, err)
	_, err = tokens.Verify(noSub)
	require.ErrorIs(t, err, errs.ErrUnauthenticated)

	_, err = tokens.Verify("garbage")
	require.ErrorIs(t, err, errs.ErrUnauthenticated)
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := BearerToken(r)
	assert.False(t, ok)

	r.Header.Set("Authorization", "bearer  abc ")
	tok, ok := BearerToken(r)
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	r.Header.Set("Authorization", "Basic abc")
	_, ok = BearerToken(r)
	assert.False(t, ok)
}

func TestUserIDContext(t *testing.T) {
	_, ok := UserID(context.Background())
	assert.False(t, ok)

	id, ok := UserID(WithUserID(context.Background(), "u1"))
	assert.True(t, ok)
	assert.Equal(t, "u1", id)
}

func TestSessions(t *testing.T) {
	s := NewSessions(testKeys(t), true, 3600)

	rec := httptest.NewRecorder()
	require.NoError(t, s.Login(rec, httptest.NewRequest(http.MethodPost, "/api/session", nil), "user-1"))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	id, ok := s.UserID(req)
	assert.True(t, ok)
	assert.Equal(t, "user-1", id)

	rec = httptest.NewRecorder()
	require.NoError(t, s.Logout(rec, req))
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.True(t, cleared[0].MaxAge < 0)

	_, ok = s.UserID(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok)

	tampered := httptest.NewRequest(http.MethodGet, "/", nil)
	tampered.AddCookie(&http.Cookie{Name: sessionName, Value: strings.Repeat("x", 40)})
	_, ok = s.UserID(tampered)
	assert.False(t, ok)
}
