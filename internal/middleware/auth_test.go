package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eargai/earg-backend/internal/service/auth"
)

func sessionProtected(t *testing.T, secret []byte) http.Handler {
	t.Helper()
	return Session(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserID(r.Context())
		require.True(t, ok)
		w.Write([]byte(userID))
	}))
}

func TestSessionAcceptsValidCookie(t *testing.T) {
	secret := []byte("secret")
	token, err := auth.GenerateToken("user-1", secret, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/chats/list", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	rec := httptest.NewRecorder()

	sessionProtected(t, secret).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "user-1", rec.Body.String())
}

func TestSessionRejectsMissingCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/chats/list", nil)
	rec := httptest.NewRecorder()

	sessionProtected(t, []byte("secret")).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionRejectsForgedToken(t *testing.T) {
	token, err := auth.GenerateToken("user-1", []byte("other-secret"), time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/chats/list", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	rec := httptest.NewRecorder()

	sessionProtected(t, []byte("secret")).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionRejectsExpiredToken(t *testing.T) {
	secret := []byte("secret")
	token, err := auth.GenerateToken("user-1", secret, -time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/chats/list", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	rec := httptest.NewRecorder()

	sessionProtected(t, secret).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
