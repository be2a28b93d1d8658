package middleware

import (
	"context"
	"net/http"

	"github.com/eargai/earg-backend/internal/service/auth"
	"github.com/eargai/earg-backend/pkg/utils"
)

// SessionCookie is the cookie carrying the signed session token.
const SessionCookie = "earg_session"

type contextKey string

const userIDKey contextKey = "userID"

// Session validates the session cookie and injects the bound user id into the
// request context. Requests without a valid session get a 401.
func Session(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookie)
			if err != nil || cookie.Value == "" {
				utils.RespondError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			userID, err := auth.UserIDFromToken(cookie.Value, secret)
			if err != nil {
				utils.RespondError(w, http.StatusUnauthorized, "invalid session")
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
		})
	}
}

// UserID extracts the authenticated user id injected by Session.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}
