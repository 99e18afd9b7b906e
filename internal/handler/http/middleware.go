package http

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/session"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/logger"
)

const (
	// SessionCookie carries the signed token of a logged-in shopper.
	SessionCookie = "storefront_session"
	// CartCookie identifies an anonymous shopper's cart.
	CartCookie = "storefront_cart"
)

type sessionCtxKey struct{}

// SessionFromContext returns the authenticated session, if any.
func SessionFromContext(ctx context.Context) (*domain.Session, bool) {
	sess, ok := ctx.Value(sessionCtxKey{}).(*domain.Session)
	return sess, ok
}

// WithSession resolves the session cookie into a session on the request
// context. Requests without a valid cookie pass through anonymously; it is
// RequireAuth that turns shoppers away.
func WithSession(sessions *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookie)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			sess, err := sessions.Authenticate(r.Context(), cookie.Value)
			if err != nil {
				// Stale cookie. Drop it so the browser stops sending it.
				clearCookie(w, SessionCookie)
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), sessionCtxKey{}, sess)
			ctx = logger.WithSessionID(ctx, sess.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects requests that did not resolve to a session. The 401
// body carries a redirect to the login page with the blocked destination, so
// the client can send the user back after a successful login.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := SessionFromContext(r.Context()); !ok {
			destination := strings.TrimPrefix(r.URL.Path, "/api/v1/")
			httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
				Error: &httputil.ErrorResponse{
					Code:     "UNAUTHORIZED",
					Message:  "login required",
					Redirect: "/login?redirect=" + url.QueryEscape(destination),
				},
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// shopperID names the cart owner: the session ID when logged in, otherwise
// a generated ID pinned to the browser through the cart cookie.
func shopperID(w http.ResponseWriter, r *http.Request) string {
	if sess, ok := SessionFromContext(r.Context()); ok {
		return sess.ID
	}

	if cookie, err := r.Cookie(CartCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	id := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     CartCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int((30 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func setSessionCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
