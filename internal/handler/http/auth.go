package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/utafrali/storefront/internal/cart"
	"github.com/utafrali/storefront/internal/session"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
)

// AuthHandler serves register, login, logout, and the current-session
// endpoint.
type AuthHandler struct {
	sessions   *session.Manager
	stores     *cart.Stores
	sessionTTL time.Duration
	logger     *slog.Logger
}

// NewAuthHandler creates the auth handler.
func NewAuthHandler(sessions *session.Manager, stores *cart.Stores, sessionTTL time.Duration, log *slog.Logger) *AuthHandler {
	return &AuthHandler{sessions: sessions, stores: stores, sessionTTL: sessionTTL, logger: log}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Login handles POST /api/v1/auth/login. Authentication is a stand-in: any
// non-empty username is accepted and the password is not checked.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body"), h.logger)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("username is required"), h.logger)
		return
	}

	sess, token, err := h.sessions.Login(r.Context(), req.Username)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	// Carry the anonymous cart into the session so items added before
	// logging in survive the login.
	if cookie, err := r.Cookie(CartCookie); err == nil && cookie.Value != "" {
		h.stores.Adopt(r.Context(), cookie.Value, sess.ID)
		clearCookie(w, CartCookie)
	}

	setSessionCookie(w, token, h.sessionTTL)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: sessionResponse{
		Username:  sess.Username,
		ExpiresAt: sess.ExpiresAt,
	}})
}

// Register handles POST /api/v1/auth/register. There is no credential
// store, so registering a username is the same as logging in with it.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	h.Login(w, r)
}

// Logout handles POST /api/v1/auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		if err := h.sessions.Logout(r.Context(), cookie.Value); err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
	}
	clearCookie(w, SessionCookie)
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/v1/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("login required"), h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: sessionResponse{
		Username:  sess.Username,
		ExpiresAt: sess.ExpiresAt,
	}})
}
