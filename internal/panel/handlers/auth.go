package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/botpanel/internal/storage/postgres"
)

// sessionCookie is the name of the signed session cookie.
const sessionCookie = "botpanel_session"

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleLogin authenticates credentials and sets the session cookie.
// Unknown usernames and wrong passwords are indistinguishable to the
// client.
func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	start := time.Now()
	acct, err := a.accounts.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, postgres.ErrAccountNotFound) || errors.Is(err, postgres.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		a.logger.Error("authentication failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	token, err := a.tokens.Issue(acct.ID)
	if err != nil {
		a.logger.Error("issuing session token failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(a.tokens.TTL() / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	a.logger.Info("user logged in",
		zap.Int64("user_id", acct.ID),
		zap.String("username", acct.Username),
		zap.Duration("elapsed", time.Since(start)),
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"username": acct.Username,
	})
}

// handleLogout clears the session cookie. Logging out without a session
// is not an error.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleAuthCheck reports whether the request carries a valid session.
func (a *API) handleAuthCheck(w http.ResponseWriter, r *http.Request) {
	userID, err := a.sessionUser(r)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}

	acct, err := a.accounts.GetByID(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"username":      acct.Username,
	})
}

// sessionUser extracts and verifies the session cookie.
func (a *API) sessionUser(r *http.Request) (int64, error) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return a.tokens.Verify(cookie.Value)
}

// withAuth rejects requests without a valid session and passes the user
// ID to the wrapped handler.
func (a *API) withAuth(next func(http.ResponseWriter, *http.Request, int64)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := a.sessionUser(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		next(w, r, userID)
	}
}
