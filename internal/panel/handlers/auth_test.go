package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin_Success(t *testing.T) {
	api := newTestAPI(t, 10)
	cookie := api.login(t, "alice")

	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)
}

func TestLogin_WrongPassword(t *testing.T) {
	api := newTestAPI(t, 10)
	api.accounts.add("alice", "correct")

	rec := api.do(t, http.MethodPost, "/api/auth/login", nil, map[string]string{
		"username": "alice",
		"password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogin_UnknownUser(t *testing.T) {
	api := newTestAPI(t, 10)

	rec := api.do(t, http.MethodPost, "/api/auth/login", nil, map[string]string{
		"username": "nobody",
		"password": "whatever",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogin_MissingFields(t *testing.T) {
	api := newTestAPI(t, 10)

	rec := api.do(t, http.MethodPost, "/api/auth/login", nil, map[string]string{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthCheck_Authenticated(t *testing.T) {
	api := newTestAPI(t, 10)
	cookie := api.login(t, "alice")

	rec := api.do(t, http.MethodGet, "/api/auth/check", cookie, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, true, body["authenticated"])
	assert.Equal(t, "alice", body["username"])
}

func TestAuthCheck_NoCookie(t *testing.T) {
	api := newTestAPI(t, 10)

	rec := api.do(t, http.MethodGet, "/api/auth/check", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, false, body["authenticated"])
}

func TestAuthCheck_GarbageCookie(t *testing.T) {
	api := newTestAPI(t, 10)

	rec := api.do(t, http.MethodGet, "/api/auth/check",
		&http.Cookie{Name: sessionCookie, Value: "garbage"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, false, body["authenticated"])
}

func TestLogout_ClearsCookie(t *testing.T) {
	api := newTestAPI(t, 10)
	cookie := api.login(t, "alice")

	rec := api.do(t, http.MethodPost, "/api/auth/logout", cookie, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var cleared *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			cleared = c
		}
	}
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.Negative(t, cleared.MaxAge)
}

func TestProtectedRoutes_RequireAuth(t *testing.T) {
	api := newTestAPI(t, 10)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/bots"},
		{http.MethodPost, "/api/bots"},
		{http.MethodDelete, "/api/bots/1"},
		{http.MethodPost, "/api/bots/1/start"},
		{http.MethodPost, "/api/bots/1/stop"},
		{http.MethodGet, "/api/bots/1/status"},
		{http.MethodPost, "/api/bots/1/chat"},
		{http.MethodPost, "/api/bots/1/auto-chat/start"},
		{http.MethodPost, "/api/bots/1/auto-chat/stop"},
	}
	for _, p := range paths {
		rec := api.do(t, p.method, p.path, nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", p.method, p.path)
	}
}
