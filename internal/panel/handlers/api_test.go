package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/botpanel/internal/bot"
	"github.com/cory-johannsen/botpanel/internal/bot/botsim"
	"github.com/cory-johannsen/botpanel/internal/panel"
	"github.com/cory-johannsen/botpanel/internal/storage/postgres"
)

// fakeAccountStore is an in-memory AccountStore for handler tests.
type fakeAccountStore struct {
	mu        sync.Mutex
	nextID    int64
	accounts  map[string]postgres.Account
	passwords map[string]string
}

func newFakeAccountStore() *fakeAccountStore {
	return &fakeAccountStore{
		accounts:  make(map[string]postgres.Account),
		passwords: make(map[string]string),
	}
}

func (f *fakeAccountStore) add(username, password string) postgres.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	acct := postgres.Account{ID: f.nextID, Username: username, CreatedAt: time.Now()}
	f.accounts[username] = acct
	f.passwords[username] = password
	return acct
}

func (f *fakeAccountStore) Authenticate(_ context.Context, username, password string) (postgres.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	acct, ok := f.accounts[username]
	if !ok {
		return postgres.Account{}, postgres.ErrAccountNotFound
	}
	if f.passwords[username] != password {
		return postgres.Account{}, postgres.ErrInvalidCredentials
	}
	return acct, nil
}

func (f *fakeAccountStore) GetByID(_ context.Context, id int64) (postgres.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, acct := range f.accounts {
		if acct.ID == id {
			return acct, nil
		}
	}
	return postgres.Account{}, postgres.ErrAccountNotFound
}

// fakeBotStore is an in-memory panel.BotStore for handler tests.
type fakeBotStore struct {
	mu     sync.Mutex
	nextID int64
	bots   map[int64]postgres.Bot
}

func newFakeBotStore() *fakeBotStore {
	return &fakeBotStore{bots: make(map[int64]postgres.Bot)}
}

func (f *fakeBotStore) Create(_ context.Context, b postgres.Bot) (postgres.Bot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	b.ID = f.nextID
	if b.Port == 0 {
		b.Port = postgres.DefaultBotPort
	}
	if b.Version == "" {
		b.Version = postgres.DefaultBotVersion
	}
	if b.AutoInterval == 0 {
		b.AutoInterval = postgres.DefaultAutoSeconds
	}
	b.CreatedAt = time.Now()
	f.bots[b.ID] = b
	return b, nil
}

func (f *fakeBotStore) GetByID(_ context.Context, userID, botID int64) (postgres.Bot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bots[botID]
	if !ok || b.UserID != userID {
		return postgres.Bot{}, postgres.ErrBotNotFound
	}
	return b, nil
}

func (f *fakeBotStore) ListByUser(_ context.Context, userID int64) ([]postgres.Bot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]postgres.Bot, 0)
	for _, b := range f.bots {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBotStore) CountByUser(_ context.Context, userID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, b := range f.bots {
		if b.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (f *fakeBotStore) Delete(_ context.Context, userID, botID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bots[botID]
	if !ok || b.UserID != userID {
		return postgres.ErrBotNotFound
	}
	delete(f.bots, botID)
	return nil
}

func (f *fakeBotStore) UpdateAutoMessage(_ context.Context, userID, botID int64, text string, intervalSeconds int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bots[botID]
	if !ok || b.UserID != userID {
		return postgres.ErrBotNotFound
	}
	b.AutoMessage = text
	b.AutoInterval = intervalSeconds
	f.bots[botID] = b
	return nil
}

// testAPI is one wired API instance with its fakes, serving through a
// plain mux the way the panel binary does.
type testAPI struct {
	mux      *http.ServeMux
	accounts *fakeAccountStore
}

func newTestAPI(t *testing.T, maxPerUser int) *testAPI {
	t.Helper()

	connector := botsim.New(botsim.Options{
		ConnectDelay:   time.Millisecond,
		SpawnDelay:     time.Millisecond,
		WanderInterval: time.Hour,
	})
	registry := bot.NewRegistry(connector, bot.Options{
		Timing: bot.Timing{
			PasswordDelay:  time.Millisecond,
			CommandDelay:   time.Millisecond,
			CommandStagger: time.Millisecond,
		},
	}, zap.NewNop())
	t.Cleanup(registry.Close)

	svc := panel.NewService(newFakeBotStore(), registry, maxPerUser, zap.NewNop())
	accounts := newFakeAccountStore()
	tokens := NewTokenManager("test-secret-test-secret", time.Hour)
	api := NewAPI(svc, accounts, tokens, zap.NewNop())

	return &testAPI{mux: api.Routes(), accounts: accounts}
}

// do performs one request against the API, optionally with a session
// cookie and a JSON body.
func (ta *testAPI) do(t *testing.T, method, path string, cookie *http.Cookie, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	ta.mux.ServeHTTP(rec, req)
	return rec
}

// login registers a fake account and returns its session cookie.
func (ta *testAPI) login(t *testing.T, username string) *http.Cookie {
	t.Helper()
	ta.accounts.add(username, "password123")

	rec := ta.do(t, http.MethodPost, "/api/auth/login", nil, map[string]string{
		"username": username,
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			return c
		}
	}
	t.Fatal("login response carried no session cookie")
	return nil
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

// createBot creates a bot over the API and returns its ID.
func (ta *testAPI) createBot(t *testing.T, cookie *http.Cookie, name string) int64 {
	t.Helper()
	rec := ta.do(t, http.MethodPost, "/api/bots", cookie, map[string]any{
		"name":     name,
		"host":     "mc.example.com",
		"username": "Miner42",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[botResponse](t, rec)
	require.Greater(t, created.ID, int64(0))
	return created.ID
}

// waitConnected polls the status endpoint until the session reports
// connected.
func (ta *testAPI) waitConnected(t *testing.T, cookie *http.Cookie, botID int64) {
	t.Helper()
	require.Eventually(t, func() bool {
		rec := ta.do(t, http.MethodGet, fmt.Sprintf("/api/bots/%d/status", botID), cookie, nil)
		if rec.Code != http.StatusOK {
			return false
		}
		return decodeBody[bot.Status](t, rec).Connected
	}, time.Second, time.Millisecond)
}
