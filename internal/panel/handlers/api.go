// Package handlers exposes the panel's JSON HTTP API: cookie-based
// authentication and per-user bot configuration and session control.
package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/cory-johannsen/botpanel/internal/panel"
	"github.com/cory-johannsen/botpanel/internal/storage/postgres"
)

// AccountStore defines the account operations the API needs.
// *postgres.AccountRepository satisfies it.
type AccountStore interface {
	Authenticate(ctx context.Context, username, password string) (postgres.Account, error)
	GetByID(ctx context.Context, id int64) (postgres.Account, error)
}

// API wires the panel service and account store into HTTP handlers.
type API struct {
	svc      *panel.Service
	accounts AccountStore
	tokens   *TokenManager
	logger   *zap.Logger
}

// NewAPI creates the API handler set.
//
// Precondition: all arguments must be non-nil.
func NewAPI(svc *panel.Service, accounts AccountStore, tokens *TokenManager, logger *zap.Logger) *API {
	return &API{
		svc:      svc,
		accounts: accounts,
		tokens:   tokens,
		logger:   logger,
	}
}

// Routes returns the API's route multiplexer.
func (a *API) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/login", a.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", a.handleLogout)
	mux.HandleFunc("GET /api/auth/check", a.handleAuthCheck)

	mux.HandleFunc("GET /api/bots", a.withAuth(a.handleListBots))
	mux.HandleFunc("POST /api/bots", a.withAuth(a.handleCreateBot))
	mux.HandleFunc("DELETE /api/bots/{id}", a.withAuth(a.handleDeleteBot))

	mux.HandleFunc("POST /api/bots/{id}/start", a.withAuth(a.handleStartBot))
	mux.HandleFunc("POST /api/bots/{id}/stop", a.withAuth(a.handleStopBot))
	mux.HandleFunc("GET /api/bots/{id}/status", a.withAuth(a.handleBotStatus))
	mux.HandleFunc("POST /api/bots/{id}/chat", a.withAuth(a.handleSendChat))
	mux.HandleFunc("POST /api/bots/{id}/auto-chat/start", a.withAuth(a.handleStartAutoChat))
	mux.HandleFunc("POST /api/bots/{id}/auto-chat/stop", a.withAuth(a.handleStopAutoChat))

	return mux
}
