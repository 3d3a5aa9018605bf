// Package main provides the bot panel server binary: the HTTP API,
// the session registry, and PostgreSQL persistence.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/botpanel/internal/bot"
	"github.com/cory-johannsen/botpanel/internal/bot/botsim"
	"github.com/cory-johannsen/botpanel/internal/config"
	"github.com/cory-johannsen/botpanel/internal/observability"
	"github.com/cory-johannsen/botpanel/internal/panel"
	"github.com/cory-johannsen/botpanel/internal/panel/handlers"
	"github.com/cory-johannsen/botpanel/internal/server"
	"github.com/cory-johannsen/botpanel/internal/storage/postgres"
)

// newConnector selects the connection adapter by configured name.
func newConnector(name string) (bot.Connector, error) {
	switch name {
	case "sim":
		return botsim.New(botsim.Options{}), nil
	default:
		return nil, fmt.Errorf("unknown connector %q", name)
	}
}

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting bot panel",
		zap.String("http_addr", cfg.Server.Addr()),
		zap.String("connector", cfg.Bots.Connector),
	)

	// Connect to PostgreSQL for account and bot persistence.
	dbStart := time.Now()
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("connecting to database", zap.Error(err))
	}
	logger.Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.Duration("elapsed", time.Since(dbStart)),
	)

	accountRepo := postgres.NewAccountRepository(pool.DB())
	botRepo := postgres.NewBotRepository(pool.DB())

	connector, err := newConnector(cfg.Bots.Connector)
	if err != nil {
		logger.Fatal("selecting connector", zap.Error(err))
	}

	registry := bot.NewRegistry(connector, bot.Options{
		ChatLogCap: cfg.Bots.ChatLogCap,
		Timing: bot.Timing{
			PasswordDelay:  cfg.Bots.PasswordDelay,
			CommandDelay:   cfg.Bots.CommandDelay,
			CommandStagger: cfg.Bots.CommandStagger,
		},
	}, logger)

	svc := panel.NewService(botRepo, registry, cfg.Bots.MaxPerUser, logger)
	tokens := handlers.NewTokenManager(cfg.Server.SessionSecret, cfg.Server.SessionTTL)
	api := handlers.NewAPI(svc, accountRepo, tokens, logger)

	httpService := server.NewHTTPService(cfg.Server.Addr(), api.Routes())

	// Wire lifecycle. Sessions stop before the database so no session
	// event touches a closed pool.
	lifecycle := server.NewLifecycle(logger)

	lifecycle.Add("postgres", &server.FuncService{
		StartFn: func() error {
			for {
				time.Sleep(30 * time.Second)
				if err := pool.Health(ctx, 5*time.Second); err != nil {
					logger.Warn("database health check failed", zap.Error(err))
				}
			}
		},
		StopFn: func() {
			pool.Close()
		},
	})

	lifecycle.Add("registry", &server.FuncService{
		StartFn: func() error {
			select {} // sessions run on their own goroutines
		},
		StopFn: func() {
			registry.Close()
		},
	})

	lifecycle.Add("http", httpService)

	logger.Info("bot panel initialized",
		zap.Duration("startup", time.Since(start)),
		zap.String("http_addr", cfg.Server.Addr()),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
