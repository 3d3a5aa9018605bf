// Package panel implements the control-panel application layer: bot
// configuration management, per-user quotas, and session lifecycle
// operations on top of the session registry and the persistence layer.
package panel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/botpanel/internal/bot"
	"github.com/cory-johannsen/botpanel/internal/storage/postgres"
)

// ErrQuotaExceeded is returned when a user attempts to create more bot
// configurations than their quota allows.
var ErrQuotaExceeded = errors.New("bot quota exceeded")

// BotStore is the persistence surface the service needs for bot
// configurations. *postgres.BotRepository satisfies it.
type BotStore interface {
	Create(ctx context.Context, b postgres.Bot) (postgres.Bot, error)
	GetByID(ctx context.Context, userID, botID int64) (postgres.Bot, error)
	ListByUser(ctx context.Context, userID int64) ([]postgres.Bot, error)
	CountByUser(ctx context.Context, userID int64) (int, error)
	Delete(ctx context.Context, userID, botID int64) error
	UpdateAutoMessage(ctx context.Context, userID, botID int64, text string, intervalSeconds int) error
}

// Service coordinates bot configuration storage and live sessions.
// Every operation is scoped to the calling user; no operation can see or
// touch another user's bots or sessions.
type Service struct {
	bots       BotStore
	registry   *bot.Registry
	maxPerUser int
	logger     *zap.Logger
}

// NewService creates a Service.
//
// Precondition: bots, registry, and logger must be non-nil; maxPerUser
// must be positive.
func NewService(bots BotStore, registry *bot.Registry, maxPerUser int, logger *zap.Logger) *Service {
	return &Service{
		bots:       bots,
		registry:   registry,
		maxPerUser: maxPerUser,
		logger:     logger,
	}
}

// CreateBot persists a new bot configuration for userID.
//
// The quota is checked against persisted configurations, not live
// sessions: a user at the limit cannot create another bot even if none
// of their bots is connected.
//
// Postcondition: Returns ErrQuotaExceeded when the user already owns
// maxPerUser configurations.
func (s *Service) CreateBot(ctx context.Context, userID int64, b postgres.Bot) (postgres.Bot, error) {
	count, err := s.bots.CountByUser(ctx, userID)
	if err != nil {
		return postgres.Bot{}, fmt.Errorf("counting bots: %w", err)
	}
	if count >= s.maxPerUser {
		return postgres.Bot{}, ErrQuotaExceeded
	}

	b.UserID = userID
	created, err := s.bots.Create(ctx, b)
	if err != nil {
		return postgres.Bot{}, err
	}

	s.logger.Info("bot created",
		zap.Int64("user_id", userID),
		zap.Int64("bot_id", created.ID),
		zap.String("name", created.Name),
	)
	return created, nil
}

// GetBot retrieves one bot configuration owned by userID.
func (s *Service) GetBot(ctx context.Context, userID, botID int64) (postgres.Bot, error) {
	return s.bots.GetByID(ctx, userID, botID)
}

// ListBots retrieves all bot configurations owned by userID.
func (s *Service) ListBots(ctx context.Context, userID int64) ([]postgres.Bot, error) {
	return s.bots.ListByUser(ctx, userID)
}

// DeleteBot removes a bot configuration and tears down any session it
// may have, live or lingering.
//
// Postcondition: Returns postgres.ErrBotNotFound if userID owns no such
// bot. The registry holds no session for the bot afterwards.
func (s *Service) DeleteBot(ctx context.Context, userID, botID int64) error {
	if err := s.bots.Delete(ctx, userID, botID); err != nil {
		return err
	}

	// A session without a configuration is unreachable from the panel,
	// so it goes down with the row. Stop is a no-op error when no
	// session exists.
	key := bot.Key{UserID: userID, BotID: botID}
	if err := s.registry.Stop(key); err != nil && !errors.Is(err, bot.ErrNotFound) {
		return err
	}

	s.logger.Info("bot deleted",
		zap.Int64("user_id", userID),
		zap.Int64("bot_id", botID),
	)
	return nil
}

// StartSession begins connecting the bot's session. The call returns as
// soon as the session is registered; connection progress is observable
// through Status.
//
// Postcondition: Returns postgres.ErrBotNotFound if userID owns no such
// bot, or bot.ErrAlreadyActive if a connected session already exists.
func (s *Service) StartSession(ctx context.Context, userID, botID int64) error {
	b, err := s.bots.GetByID(ctx, userID, botID)
	if err != nil {
		return err
	}

	cfg := bot.Config{
		Host:          b.Host,
		Port:          b.Port,
		Username:      b.BotUsername,
		Version:       b.Version,
		PasswordCmd:   b.PasswordCmd,
		ExtraCommands: b.Commands(),
	}

	key := bot.Key{UserID: userID, BotID: botID}
	if _, err := s.registry.Start(ctx, key, cfg); err != nil {
		return err
	}
	return nil
}

// StopSession tears down the bot's session.
//
// Postcondition: Returns bot.ErrNotFound if no session exists for the
// bot, live or lingering.
func (s *Service) StopSession(ctx context.Context, userID, botID int64) error {
	if _, err := s.bots.GetByID(ctx, userID, botID); err != nil {
		return err
	}
	return s.registry.Stop(bot.Key{UserID: userID, BotID: botID})
}

// Status projects the bot's session status. A bot without a session
// reports the canonical offline status rather than an error.
//
// Postcondition: Returns postgres.ErrBotNotFound if userID owns no such
// bot.
func (s *Service) Status(ctx context.Context, userID, botID int64) (bot.Status, error) {
	if _, err := s.bots.GetByID(ctx, userID, botID); err != nil {
		return bot.Status{}, err
	}
	return s.registry.StatusFor(bot.Key{UserID: userID, BotID: botID}), nil
}

// SendChat relays one chat line through the bot's live session.
//
// Postcondition: Returns bot.ErrNotFound if no session exists, or
// bot.ErrNotActive if the session is not connected.
func (s *Service) SendChat(ctx context.Context, userID, botID int64, text string) error {
	if _, err := s.bots.GetByID(ctx, userID, botID); err != nil {
		return err
	}
	sess, ok := s.registry.Get(bot.Key{UserID: userID, BotID: botID})
	if !ok {
		return bot.ErrNotFound
	}
	return sess.SendChat(text)
}

// StartAutoChat arms the session's periodic chat message and persists
// the text and interval so the panel can restore them later. Starting
// again replaces any previously armed message.
//
// Precondition: text must be non-empty and intervalSeconds positive.
// Postcondition: Returns bot.ErrNotFound if no session exists, or
// bot.ErrNotActive if the session has been stopped.
func (s *Service) StartAutoChat(ctx context.Context, userID, botID int64, text string, intervalSeconds int) error {
	if text == "" {
		return errors.New("auto-chat text must not be empty")
	}
	if intervalSeconds <= 0 {
		return errors.New("auto-chat interval must be positive")
	}

	if _, err := s.bots.GetByID(ctx, userID, botID); err != nil {
		return err
	}
	sess, ok := s.registry.Get(bot.Key{UserID: userID, BotID: botID})
	if !ok {
		return bot.ErrNotFound
	}

	if err := sess.StartAutoChat(text, time.Duration(intervalSeconds)*time.Second); err != nil {
		return err
	}

	if err := s.bots.UpdateAutoMessage(ctx, userID, botID, text, intervalSeconds); err != nil {
		s.logger.Warn("persisting auto-chat settings failed",
			zap.Int64("user_id", userID),
			zap.Int64("bot_id", botID),
			zap.Error(err),
		)
	}
	return nil
}

// StopAutoChat disarms the session's periodic chat message. Stopping a
// session that has no armed message is a no-op.
//
// Postcondition: Returns bot.ErrNotFound if no session exists.
func (s *Service) StopAutoChat(ctx context.Context, userID, botID int64) error {
	if _, err := s.bots.GetByID(ctx, userID, botID); err != nil {
		return err
	}
	sess, ok := s.registry.Get(bot.Key{UserID: userID, BotID: botID})
	if !ok {
		return bot.ErrNotFound
	}
	sess.StopAutoChat()
	return nil
}

// ListSessions returns the status of every registered session owned by
// userID, keyed by bot ID. Bots without sessions are absent.
func (s *Service) ListSessions(ctx context.Context, userID int64) (map[int64]bot.Status, error) {
	return s.registry.ListByUser(userID), nil
}
