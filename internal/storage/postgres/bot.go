package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Defaults applied when a bot configuration omits optional fields.
const (
	DefaultBotPort     = 25565
	DefaultBotVersion  = "1.21.1"
	DefaultAutoSeconds = 60
)

// ErrBotNotFound is returned when a bot lookup yields no results for the
// given user.
var ErrBotNotFound = errors.New("bot not found")

// Bot is one persisted bot configuration. Rows are always scoped to their
// owning user; no repository operation crosses user boundaries.
type Bot struct {
	ID            int64
	UserID        int64
	Name          string
	Host          string
	Port          int
	BotUsername   string
	Version       string
	PasswordCmd   string
	ExtraCommands string
	AutoMessage   string
	AutoInterval  int
	CreatedAt     time.Time
}

// Commands parses ExtraCommands (comma-separated, as the panel stores it)
// into an ordered list, dropping empty entries.
func (b Bot) Commands() []string {
	if strings.TrimSpace(b.ExtraCommands) == "" {
		return nil
	}
	parts := strings.Split(b.ExtraCommands, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// BotRepository provides bot configuration persistence operations.
type BotRepository struct {
	db *pgxpool.Pool
}

// NewBotRepository creates a BotRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewBotRepository(db *pgxpool.Pool) *BotRepository {
	return &BotRepository{db: db}
}

const botColumns = `id, user_id, bot_name, host, port, bot_username, version,
	 password_cmd, extra_commands, auto_message, auto_interval, created_at`

func scanBot(row pgx.Row) (Bot, error) {
	var b Bot
	err := row.Scan(&b.ID, &b.UserID, &b.Name, &b.Host, &b.Port, &b.BotUsername,
		&b.Version, &b.PasswordCmd, &b.ExtraCommands, &b.AutoMessage,
		&b.AutoInterval, &b.CreatedAt)
	return b, err
}

// Create inserts a new bot configuration, applying defaults for port,
// version, and auto-message interval.
//
// Precondition: b.UserID, b.Name, b.Host, and b.BotUsername must be set.
// Postcondition: Returns the created Bot with ID and CreatedAt populated.
func (r *BotRepository) Create(ctx context.Context, b Bot) (Bot, error) {
	if b.Port == 0 {
		b.Port = DefaultBotPort
	}
	if b.Version == "" {
		b.Version = DefaultBotVersion
	}
	if b.AutoInterval == 0 {
		b.AutoInterval = DefaultAutoSeconds
	}

	row := r.db.QueryRow(ctx,
		`INSERT INTO bots (user_id, bot_name, host, port, bot_username, version,
		                   password_cmd, extra_commands, auto_message, auto_interval)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING `+botColumns,
		b.UserID, b.Name, b.Host, b.Port, b.BotUsername, b.Version,
		b.PasswordCmd, b.ExtraCommands, b.AutoMessage, b.AutoInterval,
	)
	created, err := scanBot(row)
	if err != nil {
		return Bot{}, fmt.Errorf("inserting bot: %w", err)
	}
	return created, nil
}

// GetByID retrieves one bot configuration owned by userID.
//
// Postcondition: Returns the Bot or ErrBotNotFound.
func (r *BotRepository) GetByID(ctx context.Context, userID, botID int64) (Bot, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+botColumns+` FROM bots WHERE id = $1 AND user_id = $2`,
		botID, userID,
	)
	b, err := scanBot(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Bot{}, ErrBotNotFound
		}
		return Bot{}, fmt.Errorf("querying bot: %w", err)
	}
	return b, nil
}

// ListByUser retrieves all bot configurations owned by userID, oldest first.
//
// Postcondition: Returns a slice of Bots (may be empty, never nil on success).
func (r *BotRepository) ListByUser(ctx context.Context, userID int64) ([]Bot, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+botColumns+` FROM bots WHERE user_id = $1 ORDER BY id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying bots: %w", err)
	}
	defer rows.Close()

	bots := make([]Bot, 0)
	for rows.Next() {
		b, err := scanBot(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning bot: %w", err)
		}
		bots = append(bots, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating bots: %w", err)
	}
	return bots, nil
}

// CountByUser returns the number of bot configurations owned by userID.
// Quota enforcement counts configurations, not live sessions.
func (r *BotRepository) CountByUser(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM bots WHERE user_id = $1`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting bots: %w", err)
	}
	return count, nil
}

// Delete removes one bot configuration owned by userID.
//
// Postcondition: Returns ErrBotNotFound if no matching row exists.
func (r *BotRepository) Delete(ctx context.Context, userID, botID int64) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM bots WHERE id = $1 AND user_id = $2`,
		botID, userID,
	)
	if err != nil {
		return fmt.Errorf("deleting bot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBotNotFound
	}
	return nil
}

// UpdateAutoMessage persists the auto-chat text and interval so a later
// session start can restore them.
//
// Postcondition: Returns ErrBotNotFound if no matching row exists.
func (r *BotRepository) UpdateAutoMessage(ctx context.Context, userID, botID int64, text string, intervalSeconds int) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE bots SET auto_message = $1, auto_interval = $2
		 WHERE id = $3 AND user_id = $4`,
		text, intervalSeconds, botID, userID,
	)
	if err != nil {
		return fmt.Errorf("updating auto message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBotNotFound
	}
	return nil
}
