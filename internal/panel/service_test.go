package panel

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/botpanel/internal/bot"
	"github.com/cory-johannsen/botpanel/internal/bot/botsim"
	"github.com/cory-johannsen/botpanel/internal/storage/postgres"
)

// fakeBotStore is an in-memory BotStore for service tests.
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

func (f *fakeBotStore) get(botID int64) postgres.Bot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bots[botID]
}

func newTestService(t *testing.T, maxPerUser int) (*Service, *fakeBotStore) {
	t.Helper()
	store := newFakeBotStore()
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
	return NewService(store, registry, maxPerUser, zap.NewNop()), store
}

func createTestBot(t *testing.T, svc *Service, userID int64, name string) postgres.Bot {
	t.Helper()
	created, err := svc.CreateBot(context.Background(), userID, postgres.Bot{
		Name:        name,
		Host:        "mc.example.com",
		BotUsername: "Miner42",
	})
	require.NoError(t, err)
	return created
}

func waitConnected(t *testing.T, svc *Service, userID, botID int64) {
	t.Helper()
	require.Eventually(t, func() bool {
		st, err := svc.Status(context.Background(), userID, botID)
		return err == nil && st.Connected
	}, time.Second, time.Millisecond)
}

func TestService_CreateBot_Quota(t *testing.T) {
	svc, _ := newTestService(t, 2)
	ctx := context.Background()

	createTestBot(t, svc, 1, "first")
	createTestBot(t, svc, 1, "second")

	_, err := svc.CreateBot(ctx, 1, postgres.Bot{
		Name:        "third",
		Host:        "mc.example.com",
		BotUsername: "Miner42",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	// Another user's quota is independent.
	_, err = svc.CreateBot(ctx, 2, postgres.Bot{
		Name:        "other",
		Host:        "mc.example.com",
		BotUsername: "Miner42",
	})
	assert.NoError(t, err)
}

func TestService_CreateBot_OverridesUserID(t *testing.T) {
	svc, _ := newTestService(t, 10)

	created, err := svc.CreateBot(context.Background(), 7, postgres.Bot{
		UserID:      999, // must not be trusted from input
		Name:        "sneaky",
		Host:        "mc.example.com",
		BotUsername: "Miner42",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), created.UserID)
}

func TestService_StartSession_ThenConnected(t *testing.T) {
	svc, _ := newTestService(t, 10)
	ctx := context.Background()

	b := createTestBot(t, svc, 1, "survival")
	require.NoError(t, svc.StartSession(ctx, 1, b.ID))
	waitConnected(t, svc, 1, b.ID)

	st, err := svc.Status(ctx, 1, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "connected", st.Message)
}

func TestService_StartSession_UnknownBot(t *testing.T) {
	svc, _ := newTestService(t, 10)

	err := svc.StartSession(context.Background(), 1, 42)
	require.Error(t, err)
	assert.ErrorIs(t, err, postgres.ErrBotNotFound)
}

func TestService_StartSession_AlreadyActive(t *testing.T) {
	svc, _ := newTestService(t, 10)
	ctx := context.Background()

	b := createTestBot(t, svc, 1, "survival")
	require.NoError(t, svc.StartSession(ctx, 1, b.ID))
	waitConnected(t, svc, 1, b.ID)

	err := svc.StartSession(ctx, 1, b.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, bot.ErrAlreadyActive)
}

func TestService_StopSession(t *testing.T) {
	svc, _ := newTestService(t, 10)
	ctx := context.Background()

	b := createTestBot(t, svc, 1, "survival")
	require.NoError(t, svc.StartSession(ctx, 1, b.ID))
	require.NoError(t, svc.StopSession(ctx, 1, b.ID))

	st, err := svc.Status(ctx, 1, b.ID)
	require.NoError(t, err)
	assert.False(t, st.Connected)
	assert.Equal(t, "offline", st.Message)
}

func TestService_StopSession_NoSession(t *testing.T) {
	svc, _ := newTestService(t, 10)

	b := createTestBot(t, svc, 1, "survival")
	err := svc.StopSession(context.Background(), 1, b.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, bot.ErrNotFound)
}

func TestService_Status_NoSessionIsOffline(t *testing.T) {
	svc, _ := newTestService(t, 10)

	b := createTestBot(t, svc, 1, "survival")
	st, err := svc.Status(context.Background(), 1, b.ID)
	require.NoError(t, err)
	assert.False(t, st.Connected)
	assert.Equal(t, "offline", st.Message)
	assert.NotNil(t, st.ChatLog)
}

func TestService_Status_UnknownBot(t *testing.T) {
	svc, _ := newTestService(t, 10)

	_, err := svc.Status(context.Background(), 1, 42)
	require.Error(t, err)
	assert.ErrorIs(t, err, postgres.ErrBotNotFound)
}

func TestService_SendChat(t *testing.T) {
	svc, _ := newTestService(t, 10)
	ctx := context.Background()

	b := createTestBot(t, svc, 1, "survival")
	require.NoError(t, svc.StartSession(ctx, 1, b.ID))
	waitConnected(t, svc, 1, b.ID)

	require.NoError(t, svc.SendChat(ctx, 1, b.ID, "hello world"))

	// The simulator echoes sent chat back to the session's log.
	require.Eventually(t, func() bool {
		st, err := svc.Status(ctx, 1, b.ID)
		return err == nil && len(st.ChatLog) > 0
	}, time.Second, time.Millisecond)
}

func TestService_SendChat_NoSession(t *testing.T) {
	svc, _ := newTestService(t, 10)

	b := createTestBot(t, svc, 1, "survival")
	err := svc.SendChat(context.Background(), 1, b.ID, "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, bot.ErrNotFound)
}

func TestService_StartAutoChat_PersistsSettings(t *testing.T) {
	svc, store := newTestService(t, 10)
	ctx := context.Background()

	b := createTestBot(t, svc, 1, "chatty")
	require.NoError(t, svc.StartSession(ctx, 1, b.ID))
	waitConnected(t, svc, 1, b.ID)

	require.NoError(t, svc.StartAutoChat(ctx, 1, b.ID, "selling dirt", 30))

	st, err := svc.Status(ctx, 1, b.ID)
	require.NoError(t, err)
	assert.True(t, st.AutoChatActive)
	assert.Equal(t, "selling dirt", st.AutoChatText)
	assert.Equal(t, 30, st.AutoChatInterval)

	stored := store.get(b.ID)
	assert.Equal(t, "selling dirt", stored.AutoMessage)
	assert.Equal(t, 30, stored.AutoInterval)
}

func TestService_StartAutoChat_Validation(t *testing.T) {
	svc, _ := newTestService(t, 10)
	ctx := context.Background()

	b := createTestBot(t, svc, 1, "chatty")
	require.NoError(t, svc.StartSession(ctx, 1, b.ID))
	waitConnected(t, svc, 1, b.ID)

	assert.Error(t, svc.StartAutoChat(ctx, 1, b.ID, "", 30))
	assert.Error(t, svc.StartAutoChat(ctx, 1, b.ID, "hi", 0))
	assert.Error(t, svc.StartAutoChat(ctx, 1, b.ID, "hi", -5))
}

func TestService_StopAutoChat(t *testing.T) {
	svc, _ := newTestService(t, 10)
	ctx := context.Background()

	b := createTestBot(t, svc, 1, "chatty")
	require.NoError(t, svc.StartSession(ctx, 1, b.ID))
	waitConnected(t, svc, 1, b.ID)

	require.NoError(t, svc.StartAutoChat(ctx, 1, b.ID, "selling dirt", 30))
	require.NoError(t, svc.StopAutoChat(ctx, 1, b.ID))

	st, err := svc.Status(ctx, 1, b.ID)
	require.NoError(t, err)
	assert.False(t, st.AutoChatActive)
}

func TestService_DeleteBot_StopsSession(t *testing.T) {
	svc, _ := newTestService(t, 10)
	ctx := context.Background()

	b := createTestBot(t, svc, 1, "doomed")
	require.NoError(t, svc.StartSession(ctx, 1, b.ID))
	waitConnected(t, svc, 1, b.ID)

	require.NoError(t, svc.DeleteBot(ctx, 1, b.ID))

	_, err := svc.GetBot(ctx, 1, b.ID)
	assert.ErrorIs(t, err, postgres.ErrBotNotFound)

	sessions, err := svc.ListSessions(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestService_ListSessions(t *testing.T) {
	svc, _ := newTestService(t, 10)
	ctx := context.Background()

	first := createTestBot(t, svc, 1, "alpha")
	second := createTestBot(t, svc, 1, "beta")
	other := createTestBot(t, svc, 2, "gamma")

	require.NoError(t, svc.StartSession(ctx, 1, first.ID))
	require.NoError(t, svc.StartSession(ctx, 1, second.ID))
	require.NoError(t, svc.StartSession(ctx, 2, other.ID))

	sessions, err := svc.ListSessions(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
	assert.Contains(t, sessions, first.ID)
	assert.Contains(t, sessions, second.ID)
	assert.NotContains(t, sessions, other.ID)
}
