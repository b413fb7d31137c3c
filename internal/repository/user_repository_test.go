package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/starter-bot/internal/database"
	"github.com/Proton-105/starter-bot/internal/domain"
	"github.com/Proton-105/starter-bot/internal/testutil"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := testutil.RequireEnv(t, "TEST_DATABASE_DSN")
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, db.PingContext(ctx))
	require.NoError(t, database.NewMigrator(db, testutil.DiscardLogger()).ApplyDir(ctx, "../../migrations"))

	return db
}

func TestUserRepository_CreateAndFind(t *testing.T) {
	db := setupDB(t)
	repo := NewUserRepository(db, testutil.DiscardLogger())
	ctx := context.Background()

	telegramID := time.Now().UnixNano()
	t.Cleanup(func() { _, _ = db.Exec(`DELETE FROM users WHERE telegram_id = $1`, telegramID) })

	_, err := repo.FindByTelegramID(ctx, telegramID)
	assert.ErrorIs(t, err, ErrUserNotFound)

	user := &domain.User{TelegramID: telegramID, Username: "alice", FirstName: "Alice"}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotZero(t, user.ID)
	assert.False(t, user.CreatedAt.IsZero())

	found, err := repo.FindByTelegramID(ctx, telegramID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	assert.Equal(t, "alice", found.Username)

	duplicate := &domain.User{TelegramID: telegramID, Username: "alice"}
	require.NoError(t, repo.Create(ctx, duplicate))
	assert.Equal(t, user.ID, duplicate.ID)
}

func TestUserRepository_UpdateUsername(t *testing.T) {
	db := setupDB(t)
	repo := NewUserRepository(db, testutil.DiscardLogger())
	ctx := context.Background()

	telegramID := time.Now().UnixNano()
	t.Cleanup(func() { _, _ = db.Exec(`DELETE FROM users WHERE telegram_id = $1`, telegramID) })

	assert.ErrorIs(t, repo.UpdateUsername(ctx, telegramID, "ghost"), ErrUserNotFound)

	require.NoError(t, repo.Create(ctx, &domain.User{TelegramID: telegramID, Username: "bob"}))
	require.NoError(t, repo.UpdateUsername(ctx, telegramID, "alice"))

	found, err := repo.FindByTelegramID(ctx, telegramID)
	require.NoError(t, err)
	assert.Equal(t, "alice", found.Username)
}
