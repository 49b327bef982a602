package accounts_test

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmorris35/council/internal/database"
	"github.com/mmorris35/council/internal/modules/accounts"
)

func setupRepo(t *testing.T) *accounts.Repository {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	_, err = db.Exec(database.SchemaFor("portfolio"))
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })
	return accounts.NewRepository(db, zerolog.Nop())
}

func TestCreateAndGet(t *testing.T) {
	repo := setupRepo(t)

	created, err := repo.Create("alice@example.com", true)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	got, err := repo.Get(created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.True(t, got.AlertsEnabled)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestGetMissingReturnsNil(t *testing.T) {
	repo := setupRepo(t)

	got, err := repo.Get("nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDuplicateEmailRejected(t *testing.T) {
	repo := setupRepo(t)

	_, err := repo.Create("alice@example.com", false)
	require.NoError(t, err)
	_, err = repo.Create("alice@example.com", false)
	assert.Error(t, err)
}

func TestListAccounts(t *testing.T) {
	repo := setupRepo(t)

	_, err := repo.Create("alice@example.com", false)
	require.NoError(t, err)
	_, err = repo.Create("bob@example.com", true)
	require.NoError(t, err)

	list, err := repo.ListAccounts()
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestSetAlerts(t *testing.T) {
	repo := setupRepo(t)

	created, err := repo.Create("alice@example.com", false)
	require.NoError(t, err)

	require.NoError(t, repo.SetAlerts(created.ID, true))
	got, err := repo.Get(created.ID)
	require.NoError(t, err)
	assert.True(t, got.AlertsEnabled)

	assert.Error(t, repo.SetAlerts("missing", true))
}
