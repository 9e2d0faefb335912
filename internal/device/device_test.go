package device

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/bujoapp/journalsync/internal/metadata"
)

func setupRepo(t *testing.T) *metadata.SQLiteRepository {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE sync_metadata (
  key TEXT PRIMARY KEY,
  value BLOB NOT NULL
);
`)
	require.NoError(t, err)

	return metadata.NewSQLiteRepository(db)
}

func TestID_Stable(t *testing.T) {
	p := NewProvider(setupRepo(t))
	ctx := context.Background()

	first, err := p.ID(ctx)
	require.NoError(t, err)
	_, err = uuid.Parse(first)
	require.NoError(t, err, "device id must be a uuid")

	second, err := p.ID(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestID_SurvivesProviderRestart(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	first, err := NewProvider(repo).ID(ctx)
	require.NoError(t, err)

	second, err := NewProvider(repo).ID(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
