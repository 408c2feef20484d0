package postgres

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@db:5432/ledger?sslmode=disable", migrateURL("postgres://u:p@db:5432/ledger?sslmode=disable"))
	assert.Equal(t, "pgx5://db/ledger", migrateURL("postgresql://db/ledger"))
	assert.Equal(t, "pgx5://db/ledger", migrateURL("pgx5://db/ledger"))
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	ups, err := fs.Glob(migrationsFS, "migrations/*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(migrationsFS, "migrations/*.down.sql")
	require.NoError(t, err)

	require.NotEmpty(t, ups)
	assert.Len(t, downs, len(ups))
}
