package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civicchain/internal/platform/config"
	"civicchain/internal/platform/postgres/migrations"
)

func TestOpen_NoURL(t *testing.T) {
	db, err := Open(context.Background(), config.DatabaseConfig{})
	require.NoError(t, err)
	assert.Nil(t, db)
}

func TestMigrate_UsesEmbeddedDir(t *testing.T) {
	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()

	var gotDir string
	gooseUpContext = func(_ context.Context, _ *sql.DB, dir string, _ ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	}
	require.NoError(t, Migrate(context.Background(), nil))
	assert.Equal(t, ".", gotDir)

	gooseUpContext = func(context.Context, *sql.DB, string, ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	require.ErrorContains(t, Migrate(context.Background(), nil), "run migrations")
}

func TestMigrationsAreEmbedded(t *testing.T) {
	entries, err := fs.Glob(migrations.Migrations, "*.sql")
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "accounts_identity_fingerprint_key"})
	assert.True(t, IsUniqueViolation(err, ""))
	assert.True(t, IsUniqueViolation(err, "accounts_identity_fingerprint_key"))
	assert.False(t, IsUniqueViolation(err, "accounts_email_lower_idx"))
	assert.False(t, IsUniqueViolation(errors.New("other"), ""))
}
