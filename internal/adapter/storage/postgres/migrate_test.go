package postgres

import (
	"io"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	src, err := iofs.New(migrationsFS, "migrations")
	require.NoError(t, err)
	defer src.Close()

	var versions []uint
	version, err := src.First()
	require.NoError(t, err)
	for {
		versions = append(versions, version)

		up, _, err := src.ReadUp(version)
		require.NoError(t, err, "version %d has no up migration", version)
		upSQL, err := io.ReadAll(up)
		require.NoError(t, err)
		up.Close()
		assert.NotEmpty(t, upSQL)

		down, _, err := src.ReadDown(version)
		require.NoError(t, err, "version %d has no down migration", version)
		down.Close()

		next, err := src.Next(version)
		if err != nil {
			break
		}
		version = next
	}

	assert.Equal(t, []uint{1, 2}, versions)
}

func TestEmbeddedMigrations_CardsSchema(t *testing.T) {
	raw, err := migrationsFS.ReadFile("migrations/000002_create_cards.up.sql")
	require.NoError(t, err)
	schema := string(raw)

	assert.Contains(t, schema, "CHECK (balance >= 0)")
	assert.Contains(t, schema, "NUMERIC(19,2)")
	assert.Contains(t, schema, "WHERE NOT deleted")
}

func TestMigrateDown_RejectsNonPositiveSteps(t *testing.T) {
	err := MigrateDown("pgx5://unused", 0, zerolog.Nop())
	assert.Error(t, err)
}
