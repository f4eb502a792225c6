package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)

	t.Run("all tables exist", func(t *testing.T) {
		for _, tableName := range []string{"analyses", "analysis_rows"} {
			var exists bool
			err := testDB.GetRawConn().QueryRow(`
				SELECT EXISTS (
					SELECT FROM information_schema.tables
					WHERE table_schema = 'public'
					AND table_name = $1
				)
			`, tableName).Scan(&exists)

			require.NoError(t, err, "failed to check table existence for %s", tableName)
			assert.True(t, exists, "table %s should exist", tableName)
		}
	})

	t.Run("derived columns are nullable", func(t *testing.T) {
		nullable := map[string]string{
			"open":  "NO",
			"tr":    "YES",
			"tr14":  "YES",
			"dx":    "YES",
			"adx":   "YES",
			"close": "NO",
		}

		for column, want := range nullable {
			var got string
			err := testDB.GetRawConn().QueryRow(`
				SELECT is_nullable
				FROM information_schema.columns
				WHERE table_name = 'analysis_rows' AND column_name = $1
			`, column).Scan(&got)

			require.NoError(t, err, "column %s should exist", column)
			assert.Equal(t, want, got, "nullability of %s", column)
		}
	})

	t.Run("migrating twice is a no-op", func(t *testing.T) {
		assert.NoError(t, testDB.Migrate(migrationsDir()))
	})
}
