package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalysesIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)
	ctx := context.Background()

	t.Run("create and read back", func(t *testing.T) {
		testDB.TruncateAll(t)
		a := sampleAnalysis()
		require.NoError(t, testDB.CreateAnalysis(ctx, a, sampleRows()))

		got, err := testDB.GetAnalysis(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, a.Source, got.Source)
		assert.True(t, a.LatestPlusDI.Equal(got.LatestPlusDI))
		assert.WithinDuration(t, a.CreatedAt, got.CreatedAt, time.Second)

		rows, err := testDB.GetAnalysisRows(ctx, a.ID)
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.False(t, rows[0].TR14.Valid)
		assert.Equal(t, 4.0, rows[2].TR14.Float64)
		assert.False(t, rows[2].ADX.Valid)
	})

	t.Run("list newest first and delete cascades", func(t *testing.T) {
		testDB.TruncateAll(t)
		older := sampleAnalysis()
		older.CreatedAt = time.Now().UTC().Add(-48 * time.Hour)
		newer := sampleAnalysis()
		newer.CreatedAt = time.Now().UTC()
		require.NoError(t, testDB.CreateAnalysis(ctx, older, sampleRows()))
		require.NoError(t, testDB.CreateAnalysis(ctx, newer, sampleRows()))

		list, err := testDB.ListRecentAnalyses(ctx, 10)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, newer.ID, list[0].ID)

		n, err := testDB.DeleteAnalysesOlderThan(ctx, time.Now().UTC().Add(-24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		rows, err := testDB.GetAnalysisRows(ctx, older.ID)
		require.NoError(t, err)
		assert.Empty(t, rows)

		require.NoError(t, testDB.DeleteAnalysis(ctx, newer.ID))
		_, err = testDB.GetAnalysis(ctx, newer.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, testDB.DeleteAnalysis(ctx, newer.ID), ErrNotFound)
	})
}
