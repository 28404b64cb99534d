package storage

import (
	"path/filepath"
	"testing"
	"time"

	"metrics-broker/src/logger"
	"metrics-broker/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *AsyncSQLiteDB {
	t.Helper()
	cfg := &models.MConfig{Storage: models.MStorageConfig{
		Enabled:       true,
		DBType:        "sqlite",
		DBPath:        filepath.Join(t.TempDir(), "archive.db"),
		RetentionDays: 7,
	}}
	db, err := NewAsyncSQLiteDB(cfg, logger.NewNopLogger())
	require.NoError(t, err)
	require.NoError(t, db.Initialize())
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteSaveAndLoadRecent(t *testing.T) {
	db := newTestSQLite(t)
	base := time.Now().UnixMilli()

	values := []models.MMetricValue{
		{MetricID: "cpu.load", Value: 1, Timestamp: base, Unit: "%", Tags: map[string]string{"host": "a"}},
		{MetricID: "cpu.load", Value: 2, Timestamp: base + 1000, Unit: "%"},
		{MetricID: "cpu.load", Value: 3, Timestamp: base + 2000, Unit: "%"},
		{MetricID: "mem.used", Value: 512, Timestamp: base, Unit: "MB"},
	}
	require.NoError(t, db.SaveMetricValuesBulk(values))

	recent, err := db.LoadRecentMetricValues(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)

	cpu := recent["cpu.load"]
	require.Len(t, cpu, 2)
	assert.Equal(t, 2.0, cpu[0].Value, "oldest first")
	assert.Equal(t, 3.0, cpu[1].Value)
	assert.Equal(t, "%", cpu[1].Unit)

	mem := recent["mem.used"]
	require.Len(t, mem, 1)
	assert.Equal(t, 512.0, mem[0].Value)
}

func TestSQLiteUpsertKeepsOneRowPerTimestamp(t *testing.T) {
	db := newTestSQLite(t)
	ts := time.Now().UnixMilli()

	require.NoError(t, db.SaveMetricValuesBulk([]models.MMetricValue{{MetricID: "m", Value: 1, Timestamp: ts}}))
	require.NoError(t, db.SaveMetricValuesBulk([]models.MMetricValue{{MetricID: "m", Value: 9, Timestamp: ts, Tags: map[string]string{"k": "v"}}}))

	recent, err := db.LoadRecentMetricValues(10)
	require.NoError(t, err)
	require.Len(t, recent["m"], 1)
	assert.Equal(t, 9.0, recent["m"][0].Value)
	assert.Equal(t, map[string]string{"k": "v"}, recent["m"][0].Tags)
}

func TestSQLiteCleanupOldData(t *testing.T) {
	db := newTestSQLite(t)
	now := time.Now()
	old := now.AddDate(0, 0, -30).UnixMilli()

	require.NoError(t, db.SaveMetricValuesBulk([]models.MMetricValue{
		{MetricID: "stale", Value: 1, Timestamp: old},
		{MetricID: "fresh", Value: 2, Timestamp: now.UnixMilli()},
	}))
	require.NoError(t, db.CleanupOldData())

	recent, err := db.LoadRecentMetricValues(10)
	require.NoError(t, err)
	assert.NotContains(t, recent, "stale")
	assert.Contains(t, recent, "fresh")
}
