package storage

import (
	"database/sql"
	"fmt"
	"time"

	"metrics-broker/src/logger"
	"metrics-broker/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type AsyncSQLiteDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
	now    func() time.Time
}

// -----------------------------------------------------------------------------

func NewAsyncSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*AsyncSQLiteDB, error) {
	return &AsyncSQLiteDB{
		Config: cfg,
		Logger: log,
		now:    time.Now,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Initialize() error {
	dsn := d.Config.Storage.DBPath

	// Open DB
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return err
	}

	// single writer keeps modernc from reporting SQLITE_BUSY under the archiver
	db.SetMaxOpenConns(1)
	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) createTables() error {
	// SQLite types: INTEGER for int64, REAL for float64, TEXT for string
	query := `
		CREATE TABLE IF NOT EXISTS metric_values (
			metric_id TEXT,
			timestamp INTEGER,
			value REAL,
			unit TEXT,
			tags TEXT,
			PRIMARY KEY (metric_id, timestamp)
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create metric_values: %w", err)
	}

	query = `
		CREATE TABLE IF NOT EXISTS metrics (
			metric_id TEXT PRIMARY KEY,
			unit TEXT,
			last_seen INTEGER,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) SaveMetricValuesBulk(values []models.MMetricValue) error {
	if len(values) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO metric_values (metric_id, timestamp, value, unit, tags)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (metric_id, timestamp) DO UPDATE SET
			value = excluded.value,
			unit = excluded.unit,
			tags = excluded.tags
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, v := range values {
		tags, err := encodeTags(v.Tags)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(v.MetricID, v.Timestamp, v.Value, v.Unit, tags); err != nil {
			return err
		}
	}

	registry, err := tx.Prepare(`
		INSERT INTO metrics (metric_id, unit, last_seen, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (metric_id) DO UPDATE SET
			unit = excluded.unit,
			last_seen = MAX(metrics.last_seen, excluded.last_seen),
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return err
	}
	defer registry.Close()

	for _, r := range latestPerMetric(values) {
		if _, err := registry.Exec(r.MetricID, r.Unit, r.Timestamp, d.now().UTC()); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) LoadRecentMetricValues(perMetric int) (map[string][]models.MMetricValue, error) {
	ids, err := queryStrings(d.DB, `SELECT metric_id FROM metrics`)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]models.MMetricValue, len(ids))
	for _, id := range ids {
		rows, err := d.DB.Query(`
			SELECT metric_id, timestamp, value, unit, tags FROM metric_values
			WHERE metric_id = ?
			ORDER BY timestamp DESC
			LIMIT ?
		`, id, perMetric)
		if err != nil {
			return nil, err
		}

		values, err := scanMetricValues(rows)
		if err != nil {
			return nil, err
		}
		if len(values) > 0 {
			out[id] = values
		}
	}

	return out, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) CleanupOldData() error {
	retentionDays := d.Config.Storage.RetentionDays
	cutoff := d.now().UTC().AddDate(0, 0, -retentionDays).UnixMilli()

	d.Logger.Info("Cleaning up data older than %d days (timestamp < %d)...", retentionDays, cutoff)

	if _, err := d.DB.Exec("DELETE FROM metric_values WHERE timestamp < ?", cutoff); err != nil {
		return fmt.Errorf("cleanup metric_values: %w", err)
	}
	if _, err := d.DB.Exec("DELETE FROM metrics WHERE last_seen < ?", cutoff); err != nil {
		d.Logger.Error("Cleanup metrics error: %v", err)
	}

	d.Logger.Info("Cleanup completed")
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
