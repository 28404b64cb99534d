package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"metrics-broker/src/logger"
	"metrics-broker/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
	now    func() time.Time
}

// -----------------------------------------------------------------------------

func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	// Schema is named after the executable, like "metrics_broker"
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable name: %w", err)
	}
	name := filepath.Base(exe)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.ReplaceAll(name, "-", "_")

	return &PostgresDB{
		Config: cfg,
		Schema: name,
		Logger: log,
		now:    time.Now,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return err
	}

	d.DB = db

	// Create Schema
	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", d.Schema, err)
	}

	if err := d.createTables(); err != nil {
		return err
	}

	d.Logger.Info("PostgresDB initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) table(name string) string {
	return fmt.Sprintf(`"%s"."%s"`, d.Schema, name)
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) createTables() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			metric_id TEXT,
			timestamp BIGINT,
			value DOUBLE PRECISION,
			unit TEXT,
			tags JSONB,
			PRIMARY KEY (metric_id, timestamp)
		);
	`, d.table("metric_values"))
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create metric_values: %w", err)
	}

	return d.createRegistry()
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SaveMetricValuesBulk(values []models.MMetricValue) error {
	if len(values) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		INSERT INTO %s (metric_id, timestamp, value, unit, tags)
		VALUES ($1, $2, $3, $4, NULLIF($5, '')::jsonb)
		ON CONFLICT (metric_id, timestamp) DO UPDATE SET
			value = EXCLUDED.value,
			unit = EXCLUDED.unit,
			tags = EXCLUDED.tags
	`, d.table("metric_values"))

	stmt, err := tx.Prepare(query)
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

	if err := d.registerMetrics(tx, latestPerMetric(values)); err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) LoadRecentMetricValues(perMetric int) (map[string][]models.MMetricValue, error) {
	ids, err := d.ListMetricIDs()
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT metric_id, timestamp, value, unit, tags::text FROM %s
		WHERE metric_id = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`, d.table("metric_values"))

	out := make(map[string][]models.MMetricValue, len(ids))
	for _, id := range ids {
		rows, err := d.DB.Query(query, id, perMetric)
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

func (d *PostgresDB) CleanupOldData() error {
	retentionDays := d.Config.Storage.RetentionDays
	cutoff := d.now().UTC().AddDate(0, 0, -retentionDays).UnixMilli()

	d.Logger.Info("Cleaning up data older than %d days (timestamp < %d)...", retentionDays, cutoff)

	if _, err := d.DB.Exec(fmt.Sprintf(`DELETE FROM %s WHERE timestamp < $1`, d.table("metric_values")), cutoff); err != nil {
		return fmt.Errorf("cleanup metric_values: %w", err)
	}
	if _, err := d.DB.Exec(fmt.Sprintf(`DELETE FROM %s WHERE last_seen < $1`, d.table("metrics")), cutoff); err != nil {
		d.Logger.Error("Cleanup metrics error: %v", err)
	}

	d.Logger.Info("Cleanup completed")
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
