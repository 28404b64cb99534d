package storage

import (
	"database/sql"
	"fmt"

	"metrics-broker/src/models"
)

// Info: Separate file for the metric registry specific to Postgres

// -----------------------------------------------------------------------------

func (d *PostgresDB) createRegistry() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			metric_id TEXT PRIMARY KEY,
			unit TEXT,
			last_seen BIGINT,
			updated_at TIMESTAMPTZ DEFAULT NOW()
		);
	`, d.table("metrics"))
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

// registerMetrics upserts one registry row per metric inside tx
func (d *PostgresDB) registerMetrics(tx *sql.Tx, latest []models.MMetricValue) error {
	if len(latest) == 0 {
		return nil
	}

	tableName := d.table("metrics")
	query := fmt.Sprintf(`
		INSERT INTO %s AS m (metric_id, unit, last_seen, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (metric_id) DO UPDATE SET
			unit = EXCLUDED.unit,
			last_seen = GREATEST(m.last_seen, EXCLUDED.last_seen),
			updated_at = EXCLUDED.updated_at
	`, tableName)

	stmt, err := tx.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, v := range latest {
		if _, err := stmt.Exec(v.MetricID, v.Unit, v.Timestamp, d.now().UTC()); err != nil {
			return err
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

// ListMetricIDs returns every metric the archive has seen
func (d *PostgresDB) ListMetricIDs() ([]string, error) {
	return queryStrings(d.DB, fmt.Sprintf(`SELECT metric_id FROM %s ORDER BY metric_id`, d.table("metrics")))
}
