package storage

import (
	"database/sql"
	"slices"

	"metrics-broker/src/models"

	"github.com/goccy/go-json"
)

// -----------------------------------------------------------------------------

func encodeTags(tags map[string]string) (string, error) {
	if len(tags) == 0 {
		return "", nil
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// -----------------------------------------------------------------------------

func decodeTags(raw sql.NullString) map[string]string {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	var tags map[string]string
	if err := json.Unmarshal([]byte(raw.String), &tags); err != nil {
		return nil
	}
	return tags
}

// -----------------------------------------------------------------------------

// latestPerMetric keeps the newest value of each metric in a batch
func latestPerMetric(values []models.MMetricValue) []models.MMetricValue {
	latest := make(map[string]models.MMetricValue)
	order := make([]string, 0)
	for _, v := range values {
		cur, ok := latest[v.MetricID]
		if !ok {
			order = append(order, v.MetricID)
		}
		if !ok || v.Timestamp >= cur.Timestamp {
			latest[v.MetricID] = v
		}
	}

	out := make([]models.MMetricValue, 0, len(order))
	for _, id := range order {
		out = append(out, latest[id])
	}
	return out
}

// -----------------------------------------------------------------------------

// scanMetricValues reads rows ordered newest first and returns them oldest first.
// It closes rows.
func scanMetricValues(rows *sql.Rows) ([]models.MMetricValue, error) {
	defer rows.Close()

	var values []models.MMetricValue
	for rows.Next() {
		var (
			v    models.MMetricValue
			unit sql.NullString
			tags sql.NullString
		)
		if err := rows.Scan(&v.MetricID, &v.Timestamp, &v.Value, &unit, &tags); err != nil {
			return nil, err
		}
		v.Unit = unit.String
		v.Tags = decodeTags(tags)
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	slices.Reverse(values)
	return values, nil
}

// -----------------------------------------------------------------------------

func queryStrings(db *sql.DB, query string, args ...interface{}) ([]string, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		if s != "" {
			out = append(out, s)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
