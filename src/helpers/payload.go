package helpers

import (
	"bytes"

	"metrics-broker/src/models"

	"github.com/goccy/go-json"
)

// -----------------------------------------------------------------------------
// Producer payload decoding shared by the REST and gRPC ingestion paths.
// -----------------------------------------------------------------------------

// DecodeMetricValues accepts a single value or an array of values
func DecodeMetricValues(body []byte) ([]models.MMetricValue, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, NewValidationError("empty body")
	}

	var values []models.MMetricValue
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &values); err != nil {
			return nil, &ValidationError{BrokerError{Message: "invalid metric batch", Cause: err}}
		}
	} else {
		var v models.MMetricValue
		if err := json.Unmarshal(trimmed, &v); err != nil {
			return nil, &ValidationError{BrokerError{Message: "invalid metric value", Cause: err}}
		}
		values = append(values, v)
	}

	for i, v := range values {
		if v.MetricID == "" {
			return nil, NewValidationError("value %d has no metricId", i)
		}
	}
	return values, nil
}

// -----------------------------------------------------------------------------

func DecodeKPIUpdate(body []byte) (models.MKPIUpdate, error) {
	var update models.MKPIUpdate
	if err := json.Unmarshal(body, &update); err != nil {
		return update, &ValidationError{BrokerError{Message: "invalid KPI update", Cause: err}}
	}
	if update.KPIID == "" {
		return update, NewValidationError("kpiId is required")
	}
	return update, nil
}

// -----------------------------------------------------------------------------

// DecodeAlert validates the target and severity. Severity defaults to info.
func DecodeAlert(body []byte) (models.MAlert, error) {
	var alert models.MAlert
	if err := json.Unmarshal(body, &alert); err != nil {
		return alert, &ValidationError{BrokerError{Message: "invalid alert", Cause: err}}
	}
	if alert.MetricID == "" && alert.KPIID == "" {
		return alert, NewValidationError("alert needs a metricId or kpiId")
	}
	switch alert.Severity {
	case models.SeverityInfo, models.SeverityWarning, models.SeverityCritical:
	case "":
		alert.Severity = models.SeverityInfo
	default:
		return alert, NewValidationError("unknown severity %q", alert.Severity)
	}
	return alert, nil
}
