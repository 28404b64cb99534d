package interfaces

import "metrics-broker/src/models"

// -----------------------------------------------------------------------------
// IMetricPublisher is the producer-facing side of the broker. Data sources,
// the REST ingest routes and the gRPC service all push through it.
// -----------------------------------------------------------------------------

type IMetricPublisher interface {
	// -----------------------------------------------------------------------------
	// PublishMetricUpdate buffers the value and fans it out to matching subscriptions
	PublishMetricUpdate(value models.MMetricValue)

	// -----------------------------------------------------------------------------
	// PublishKPIUpdate buffers and fans out a KPI snapshot
	PublishKPIUpdate(kpiID string, data map[string]interface{})

	// -----------------------------------------------------------------------------
	// PublishAlert fans out an alert; alerts are not buffered
	PublishAlert(alert models.MAlert)
}

// -----------------------------------------------------------------------------
// IStatsProvider exposes operational accessors to the HTTP and gRPC surfaces.
// -----------------------------------------------------------------------------

type IStatsProvider interface {
	GetServerStats() models.MServerStats
	GetConnectedClients() []models.MClientInfo
	GetActiveSubscriptions() []models.MSubscription
}

// -----------------------------------------------------------------------------

// IBrokerControl is what the control plane needs from the broker
type IBrokerControl interface {
	IMetricPublisher
	IStatsProvider
}
