package models

// MConfig Structure
type MConfig struct {
	Name       string            `yaml:"name"`
	Host       string            `yaml:"host"`
	Port       int               `yaml:"port"`
	LogLevel   string            `yaml:"log_level"`
	GrpcHost   string            `yaml:"grpc_host"`
	GrpcPort   int               `yaml:"grpc_port"`
	Broker     MBrokerConfig     `yaml:"broker"`
	Auth       MAuthConfig       `yaml:"auth"`
	Storage    MStorageConfig    `yaml:"storage"`
	Network    MNetworkConfig    `yaml:"network"`
	DataSource MDataSourceConfig `yaml:"data_source"`
}

type MBrokerConfig struct {
	MaxConnections                int      `yaml:"max_connections"`
	HeartbeatIntervalMs           int      `yaml:"heartbeat_interval_ms"`
	BufferSize                    int      `yaml:"buffer_size"`
	CompressionEnabled            bool     `yaml:"compression_enabled"`
	RateLimitPerClient            int      `yaml:"rate_limit_per_client"`
	AuthenticationRequired        bool     `yaml:"authentication_required"`
	MinUpdateIntervalMs           int      `yaml:"min_update_interval_ms"`
	SendQueueSize                 int      `yaml:"send_queue_size"`
	AggregationCacheTTLSeconds    int      `yaml:"aggregation_cache_ttl_seconds"`
	BufferRetentionMinutes        int      `yaml:"buffer_retention_minutes"`
	JanitorIntervalSeconds        int      `yaml:"janitor_interval_seconds"`
	StaleConnectionTimeoutSeconds int      `yaml:"stale_connection_timeout_seconds"`
	MetricCatalog                 []string `yaml:"metric_catalog"`
	KPICatalog                    []string `yaml:"kpi_catalog"`
}

type MAuthConfig struct {
	Mode      string        `yaml:"mode"` // static, jwt, remote
	Tokens    []MTokenGrant `yaml:"tokens"`
	JWTSecret string        `yaml:"jwt_secret"`
	RemoteURL string        `yaml:"remote_url"`
}

// MTokenGrant binds a static token to an optional tenant/user pair.
// Empty TenantID or UserID accept whatever the client presents.
type MTokenGrant struct {
	Token    string `yaml:"token"`
	TenantID string `yaml:"tenant_id"`
	UserID   string `yaml:"user_id"`
}

type MStorageConfig struct {
	Enabled              bool   `yaml:"enabled"`
	DBType               string `yaml:"db_type"`
	DBPath               string `yaml:"db_path"`
	DBConnectionString   string `yaml:"db_connection_string"`
	RetentionDays        int    `yaml:"retention_days"`
	FlushIntervalSeconds int    `yaml:"flush_interval_seconds"`
	WarmStart            bool   `yaml:"warm_start"`
}

type MNetworkConfig struct {
	RequestTimeout int    `yaml:"timeout"`
	MaxRetries     int    `yaml:"retries"`
	UserAgent      string `yaml:"user_agent"`
}

type MDataSourceConfig struct {
	Sources []MSourceConfig `yaml:"sources"`
}

type MSourceConfig struct {
	Name       string   `yaml:"name"`
	Type       string   `yaml:"type"` // synthetic, http
	Metrics    []string `yaml:"metrics"`
	Unit       string   `yaml:"unit"`
	IntervalMs int      `yaml:"interval_ms"`

	// synthetic
	BaseValue  float64 `yaml:"base_value"`
	Volatility float64 `yaml:"volatility"`

	// http: each metric is read from the polled document with a gjson path,
	// defaulting to the metric id itself
	URL           string            `yaml:"url"`
	Paths         map[string]string `yaml:"paths"`
	TimestampPath string            `yaml:"timestamp_path"`
}

// MSourceStatus is reported by the control API.
type MSourceStatus struct {
	Name      string   `json:"name"`
	Type      string   `json:"type"`
	IsRunning bool     `json:"isRunning"`
	MetricIDs []string `json:"metricIds"`
}
