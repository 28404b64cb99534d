package datasource

import (
	"fmt"

	"metrics-broker/src/data_source/httpjson"
	"metrics-broker/src/data_source/synthetic"
	"metrics-broker/src/interfaces"
	"metrics-broker/src/logger"
	"metrics-broker/src/models"
)

// NewSource builds a source from its config section
func NewSource(cfg models.MSourceConfig, netMgr interfaces.INetworkManager, log *logger.Logger) (interfaces.IDataSource, error) {
	switch cfg.Type {
	case "", "synthetic":
		return synthetic.NewSyntheticSource(cfg, log), nil
	case "http":
		if netMgr == nil {
			return nil, fmt.Errorf("source %s: http sources need a network manager", cfg.Name)
		}
		return httpjson.NewHTTPSource(cfg, netMgr, log), nil
	default:
		return nil, fmt.Errorf("source %s: unsupported type %s", cfg.Name, cfg.Type)
	}
}
