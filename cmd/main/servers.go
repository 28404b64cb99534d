package main

import (
	"fmt"
	"net"

	"metrics-broker/src/broker"
	datasource "metrics-broker/src/data_source"
	pb "metrics-broker/src/grpc_control"
	"metrics-broker/src/logger"
	"metrics-broker/src/metrics"
	"metrics-broker/src/models"
	"metrics-broker/src/server"

	"google.golang.org/grpc"
)

// -----------------------------------------------------------------------------

// startServers starts the HTTP/websocket server and, when a port is set, the
// gRPC control server
func startServers(
	config *models.MConfig,
	b *broker.Broker,
	collector *metrics.Collector,
	multiSource *datasource.MultiSourceManager,
	appLogger *logger.Logger,
) (*server.FastAPIServer, *grpc.Server) {

	// 1. FastAPIServer
	srv := server.NewFastAPIServer(config, b, collector, logger.NewLogger(config, "Server"))
	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Critical("Server failed: %v", err)
		}
	}()

	// 2. gRPC Control Server
	if config.GrpcPort == 0 {
		return srv, nil
	}

	addr := fmt.Sprintf("%s:%d", config.GrpcHost, config.GrpcPort)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		appLogger.Critical("failed to listen for gRPC: %v", err)
		return srv, nil
	}

	grpcServer := grpc.NewServer()
	controlService := pb.NewControlService(b, multiSource, logger.NewLogger(config, "ControlService"))
	pb.RegisterBrokerControlServer(grpcServer, controlService)

	go func() {
		appLogger.Info("Starting gRPC Control Server on %s", addr)
		if err := grpcServer.Serve(lis); err != nil {
			appLogger.Error("gRPC server stopped: %v", err)
		}
	}()
	return srv, grpcServer
}
