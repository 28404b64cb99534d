package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"metrics-broker/src/broker"
	"metrics-broker/src/helpers"
	"metrics-broker/src/logger"
	"metrics-broker/src/metrics"
	"metrics-broker/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// FastAPIServer exposes the broker over websocket plus a small REST surface
// for producers and operators.
// -----------------------------------------------------------------------------

type FastAPIServer struct {
	Config  *models.MConfig
	Logger  *logger.Logger
	Broker  *broker.Broker
	Metrics *metrics.Collector

	engine     *gin.Engine
	httpServer *http.Server
	upgrader   websocket.Upgrader

	// cancelled on Stop so in-flight frame handlers give up
	ctx    context.Context
	cancel context.CancelFunc
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewFastAPIServer(cfg *models.MConfig, b *broker.Broker, coll *metrics.Collector, log *logger.Logger) *FastAPIServer {
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &FastAPIServer{
		Config:  cfg,
		Logger:  log,
		Broker:  b,
		Metrics: coll,
		engine:  gin.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:    4096,
			WriteBufferSize:   4096,
			EnableCompression: b.Options().CompressionEnabled,
			CheckOrigin:       func(r *http.Request) bool { return true },
		},
		ctx:    ctx,
		cancel: cancel,
	}

	s.engine.Use(gin.Recovery(), s.requestLogger())

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *FastAPIServer) setupRoutes() {
	api := s.engine.Group("/api")
	api.GET("/health", s.getHealth)
	api.GET("/stats", s.getStats)
	api.GET("/config", s.getConfig)
	api.GET("/clients", s.getClients)
	api.GET("/subscriptions", s.getSubscriptions)
	api.GET("/metrics/:id/latest", s.getLatestMetric)

	publish := api.Group("/publish")
	publish.POST("/metric", s.publishMetric)
	publish.POST("/kpi", s.publishKPI)
	publish.POST("/alert", s.publishAlert)

	if s.Metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.Metrics.Handler()))
	}

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// Handler exposes the router, mainly for httptest
func (s *FastAPIServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start blocks serving HTTP until Stop is called
func (s *FastAPIServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.Logger.Info("Starting server on %s", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

// Stop refuses new requests and waits for in-flight ones. Hijacked websocket
// connections are closed by the broker's shutdown.
func (s *FastAPIServer) Stop(ctx context.Context) error {
	s.cancel()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.Logger.Debug("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *FastAPIServer) getHealth(c *gin.Context) {
	stats := s.Broker.GetServerStats()
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"connections":    stats.ConnectedClients,
		"subscriptions":  stats.ActiveSubscriptions,
		"uptime_seconds": stats.UptimeSeconds,
	})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.Broker.GetServerStats())
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getConfig(c *gin.Context) {
	opts := s.Broker.Options()
	c.JSON(http.StatusOK, gin.H{
		"heartbeat_interval_ms":   opts.HeartbeatInterval.Milliseconds(),
		"min_update_interval_ms":  opts.MinUpdateInterval.Milliseconds(),
		"max_connections":         opts.MaxConnections,
		"buffer_size":             opts.BufferSize,
		"rate_limit_per_client":   opts.RateLimitPerClient,
		"authentication_required": opts.AuthenticationRequired,
		"compression_enabled":     opts.CompressionEnabled,
		"aggregation_levels":      []string{models.AggregationRaw, models.AggregationMinute, models.AggregationHour, models.AggregationDay},
		"metric_catalog":          opts.MetricCatalog,
		"kpi_catalog":             opts.KPICatalog,
	})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getClients(c *gin.Context) {
	clients := s.Broker.GetConnectedClients()
	if tenant := c.Query("tenantId"); tenant != "" {
		filtered := clients[:0]
		for _, info := range clients {
			if info.TenantID == tenant {
				filtered = append(filtered, info)
			}
		}
		clients = filtered
	}
	c.JSON(http.StatusOK, clients)
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getSubscriptions(c *gin.Context) {
	subs := s.Broker.GetActiveSubscriptions()
	if clientID := c.Query("clientId"); clientID != "" {
		filtered := subs[:0]
		for _, sub := range subs {
			if sub.ClientID == clientID {
				filtered = append(filtered, sub)
			}
		}
		subs = filtered
	}
	c.JSON(http.StatusOK, subs)
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getLatestMetric(c *gin.Context) {
	value, ok := s.Broker.LatestMetric(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "metric not buffered"})
		return
	}
	c.JSON(http.StatusOK, value)
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) publishMetric(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	values, err := helpers.DecodeMetricValues(body)
	if err != nil {
		badRequest(c, err)
		return
	}

	for _, v := range values {
		s.Broker.PublishMetricUpdate(v)
	}
	c.JSON(http.StatusAccepted, gin.H{"accepted": len(values)})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) publishKPI(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	update, err := helpers.DecodeKPIUpdate(body)
	if err != nil {
		badRequest(c, err)
		return
	}

	s.Broker.PublishKPIUpdate(update.KPIID, update.Data)
	c.JSON(http.StatusAccepted, gin.H{"accepted": 1})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) publishAlert(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	alert, err := helpers.DecodeAlert(body)
	if err != nil {
		badRequest(c, err)
		return
	}

	s.Broker.PublishAlert(alert)
	c.JSON(http.StatusAccepted, gin.H{"accepted": 1})
}
