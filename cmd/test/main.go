package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"metrics-broker/src/auth"
	"metrics-broker/src/logger"
	"metrics-broker/src/models"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

// probe connects to a running broker, subscribes and prints what arrives
func main() {
	url := flag.String("url", "ws://127.0.0.1:8765/ws", "broker websocket url")
	token := flag.String("token", "", "authentication token")
	jwtSecret := flag.String("jwt-secret", "", "sign a token locally instead of passing -token")
	tenant := flag.String("tenant", "t1", "tenant id")
	user := flag.String("user", "probe", "user id")
	metricIDs := flag.String("metrics", "cpu.load", "comma separated metric ids")
	kpiIDs := flag.String("kpis", "", "comma separated KPI ids")
	level := flag.String("level", "", "aggregation level: raw, minute, hour, day")
	interval := flag.Int("interval", 1000, "max update frequency in ms")
	duration := flag.Duration("duration", 0, "stop after this long (0 runs until interrupted)")
	flag.Parse()

	log := logger.NewLogger("INFO", "Probe")

	if *jwtSecret != "" {
		signed, err := auth.IssueToken(*jwtSecret, *tenant, *user, time.Hour)
		if err != nil {
			log.Critical("Failed to sign token: %v", err)
		}
		*token = signed
	}

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		log.Critical("Failed to connect to %s: %v", *url, err)
	}
	defer conn.Close()
	log.Info("Connected to %s", *url)

	send := func(frameType string, payload interface{}) {
		raw, err := json.Marshal(map[string]interface{}{"type": frameType, "payload": payload})
		if err != nil {
			log.Error("Encode %s: %v", frameType, err)
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
			log.Error("Write %s: %v", frameType, err)
		}
	}

	if *token != "" {
		send(models.FrameAuthenticate, models.MAuthenticatePayload{Token: *token, TenantID: *tenant, UserID: *user})
	}
	send(models.FrameSubscribe, models.MSubscribePayload{
		MetricIDs:          splitList(*metricIDs),
		KPIIDs:             splitList(*kpiIDs),
		AggregationLevel:   *level,
		MaxUpdateFrequency: *interval,
	})

	frames := make(chan []byte)
	go func() {
		defer close(frames)
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				log.Info("Connection closed: %v", err)
				return
			}
			frames <- raw
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	var deadline <-chan time.Time
	if *duration > 0 {
		deadline = time.After(*duration)
	}
	heartbeat := time.NewTicker(10 * time.Second)
	defer heartbeat.Stop()

	count := 0
	for {
		select {
		case raw, ok := <-frames:
			if !ok {
				return
			}
			count++
			fmt.Println(string(raw))
		case <-heartbeat.C:
			send(models.FrameHeartbeat, nil)
		case <-deadline:
			log.Info("Received %d frames", count)
			return
		case <-quit:
			log.Info("Received %d frames", count)
			return
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
