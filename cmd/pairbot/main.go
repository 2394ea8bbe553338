package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/maskchat/pairbot/internal/block"
	"github.com/maskchat/pairbot/internal/dispatch"
	"github.com/maskchat/pairbot/internal/history"
	"github.com/maskchat/pairbot/internal/matching"
	"github.com/maskchat/pairbot/internal/messaging"
	"github.com/maskchat/pairbot/internal/metrics"
	"github.com/maskchat/pairbot/internal/moderation"
	"github.com/maskchat/pairbot/internal/relay"
	"github.com/maskchat/pairbot/internal/report"
	"github.com/maskchat/pairbot/internal/ws"
)

// natsAuditor publishes filed reports to the audit subject for the moderator
// service. Publish failures are logged and dropped; the audit trail is
// best-effort review material, never the source of truth.
type natsAuditor struct {
	client *messaging.NATSClient
}

func (a *natsAuditor) ReportFiled(ev moderation.ReportEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[audit] marshal report event: %v", err)
		return
	}
	if err := a.client.PublishAbuseReport(data); err != nil {
		log.Printf("[audit] publish report event: %v", err)
	}
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	config := ws.DefaultServerConfig()
	if addr := os.Getenv("LISTEN_ADDR"); addr != "" {
		config.ListenAddr = addr
	}
	if v := os.Getenv("MAX_CONNECTIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.MaxConnections = n
		}
	}
	if v := os.Getenv("WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.WriteTimeout = d
		}
	}

	metricsAddr := ":9100"
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		metricsAddr = v
	}

	// --- NATS (optional) ---
	// Without a NATS_URL the relay runs standalone and reports are only
	// tallied in memory, not archived.
	var natsClient *messaging.NATSClient
	var audit dispatch.Auditor
	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		natsConfig := messaging.DefaultNATSConfig()
		natsConfig.URL = natsURL

		client, err := messaging.NewNATSClient(natsConfig)
		if err != nil {
			log.Fatalf("failed to connect to NATS: %v", err)
		}
		natsClient = client
		audit = &natsAuditor{client: client}
	} else {
		log.Printf("NATS_URL not set, report auditing disabled")
	}

	// --- Core state ---
	blocks := block.NewRegistry()
	table := matching.NewTable(blocks)
	ledger := report.NewLedger(blocks)
	tracker := history.NewTracker()

	server := ws.NewServer(config)
	out := ws.NewOutbox(server)
	engine := relay.NewEngine(table, tracker, out)
	dispatcher := dispatch.New(table, blocks, ledger, tracker, engine, out, audit)

	router := ws.NewRouter(dispatcher)
	server.SetOnMessage(router.HandleFrame)
	server.SetOnDisconnect(router.HandleDisconnect)

	// --- Metrics endpoint ---
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			log.Printf("metrics server error: %v", err)
		}
	}()

	log.Printf("pairbot relay starting")
	log.Printf("  listen_addr:     %s", config.ListenAddr)
	log.Printf("  metrics_addr:    %s", metricsAddr)
	log.Printf("  max_connections: %d", config.MaxConnections)
	log.Printf("  write_timeout:   %s", config.WriteTimeout)

	// Graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("received signal %v, initiating graceful shutdown...", sig)
		if natsClient != nil {
			natsClient.Close()
		}
		if err := server.Shutdown(); err != nil {
			log.Printf("shutdown error: %v", err)
		}
		os.Exit(0)
	}()

	if err := server.Start(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
