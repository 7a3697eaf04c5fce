// alertd is the regulatory alert and event fabric's orchestrator: it
// wires the rule engine, notification service, regulatory subscriber,
// activity feed, fraud scan pool, and collaboration manager onto a
// Postgres-backed store and serves them over HTTP/WebSocket.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/regulens/alertfabric/internal/api"
	"github.com/regulens/alertfabric/internal/feedstream"
	"github.com/regulens/alertfabric/internal/store/postgres"
	"github.com/regulens/alertfabric/pkg/activity"
	"github.com/regulens/alertfabric/pkg/collab"
	"github.com/regulens/alertfabric/pkg/config"
	"github.com/regulens/alertfabric/pkg/notify"
	"github.com/regulens/alertfabric/pkg/regulatory"
	"github.com/regulens/alertfabric/pkg/rules"
	"github.com/regulens/alertfabric/pkg/scan"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("Starting alertd")
	log.Printf("Config Directory: %s", *configDir)

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("failed to initialize configuration: %v", err)
	}
	gin.SetMode(cfg.HTTP.GinMode)

	dbConfig, err := postgres.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("failed to load database config: %v", err)
	}
	store, err := postgres.Open(ctx, dbConfig)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer store.Close()
	log.Println("connected to PostgreSQL, migrations applied")

	sealer, err := postgres.LoadSealerFromEnv()
	if err != nil {
		log.Fatalf("failed to load secret sealer: %v", err)
	}
	if sealer == nil {
		slog.Warn("DATA_ENCRYPTION_KEY not set, notification channel config stored in plaintext")
	}
	store.WithSealer(sealer)

	notifier := notify.NewService(store, store, store, cfg.Notification)
	ruleEngine := rules.NewEngine(store, store, notifier, cfg.RuleEngine)
	feed := activity.NewFeed(store, cfg.ActivityFeed)
	subscriber := regulatory.NewSubscriber(store, cfg.Subscriber)
	scanPool := scan.NewPool(store, postgres.NewTransactionSource(store), cfg.ScanPool)
	collabMgr := collab.NewManager(store, cfg.Collaboration)

	if err := collabMgr.Restore(ctx); err != nil {
		slog.Error("failed to restore collaboration sessions", "error", err)
	}

	notifier.Start(ctx)
	ruleEngine.Start(ctx)
	feed.Start(ctx)
	scanPool.Start(ctx)
	collabMgr.Start(ctx)
	if err := subscriber.Start(ctx); err != nil {
		log.Fatalf("failed to start regulatory subscriber: %v", err)
	}

	hub := feedstream.NewHub(feedstream.NewBridge(feed, notifier, store), 10*time.Second)

	healthCheck := func() (map[string]any, error) {
		reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		dbHealth, err := store.Health(reqCtx)
		if err != nil {
			return map[string]any{"database": dbHealth}, err
		}
		return map[string]any{
			"database": dbHealth,
			"scan":     scanPool.Health(),
			"rules":    ruleEngine.Metrics(),
			"notify":   notifier.Metrics(),
		}, nil
	}

	srv := api.NewServer(store, store, store, store, store,
		ruleEngine, notifier, feed, scanPool, collabMgr,
		hub, cfg.HTTP.AllowedWSOrigins, healthCheck)

	httpSrv := &http.Server{
		Addr:    ":" + cfg.HTTP.Port,
		Handler: srv.Router(),
	}

	go func() {
		log.Printf("HTTP server listening on :%s", cfg.HTTP.Port)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("error shutting down HTTP server: %v", err)
	}

	subscriber.Stop()
	collabMgr.Stop()
	scanPool.Stop()
	feed.Shutdown()
	ruleEngine.Stop()
	notifier.Stop()
}
