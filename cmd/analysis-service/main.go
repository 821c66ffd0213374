package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/CarbonProof/Platform/internal/archive"
	"github.com/CarbonProof/Platform/internal/auth"
	"github.com/CarbonProof/Platform/internal/config"
	"github.com/CarbonProof/Platform/internal/httpserver"
	"github.com/CarbonProof/Platform/internal/ledger"
	"github.com/CarbonProof/Platform/internal/narrative"
	"github.com/CarbonProof/Platform/internal/orchestrator"
	"github.com/CarbonProof/Platform/internal/store"
	"github.com/CarbonProof/Platform/internal/threshold"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[startup] .env load: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.Ping(); err != nil {
		log.Fatalf("db ping: %v", err)
	}
	st := store.NewPGStore(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var submitter ledger.Submitter
	if cfg.LedgerEnabled {
		submitter, err = ledger.NewKafkaSubmitter(ledger.KafkaSubmitterConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
		})
		if err != nil {
			log.Fatalf("ledger submitter init: %v", err)
		}
		defer submitter.Close()
	}
	led := ledger.New(cfg.LedgerEnabled, submitter)

	var gen narrative.Generator
	if cfg.GeminiAPIKey != "" {
		gemini, err := narrative.NewGeminiGenerator(ctx, cfg.GeminiModel)
		if err != nil {
			log.Printf("[startup] gemini init failed, narratives fall back to templates: %v", err)
		} else {
			gen = gemini
		}
	}

	var thresholds threshold.Lookup = threshold.StaticTable{}
	if cfg.ThresholdServiceURL != "" {
		tc, err := threshold.NewHTTPClient(threshold.HTTPClientConfig{
			BaseURL: cfg.ThresholdServiceURL,
			Timeout: 5 * time.Second,
			Retries: 2,
		})
		if err != nil {
			log.Fatalf("threshold client init: %v", err)
		}
		thresholds = tc
	}

	orch := orchestrator.New(st, led, thresholds, gen, orchestrator.Config{})
	if cfg.S3Bucket != "" {
		archiver, err := archive.NewReportArchiver(ctx, cfg.S3Bucket, cfg.S3Prefix)
		if err != nil {
			log.Fatalf("report archiver init: %v", err)
		}
		orch = orch.WithArchiver(archiver)
	}

	verifier := auth.NewVerifier(cfg.JWTSecret, cfg.AllowDebugToken, cfg.DebugToken)
	server := httpserver.New(orch, st, verifier)

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: server.Router(),
	}

	go func() {
		log.Printf("analysis service listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	waitForShutdown(cancel, httpServer)
}

func waitForShutdown(cancel context.CancelFunc, srv *http.Server) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	cancel()
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
