package main

import (
	"context"
	"log"
	"net/http"
	"time"

	appauth "curema-crm/internal/application/auth"
	"curema-crm/internal/infrastructure/config"
	"curema-crm/internal/infrastructure/db"
	httpapi "curema-crm/internal/interface/http"
)

func main() {
	cfg, err := config.LoadFromFile("config.yaml")
	if err != nil {
		log.Fatalf("CRITICAL: load config failed: %v", err)
	}
	log.Printf("configuration loaded (HTTP_ADDR=%s)", cfg.HTTP.Addr)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Printf("testing database connection...")
	pool, err := db.Connect(ctx, cfg.DB)
	if err != nil {
		log.Printf("warning: database connection failed, falling back to in-memory store: %v", err)
		pool = nil
	} else if pool == nil {
		log.Printf("no DB_DSN provided; running with in-memory store only")
	} else {
		defer pool.Close()
		log.Printf("database connected successfully")
	}

	apiServer := httpapi.NewServer(cfg, pool)

	cleanup := appauth.NewCleanupWorker(apiServer.Sessions(), apiServer.Tokens(), cfg.Cleanup.TokenInterval, cfg.Cleanup.SessionInterval)
	cleanup.Start()
	defer cleanup.Stop()

	addr := cfg.HTTP.Addr
	log.Printf("starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, apiServer.Handler()); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
