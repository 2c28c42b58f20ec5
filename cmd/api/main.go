package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"beskar/editor/internal/app"
	"beskar/editor/internal/cache"
	"beskar/editor/internal/config"
	"beskar/editor/internal/history"
	"beskar/editor/internal/search"
	"beskar/editor/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, store.Migrations(cfg.MigrationsDir)); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	documents := store.NewSQLStore(db)
	opts := []app.Option{}

	fallback := search.NewStoreSearch(documents)
	var searchService *search.Service
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meili := search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meili.Close()
		searchService = search.NewService(meili, fallback)
	} else {
		log.Printf("Meilisearch not configured, searching the store")
		searchService = search.NewService(nil, fallback)
	}
	searchService.ReindexAll(ctx, documents)
	opts = append(opts, app.WithSearch(searchService))

	if strings.TrimSpace(cfg.RedisURL) != "" {
		snapshots, err := cache.NewRedisCache(cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer snapshots.Close()
		opts = append(opts, app.WithCache(snapshots))
	}

	if strings.TrimSpace(cfg.HistoryDir) != "" {
		if err := os.MkdirAll(cfg.HistoryDir, 0o755); err != nil {
			log.Fatalf("failed to create history dir: %v", err)
		}
		opts = append(opts, app.WithHistory(history.New(cfg.HistoryDir)))
	}

	service := app.New(cfg, documents, opts...)
	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Beskar editor API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
