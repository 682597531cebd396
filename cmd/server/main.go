package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/leadforge/leadforge/internal/api"
	"github.com/leadforge/leadforge/internal/config"
	"github.com/leadforge/leadforge/internal/delivery"
	"github.com/leadforge/leadforge/internal/pkg/logger"
	"github.com/leadforge/leadforge/internal/provider"
	"github.com/leadforge/leadforge/internal/repository/postgres"
	"github.com/leadforge/leadforge/internal/webhook"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	var dist *delivery.DistributionTracker
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Printf("[main] Redis unavailable, distribution tracking disabled: %v", err)
		} else {
			dist = delivery.NewDistributionTracker(redisClient)
			defer redisClient.Close()
		}
	}

	registry := provider.NewRegistry(cfg)
	if len(registry.Names()) == 0 {
		log.Printf("[main] WARNING: no email providers configured, all sends will fail")
	}

	store := postgres.NewDeliveryLogRepo(db)
	sender := delivery.NewService(registry, store, dist, cfg.Delivery)
	normalizer := webhook.NewNormalizer(store)

	handlers := api.NewHandlers(sender, store, dist)
	router := api.NewRouter(handlers, webhook.NewHandler(normalizer))

	addr := fmt.Sprintf("%s:%d", cfg.Server.GetHost(), cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("[main] Delivery engine listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Printf("[main] Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[main] Forced shutdown: %v", err)
	}
	log.Printf("[main] Server stopped")
}
