package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"time"

	"adslot-market/internal/config"
	"adslot-market/internal/database"
	"adslot-market/internal/logger"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func main() {
	dir := flag.String("dir", "migrations", "directory holding *.sql migrations")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	// Connect to database
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		zlog.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		zlog.Fatal("failed to ping database", zap.Error(err))
	}

	applied, err := database.ApplySQLMigrations(ctx, db, *dir, zlog)
	if err != nil {
		zlog.Fatal("migration failed", zap.Strings("applied", applied), zap.Error(err))
	}

	zlog.Info("migrations complete", zap.Int("applied", len(applied)))
}
