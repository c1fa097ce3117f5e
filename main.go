package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/saolinek/kaloricka-kalkulacka/internal/config"
	"github.com/saolinek/kaloricka-kalkulacka/internal/database"
	"github.com/saolinek/kaloricka-kalkulacka/internal/repository"
	"github.com/saolinek/kaloricka-kalkulacka/internal/server"
	"github.com/saolinek/kaloricka-kalkulacka/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})))

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		slog.Error("opening database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		slog.Error("running migrations", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	stateRepo := repository.NewStateRepository(db)
	tracker, err := services.NewTrackerService(ctx, stateRepo, time.Now)
	if err != nil {
		slog.Error("creating tracker", "error", err)
		os.Exit(1)
	}
	tracker.ReconcileDay(ctx)

	userRepo := repository.NewUserRepository(db)
	authService, err := services.NewAuthService(ctx, cfg, userRepo)
	if err != nil {
		slog.Error("creating auth service", "error", err)
		os.Exit(1)
	}

	srv := server.New(cfg, tracker, authService)
	if err := srv.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
