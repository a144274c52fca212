package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memory-match/internal/config"
	"github.com/robalobadob/memory-match/internal/database"
	"github.com/robalobadob/memory-match/internal/deck"
	"github.com/robalobadob/memory-match/internal/httpserver"
	"github.com/robalobadob/memory-match/internal/kv"
	"github.com/robalobadob/memory-match/internal/ledger"
	"github.com/robalobadob/memory-match/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	setupLogging(cfg)

	if err := deck.Init(); err != nil {
		log.Fatal().Err(err).Msg("failed to load symbol alphabet")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.OpenAndMigrate(ctx, cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	defer db.Close()

	book := ledger.NewBook(scoreStore(cfg, db))
	sessions := store.NewMemoryStore()
	defer sessions.Close()

	srv := httpserver.New(cfg, sessions, db, book)
	go srv.RunJanitor(ctx, time.Minute)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("shutdown")
		}
	}()

	log.Info().Int("port", cfg.Port).Str("scores", cfg.StorageBackend).Msg("starting memory-match server")
	if err := srv.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}

func setupLogging(cfg *config.Config) {
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

// scoreStore picks where best-score ledgers are persisted.
func scoreStore(cfg *config.Config, db *sql.DB) ledger.Store {
	switch cfg.StorageBackend {
	case "memory":
		return kv.NewMemory()
	case "file":
		return kv.NewFile(cfg.DataDir)
	default:
		return kv.NewSQLite(db)
	}
}
