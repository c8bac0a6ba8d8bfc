package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"phishtrainer/internal/catalog"
	"phishtrainer/internal/config"
	"phishtrainer/internal/db"
	"phishtrainer/internal/leaderboard"
	"phishtrainer/internal/localstore"
	"phishtrainer/internal/sessions"
)

func Run() error {
	appCfg := config.Load()

	levels, err := loadLevels(appCfg)
	if err != nil {
		return fmt.Errorf("loading level catalog: %w", err)
	}
	log.Printf("[Catalog] Loaded %d levels\n", len(levels.List()))

	store, err := openStore(appCfg)
	if err != nil {
		return fmt.Errorf("opening attempt store: %w", err)
	}
	defer store.Close()

	board := leaderboard.NewRecorder(store)
	srv := &Server{
		Levels:   levels,
		Sessions: sessions.NewStore(newMetricsSaver(board)),
		Board:    board,
		TopLimit: appCfg.TopLimit,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /levels", srv.handleListLevels)
	mux.HandleFunc("POST /sessions", srv.handleStartSession)
	mux.HandleFunc("GET /session/{id}", srv.handleSnapshot)
	mux.HandleFunc("POST /session/{id}/click", srv.handleClick)
	mux.HandleFunc("POST /session/{id}/popup/{pid}", srv.handlePopup)
	mux.HandleFunc("POST /session/{id}/abandon", srv.handleAbandon)
	mux.HandleFunc("GET /session/{id}/events", srv.handleEvents)
	mux.HandleFunc("GET /session/{id}/ws", srv.handleSessionWS)
	mux.HandleFunc("GET /leaderboard/{level}", srv.handleLeaderboard)
	mux.HandleFunc("GET /attempts/{level}", srv.handlePriorAttempt)
	mux.HandleFunc("GET /health", srv.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	addr := "0.0.0.0:" + appCfg.Port
	fmt.Printf("Server listening on http://localhost:%s\n", appCfg.Port)
	return http.ListenAndServe(addr, mux)
}

func loadLevels(cfg config.Config) (*catalog.Set, error) {
	if cfg.LevelsDir != "" {
		return catalog.LoadDir(cfg.LevelsDir)
	}
	return catalog.Load()
}

// openStore prefers Postgres and falls back to the local SQLite file, so a
// standalone deployment still keeps scores.
func openStore(cfg config.Config) (leaderboard.Store, error) {
	if cfg.DatabaseURL != "" {
		database, err := db.Connect(cfg.DatabaseURL)
		if err == nil {
			if err := database.Migrate(); err != nil {
				return nil, err
			}
			return database, nil
		}
		log.Printf("[DB] Failed to connect: %v (falling back to SQLite)\n", err)
	} else {
		log.Println("[DB] DATABASE_URL not set, using local SQLite store")
	}

	local, err := localstore.New(cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	if err := local.EnsureSchema(context.Background()); err != nil {
		return nil, err
	}
	return local, nil
}
