package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isdelr/notes-be/internal/api"
	"github.com/isdelr/notes-be/internal/auth"
	"github.com/isdelr/notes-be/internal/config"
	"github.com/isdelr/notes-be/internal/database"
	"github.com/isdelr/notes-be/internal/database/sqlite"
	"github.com/isdelr/notes-be/internal/database/surreal"
	"github.com/isdelr/notes-be/internal/logger"
	"github.com/isdelr/notes-be/internal/monitoring"
	"github.com/isdelr/notes-be/internal/services"
	"github.com/isdelr/notes-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

const (
	connectTimeout  = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger.Init(cfg.LogLevel, !cfg.IsProduction())

	// Set up the store. A failed first connection is not fatal; the health
	// monitor keeps retrying and requests fail until it succeeds.
	store := database.NewManager(cfg.StoreDriver, connector(cfg))
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	if err := store.Open(ctx); err != nil {
		log.Error().Err(err).Str("driver", cfg.StoreDriver).Msg("Store connection failed, continuing without it")
	} else {
		log.Info().Str("driver", cfg.StoreDriver).Msg("Connected to store")
	}
	cancel()

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// Set up services
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	userService := services.NewUserService(store, tokens)
	noteService := services.NewNoteService(store, hub)

	// Set up and run the store health monitor
	monitor, err := monitoring.NewHealthMonitor(store, cfg.HealthCheckSchedule)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up health monitor")
	}
	monitor.Start()

	// Set up router
	router := api.NewRouter(api.Deps{
		Users:         userService,
		Notes:         noteService,
		Tokens:        tokens,
		Hub:           hub,
		Store:         store,
		CORSOrigins:   cfg.CORSOrigins,
		SecureCookies: cfg.IsProduction(),
	})

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ListenPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ListenPort).Msg("Server starting")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	monitor.Stop()
	hub.Stop()

	ctx, cancel = context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := store.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close store")
	}

	log.Info().Msg("Server exiting")
}

// connector dials the backend selected by cfg.StoreDriver.
func connector(cfg *config.Config) database.Connector {
	if cfg.StoreDriver == config.DriverSurreal {
		opts := surreal.Options{
			URL:       cfg.Store.URL(),
			Namespace: cfg.Store.Namespace,
			Database:  cfg.Store.DBName,
			Username:  cfg.Store.User,
			Password:  cfg.Store.Password,
		}
		return func(ctx context.Context) (database.Gateway, error) {
			s, err := surreal.New(ctx, opts)
			if err != nil {
				return nil, err
			}
			return s, nil
		}
	}
	return func(ctx context.Context) (database.Gateway, error) {
		s, err := sqlite.New(ctx, cfg.DatabasePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}
