package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tracksync/cache"
	"tracksync/config"
	"tracksync/core/feed"
	"tracksync/db"
	"tracksync/logger"
	"tracksync/model"
	"tracksync/repository"

	"github.com/gorilla/mux"
)

// NewRouter wires the tracker API routes. hub may be nil, in which case the
// change feed is not served.
func NewRouter(h *TrackerHandler, hub *feed.Hub) http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/health", Health).Methods(http.MethodGet)
	// registered before /trackers/{id} so "events" is not taken for an id
	if hub != nil {
		router.HandleFunc("/trackers/events", FeedHandler(hub)).Methods(http.MethodGet)
	}
	router.HandleFunc("/trackers", h.ListTrackers).Methods(http.MethodGet)
	router.HandleFunc("/trackers", h.CreateTracker).Methods(http.MethodPost)
	router.HandleFunc("/trackers/{id}", h.GetTracker).Methods(http.MethodGet)
	router.HandleFunc("/trackers/{id}", h.UpdateTracker).Methods(http.MethodPut)
	router.HandleFunc("/trackers/{id}", h.DeleteTracker).Methods(http.MethodDelete)

	// CORS wraps the router so preflight requests never reach method matching
	return corsMiddleware(requestIDMiddleware(loggingMiddleware(router)))
}

// Start connects storage, serves the tracker API on cfg.ListenAddr and
// blocks until SIGINT or SIGTERM.
func Start(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	gdb, err := db.ConnectGormDB(cfg)
	if err != nil {
		return err
	}
	defer db.CloseGormDB()

	if err := db.AutoMigrateModels(gdb, &model.Tracker{}); err != nil {
		return err
	}

	var listCache ListCache
	if cfg.RedisEnabled {
		rdb, err := db.ConnectRedis(cfg)
		if err != nil {
			return err
		}
		defer db.CloseRedis()
		listCache = cache.NewTrackerCache(rdb, cfg.CacheTTL)
		logger.Info("tracker list cache enabled",
			logger.String("addr", cfg.RedisAddr()),
			logger.Duration("ttl", cfg.CacheTTL))
	}

	hub := feed.NewHub()
	go hub.Run()
	defer hub.Stop()

	handler := NewTrackerHandler(repository.NewGormTrackerRepository(gdb), listCache, hub)

	srv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      NewRouter(handler, hub),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("tracker API listening", logger.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-stop:
	}

	logger.Info("shutting down tracker API")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("tracker API stopped")
	return nil
}
