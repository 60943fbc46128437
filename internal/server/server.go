// Package server wires the attack log components together and runs the
// HTTP listener.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/attacklog/attacklog/internal/analytics"
	"github.com/attacklog/attacklog/internal/api/rest"
	"github.com/attacklog/attacklog/internal/api/websocket"
	"github.com/attacklog/attacklog/internal/audit"
	"github.com/attacklog/attacklog/internal/config"
	"github.com/attacklog/attacklog/internal/db"
	"github.com/attacklog/attacklog/internal/metrics"
	"github.com/attacklog/attacklog/internal/store"
)

// Server owns every component of the attack log service.
type Server struct {
	configMgr config.Manager
	cfg       *config.Config

	auditLogger audit.Logger
	logger      *zap.Logger

	database db.Store
	store    *store.Store
	engine   *analytics.Engine

	hub         *websocket.Hub
	wsHandler   *websocket.Handler
	restHandler *rest.Handler

	httpServer *http.Server

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	running bool
}

// NewServer builds a server from loaded configuration, opening the
// database and replaying the persisted snapshot into memory.
func NewServer(mgr config.Manager) (*Server, error) {
	if mgr == nil {
		return nil, fmt.Errorf("config manager cannot be nil")
	}

	ctx, cancel := context.WithCancel(context.Background())

	srv := &Server{
		configMgr: mgr,
		cfg:       mgr.Get(ctx),
		ctx:       ctx,
		cancel:    cancel,
	}

	if err := srv.initializeComponents(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize components: %w", err)
	}

	return srv, nil
}

func (s *Server) initializeComponents() error {
	// 1. Logging and audit trail
	auditLogger, err := audit.NewLogger(&audit.Config{
		AppLogPath:   s.cfg.Logging.AppLogPath,
		AuditLogPath: s.cfg.Logging.AuditLogPath,
		MaxSize:      s.cfg.Logging.MaxSizeMB,
		MaxBackups:   s.cfg.Logging.MaxBackups,
		MaxAge:       s.cfg.Logging.MaxAgeDays,
		Compress:     s.cfg.Logging.Compress,
		LogLevel:     s.cfg.Logging.Level,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize audit logger: %w", err)
	}
	s.auditLogger = auditLogger
	s.logger = auditLogger.App()

	// 2. Persistence
	database, err := db.NewSQLiteStore(s.cfg.Database.Path, s.logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	s.database = database

	// 3. In-memory state, replayed from the last snapshot
	s.store = store.New()
	snap, err := s.database.LoadSnapshot(s.ctx)
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}
	if err := s.store.Load(snap); err != nil {
		var inconsistency *store.DataInconsistencyError
		if !errors.As(err, &inconsistency) {
			return fmt.Errorf("failed to restore state: %w", err)
		}
		// Multiple active attacks in the snapshot: the store already
		// demoted the extras, keep going but leave a trail.
		metrics.DataInconsistencies.Inc()
		s.logger.Warn("snapshot contained multiple active attacks",
			zap.Int("demoted", inconsistency.ExtraActive))
		s.auditLogger.LogDataInconsistency(s.ctx, inconsistency)
	}

	// 4. Analytics
	s.engine = analytics.NewEngine()

	// 5. WebSocket fan-out
	s.hub = websocket.NewHub(s.ctx)
	s.wsHandler = websocket.NewHandler(s.ctx, s.hub, s.cfg.Server.AllowedOrigins, s.logger)

	return nil
}

// Start begins serving HTTP and watching the config file. It returns
// once the listener goroutine is running.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.hub.Run()
	}()

	s.restHandler = rest.NewHandler(s.store, s.database, s.engine, s.hub, s.auditLogger, s.logger,
		rest.AnalyticsDefaults{
			FrequencyWindowDays: s.cfg.Analytics.FrequencyWindowDays,
			HeatmapWindowDays:   s.cfg.Analytics.HeatmapWindowDays,
			TopTagsLimit:        s.cfg.Analytics.TopTagsLimit,
		})

	router := mux.NewRouter()
	router.Use(rest.RequestIDMiddleware)
	router.Use(rest.LoggingMiddleware(s.logger))
	router.Use(rest.MetricsMiddleware)

	rest.SetupRoutes(router, s.restHandler)
	router.HandleFunc("/ws/changes", s.wsHandler.ServeWS).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   s.cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	})

	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      corsHandler.Handler(router),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Info("http server listening", zap.String("addr", addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", zap.Error(err))
		}
	}()

	s.watchConfig()

	s.auditLogger.Log(s.ctx, audit.NewEvent(audit.EventServerStarted).
		WithDescription("server started").
		WithMetadata("addr", addr))
	s.logger.Info("attacklog server started",
		zap.String("database", s.cfg.Database.Path),
		zap.Strings("allowed_origins", s.cfg.Server.AllowedOrigins))

	return nil
}

// watchConfig applies the analytics windows when the config file
// changes. Listener address, database path, and logging require a
// restart.
func (s *Server) watchConfig() {
	updates := s.configMgr.Watch(s.ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-s.ctx.Done():
				return
			case cfg, ok := <-updates:
				if !ok {
					return
				}
				s.mu.Lock()
				s.cfg.Analytics = cfg.Analytics
				s.mu.Unlock()
				s.restHandler.UpdateAnalyticsDefaults(rest.AnalyticsDefaults{
					FrequencyWindowDays: cfg.Analytics.FrequencyWindowDays,
					HeatmapWindowDays:   cfg.Analytics.HeatmapWindowDays,
					TopTagsLimit:        cfg.Analytics.TopTagsLimit,
				})
				s.logger.Info("configuration reloaded",
					zap.Int("frequency_window_days", cfg.Analytics.FrequencyWindowDays),
					zap.Int("heatmap_window_days", cfg.Analytics.HeatmapWindowDays),
					zap.Int("top_tags_limit", cfg.Analytics.TopTagsLimit))
			}
		}
	}()
}

// Stop gracefully stops the server, flushing the audit trail and
// closing the database.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return fmt.Errorf("server is not running")
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("stopping attacklog server")

	if s.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error shutting down http server", zap.Error(err))
		}
	}

	s.hub.Stop()

	s.auditLogger.Log(context.Background(), audit.NewEvent(audit.EventServerShutdown).
		WithDescription("server stopped"))

	s.cancel()
	s.wg.Wait()

	if err := s.database.Close(); err != nil {
		s.logger.Error("error closing database", zap.Error(err))
	}
	if err := s.auditLogger.Close(); err != nil {
		return err
	}
	return nil
}

// Wait blocks until the server is stopped.
func (s *Server) Wait() {
	<-s.ctx.Done()
}

// IsRunning reports whether Start has been called without a matching Stop.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}
