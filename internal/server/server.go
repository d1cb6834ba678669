/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"gorm.io/gorm"

	"github.com/friendsincode/skald/internal/api"
	"github.com/friendsincode/skald/internal/audit"
	"github.com/friendsincode/skald/internal/auth"
	"github.com/friendsincode/skald/internal/cache"
	"github.com/friendsincode/skald/internal/config"
	"github.com/friendsincode/skald/internal/db"
	"github.com/friendsincode/skald/internal/eventbus"
	"github.com/friendsincode/skald/internal/events"
	"github.com/friendsincode/skald/internal/liquidsoap"
	"github.com/friendsincode/skald/internal/logbuffer"
	"github.com/friendsincode/skald/internal/models"
	"github.com/friendsincode/skald/internal/station"
	"github.com/friendsincode/skald/internal/storage"
	"github.com/friendsincode/skald/internal/telemetry"
)

// Server bundles HTTP and supporting services.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
	closers    []func() error

	db          *gorm.DB
	store       *station.Store
	writer      *liquidsoap.Writer
	controller  *liquidsoap.Controller
	archive     *storage.ConfigArchive
	bus         eventbus.Bus
	entityCache *cache.Cache
	audit       *audit.Service
	api         *api.API
	logBuffer   *logbuffer.Buffer
}

// New constructs the server and wires dependencies. logBuf may be nil
// when log capture is not wanted.
func New(cfg *config.Config, logBuf *logbuffer.Buffer, logger zerolog.Logger) (*Server, error) {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(telemetry.MetricsMiddleware)
	router.Use(middleware.Timeout(60 * time.Second))

	srv := &Server{
		cfg:       cfg,
		logger:    logger,
		router:    router,
		logBuffer: logBuf,
	}

	if err := srv.initDependencies(); err != nil {
		return nil, err
	}

	srv.configureRoutes()

	addr := fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort)
	srv.httpServer = &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(srv.router, "skald-http"),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return srv, nil
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only advertise HSTS for requests served over HTTPS.
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) initDependencies() error {
	database, err := db.Connect(s.cfg)
	if err != nil {
		return err
	}
	if err := db.Migrate(database); err != nil {
		return err
	}
	s.db = database
	s.DeferClose(func() error { return db.Close(database) })

	if err := os.MkdirAll(s.cfg.StationsDir, 0o755); err != nil {
		return fmt.Errorf("create stations directory %s: %w", s.cfg.StationsDir, err)
	}

	s.store = station.NewStore(database, s.logger)

	if s.cfg.CacheEnabled {
		cacheCfg := cache.DefaultConfig()
		cacheCfg.RedisAddr = s.cfg.RedisAddr
		cacheCfg.RedisPassword = s.cfg.RedisPassword
		cacheCfg.RedisDB = s.cfg.RedisDB
		entityCache, err := cache.New(cacheCfg, s.logger)
		if err != nil {
			return fmt.Errorf("init cache: %w", err)
		}
		s.entityCache = entityCache
		s.store.WithCache(entityCache)
		s.DeferClose(entityCache.Close)
	}

	s.writer = liquidsoap.NewWriter(s.store, liquidsoap.Config{
		StationsDir:         s.cfg.StationsDir,
		APIBaseURL:          s.cfg.APIBaseURL,
		BroadcastHost:       s.cfg.BroadcastHost,
		BaselineOffsetHours: s.cfg.ScheduleBaselineOffset,
	}, s.logger)

	client := liquidsoap.NewControlClient(s.cfg.ControlTimeout, s.logger)
	s.controller = liquidsoap.NewController(client, s.cfg.ControlHost)

	nodeID := s.cfg.InstanceID
	if nodeID == "" {
		host, _ := os.Hostname()
		nodeID = host + "-" + uuid.NewString()[:8]
	}

	switch s.cfg.EventBus {
	case config.EventBusRedis:
		bus := eventbus.NewRedisBus(eventbus.RedisConfig{
			Addr:     s.cfg.RedisAddr,
			Password: s.cfg.RedisPassword,
			DB:       s.cfg.RedisDB,
		}, nodeID, s.logger)
		s.bus = bus
	case config.EventBusNATS:
		bus, err := eventbus.NewNATSBus(s.cfg.NATSURL, nodeID, s.logger)
		if err != nil {
			return fmt.Errorf("init nats event bus: %w", err)
		}
		s.bus = bus
	default:
		s.bus = eventbus.NewMemoryBus()
	}
	s.DeferClose(func() error { return s.bus.Close() })

	bgCtx, bgCancel := context.WithCancel(context.Background())
	s.DeferClose(func() error { bgCancel(); return nil })

	if s.cfg.AuditEnabled {
		s.audit = audit.NewService(database, s.bus, s.logger)
		go s.audit.Start(bgCtx)
	}

	if s.entityCache != nil {
		go s.runCacheInvalidation(bgCtx)
	}

	if s.cfg.S3Bucket != "" {
		store, err := storage.NewS3Store(context.Background(), storage.S3Config{
			Bucket:       s.cfg.S3Bucket,
			Region:       s.cfg.S3Region,
			Endpoint:     s.cfg.S3Endpoint,
			AccessKey:    s.cfg.S3AccessKeyID,
			SecretKey:    s.cfg.S3SecretAccessKey,
			UsePathStyle: s.cfg.S3UsePathStyle,
		})
		if err != nil {
			return fmt.Errorf("init config archive: %w", err)
		}
		s.archive = storage.NewConfigArchive(store, s.logger)
		s.logger.Info().Str("bucket", s.cfg.S3Bucket).Msg("config archive enabled")
	}

	s.api = api.New(s.store, s.writer, s.controller, s.archive, s.bus, []byte(s.cfg.JWTSigningKey), s.logger)

	return nil
}

// runCacheInvalidation drops cached station data when entity-change
// events arrive, including events published by other nodes.
func (s *Server) runCacheInvalidation(ctx context.Context) {
	types := []events.EventType{
		events.EventStationUpdated,
		events.EventStationDeleted,
		events.EventPlaylistUpdated,
		events.EventMountUpdated,
		events.EventRemoteUpdated,
	}

	subs := make([]events.Subscriber, len(types))
	for i, eventType := range types {
		subs[i] = s.bus.Subscribe(eventType)
	}
	defer func() {
		for i, eventType := range types {
			s.bus.Unsubscribe(eventType, subs[i])
		}
	}()

	for {
		var payload events.Payload
		select {
		case <-ctx.Done():
			return
		case payload = <-subs[0]:
		case payload = <-subs[1]:
		case payload = <-subs[2]:
		case payload = <-subs[3]:
		case payload = <-subs[4]:
		}

		id, ok := payloadStationID(payload)
		if !ok {
			continue
		}
		if err := s.entityCache.InvalidateStation(ctx, id); err != nil {
			s.logger.Debug().Err(err).Uint("station_id", id).Msg("cache invalidation failed")
		}
	}
}

// payloadStationID reads the station reference from an event payload.
// Events delivered over Redis or NATS carry numbers as float64.
func payloadStationID(payload events.Payload) (uint, bool) {
	switch v := payload["station_id"].(type) {
	case uint:
		return v, true
	case int:
		return uint(v), true
	case float64:
		return uint(v), true
	}
	return 0, false
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	s.router.Handle("/metrics", telemetry.Handler())

	if s.logBuffer != nil {
		s.router.Route("/api/v1/logs", func(r chi.Router) {
			r.Use(auth.Middleware([]byte(s.cfg.JWTSigningKey)))
			r.Get("/", s.handleLogs)
		})
	}

	if s.audit != nil {
		s.router.Route("/api/v1/audit", func(r chi.Router) {
			r.Use(auth.Middleware([]byte(s.cfg.JWTSigningKey)))
			r.Get("/", s.handleAudit)
		})
	}

	s.api.Routes(s.router)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	q := logbuffer.Query{
		Level:     r.URL.Query().Get("level"),
		Component: r.URL.Query().Get("component"),
		Limit:     100,
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil && n > 0 {
			q.Limit = n
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(s.logBuffer.Entries(q))
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	filters := audit.QueryFilters{Limit: 100}

	if raw := r.URL.Query().Get("station_id"); raw != "" {
		if n, err := strconv.ParseUint(raw, 10, 32); err == nil {
			id := uint(n)
			filters.StationID = &id
		}
	}
	if raw := r.URL.Query().Get("action"); raw != "" {
		action := models.AuditAction(raw)
		filters.Action = &action
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			filters.Limit = n
		}
	}

	logs, total, err := s.audit.Query(r.Context(), filters)
	if err != nil {
		s.logger.Error().Err(err).Msg("audit query failed")
		http.Error(w, `{"error":"audit query failed"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"total":   total,
		"entries": logs,
	})
}

// Router exposes the chi router, mainly for tests.
func (s *Server) Router() chi.Router {
	return s.router
}

// Run serves HTTP until ctx is cancelled, then drains connections.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}
