package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/shiva/wayplan/config"
	"github.com/shiva/wayplan/internal/catalog"
	"github.com/shiva/wayplan/internal/handler"
	"github.com/shiva/wayplan/internal/middleware"
	"github.com/shiva/wayplan/internal/provider"
	"github.com/shiva/wayplan/internal/repository"
	"github.com/shiva/wayplan/internal/routing"
	"github.com/shiva/wayplan/internal/service"
	"github.com/shiva/wayplan/internal/weather"
	"github.com/shiva/wayplan/pkg/cache"
	"github.com/shiva/wayplan/pkg/db"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	// ── Load configuration ──────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx := context.Background()

	// ── Connect to PostgreSQL ───────────────────────────
	pgPool, err := db.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to PostgreSQL")
	}
	defer pgPool.Close()
	log.Info().Msg("PostgreSQL connected")

	// ── Connect to Redis ────────────────────────────────
	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer redisClient.Close()
	log.Info().Msg("Redis connected")

	// ── Initialize layers ───────────────────────────────
	store := repository.NewPGStore(pgPool)

	poiCatalog := catalog.NewCachedCatalog(
		catalog.NewMemoryCatalog(), redisClient, cfg.Planner.CatalogCacheTTL, log)
	estimator := routing.NewHaversineEstimator()
	weatherSource := weather.NewStaticSource()

	providers := provider.NewRegistry()
	providers.Register(provider.NewMockProvider("mock-activities", "activity"))
	providers.Register(provider.NewMockProvider("mock-hotels", "hotel"))

	tripSvc := service.NewTripService(store, log)
	generator := service.NewGenerator(store, poiCatalog, service.GeneratorOptions{
		BufferMinutes:            cfg.Planner.BufferMinutes,
		TravelPlaceholderMinutes: cfg.Planner.TravelPlaceholderMinutes,
	}, log)
	editor := service.NewEditor(store, poiCatalog, cfg.Planner.BufferMinutes, log)
	validator := service.NewValidator(store, poiCatalog)
	bookingSvc := service.NewBookingService(store, providers, cfg.Planner.ProviderTimeout, log)
	eventSvc := service.NewEventService(store, poiCatalog, log)
	replanSvc := service.NewReplanService(store, poiCatalog, estimator, cfg.Planner.RollbackWindow, log)

	tripHandler := handler.NewTripHandler(tripSvc, log)
	itineraryHandler := handler.NewItineraryHandler(store, generator, editor, validator, log)
	bookingHandler := handler.NewBookingHandler(bookingSvc, log)
	eventHandler := handler.NewEventHandler(eventSvc, store, log)
	replanHandler := handler.NewReplanHandler(replanSvc, log)
	catalogHandler := handler.NewCatalogHandler(poiCatalog, log)

	// ── Background weather monitor (opt-in) ─────────────
	monitorCtx, stopMonitor := context.WithCancel(ctx)
	defer stopMonitor()
	if cfg.Monitor.Enabled {
		monitor := service.NewMonitor(store, eventSvc, weatherSource, cfg.Monitor.Interval, log)
		go monitor.Run(monitorCtx)
	}

	// ── Setup router ────────────────────────────────────
	router := mux.NewRouter()
	router.Use(middleware.Recoverer(log))
	router.Use(middleware.RequestLogger(log))

	// Health check endpoint.
	router.HandleFunc("/health", healthHandler(pgPool, redisClient)).Methods(http.MethodGet)

	// API v1 routes.
	api := router.PathPrefix("/api/v1").Subrouter()

	// Trip lifecycle
	api.HandleFunc("/trips", tripHandler.CreateTrip).Methods(http.MethodPost)
	api.HandleFunc("/trips/{trip_id}", tripHandler.GetTrip).Methods(http.MethodGet)
	api.HandleFunc("/trips/{trip_id}", tripHandler.DeleteTrip).Methods(http.MethodDelete)
	api.HandleFunc("/trips/{trip_id}/preferences", tripHandler.GetPreferences).Methods(http.MethodGet)
	api.HandleFunc("/trips/{trip_id}/preferences", tripHandler.UpdatePreferences).Methods(http.MethodPut)
	api.HandleFunc("/trips/{trip_id}/status", tripHandler.UpdateStatus).Methods(http.MethodPatch)

	// Itinerary generation, reads, validation, versions
	api.HandleFunc("/trips/{trip_id}/itinerary", itineraryHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/trips/{trip_id}/itinerary/generate", itineraryHandler.Generate).Methods(http.MethodPost)
	api.HandleFunc("/trips/{trip_id}/itinerary/validate", itineraryHandler.Validate).Methods(http.MethodPost)
	api.HandleFunc("/trips/{trip_id}/itinerary/reorder", itineraryHandler.Reorder).Methods(http.MethodPost)
	api.HandleFunc("/trips/{trip_id}/itinerary/versions", itineraryHandler.ListVersions).Methods(http.MethodGet)
	api.HandleFunc("/trips/{trip_id}/itinerary/versions/{version}", itineraryHandler.GetVersion).Methods(http.MethodGet)

	// Item edits
	api.HandleFunc("/trips/{trip_id}/items", itineraryHandler.AddItem).Methods(http.MethodPost)
	api.HandleFunc("/trips/{trip_id}/items/{item_id}", itineraryHandler.RemoveItem).Methods(http.MethodDelete)
	api.HandleFunc("/trips/{trip_id}/items/{item_id}/pin", itineraryHandler.TogglePin).Methods(http.MethodPost)
	api.HandleFunc("/trips/{trip_id}/items/{item_id}/start-time", itineraryHandler.SetStartTime).Methods(http.MethodPost)

	// Bookings
	api.HandleFunc("/trips/{trip_id}/bookings", bookingHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/trips/{trip_id}/bookings", bookingHandler.ListForTrip).Methods(http.MethodGet)
	api.HandleFunc("/bookings/{booking_id}", bookingHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/bookings/{booking_id}/history", bookingHandler.History).Methods(http.MethodGet)
	api.HandleFunc("/bookings/{booking_id}/retry", bookingHandler.Retry).Methods(http.MethodPost)
	api.HandleFunc("/bookings/{booking_id}/cancel", bookingHandler.Cancel).Methods(http.MethodPost)
	api.HandleFunc("/bookings/{booking_id}/alternatives", bookingHandler.Alternatives).Methods(http.MethodGet)
	api.HandleFunc("/webhooks/{provider_id}", bookingHandler.Webhook).Methods(http.MethodPost)

	// Events and replanning
	api.HandleFunc("/trips/{trip_id}/events", eventHandler.Ingest).Methods(http.MethodPost)
	api.HandleFunc("/trips/{trip_id}/triggers", eventHandler.ListTriggers).Methods(http.MethodGet)
	api.HandleFunc("/triggers/{trigger_id}/proposals", replanHandler.Propose).Methods(http.MethodPost)
	api.HandleFunc("/proposals/{proposal_id}/apply", replanHandler.Apply).Methods(http.MethodPost)
	api.HandleFunc("/applications/{application_id}/rollback", replanHandler.Rollback).Methods(http.MethodPost)

	// POI catalog
	api.HandleFunc("/pois", catalogHandler.Search).Methods(http.MethodGet)
	api.HandleFunc("/pois/{poi_id}", catalogHandler.GetPOI).Methods(http.MethodGet)

	// ── Start HTTP server ───────────────────────────────
	srv := &http.Server{
		Addr:         cfg.Server.ServerAddr(),
		Handler:      middleware.CORS(router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in a goroutine so we can listen for shutdown signals.
	go func() {
		log.Info().Str("addr", cfg.Server.ServerAddr()).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// ── Graceful shutdown ───────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")
	stopMonitor()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// HealthResponse represents the /health endpoint response.
type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

// healthHandler returns an HTTP handler that checks PG and Redis connectivity.
func healthHandler(pgPool *pgxpool.Pool, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status:   "ok",
			Services: make(map[string]string),
		}

		if err := db.HealthCheck(r.Context(), pgPool); err != nil {
			resp.Status = "degraded"
			resp.Services["postgres"] = "unhealthy: " + err.Error()
		} else {
			resp.Services["postgres"] = "healthy"
		}

		if err := cache.HealthCheck(r.Context(), redisClient); err != nil {
			resp.Status = "degraded"
			resp.Services["redis"] = "unhealthy: " + err.Error()
		} else {
			resp.Services["redis"] = "healthy"
		}

		w.Header().Set("Content-Type", "application/json")
		if resp.Status != "ok" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(resp)
	}
}
