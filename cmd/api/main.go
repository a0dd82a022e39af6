package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	server "wanderbook/internal/adapters/http_server"
	"wanderbook/internal/adapters/identity"
	"wanderbook/internal/adapters/observability"
	"wanderbook/internal/app"
	"wanderbook/internal/bootstrap"
	"wanderbook/internal/catalog"
	"wanderbook/internal/shared"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("tracing setup failed")
	}

	// deps
	backend, err := bootstrap.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("store setup failed")
	}
	provider := bootstrap.Provider(cfg)
	publisher, closePublisher := bootstrap.Publisher(cfg)

	hotels := app.NewHotelService(provider, backend.Cache, catalog.MustLoad(), cfg.SearchTTL, cfg.DetailTTL)
	ids := app.NewIdentityService(backend.Store, backend.Store, identity.New(cfg.IdentitySessionURL), cfg.SessionTTL)
	payments := app.NewPaymentService(backend.Store, backend.Store, backend.Store, bootstrap.Checkout(cfg), publisher)
	bookings := app.NewBookingService(backend.Store, hotels, ids, cfg.GuestBookings)

	// http
	srv := server.New(server.Options{CORSOrigins: cfg.CORSOrigins})
	reg := observability.InitRegistry()
	metricsSrv := observability.Serve(cfg.MetricsAddr, reg)
	if metricsSrv == nil {
		srv.Mount("/metrics", observability.MetricsHandler(reg))
	}
	srv.MountHandlers(&server.Handlers{
		Hotels:   hotels,
		Bookings: bookings,
		Payments: payments,
		Identity: ids,
		Status: func() app.StatusReport {
			return app.BuildStatus(provider, payments, cfg.GuestBookings)
		},
		Ready:         backend.Ready,
		SessionTTL:    cfg.SessionTTL,
		SecureCookies: cfg.SecureCookies,
	})

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("payments", payments.Backend()).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	if err := closePublisher(); err != nil {
		log.Warn().Err(err).Msg("publisher close failed")
	}
	backend.Close(shutdownCtx)
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("tracing shutdown failed")
	}
}
