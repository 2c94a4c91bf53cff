package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/patient-registry/internal/app"
	"github.com/jwalitptl/patient-registry/internal/config"
	"github.com/jwalitptl/patient-registry/internal/handler"
	"github.com/jwalitptl/patient-registry/internal/handler/changes"
	"github.com/jwalitptl/patient-registry/internal/handler/patient"
	"github.com/jwalitptl/patient-registry/internal/handler/query"
	"github.com/jwalitptl/patient-registry/internal/middleware"
	"github.com/jwalitptl/patient-registry/internal/router"
	"github.com/jwalitptl/patient-registry/pkg/logger"
)

func main() {
	configFile := flag.String("config", "", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logg := logger.NewLogger(&logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
	})
	logg.SetGlobal()
	zl := logg.Zerolog()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	var registerer prometheus.Registerer
	if cfg.Monitoring.PrometheusEnabled {
		registerer = registry
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Session initialization runs in the background; requests get 503
	// until it finishes.
	a, err := app.New(ctx, cfg, zl, registerer)
	if err != nil {
		logg.Fatal(err, "failed to initialize application")
	}
	defer a.Close()

	// The server's own roster follows writes from every other context.
	instance := uuid.New().String()
	stopListening, err := a.Patients.Listen(instance)
	if err != nil {
		logg.Fatal(err, "failed to subscribe to change notifications")
	}
	defer stopListening()

	routerCfg := router.RouterConfig{
		Mode: cfg.Server.Mode,
		CORSConfig: middleware.CORSConfig{
			AllowOrigins:  cfg.CORS.AllowedOrigins,
			AllowMethods:  cfg.CORS.AllowedMethods,
			AllowHeaders:  cfg.CORS.AllowedHeaders,
			ExposeHeaders: middleware.DefaultCORSConfig().ExposeHeaders,
			MaxAge:        middleware.DefaultCORSConfig().MaxAge,
		},
		MaxBodyBytes:  cfg.Server.MaxBodyBytes,
		MetricsPrefix: cfg.Monitoring.Namespace + "_http",
		Registerer:    registerer,
	}
	if cfg.RateLimit.Enabled {
		routerCfg.RateLimit = &middleware.RateLimiterConfig{
			Rate:  rate.Limit(cfg.RateLimit.RequestsPerSecond),
			Burst: cfg.RateLimit.Burst,
		}
	}

	r := router.NewRouter(a.Session, router.Handlers{
		Health:   handler.NewHandler(a.Session, registry),
		Patients: patient.NewHandler(a.Patients),
		Query:    query.NewHandler(a.Queries),
		Changes:  changes.NewHandler(a.Hub, 0),
	}, routerCfg)
	r.Setup()

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		// Change streams end with the process instead of holding up Shutdown.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	// Start server
	go func() {
		logg.Info("starting server", "addr", srv.Addr, "instance", instance)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(err, "failed to start server")
			stop()
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()
	logg.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error(err, "server forced to shutdown")
		os.Exit(1)
	}

	logg.Info("server exited properly")
}
