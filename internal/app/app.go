// Package app assembles the registry's components from configuration. The
// HTTP server and the command line tool share it so both join the same
// change notification channel and database.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/patient-registry/internal/config"
	"github.com/jwalitptl/patient-registry/internal/repository/sqldb"
	"github.com/jwalitptl/patient-registry/internal/service/patient"
	"github.com/jwalitptl/patient-registry/internal/service/query"
	"github.com/jwalitptl/patient-registry/internal/session"
	"github.com/jwalitptl/patient-registry/pkg/messaging"
	"github.com/jwalitptl/patient-registry/pkg/messaging/file"
	"github.com/jwalitptl/patient-registry/pkg/messaging/memory"
	"github.com/jwalitptl/patient-registry/pkg/messaging/redis"
	"github.com/jwalitptl/patient-registry/pkg/metrics"
	"github.com/jwalitptl/patient-registry/pkg/notify"
)

type App struct {
	Config   *config.Config
	Metrics  *metrics.Metrics
	Session  *session.Provider
	Broker   messaging.Broker
	Hub      *notify.Hub
	Patients *patient.Service
	Queries  *query.Service
}

// NewBroker opens the transport named by cfg.Notifier.Transport.
func NewBroker(cfg *config.Config, logger *zerolog.Logger) (messaging.Broker, error) {
	switch cfg.Notifier.Transport {
	case "memory":
		return memory.NewBroker(), nil
	case "file":
		return file.NewBroker(cfg.Notifier.Dir, logger)
	case "redis":
		return redis.NewRedisBroker(cfg.Redis.ToBrokerConfig(), logger)
	default:
		return nil, fmt.Errorf("unsupported notifier transport %q", cfg.Notifier.Transport)
	}
}

// New wires every component and starts session initialization in the
// background. reg may be nil to leave metrics unregistered.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger, reg prometheus.Registerer) (*App, error) {
	m := metrics.NewMetrics(cfg.Monitoring.Namespace, reg)

	broker, err := NewBroker(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s notifier: %w", cfg.Notifier.Transport, err)
	}

	provider := session.NewProvider(cfg.Database, logger, m)
	provider.Start(ctx)

	hub := notify.New(broker, cfg.Notifier.Key, logger, m)

	patientRepo := sqldb.NewPatientRepository(provider, m)
	queryRepo := sqldb.NewQueryRepository(provider, m)

	return &App{
		Config:   cfg,
		Metrics:  m,
		Session:  provider,
		Broker:   broker,
		Hub:      hub,
		Patients: patient.NewService(patientRepo, hub, logger, m),
		Queries: query.NewService(queryRepo, query.Config{
			HistorySize: cfg.Query.HistorySize,
			Timeout:     cfg.Query.Timeout,
		}, logger, m),
	}, nil
}

func (a *App) Close() error {
	brokerErr := a.Broker.Close()
	if err := a.Session.Close(); err != nil {
		return err
	}
	return brokerErr
}
