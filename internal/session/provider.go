// Package session owns the single database connection of an execution
// context. The connection is opened and the schema applied once, in the
// background; consumers ask for it through DB and get an error until it is
// ready. A failed initialization is final for the life of the process.
package session

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/patient-registry/internal/config"
	"github.com/jwalitptl/patient-registry/internal/repository/sqldb"
	"github.com/jwalitptl/patient-registry/pkg/errors"
	"github.com/jwalitptl/patient-registry/pkg/metrics"
)

var (
	// ErrNotReady is returned by DB while initialization is still running.
	ErrNotReady = errors.NewUnavailable("initializing database", nil)
	// ErrInitFailed wraps the cause of a failed initialization.
	ErrInitFailed = stderrors.New("database initialization failed")
)

// State is a snapshot of the session as seen by consumers.
type State struct {
	Ready bool   `json:"ready"`
	Error string `json:"error,omitempty"`
}

// OpenFunc opens the connection and prepares the schema.
type OpenFunc func(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error)

// Open is the default OpenFunc.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqldb.NewDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := sqldb.ApplySchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

type Provider struct {
	cfg     config.DatabaseConfig
	open    OpenFunc
	logger  *zerolog.Logger
	metrics *metrics.Metrics

	once sync.Once
	done chan struct{}

	mu  sync.RWMutex
	db  *sqlx.DB
	err error
}

func NewProvider(cfg config.DatabaseConfig, logger *zerolog.Logger, m *metrics.Metrics) *Provider {
	return NewProviderWithOpener(cfg, Open, logger, m)
}

// NewProviderWithOpener is NewProvider with a custom way of opening the
// database.
func NewProviderWithOpener(cfg config.DatabaseConfig, open OpenFunc, logger *zerolog.Logger, m *metrics.Metrics) *Provider {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Provider{
		cfg:     cfg,
		open:    open,
		logger:  logger,
		metrics: m,
		done:    make(chan struct{}),
	}
}

// Start begins initialization in the background. Only the first call has
// any effect. Cancelling ctx aborts an initialization still in progress,
// which counts as a failure.
func (p *Provider) Start(ctx context.Context) {
	p.once.Do(func() {
		go p.initialize(ctx)
	})
}

func (p *Provider) initialize(ctx context.Context) {
	defer close(p.done)

	start := time.Now()
	p.logger.Info().Str("driver", p.cfg.Driver).Msg("initializing database")

	db, err := p.open(ctx, p.cfg)

	p.mu.Lock()
	if err != nil {
		p.err = fmt.Errorf("%w: %v", ErrInitFailed, err)
	} else {
		p.db = db
	}
	p.mu.Unlock()

	if err != nil {
		p.logger.Error().Err(err).Msg("failed to initialize database")
		return
	}

	if p.metrics != nil {
		p.metrics.SessionReady.Set(1)
	}
	p.logger.Info().Dur("elapsed", time.Since(start)).Msg("database ready")
}

// Wait blocks until initialization has finished, successfully or not, or
// until ctx is done.
func (p *Provider) Wait(ctx context.Context) error {
	select {
	case <-p.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.err
}

// Done is closed once initialization has finished.
func (p *Provider) Done() <-chan struct{} {
	return p.done
}

func (p *Provider) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	state := State{Ready: p.db != nil}
	if p.err != nil {
		state.Error = p.err.Error()
	}
	return state
}

// DB returns the shared connection. It fails with ErrNotReady until
// initialization completes and with an Unavailable error wrapping
// ErrInitFailed if it did not.
func (p *Provider) DB() (*sqlx.DB, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	switch {
	case p.err != nil:
		return nil, errors.NewUnavailable(p.err.Error(), p.err)
	case p.db == nil:
		return nil, ErrNotReady
	}
	return p.db, nil
}

// Close releases the connection. It waits for a running initialization so
// a connection opened late is not leaked.
func (p *Provider) Close() error {
	p.once.Do(func() { close(p.done) })
	<-p.done

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.metrics != nil {
		p.metrics.SessionReady.Set(0)
	}
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	if p.err == nil {
		p.err = stderrors.New("database session closed")
	}
	return err
}
