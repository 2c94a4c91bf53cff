package sqldb

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/patient-registry/internal/repository"
	"github.com/jwalitptl/patient-registry/pkg/metrics"
)

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	conn    repository.DBProvider
	metrics *metrics.Metrics
}

// NewBaseRepository creates a new base repository
func NewBaseRepository(conn repository.DBProvider, m *metrics.Metrics) BaseRepository {
	return BaseRepository{conn: conn, metrics: m}
}

// GetDB returns the shared connection, or the provider's error while it is
// not usable.
func (r *BaseRepository) GetDB() (*sqlx.DB, error) {
	return r.conn.DB()
}

// WithTx executes a function within a transaction
func (r *BaseRepository) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	db, err := r.GetDB()
	if err != nil {
		return err
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// observe is deferred with a pointer to the caller's named error result.
func (r *BaseRepository) observe(operation string, start time.Time, err *error) {
	if r.metrics != nil {
		r.metrics.ObserveDB(operation, time.Since(start).Seconds(), *err)
	}
}
