package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/patient-registry/internal/model"
)

// All repository interfaces in one file
type (
	// DBProvider hands out the shared connection once it is usable.
	// session.Provider is the production implementation.
	DBProvider interface {
		DB() (*sqlx.DB, error)
	}

	PatientRepository interface {
		// Create inserts patient and fills in its id and timestamps.
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		// Update overwrites every editable column and refreshes patient from
		// the stored row.
		Update(ctx context.Context, patient *model.Patient) error
		Delete(ctx context.Context, id uuid.UUID) error
		// List returns every patient, newest registration first.
		List(ctx context.Context) ([]*model.Patient, error)
		Stats(ctx context.Context, monthStart, weekStart time.Time) (*model.PatientStats, error)
	}

	QueryRepository interface {
		Execute(ctx context.Context, query string) (*model.QueryResult, error)
		Samples() ([]model.SampleQuery, error)
	}
)

// StaticDB adapts an open connection to DBProvider.
type StaticDB struct {
	Conn *sqlx.DB
}

func (s StaticDB) DB() (*sqlx.DB, error) {
	return s.Conn, nil
}
