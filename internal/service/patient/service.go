package patient

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/patient-registry/internal/model"
	"github.com/jwalitptl/patient-registry/internal/repository"
	"github.com/jwalitptl/patient-registry/pkg/metrics"
	"github.com/jwalitptl/patient-registry/pkg/notify"
	"github.com/jwalitptl/patient-registry/pkg/validator"
)

const rosterKey = "roster"

type PatientService interface {
	CreatePatient(ctx context.Context, origin string, req *model.PatientRequest) (*model.Patient, error)
	GetPatient(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	UpdatePatient(ctx context.Context, origin string, id uuid.UUID, req *model.PatientRequest) (*model.Patient, error)
	DeletePatient(ctx context.Context, origin string, id uuid.UUID) error
	ListPatients(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error)
	Stats(ctx context.Context) (*model.PatientStats, error)
}

// Service registers patients and keeps a snapshot of the full roster. The
// snapshot is dropped after every local write and reloaded whenever another
// execution context reports a change.
type Service struct {
	repo      repository.PatientRepository
	hub       *notify.Hub
	validator validator.Validator
	logger    *zerolog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time

	roster *cache.Cache
	mu     sync.Mutex
	gen    uint64
}

func NewService(repo repository.PatientRepository, hub *notify.Hub, logger *zerolog.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{
		repo:      repo,
		hub:       hub,
		validator: validator.New(),
		logger:    logger,
		metrics:   m,
		now:       time.Now,
		roster:    cache.New(cache.NoExpiration, 0),
	}
}

func (s *Service) CreatePatient(ctx context.Context, origin string, req *model.PatientRequest) (*model.Patient, error) {
	req.Normalize()
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	patient := &model.Patient{}
	req.ApplyTo(patient)
	if err := s.repo.Create(ctx, patient); err != nil {
		return nil, err
	}

	s.changed(ctx, origin)
	s.logger.Info().Str("patient_id", patient.ID.String()).Msg("patient registered")
	return patient, nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	return s.repo.Get(ctx, id)
}

// UpdatePatient replaces every editable field of the patient with req.
func (s *Service) UpdatePatient(ctx context.Context, origin string, id uuid.UUID, req *model.PatientRequest) (*model.Patient, error) {
	req.Normalize()
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	patient, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	req.ApplyTo(patient)
	if err := s.repo.Update(ctx, patient); err != nil {
		return nil, err
	}

	s.changed(ctx, origin)
	s.logger.Info().Str("patient_id", id.String()).Msg("patient updated")
	return patient, nil
}

func (s *Service) DeletePatient(ctx context.Context, origin string, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.changed(ctx, origin)
	s.logger.Info().Str("patient_id", id.String()).Msg("patient deleted")
	return nil
}

// ListPatients returns the roster, newest first, narrowed by the search term.
func (s *Service) ListPatients(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error) {
	patients, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if filters == nil || filters.SearchTerm == "" {
		return patients, nil
	}

	matched := make([]*model.Patient, 0, len(patients))
	for _, p := range patients {
		if p.Matches(filters.SearchTerm) {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

func (s *Service) Stats(ctx context.Context) (*model.PatientStats, error) {
	monthStart, weekStart := PeriodStarts(s.now())
	return s.repo.Stats(ctx, monthStart, weekStart)
}

// PeriodStarts returns local midnight on the first of the month and on the
// most recent Sunday.
func PeriodStarts(now time.Time) (month, week time.Time) {
	y, m, d := now.Date()
	month = time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
	week = time.Date(y, m, d-int(now.Weekday()), 0, 0, 0, 0, now.Location())
	return month, week
}

// Listen reloads the roster whenever another context reports a change.
// origin identifies this process so its own signals are ignored.
func (s *Service) Listen(origin string) (func(), error) {
	return s.hub.Peer(origin).OnChanged(func() {
		if err := s.Reload(context.Background()); err != nil {
			s.logger.Warn().Err(err).Msg("failed to reload patients after change")
		}
	})
}

// Reload discards the roster snapshot and reads it again.
func (s *Service) Reload(ctx context.Context) error {
	s.invalidate()
	if s.metrics != nil {
		s.metrics.RosterReloads.Inc()
	}
	_, err := s.snapshot(ctx)
	return err
}

func (s *Service) snapshot(ctx context.Context) ([]*model.Patient, error) {
	if cached, ok := s.roster.Get(rosterKey); ok {
		return cached.([]*model.Patient), nil
	}

	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()

	patients, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	// A write that landed while we were reading makes this list stale.
	if gen == s.gen {
		s.roster.Set(rosterKey, patients, cache.NoExpiration)
	}
	s.mu.Unlock()
	return patients, nil
}

func (s *Service) invalidate() {
	s.mu.Lock()
	s.gen++
	s.roster.Delete(rosterKey)
	s.mu.Unlock()
}

// changed runs after a successful write. Delivery to other contexts is best
// effort, so a failed publish is logged and the write still succeeds.
func (s *Service) changed(ctx context.Context, origin string) {
	s.invalidate()
	if s.hub == nil {
		return
	}
	if err := s.hub.Peer(origin).NotifyChanged(ctx); err != nil {
		s.logger.Warn().Err(err).Str("origin", origin).Msg("failed to notify other contexts")
	}
}
