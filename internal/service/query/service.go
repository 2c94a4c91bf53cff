package query

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/patient-registry/internal/model"
	"github.com/jwalitptl/patient-registry/internal/repository"
	"github.com/jwalitptl/patient-registry/pkg/errors"
	"github.com/jwalitptl/patient-registry/pkg/metrics"
)

// historyTTL is how long an idle client's history is kept.
const historyTTL = 24 * time.Hour

type Config struct {
	HistorySize int
	// Timeout bounds each statement. Zero means no limit.
	Timeout time.Duration
}

// Service runs raw SQL typed into the query console. Statements are
// executed as written; writes made here are not announced to other
// contexts.
type Service struct {
	repo    repository.QueryRepository
	cfg     Config
	logger  *zerolog.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	history *cache.Cache
}

func NewService(repo repository.QueryRepository, cfg Config, logger *zerolog.Logger, m *metrics.Metrics) *Service {
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 10
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{
		repo:    repo,
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		history: cache.New(historyTTL, time.Hour),
	}
}

// Execute runs sql for clientID and records it in the client's history when
// it succeeds. Database errors come back as bad requests carrying the
// database's message.
func (s *Service) Execute(ctx context.Context, clientID, sql string) (*model.QueryResult, error) {
	if strings.TrimSpace(sql) == "" {
		return nil, errors.NewBadRequest("query is required", nil)
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := s.repo.Execute(ctx, sql)
	s.observe(start, err)
	if err != nil {
		if appErr, ok := errors.As(err); ok {
			return nil, appErr
		}
		s.logger.Debug().Err(err).Str("client_id", clientID).Msg("query failed")
		return nil, errors.NewBadRequest(err.Error(), err)
	}

	s.remember(clientID, sql)
	s.logger.Debug().
		Str("client_id", clientID).
		Int("rows", result.RowCount).
		Int64("execution_time_ms", result.ExecutionTimeMS).
		Msg("query executed")
	return result, nil
}

// History returns the client's most recent distinct statements, newest
// first.
func (s *Service) History(clientID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.history.Get(clientID); ok {
		return append([]string(nil), cached.([]string)...)
	}
	return []string{}
}

func (s *Service) Samples() ([]model.SampleQuery, error) {
	return s.repo.Samples()
}

func (s *Service) remember(clientID, sql string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var previous []string
	if cached, ok := s.history.Get(clientID); ok {
		previous = cached.([]string)
	}

	next := make([]string, 0, s.cfg.HistorySize)
	next = append(next, sql)
	for _, q := range previous {
		if len(next) == s.cfg.HistorySize {
			break
		}
		if q != sql {
			next = append(next, q)
		}
	}
	s.history.Set(clientID, next, cache.DefaultExpiration)
}

func (s *Service) observe(start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.QueryExecutions.WithLabelValues(status).Inc()
	s.metrics.QueryLatency.Observe(time.Since(start).Seconds())
}
