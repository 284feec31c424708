// Package resilient decorates a ports.PersonStore with a circuit breaker,
// metrics and logging.
package resilient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/ersonp/roots-core/internal/domain/entities"
	"github.com/ersonp/roots-core/internal/domain/ports"
	"github.com/ersonp/roots-core/internal/infrastructure/config"
	"github.com/ersonp/roots-core/internal/infrastructure/observability"
)

// ErrUnavailable is returned while the breaker rejects calls.
var ErrUnavailable = errors.New("store temporarily unavailable")

// timeNow returns the current time (can be mocked in tests).
var timeNow = time.Now

// Store wraps a PersonStore. It satisfies ports.PersonStore itself.
type Store struct {
	next    ports.PersonStore
	backend string
	cb      *gobreaker.CircuitBreaker
	metrics *observability.Collector
	logger  *zap.Logger
}

var _ ports.PersonStore = (*Store)(nil)

// NewStore wraps next. The breaker is skipped when cfg.Enabled is false;
// metrics may be nil.
func NewStore(next ports.PersonStore, backend string, cfg config.BreakerConfig, metrics *observability.Collector, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		next:    next,
		backend: backend,
		metrics: metrics,
		logger:  logger.With(zap.String("backend", backend)),
	}
	if cfg.Enabled {
		s.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        backend,
			MaxRequests: cfg.MaxRequests,
			Interval:    cfg.Interval,
			Timeout:     cfg.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				// Only trip if we have enough requests to make a decision
				if counts.Requests < cfg.MinRequests {
					return false
				}
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return failureRatio >= cfg.FailureThreshold
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				s.logger.Warn("circuit breaker state changed",
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
				if s.metrics != nil {
					s.metrics.ObserveBreaker(name, from.String(), to.String())
				}
			},
			// A cancelled command says nothing about the backend's health.
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
		})
	}
	return s
}

// State reports the breaker state ("closed" when disabled).
func (s *Store) State() string {
	if s.cb == nil {
		return gobreaker.StateClosed.String()
	}
	return s.cb.State().String()
}

// do runs fn through the breaker and records the outcome.
func (s *Store) do(op string, fn func() error) error {
	start := timeNow()

	var err error
	if s.cb == nil {
		err = fn()
	} else {
		_, err = s.cb.Execute(func() (any, error) {
			return nil, fn()
		})
	}

	outcome := observability.OutcomeSuccess
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		outcome = observability.OutcomeRejected
		s.logger.Debug("store call rejected", zap.String("op", op), zap.Error(err))
		err = fmt.Errorf("%s: %w (%v)", op, ErrUnavailable, err)
	case err != nil:
		outcome = observability.OutcomeError
		s.logger.Warn("store call failed", zap.String("op", op), zap.Error(err))
	}

	if s.metrics != nil {
		s.metrics.ObserveStore(s.backend, op, outcome, timeNow().Sub(start))
	}
	return err
}

// EnsureSchema implements ports.PersonStore.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.do("ensure_schema", func() error {
		return s.next.EnsureSchema(ctx)
	})
}

// Close implements ports.PersonStore. It bypasses the breaker.
func (s *Store) Close() error {
	return s.next.Close()
}

// LoadAll implements ports.PersonStore.
func (s *Store) LoadAll(ctx context.Context, treeID string) ([]entities.Person, []entities.Edge, error) {
	var persons []entities.Person
	var edges []entities.Edge
	err := s.do("load_all", func() error {
		var err error
		persons, edges, err = s.next.LoadAll(ctx, treeID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	if s.metrics != nil {
		s.metrics.ObserveLoad(s.backend, len(persons), len(edges))
	}
	return persons, edges, nil
}

// WritePerson implements ports.PersonStore.
func (s *Store) WritePerson(ctx context.Context, person *entities.Person) error {
	return s.do("write_person", func() error {
		return s.next.WritePerson(ctx, person)
	})
}

// WriteEdges implements ports.PersonStore.
func (s *Store) WriteEdges(ctx context.Context, edges []entities.Edge) error {
	return s.do("write_edges", func() error {
		return s.next.WriteEdges(ctx, edges)
	})
}

// DeletePerson implements ports.PersonStore.
func (s *Store) DeletePerson(ctx context.Context, treeID, personID string) error {
	return s.do("delete_person", func() error {
		return s.next.DeletePerson(ctx, treeID, personID)
	})
}

// DeleteEdgesFor implements ports.PersonStore.
func (s *Store) DeleteEdgesFor(ctx context.Context, treeID, personID string) error {
	return s.do("delete_edges", func() error {
		return s.next.DeleteEdgesFor(ctx, treeID, personID)
	})
}

// DeleteTree implements ports.PersonStore.
func (s *Store) DeleteTree(ctx context.Context, treeID string) error {
	return s.do("delete_tree", func() error {
		return s.next.DeleteTree(ctx, treeID)
	})
}
