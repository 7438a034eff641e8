package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/saintber/extensions/internal/domain/counter"
	domainErrors "github.com/saintber/extensions/internal/domain/errors"
	"github.com/saintber/extensions/internal/infrastructure/observability"
	"github.com/saintber/extensions/pkg/linq"
	"github.com/saintber/extensions/pkg/retry"
	"github.com/saintber/extensions/pkg/transactions"
)

// CounterServiceConfig holds the transaction and retry settings of a CounterService.
type CounterServiceConfig struct {
	// Timeout bounds each transaction. Zero uses the manager's maximum.
	Timeout time.Duration
	Retry   retry.Config
}

type CounterService struct {
	repo      counter.Repository
	txManager *transactions.Manager
	cfg       CounterServiceConfig
	metrics   *observability.Metrics
	logger    zerolog.Logger
}

// NewCounterService creates a CounterService. metrics may be nil.
func NewCounterService(
	repo counter.Repository,
	txManager *transactions.Manager,
	cfg CounterServiceConfig,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *CounterService {
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultConfig()
	}
	s := &CounterService{
		repo:      repo,
		txManager: txManager,
		cfg:       cfg,
		metrics:   metrics,
		logger:    logger,
	}
	s.cfg.Retry.OnRetry = s.onRetry
	return s
}

func (s *CounterService) Get(ctx context.Context, name string) (*counter.Counter, error) {
	if err := counter.ValidateName(name); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, name)
}

// List returns every counter and refreshes the counter value gauge.
func (s *CounterService) List(ctx context.Context) ([]*counter.Counter, error) {
	counters, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(counters) == 0 {
		return []*counter.Counter{}, nil
	}
	return linq.ForEach(counters, s.observeEach)
}

// Increment adds delta to the named counter, creating it at zero first if
// it does not exist.
func (s *CounterService) Increment(ctx context.Context, name string, delta int64) (*counter.Counter, error) {
	if err := counter.ValidateName(name); err != nil {
		return nil, err
	}
	if delta == 0 {
		return nil, domainErrors.ErrInvalidDelta
	}

	c, err := retryingTransaction(ctx, s.txManager, s.cfg.Timeout, s.cfg.Retry,
		func(ctx context.Context) (*counter.Counter, error) {
			return s.add(ctx, name, delta)
		})
	if err != nil {
		s.recordIncrement("error")
		return nil, err
	}

	s.recordIncrement("ok")
	s.observe(c)
	s.logger.Debug().Str("counter", c.Name).Int64("value", c.Value).Msg("Counter incremented")
	return c, nil
}

// IncrementMany adds delta to every named counter in one transaction. Either
// all counters change or none do.
func (s *CounterService) IncrementMany(ctx context.Context, names []string, delta int64) ([]*counter.Counter, error) {
	if len(names) == 0 {
		return nil, domainErrors.NewValidationError("names", "cannot be empty")
	}
	if _, err := linq.ForEach(names, counter.ValidateName); err != nil {
		return nil, err
	}
	if delta == 0 {
		return nil, domainErrors.ErrInvalidDelta
	}

	counters, err := retryingTransaction(ctx, s.txManager, s.cfg.Timeout, s.cfg.Retry,
		func(ctx context.Context) ([]*counter.Counter, error) {
			return linq.SelectAsync(ctx, names, func(ctx context.Context, name string) (*counter.Counter, error) {
				return s.add(ctx, name, delta)
			})
		})
	if err != nil {
		s.recordIncrement("error")
		return nil, err
	}

	s.recordIncrement("ok")
	return linq.ForEach(counters, s.observeEach)
}

// Reset deletes the named counters in one transaction. Names that do not
// exist are skipped. A cancelled ctx stops the reset and rolls it back.
func (s *CounterService) Reset(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return domainErrors.NewValidationError("names", "cannot be empty")
	}

	err := s.txManager.Transaction(ctx, s.cfg.Timeout, func(ctx context.Context) error {
		_, err := linq.ForEachAsync(ctx, names, func(ctx context.Context, name string) error {
			if err := s.repo.Delete(ctx, name); err != nil && !errors.Is(err, domainErrors.ErrCounterNotFound) {
				return err
			}
			return nil
		})
		return err
	})
	if err != nil {
		return err
	}

	if s.metrics != nil {
		for _, name := range names {
			s.metrics.CounterValue.DeleteLabelValues(name)
		}
	}
	s.logger.Info().Strs("counters", names).Msg("Counters reset")
	return nil
}

// add is the read-modify-write step shared by the increment operations. It
// must run inside a transaction.
func (s *CounterService) add(ctx context.Context, name string, delta int64) (*counter.Counter, error) {
	c, err := s.repo.Get(ctx, name)
	if errors.Is(err, domainErrors.ErrCounterNotFound) {
		c, err = counter.NewCounter(name)
	}
	if err != nil {
		return nil, err
	}

	if err := c.Add(delta); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CounterService) observe(c *counter.Counter) {
	if s.metrics != nil {
		s.metrics.CounterValue.WithLabelValues(c.Name).Set(float64(c.Value))
	}
}

// observeEach adapts observe to linq.ForEach.
func (s *CounterService) observeEach(c *counter.Counter) error {
	s.observe(c)
	return nil
}

func (s *CounterService) recordIncrement(result string) {
	if s.metrics != nil {
		s.metrics.CounterIncrements.WithLabelValues(result).Inc()
	}
}

func (s *CounterService) onRetry(attempt uint, err error) {
	if s.metrics != nil {
		s.metrics.CounterRetries.Inc()
	}
	s.logger.Warn().Err(err).Uint("attempt", attempt+1).Msg("Write conflict, retrying transaction")
}
