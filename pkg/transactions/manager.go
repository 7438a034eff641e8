package transactions

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	extErrors "github.com/saintber/extensions/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/saintber/extensions/pkg/transactions"

var errNestedIncomplete = errors.New("nested scope did not complete")

// Outcomes recorded in metrics.
const (
	outcomeCommitted  = "committed"
	outcomeRolledBack = "rolled_back"
	outcomeAborted    = "aborted"
)

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithMetrics records transaction outcomes in metrics.
func WithMetrics(metrics *Metrics) ManagerOption {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// WithTracerProvider sets the tracer provider used for scope spans.
func WithTracerProvider(tp trace.TracerProvider) ManagerOption {
	return func(m *Manager) {
		m.tracer = tp.Tracer(tracerName)
	}
}

// WithDefaultTimeout sets the timeout WithTransaction uses.
func WithDefaultTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.defaultTimeout = d
		}
	}
}

// WithMaxTimeout sets the cap applied to every scope's timeout. Scopes
// begun with a zero timeout run under the cap.
func WithMaxTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.maxTimeout = d
		}
	}
}

// Manager begins transaction scopes with context propagation.
type Manager struct {
	driver         Driver
	logger         zerolog.Logger
	metrics        *Metrics
	tracer         trace.Tracer
	defaultTimeout time.Duration
	maxTimeout     time.Duration
}

// NewManager creates a new transaction manager.
func NewManager(driver Driver, opts ...ManagerOption) *Manager {
	m := &Manager{
		driver:         driver,
		logger:         zerolog.Nop(),
		tracer:         otel.GetTracerProvider().Tracer(tracerName),
		defaultTimeout: DefaultTimeout,
		maxTimeout:     MaxTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// DefaultTimeout returns the timeout WithTransaction uses.
func (m *Manager) DefaultTimeout() time.Duration {
	return min(m.defaultTimeout, m.maxTimeout)
}

// MaxTimeout returns the cap applied to every scope's timeout.
func (m *Manager) MaxTimeout() time.Duration {
	return m.maxTimeout
}

// BeginScope begins a scope under opts. If ctx already carries a live
// transaction the scope joins it and the isolation level must match. The
// returned context carries the transaction and expires with the scope's
// timeout. Callers must Close the scope.
func (m *Manager) BeginScope(ctx context.Context, opts Options) (context.Context, *Scope, error) {
	if opts.Timeout < 0 {
		return ctx, nil, extErrors.NewArgumentError("timeout")
	}
	timeout := opts.Timeout
	if timeout == 0 || timeout > m.maxTimeout {
		timeout = m.maxTimeout
	}

	amb, joined := ambientFrom(ctx)
	if joined {
		if amb.isolation != opts.Isolation {
			return ctx, nil, fmt.Errorf("%w: ambient %s, requested %s",
				extErrors.ErrIsolationConflict, amb.isolation, opts.Isolation)
		}
		if amb.doomed.Load() {
			return ctx, nil, extErrors.Aborted(errNestedIncomplete)
		}
	}

	spanCtx, span := m.tracer.Start(ctx, "transactions.scope", trace.WithAttributes(
		attribute.String("db.transaction.isolation", opts.Isolation.String()),
		attribute.Bool("db.transaction.joined", joined),
		attribute.String("db.transaction.timeout", timeout.String()),
	))
	scopeCtx, cancel := context.WithTimeout(spanCtx, timeout)

	s := &Scope{
		manager: m,
		parent:  ctx,
		ctx:     scopeCtx,
		cancel:  cancel,
		span:    span,
		root:    !joined,
		started: time.Now(),
	}

	if joined {
		s.amb = amb
		return scopeCtx, s, nil
	}

	tx, err := m.driver.Begin(scopeCtx, opts.Isolation)
	if err != nil {
		cancel()
		span.RecordError(err)
		span.SetStatus(codes.Error, "begin failed")
		span.End()
		return ctx, nil, fmt.Errorf("begin tx: %w", err)
	}

	s.amb = &ambient{tx: tx, isolation: opts.Isolation}
	s.ctx = context.WithValue(scopeCtx, ambientKey, s.amb)

	if m.metrics != nil {
		m.metrics.ActiveTransactions.Inc()
	}
	m.logger.Debug().
		Stringer("isolation", opts.Isolation).
		Dur("timeout", timeout).
		Msg("Transaction started")

	return s.ctx, s, nil
}

// Scope is one use of a transaction. Complete signals that the work
// succeeded; Close releases the scope and, for the scope that began the
// transaction, commits or rolls it back.
type Scope struct {
	manager *Manager
	amb     *ambient
	parent  context.Context
	ctx     context.Context
	cancel  context.CancelFunc
	span    trace.Span
	root    bool
	started time.Time

	mu        sync.Mutex
	completed bool
	closed    bool
}

// Joined reports whether the scope joined an ambient transaction.
func (s *Scope) Joined() bool {
	return !s.root
}

// Complete marks the scope's work as successful. It has no effect after
// Close.
func (s *Scope) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.completed = true
	}
}

// Close releases the scope. It is safe to call more than once; only the
// first call has an effect.
//
// A joined scope closed without Complete, or after its own timeout, dooms
// the ambient transaction; a completed joined scope whose timeout passed
// reports errors.ErrTransactionAborted. The scope that began the
// transaction commits it only if it was completed, the transaction is not
// doomed and its timeout has not passed; otherwise it rolls back. Rolling
// back a completed scope reports errors.ErrTransactionAborted.
func (s *Scope) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	completed := s.completed
	s.mu.Unlock()

	defer s.cancel()
	defer s.span.End()

	if !s.root {
		expired := s.ctx.Err()
		if !completed || expired != nil {
			s.amb.doomed.Store(true)
			s.span.SetStatus(codes.Error, "not completed")
		}
		if completed && expired != nil {
			s.manager.logger.Warn().Err(expired).Msg("Joined scope expired, transaction doomed")
			return extErrors.Aborted(expired)
		}
		return nil
	}

	err := s.finish(completed)
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (s *Scope) finish(completed bool) error {
	m := s.manager
	defer s.amb.ended.Store(true)
	if m.metrics != nil {
		defer m.metrics.ActiveTransactions.Dec()
	}

	if completed {
		cause := s.ctx.Err()
		if cause == nil && s.amb.doomed.Load() {
			cause = errNestedIncomplete
		}
		if cause == nil {
			if err := s.amb.tx.Commit(s.ctx); err != nil {
				if ctxErr := s.ctx.Err(); ctxErr != nil {
					s.record(outcomeAborted)
					m.logger.Warn().Err(ctxErr).Msg("Transaction aborted during commit")
					return extErrors.Aborted(ctxErr)
				}
				s.record(outcomeRolledBack)
				return fmt.Errorf("commit tx: %w", err)
			}
			s.record(outcomeCommitted)
			m.logger.Debug().Msg("Transaction committed")
			return nil
		}

		if err := s.rollback(); err != nil {
			return fmt.Errorf("rollback failed (%v) after abort: %w", err, extErrors.Aborted(cause))
		}
		s.record(outcomeAborted)
		m.logger.Warn().Err(cause).Msg("Transaction aborted")
		return extErrors.Aborted(cause)
	}

	if err := s.rollback(); err != nil {
		return fmt.Errorf("rollback tx: %w", err)
	}
	s.record(outcomeRolledBack)
	m.logger.Debug().Msg("Transaction rolled back")
	return nil
}

// rollback runs even after the scope's deadline has passed.
func (s *Scope) rollback() error {
	return s.amb.tx.Rollback(context.WithoutCancel(s.parent))
}

func (s *Scope) record(outcome string) {
	m := s.manager
	if m.metrics == nil {
		return
	}
	m.metrics.TransactionsTotal.WithLabelValues(outcome).Inc()
	m.metrics.TransactionDuration.WithLabelValues(outcome).Observe(time.Since(s.started).Seconds())
}
