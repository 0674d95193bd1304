package cohort

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tso500-cohort-explorer/internal/domain"
	"github.com/tso500-cohort-explorer/internal/metrics"
	"github.com/tso500-cohort-explorer/internal/predicate"
	"github.com/tso500-cohort-explorer/internal/survival"
)

// DashboardBuilder produces the dashboard of a snapshot
type DashboardBuilder interface {
	Dashboard(ctx context.Context, set predicate.Set, key survival.Key) (*Dashboard, error)
}

// Update is a dashboard delivered by a session
type Update struct {
	ID         uuid.UUID  `json:"id"`
	Generation uint64     `json:"generation"`
	Dashboard  *Dashboard `json:"dashboard"`
}

// Session serialises the snapshots of one interactive client with
// last-write-wins semantics: submitting a snapshot cancels the resolution
// still in flight, whose caller receives domain.ErrSuperseded.
type Session struct {
	builder DashboardBuilder
	logger  *logrus.Logger

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
}

// NewSession creates a session over builder
func NewSession(builder DashboardBuilder, logger *logrus.Logger) *Session {
	return &Session{builder: builder, logger: logger}
}

// Ticket is a snapshot admitted to a session, ordered by arrival
type Ticket struct {
	generation uint64
	ctx        context.Context
	cancel     context.CancelFunc
}

// Generation returns the arrival order of the ticket
func (t *Ticket) Generation() uint64 { return t.generation }

// Begin admits a snapshot and cancels the one still in flight. Callers that
// resolve concurrently must call Begin in arrival order, before handing the
// ticket to another goroutine.
func (s *Session) Begin(ctx context.Context) *Ticket {
	runCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.generation++
	s.cancel = cancel
	return &Ticket{generation: s.generation, ctx: runCtx, cancel: cancel}
}

// Run resolves the snapshot of ticket unless a newer one has been admitted
func (s *Session) Run(ticket *Ticket, set predicate.Set, key survival.Key) (*Update, error) {
	defer ticket.cancel()

	var (
		dashboard *Dashboard
		err       error
	)
	if s.isCurrent(ticket.generation) {
		dashboard, err = s.builder.Dashboard(ticket.ctx, set, key)
	}

	s.mu.Lock()
	current := s.generation == ticket.generation
	if current {
		s.cancel = nil
	}
	s.mu.Unlock()

	if !current {
		metrics.Resolutions.WithLabelValues(metrics.OutcomeSuperseded).Inc()
		s.logger.WithField("generation", ticket.generation).Debug("Discarding superseded resolution")
		return nil, domain.ErrSuperseded
	}
	if err != nil {
		return nil, err
	}
	return &Update{ID: uuid.New(), Generation: ticket.generation, Dashboard: dashboard}, nil
}

// Submit admits and resolves a snapshot in one call
func (s *Session) Submit(ctx context.Context, set predicate.Set, key survival.Key) (*Update, error) {
	return s.Run(s.Begin(ctx), set, key)
}

func (s *Session) isCurrent(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation == gen
}

// Generation returns the number of snapshots submitted so far
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Close cancels any resolution in flight
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
