// Package scope implements the per-operation scope the façade's
// long-running operations (ValidateAll, Import, Export, AdvancedSearch)
// acquire: an operation id, a cancellation token, a logger, and an outcome
// recorder (spec §5 "Per-operation scopes"). The façade's other operations
// do not open a scope.
package scope

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/kasuganosora/datagrid/internal/gridlog"
	"github.com/kasuganosora/datagrid/internal/model"
)

// Outcome is the terminal status of an operation scope.
type Outcome string

const (
	OutcomeSuccess Outcome = "Success"
	OutcomeWarning Outcome = "Warning"
	OutcomeFailure Outcome = "Failure"
)

var opCounter int64

// Scope carries identity, cancellation, and logging for one public
// operation. Scopes own nothing the store owns (spec §5); they are
// released at operation end via Finish.
type Scope struct {
	OperationID string
	StartedAt   time.Time
	Mode        model.OperationMode
	Logger      gridlog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a fresh scope. parent may be nil, in which case
// context.Background() is used.
func New(parent context.Context, mode model.OperationMode, logger gridlog.Logger) *Scope {
	if parent == nil {
		parent = context.Background()
	}
	if logger == nil {
		logger = gridlog.Nop{}
	}
	ctx, cancel := context.WithCancel(parent)
	id := atomic.AddInt64(&opCounter, 1)
	return &Scope{
		OperationID: "op-" + strconv.FormatInt(id, 16),
		StartedAt:   time.Now(),
		Mode:        mode,
		Logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Context returns the scope's cancellation-aware context.
func (s *Scope) Context() context.Context { return s.ctx }

// Cancel requests cooperative cancellation. The running operation observes
// it at the next suspension point (spec §5).
func (s *Scope) Cancel() { s.cancel() }

// Cancelled reports whether cancellation has been requested.
func (s *Scope) Cancelled() bool {
	select {
	case <-s.ctx.Done():
		return true
	default:
		return false
	}
}

// CheckCancelled is a suspension-point helper: returns true and logs once if
// the scope has been cancelled.
func (s *Scope) CheckCancelled() bool {
	if s.Cancelled() {
		s.Logger.Printf("%s: cancellation observed at suspension point", s.OperationID)
		return true
	}
	return false
}

// Finish records the terminal outcome to the log sink. Cancellation is not
// treated as a failure in telemetry (spec §7).
func (s *Scope) Finish(outcome Outcome, detail string) {
	elapsed := time.Since(s.StartedAt)
	if outcome == OutcomeFailure && s.Cancelled() {
		s.Logger.Printf("%s: cancelled after %s: %s", s.OperationID, elapsed, detail)
		return
	}
	if outcome == OutcomeFailure {
		s.Logger.Printf("%s: failure after %s: %s", s.OperationID, elapsed, detail)
		return
	}
	s.Logger.Printf("%s: %s after %s: %s", s.OperationID, outcome, elapsed, detail)
}
