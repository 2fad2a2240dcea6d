package selection

import (
	"strconv"
	"sync"
	"time"

	"github.com/kasuganosora/datagrid/internal/griderr"
	"github.com/kasuganosora/datagrid/internal/model"
)

// EditSessionState is the single-slot edit session's state machine
// position: Idle -> Active(rowId, columnName) -> Idle (spec §4.6).
type EditSessionState string

const (
	EditIdle   EditSessionState = "Idle"
	EditActive EditSessionState = "Active"
)

// WriteThrough abstracts the single cell write a live edit session applies,
// and the optional real-time validation re-check it triggers.
type WriteThrough func(rowID model.RowID, column string, value interface{}) error

// EditSession is the single in-flight cell edit, if any.
type EditSession struct {
	mu    sync.Mutex
	state EditSessionState
	slot  model.EditSession
}

// NewEditSession returns an idle session.
func NewEditSession() *EditSession {
	return &EditSession{state: EditIdle}
}

// State reports the current state.
func (e *EditSession) State() EditSessionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// BeginEdit transitions Idle -> Active. It fails if a session is already
// active (spec "begin_edit fails if already Active").
func (e *EditSession) BeginEdit(rowID model.RowID, column string, original interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == EditActive {
		return griderr.New(griderr.KindLifecycle, "selection.BeginEdit", "an edit session is already active")
	}
	e.state = EditActive
	e.slot = model.EditSession{
		SessionID:     newSessionID(),
		RowID:         rowID,
		ColumnName:    column,
		OriginalValue: original,
		CurrentValue:  original,
		StartedAt:     timeNow(),
		IsActive:      true,
	}
	return nil
}

// UpdateCell writes value through to the store via write, and advances the
// session's CurrentValue on success (spec "update_cell writes through... the
// session's currentValue tracks the last write").
func (e *EditSession) UpdateCell(value interface{}, write WriteThrough) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != EditActive {
		return griderr.New(griderr.KindLifecycle, "selection.UpdateCell", "no active edit session")
	}
	if err := write(e.slot.RowID, e.slot.ColumnName, value); err != nil {
		return err
	}
	e.slot.CurrentValue = value
	return nil
}

// CommitEdit keeps the store's current state and returns to Idle.
func (e *EditSession) CommitEdit() (model.EditSession, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != EditActive {
		return model.EditSession{}, griderr.New(griderr.KindLifecycle, "selection.CommitEdit", "no active edit session")
	}
	final := e.slot
	e.state = EditIdle
	e.slot = model.EditSession{}
	return final, nil
}

// CancelEdit restores OriginalValue via write and returns to Idle.
func (e *EditSession) CancelEdit(write WriteThrough) (model.EditSession, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != EditActive {
		return model.EditSession{}, griderr.New(griderr.KindLifecycle, "selection.CancelEdit", "no active edit session")
	}
	if err := write(e.slot.RowID, e.slot.ColumnName, e.slot.OriginalValue); err != nil {
		return model.EditSession{}, err
	}
	final := e.slot
	final.CurrentValue = final.OriginalValue
	e.state = EditIdle
	e.slot = model.EditSession{}
	return final, nil
}

// Current returns a copy of the active slot, if any.
func (e *EditSession) Current() (model.EditSession, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != EditActive {
		return model.EditSession{}, false
	}
	return e.slot, true
}

var sessionCounter int64
var sessionMu sync.Mutex

func newSessionID() string {
	sessionMu.Lock()
	defer sessionMu.Unlock()
	sessionCounter++
	return "edit-" + strconv.FormatInt(sessionCounter, 10)
}

// timeNow is a seam so tests can stub session start times; production uses
// the real clock.
var timeNow = func() time.Time { return time.Now() }
