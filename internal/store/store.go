// Package store implements the row store: the single source of truth for
// rows (spec §4.1). It owns the ordered row sequence, the rowId<->index
// index, the per-row visibility bitmap, and the alert table, all guarded by
// a single exclusive lock (spec §5 "Interior-mutable store").
//
// Grounded on the teacher's pkg/resource/memory/mutation.go, which bumps a
// version counter under a global lock and deep-copies rows on every mutating
// path; this store keeps that discipline but collapses the teacher's full
// MVCC (multiple retained versions, copy-on-write transactions) down to a
// single current generation, since the spec has no cross-transaction
// isolation requirement — only a generation tag for snapshot staleness
// detection (spec Glossary "Generation tag").
package store

import (
	"sync"

	"github.com/google/uuid"
	"github.com/kasuganosora/datagrid/internal/griderr"
	"github.com/kasuganosora/datagrid/internal/model"
)

// IDAllocator produces a fresh, never-reused RowID.
type IDAllocator func() model.RowID

// DefaultIDAllocator allocates a 128-bit random token per row, per spec
// §4.1 "implementations choose a 128-bit random token or a counter prefixed
// by a process-unique seed."
func DefaultIDAllocator() model.RowID {
	return model.RowID(uuid.NewString())
}

// Store is the row store.
type Store struct {
	mu sync.RWMutex

	rows    []model.Row
	idIndex map[model.RowID]int
	visible []bool
	alerts  map[model.RowID][]model.Alert
	stale   map[model.RowID]bool

	generation uint64
	allocate   IDAllocator
}

// New creates an empty store. If alloc is nil, DefaultIDAllocator is used.
func New(alloc IDAllocator) *Store {
	if alloc == nil {
		alloc = DefaultIDAllocator
	}
	return &Store{
		idIndex:  make(map[model.RowID]int),
		alerts:   make(map[model.RowID][]model.Alert),
		stale:    make(map[model.RowID]bool),
		allocate: alloc,
	}
}

// Generation returns the current generation tag. It is bumped on clear,
// replace-all, and column add/remove (spec Glossary).
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

func (s *Store) bumpGeneration() { s.generation++ }

// stripReserved discards any user-supplied reserved fields (Invariant 6)
// and returns a fresh row containing only user columns.
func stripReserved(row model.Row) model.Row {
	out := make(model.Row, len(row))
	for k, v := range row {
		if k == model.ReservedRowID || k == model.ReservedValidationAlerts {
			continue
		}
		out[k] = v
	}
	return out
}

// AddRow appends row_data as a new row, assigns a fresh rowId, and returns
// the new row's index.
func (s *Store) AddRow(row model.Row) (int, model.RowID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clean := stripReserved(row)
	id := s.allocate()
	for {
		if _, exists := s.idIndex[id]; !exists {
			break
		}
		id = s.allocate()
	}
	idx := len(s.rows)
	s.rows = append(s.rows, clean)
	s.visible = append(s.visible, true)
	s.idIndex[id] = idx
	return idx, id, nil
}

// AddRowsBatch appends many rows as a single logical transaction: either
// all rows are appended or none are (there is no partial-failure path here
// since row data validity is not itself a Store concern — only reserved
// fields are stripped, which cannot fail).
func (s *Store) AddRowsBatch(rows []model.Row) ([]model.RowID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]model.RowID, 0, len(rows))
	for _, row := range rows {
		clean := stripReserved(row)
		id := s.allocate()
		idx := len(s.rows)
		s.rows = append(s.rows, clean)
		s.visible = append(s.visible, true)
		s.idIndex[id] = idx
		ids = append(ids, id)
	}
	return ids, nil
}

// InsertRow inserts row_data at rowIndex, shifting the tail and updating the
// rowId index.
func (s *Store) InsertRow(rowIndex int, row model.Row) (model.RowID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rowIndex < 0 || rowIndex > len(s.rows) {
		return "", griderr.NotFound("store.InsertRow", "rowIndex out of range")
	}

	clean := stripReserved(row)
	id := s.allocate()

	s.rows = append(s.rows, nil)
	copy(s.rows[rowIndex+1:], s.rows[rowIndex:])
	s.rows[rowIndex] = clean

	s.visible = append(s.visible, false)
	copy(s.visible[rowIndex+1:], s.visible[rowIndex:])
	s.visible[rowIndex] = true

	s.reindexFrom(rowIndex)
	s.idIndex[id] = rowIndex
	return id, nil
}

// reindexFrom rebuilds idIndex entries for rows at position >= from. Must
// be called with the lock held.
func (s *Store) reindexFrom(from int) {
	for id, idx := range s.idIndex {
		if idx >= from {
			s.idIndex[id] = idx + 1
		}
	}
}

// resolveIndex resolves a RowID to its current index. Must be called with
// the lock held (read or write).
func (s *Store) resolveIndex(id model.RowID) (int, bool) {
	idx, ok := s.idIndex[id]
	return idx, ok
}

// UpdateRowByID replaces the non-reserved fields of the row identified by
// id, preserving the rowId, and marks its alerts stale (Invariant 5).
func (s *Store) UpdateRowByID(id model.RowID, row model.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.resolveIndex(id)
	if !ok {
		return griderr.NotFound("store.UpdateRow", "unknown rowId")
	}
	clean := stripReserved(row)
	s.rows[idx] = clean
	s.stale[id] = true
	return nil
}

// UpdateRowByIndex is the index-keyed convenience form; see spec §9 "Two
// divergent row interfaces" — ID-keyed is canonical, this is documented
// best-effort convenience with race semantics across concurrent mutators.
func (s *Store) UpdateRowByIndex(rowIndex int, row model.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rowIndex < 0 || rowIndex >= len(s.rows) {
		return griderr.NotFound("store.UpdateRow", "rowIndex out of range")
	}
	id, ok := s.idAtIndexLocked(rowIndex)
	if !ok {
		return griderr.New(griderr.KindInternal, "store.UpdateRow", "index has no rowId")
	}
	clean := stripReserved(row)
	s.rows[rowIndex] = clean
	s.stale[id] = true
	return nil
}

// idAtIndexLocked performs the reverse idIndex lookup. Must be called with
// the lock held. O(n) — acceptable since it is only used by the
// documented-as-slower index-keyed convenience path, never by the ID-keyed
// hot path.
func (s *Store) idAtIndexLocked(idx int) (model.RowID, bool) {
	for id, i := range s.idIndex {
		if i == idx {
			return id, true
		}
	}
	return "", false
}

// RemoveRowByID removes the row identified by id, compacting the sequence
// and reindexing the tail.
func (s *Store) RemoveRowByID(id model.RowID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.resolveIndex(id)
	if !ok {
		return griderr.NotFound("store.RemoveRow", "unknown rowId")
	}
	s.removeAtLocked(idx)
	delete(s.idIndex, id)
	delete(s.alerts, id)
	delete(s.stale, id)
	return nil
}

// RemoveRowByIndex is the index-keyed convenience form.
func (s *Store) RemoveRowByIndex(rowIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rowIndex < 0 || rowIndex >= len(s.rows) {
		return griderr.NotFound("store.RemoveRow", "rowIndex out of range")
	}
	id, _ := s.idAtIndexLocked(rowIndex)
	s.removeAtLocked(rowIndex)
	if id != "" {
		delete(s.idIndex, id)
		delete(s.alerts, id)
		delete(s.stale, id)
	}
	return nil
}

// removeAtLocked deletes the row at idx and shifts idIndex entries down by
// one for every row after it. Must be called with the lock held.
func (s *Store) removeAtLocked(idx int) {
	s.rows = append(s.rows[:idx], s.rows[idx+1:]...)
	s.visible = append(s.visible[:idx], s.visible[idx+1:]...)
	for id, i := range s.idIndex {
		if i > idx {
			s.idIndex[id] = i - 1
		}
	}
}

// RemoveRows removes every row whose id is in ids.
func (s *Store) RemoveRows(ids []model.RowID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	want := make(map[model.RowID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	kept := s.rows[:0:0]
	keptVisible := s.visible[:0:0]
	newIndex := make(map[model.RowID]int, len(s.idIndex))
	removed := int64(0)

	// Walk in row order so the kept slice preserves insertion/sort order.
	idAt := make([]model.RowID, len(s.rows))
	for id, idx := range s.idIndex {
		idAt[idx] = id
	}
	for i, row := range s.rows {
		id := idAt[i]
		if want[id] {
			removed++
			delete(s.alerts, id)
			delete(s.stale, id)
			continue
		}
		newIndex[id] = len(kept)
		kept = append(kept, row)
		keptVisible = append(keptVisible, s.visible[i])
	}

	s.rows = kept
	s.visible = keptVisible
	s.idIndex = newIndex
	return removed, nil
}

// ClearAllRows atomically resets the store, allocating a new generation tag.
func (s *Store) ClearAllRows() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows = nil
	s.visible = nil
	s.idIndex = make(map[model.RowID]int)
	s.alerts = make(map[model.RowID][]model.Alert)
	s.stale = make(map[model.RowID]bool)
	s.bumpGeneration()
}

// GetRow returns a copy of the row at rowIndex, or nil if out of range.
func (s *Store) GetRow(rowIndex int) (model.Row, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rowIndex < 0 || rowIndex >= len(s.rows) {
		return nil, false
	}
	return s.rows[rowIndex].Clone(), true
}

// GetRowByID returns a copy of the row identified by id.
func (s *Store) GetRowByID(id model.RowID) (model.Row, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.idIndex[id]
	if !ok {
		return nil, false
	}
	return s.rows[idx].Clone(), true
}

// GetAllRows returns an owned snapshot of every row, with reserved fields
// (rowId and, if present, serialized alerts) included. It does not alias
// store interior (Invariant 7).
func (s *Store) GetAllRows() []model.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(false)
}

// GetVisibleRows returns an owned snapshot of only currently-visible rows.
func (s *Store) GetVisibleRows() []model.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(true)
}

func (s *Store) snapshotLocked(onlyVisible bool) []model.Row {
	idAt := s.idAtAllLocked()
	out := make([]model.Row, 0, len(s.rows))
	for i, row := range s.rows {
		if onlyVisible && !s.visible[i] {
			continue
		}
		cp := row.Clone()
		cp[model.ReservedRowID] = string(idAt[i])
		out = append(out, cp)
	}
	return out
}

func (s *Store) idAtAllLocked() []model.RowID {
	idAt := make([]model.RowID, len(s.rows))
	for id, idx := range s.idIndex {
		if idx >= 0 && idx < len(idAt) {
			idAt[idx] = id
		}
	}
	return idAt
}

// GetRowCount returns the total number of rows, visible or not.
func (s *Store) GetRowCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// GetFilteredRowCount returns the number of currently-visible rows.
func (s *Store) GetFilteredRowCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, v := range s.visible {
		if v {
			count++
		}
	}
	return count
}

// RowIDAtIndex returns the rowId currently at rowIndex.
func (s *Store) RowIDAtIndex(rowIndex int) (model.RowID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rowIndex < 0 || rowIndex >= len(s.rows) {
		return "", false
	}
	return s.idAtIndexLocked(rowIndex)
}

// IndexOfRowID returns the current index of id.
func (s *Store) IndexOfRowID(id model.RowID) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.idIndex[id]
	return idx, ok
}

// SetVisible overwrites the visibility bitmap wholesale (used by the query
// pipeline's apply_filter/clear_filters; filters never remove rows, they
// only hide them — spec §4.1).
func (s *Store) SetVisible(visible []bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(visible) != len(s.rows) {
		return griderr.New(griderr.KindInternal, "store.SetVisible", "visibility length mismatch")
	}
	s.visible = visible
	return nil
}

// ClearFilters marks every row visible again and returns the total row count.
func (s *Store) ClearFilters() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.visible {
		s.visible[i] = true
	}
	return len(s.rows)
}

// VisibilitySnapshot returns a copy of the current visibility bitmap,
// alongside the rowId at each index, for use by the query pipeline.
func (s *Store) VisibilitySnapshot() ([]bool, []model.RowID) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vis := make([]bool, len(s.visible))
	copy(vis, s.visible)
	return vis, s.idAtAllLocked()
}

// ReplaceAllRows replaces every row in the store with newRows. newRows[i]
// keeps the rowId of the row previously at index i, if there was one, and
// gets a fresh rowId otherwise; reserved fields carried in newRows are
// discarded (used by column-reorder helpers that rewrite every row's key
// order).
func (s *Store) ReplaceAllRows(newRows []model.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idAt := s.idAtAllLocked()
	rows := make([]model.Row, len(newRows))
	visible := make([]bool, len(newRows))
	idIndex := make(map[model.RowID]int, len(newRows))

	for i, row := range newRows {
		rows[i] = stripReserved(row)
		visible[i] = true
		if i < len(idAt) && idAt[i] != "" {
			idIndex[idAt[i]] = i
		} else {
			idIndex[s.allocate()] = i
		}
	}
	s.rows = rows
	s.visible = visible
	s.idIndex = idIndex
	s.bumpGeneration()
}

// BackfillColumn sets defaultValue for columnName on every row that does
// not already have it (Column Registry add_column propagation).
func (s *Store) BackfillColumn(columnName string, defaultValue interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if _, ok := s.rows[i][columnName]; !ok {
			s.rows[i][columnName] = defaultValue
		}
	}
	s.bumpGeneration()
}

// DropColumn removes columnName from every row (Column Registry
// remove_column propagation).
func (s *Store) DropColumn(columnName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		delete(s.rows[i], columnName)
	}
	s.bumpGeneration()
}

// MarkAlertsStale flags the alerts for rowId as invalid until re-evaluated
// (Invariant 5), without removing them — callers still see the last-known
// alert until a fresh evaluation replaces it.
func (s *Store) MarkAlertsStale(id model.RowID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stale[id] = true
}

// IsStale reports whether the stored alerts for id need re-evaluation.
func (s *Store) IsStale(id model.RowID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stale[id]
}

// SetAlerts replaces the alert list for id and clears its stale flag.
func (s *Store) SetAlerts(id model.RowID, alerts []model.Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(alerts) == 0 {
		delete(s.alerts, id)
	} else {
		s.alerts[id] = alerts
	}
	delete(s.stale, id)
}

// GetValidationErrorsForRow returns the alert list currently stored for id.
func (s *Store) GetValidationErrorsForRow(id model.RowID) []model.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Alert, len(s.alerts[id]))
	copy(out, s.alerts[id])
	return out
}

// AllIDs returns every rowId currently in the store, in row order.
func (s *Store) AllIDs() []model.RowID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idAtAllLocked()
}

// WithReadLock runs fn while holding the store's read lock, giving the
// query pipeline a consistent view of rows+visibility+ids without copying
// three times. fn must not call back into Store.
func (s *Store) WithReadLock(fn func(rows []model.Row, visible []bool, ids []model.RowID)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.rows, s.visible, s.idAtAllLocked())
}

// RowBatch is one batch yielded by StreamRows: an owned snapshot of rows
// tagged with the generation it was captured at (spec Glossary "Generation
// tag").
type RowBatch struct {
	Rows       []model.Row
	Generation uint64
}

// StreamRows returns a finite, non-restartable batch iterator over a
// coherent snapshot captured at call time (spec §4.1 "stream_rows", §5
// "Stream APIs produce a coherent snapshot at the first batch and must not
// observe mutations thereafter within that stream's lifetime"). onlyFiltered
// restricts the snapshot to currently-visible rows. The returned function
// yields successive batches of at most batchSize rows and returns
// (RowBatch{}, false) once exhausted; it must not be called again after
// that.
func (s *Store) StreamRows(onlyFiltered bool, batchSize int) func() (RowBatch, bool) {
	if batchSize <= 0 {
		batchSize = 1000
	}

	s.mu.RLock()
	snapshot := s.snapshotLocked(onlyFiltered)
	generation := s.generation
	s.mu.RUnlock()

	pos := 0
	return func() (RowBatch, bool) {
		if pos >= len(snapshot) {
			return RowBatch{}, false
		}
		end := pos + batchSize
		if end > len(snapshot) {
			end = len(snapshot)
		}
		batch := RowBatch{Rows: snapshot[pos:end], Generation: generation}
		pos = end
		return batch, true
	}
}
