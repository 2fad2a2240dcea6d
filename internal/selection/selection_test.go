package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/datagrid/internal/model"
)

func TestSelectRowsAddAccumulates(t *testing.T) {
	m := New(0)
	require.NoError(t, m.SelectRows([]model.RowID{"r1"}, model.SelectionAdd))
	require.NoError(t, m.SelectRows([]model.RowID{"r2"}, model.SelectionAdd))

	snap := m.Snapshot()
	assert.Len(t, snap.Rows, 2)
}

func TestSelectRowsReplaceDiscardsPrevious(t *testing.T) {
	m := New(0)
	require.NoError(t, m.SelectRows([]model.RowID{"r1", "r2"}, model.SelectionAdd))
	require.NoError(t, m.SelectRows([]model.RowID{"r3"}, model.SelectionReplace))

	snap := m.Snapshot()
	assert.Len(t, snap.Rows, 1)
	_, ok := snap.Rows[model.RowID("r3")]
	assert.True(t, ok)
}

func TestSelectRowsRemove(t *testing.T) {
	m := New(0)
	require.NoError(t, m.SelectRows([]model.RowID{"r1", "r2"}, model.SelectionAdd))
	require.NoError(t, m.SelectRows([]model.RowID{"r1"}, model.SelectionRemove))

	snap := m.Snapshot()
	assert.Len(t, snap.Rows, 1)
	_, ok := snap.Rows[model.RowID("r2")]
	assert.True(t, ok)
}

func TestSelectRowsToggle(t *testing.T) {
	m := New(0)
	require.NoError(t, m.SelectRows([]model.RowID{"r1"}, model.SelectionAdd))
	require.NoError(t, m.SelectRows([]model.RowID{"r1"}, model.SelectionToggle))
	assert.Empty(t, m.Snapshot().Rows)

	require.NoError(t, m.SelectRows([]model.RowID{"r1"}, model.SelectionToggle))
	assert.Len(t, m.Snapshot().Rows, 1)
}

func TestSelectCellsAndColumnsIndependentSets(t *testing.T) {
	m := New(0)
	require.NoError(t, m.SelectCells([]model.CellRef{{RowID: "r1", Column: "name"}}, model.SelectionAdd))
	require.NoError(t, m.SelectColumns([]string{"name"}, model.SelectionAdd))

	snap := m.Snapshot()
	assert.Len(t, snap.Cells, 1)
	assert.Len(t, snap.Columns, 1)
	assert.Empty(t, snap.Rows)
}

func TestSelectionEnforcesMaxSize(t *testing.T) {
	m := New(1)
	require.NoError(t, m.SelectRows([]model.RowID{"r1"}, model.SelectionAdd))
	err := m.SelectRows([]model.RowID{"r2"}, model.SelectionAdd)
	assert.Error(t, err)

	// A rejected mutation must not corrupt the prior selection.
	assert.Len(t, m.Snapshot().Rows, 1)
}

func TestClearEmptiesSelection(t *testing.T) {
	m := New(0)
	require.NoError(t, m.SelectRows([]model.RowID{"r1"}, model.SelectionAdd))
	m.Clear()
	snap := m.Snapshot()
	assert.Empty(t, snap.Rows)
	assert.Empty(t, snap.Cells)
	assert.Empty(t, snap.Columns)
}

func TestSnapshotIsDefensiveCopy(t *testing.T) {
	m := New(0)
	require.NoError(t, m.SelectRows([]model.RowID{"r1"}, model.SelectionAdd))
	snap := m.Snapshot()
	snap.Rows[model.RowID("r2")] = struct{}{}

	fresh := m.Snapshot()
	assert.Len(t, fresh.Rows, 1)
}

func TestEditSessionLifecycle(t *testing.T) {
	s := NewEditSession()
	assert.Equal(t, EditIdle, s.State())

	require.NoError(t, s.BeginEdit("r1", "name", "old"))
	assert.Equal(t, EditActive, s.State())

	var written interface{}
	require.NoError(t, s.UpdateCell("new", func(rowID model.RowID, column string, value interface{}) error {
		written = value
		return nil
	}))
	assert.Equal(t, "new", written)

	final, err := s.CommitEdit()
	require.NoError(t, err)
	assert.Equal(t, "new", final.CurrentValue)
	assert.Equal(t, EditIdle, s.State())
}

func TestEditSessionRejectsDoubleBegin(t *testing.T) {
	s := NewEditSession()
	require.NoError(t, s.BeginEdit("r1", "name", "old"))
	err := s.BeginEdit("r2", "age", 1)
	assert.Error(t, err)
}

func TestEditSessionCancelRestoresOriginal(t *testing.T) {
	s := NewEditSession()
	require.NoError(t, s.BeginEdit("r1", "name", "old"))
	require.NoError(t, s.UpdateCell("new", func(model.RowID, string, interface{}) error { return nil }))

	var restored interface{}
	final, err := s.CancelEdit(func(rowID model.RowID, column string, value interface{}) error {
		restored = value
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "old", restored)
	assert.Equal(t, "old", final.CurrentValue)
	assert.Equal(t, EditIdle, s.State())
}

func TestEditSessionOperationsFailWhenIdle(t *testing.T) {
	s := NewEditSession()
	err := s.UpdateCell("x", func(model.RowID, string, interface{}) error { return nil })
	assert.Error(t, err)

	_, err = s.CommitEdit()
	assert.Error(t, err)

	_, err = s.CancelEdit(func(model.RowID, string, interface{}) error { return nil })
	assert.Error(t, err)
}

func TestEditSessionCurrentReflectsActiveSlot(t *testing.T) {
	s := NewEditSession()
	_, ok := s.Current()
	assert.False(t, ok)

	require.NoError(t, s.BeginEdit("r1", "name", "old"))
	slot, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, model.RowID("r1"), slot.RowID)
}
