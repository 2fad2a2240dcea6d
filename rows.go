package datagrid

import (
	"github.com/kasuganosora/datagrid/gridconfig"
	"github.com/kasuganosora/datagrid/internal/griderr"
	"github.com/kasuganosora/datagrid/internal/model"
)

// AddRow appends row as a new row and returns its index and freshly
// allocated rowId (spec §6 "Rows: add_row").
func (g *Grid) AddRow(row model.Row) (int, model.RowID, error) {
	if err := g.guard("datagrid.AddRow", gridconfig.FeatureRows); err != nil {
		return 0, "", err
	}
	idx, id, err := g.store.AddRow(row)
	if err != nil {
		return 0, "", err
	}
	g.maybeValidateRealTime(id, nil)
	g.afterMutation("AddRow")
	return idx, id, nil
}

// AddRowsBatch appends many rows as one logical transaction.
func (g *Grid) AddRowsBatch(rows []model.Row) ([]model.RowID, error) {
	if err := g.guard("datagrid.AddRowsBatch", gridconfig.FeatureRows); err != nil {
		return nil, err
	}
	ids, err := g.store.AddRowsBatch(rows)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		g.maybeValidateRealTime(id, nil)
	}
	g.afterMutation("AddRowsBatch")
	return ids, nil
}

// InsertRow inserts row at rowIndex, shifting the tail.
func (g *Grid) InsertRow(rowIndex int, row model.Row) (model.RowID, error) {
	if err := g.guard("datagrid.InsertRow", gridconfig.FeatureRows); err != nil {
		return "", err
	}
	id, err := g.store.InsertRow(rowIndex, row)
	if err != nil {
		return "", err
	}
	g.maybeValidateRealTime(id, nil)
	g.afterMutation("InsertRow")
	return id, nil
}

// UpdateRow replaces the row identified by id and, if enabled, re-validates
// the changed columns in real time (spec §6 "Rows: update_row").
func (g *Grid) UpdateRow(id model.RowID, row model.Row, changedColumns []string) error {
	if err := g.guard("datagrid.UpdateRow", gridconfig.FeatureRows); err != nil {
		return err
	}
	if err := g.store.UpdateRowByID(id, row); err != nil {
		return err
	}
	g.maybeValidateRealTime(id, changedColumns)
	g.afterMutation("UpdateRow")
	return nil
}

// RemoveRow removes the row identified by id.
func (g *Grid) RemoveRow(id model.RowID) error {
	if err := g.guard("datagrid.RemoveRow", gridconfig.FeatureRows); err != nil {
		return err
	}
	if err := g.store.RemoveRowByID(id); err != nil {
		return err
	}
	g.afterMutation("RemoveRow")
	return nil
}

// RemoveRows removes every row in ids, returning the count actually removed.
func (g *Grid) RemoveRows(ids []model.RowID) (int64, error) {
	if err := g.guard("datagrid.RemoveRows", gridconfig.FeatureRows); err != nil {
		return 0, err
	}
	n, err := g.store.RemoveRows(ids)
	if err != nil {
		return 0, err
	}
	g.afterMutation("RemoveRows")
	return n, nil
}

// ClearAllRows empties the store.
func (g *Grid) ClearAllRows() error {
	if err := g.guard("datagrid.ClearAllRows", gridconfig.FeatureRows); err != nil {
		return err
	}
	g.store.ClearAllRows()
	g.afterMutation("ClearAllRows")
	return nil
}

// GetRow returns a copy of the row at rowIndex.
func (g *Grid) GetRow(rowIndex int) (model.Row, error) {
	if err := g.guard("datagrid.GetRow", gridconfig.FeatureRows); err != nil {
		return nil, err
	}
	row, ok := g.store.GetRow(rowIndex)
	if !ok {
		return nil, griderr.NotFound("datagrid.GetRow", "rowIndex out of range")
	}
	return row, nil
}

// GetRowByID returns a copy of the row identified by id.
func (g *Grid) GetRowByID(id model.RowID) (model.Row, error) {
	if err := g.guard("datagrid.GetRowByID", gridconfig.FeatureRows); err != nil {
		return nil, err
	}
	row, ok := g.store.GetRowByID(id)
	if !ok {
		return nil, griderr.NotFound("datagrid.GetRowByID", "unknown rowId")
	}
	return row, nil
}

// GetAllRows returns an owned snapshot of every row.
func (g *Grid) GetAllRows() ([]model.Row, error) {
	if err := g.guard("datagrid.GetAllRows", gridconfig.FeatureRows); err != nil {
		return nil, err
	}
	return g.store.GetAllRows(), nil
}

// GetRowCount returns the total row count, visible or not.
func (g *Grid) GetRowCount() (int, error) {
	if err := g.guard("datagrid.GetRowCount", gridconfig.FeatureRows); err != nil {
		return 0, err
	}
	return g.store.GetRowCount(), nil
}

// GetVisibleRowCount returns the number of currently-visible rows.
func (g *Grid) GetVisibleRowCount() (int, error) {
	if err := g.guard("datagrid.GetVisibleRowCount", gridconfig.FeatureRows); err != nil {
		return 0, err
	}
	return g.store.GetFilteredRowCount(), nil
}

// DuplicateRow clones the row identified by id and appends it as a new row.
func (g *Grid) DuplicateRow(id model.RowID) (model.RowID, error) {
	if err := g.guard("datagrid.DuplicateRow", gridconfig.FeatureRows); err != nil {
		return "", err
	}
	row, ok := g.store.GetRowByID(id)
	if !ok {
		return "", griderr.NotFound("datagrid.DuplicateRow", "unknown rowId")
	}
	_, newID, err := g.store.AddRow(row)
	if err != nil {
		return "", err
	}
	g.maybeValidateRealTime(newID, nil)
	g.afterMutation("DuplicateRow")
	return newID, nil
}

// GetRowIDByIndex returns the rowId currently at rowIndex.
func (g *Grid) GetRowIDByIndex(rowIndex int) (model.RowID, error) {
	if err := g.guard("datagrid.GetRowIDByIndex", gridconfig.FeatureRows); err != nil {
		return "", err
	}
	id, ok := g.store.RowIDAtIndex(rowIndex)
	if !ok {
		return "", griderr.NotFound("datagrid.GetRowIDByIndex", "rowIndex out of range")
	}
	return id, nil
}

// GetRowIndexByID returns the current index of id.
func (g *Grid) GetRowIndexByID(id model.RowID) (int, error) {
	if err := g.guard("datagrid.GetRowIndexByID", gridconfig.FeatureRows); err != nil {
		return 0, err
	}
	idx, ok := g.store.IndexOfRowID(id)
	if !ok {
		return 0, griderr.NotFound("datagrid.GetRowIndexByID", "unknown rowId")
	}
	return idx, nil
}

// GetSelectedRowIDs returns the rowIds currently present in the selection's
// row set (spec §6 "get_selected_row_id(s)").
func (g *Grid) GetSelectedRowIDs() ([]model.RowID, error) {
	if err := g.guard("datagrid.GetSelectedRowIDs", gridconfig.FeatureSelection); err != nil {
		return nil, err
	}
	snap := g.sel.Snapshot()
	out := make([]model.RowID, 0, len(snap.Rows))
	for id := range snap.Rows {
		out = append(out, id)
	}
	return out, nil
}
