package datagrid

import (
	"github.com/kasuganosora/datagrid/gridconfig"
	"github.com/kasuganosora/datagrid/internal/model"
)

// SelectCells applies mode to a set of cell refs (spec §4.6 "Selection").
func (g *Grid) SelectCells(cells []model.CellRef, mode model.SelectionMode) error {
	if err := g.guard("datagrid.SelectCells", gridconfig.FeatureSelection); err != nil {
		return err
	}
	return g.sel.SelectCells(cells, mode)
}

// SelectRows applies mode to a set of row ids.
func (g *Grid) SelectRows(ids []model.RowID, mode model.SelectionMode) error {
	if err := g.guard("datagrid.SelectRows", gridconfig.FeatureSelection); err != nil {
		return err
	}
	return g.sel.SelectRows(ids, mode)
}

// SelectColumns applies mode to a set of column names.
func (g *Grid) SelectColumns(names []string, mode model.SelectionMode) error {
	if err := g.guard("datagrid.SelectColumns", gridconfig.FeatureSelection); err != nil {
		return err
	}
	return g.sel.SelectColumns(names, mode)
}

// ClearSelection empties the current selection.
func (g *Grid) ClearSelection() error {
	if err := g.guard("datagrid.ClearSelection", gridconfig.FeatureSelection); err != nil {
		return err
	}
	g.sel.Clear()
	return nil
}

// GetSelection returns a defensive copy of the current selection.
func (g *Grid) GetSelection() (model.Selection, error) {
	if err := g.guard("datagrid.GetSelection", gridconfig.FeatureSelection); err != nil {
		return model.Selection{}, err
	}
	return g.sel.Snapshot(), nil
}

// BeginEdit opens a new edit session on (rowId, columnName), capturing its
// current value as the session's original value (spec §4.6 "Edit Session").
func (g *Grid) BeginEdit(rowID model.RowID, columnName string) error {
	if err := g.guard("datagrid.BeginEdit", gridconfig.FeatureEdit); err != nil {
		return err
	}
	row, ok := g.store.GetRowByID(rowID)
	if !ok {
		row = model.Row{}
	}
	return g.editSess.BeginEdit(rowID, columnName, row[columnName])
}

// UpdateCell writes value through to the store for the active session's
// cell and, if real-time validation is enabled, re-evaluates the row.
func (g *Grid) UpdateCell(value interface{}) error {
	if err := g.guard("datagrid.UpdateCell", gridconfig.FeatureEdit); err != nil {
		return err
	}
	err := g.editSess.UpdateCell(value, func(rowID model.RowID, column string, v interface{}) error {
		row, ok := g.store.GetRowByID(rowID)
		if !ok {
			row = model.Row{}
		}
		row[column] = v
		if uErr := g.store.UpdateRowByID(rowID, row); uErr != nil {
			return uErr
		}
		g.maybeValidateRealTime(rowID, []string{column})
		return nil
	})
	if err != nil {
		return err
	}
	g.afterMutation("UpdateCell")
	return nil
}

// CommitEdit keeps the store's current state and returns the session to Idle.
func (g *Grid) CommitEdit() (model.EditSession, error) {
	if err := g.guard("datagrid.CommitEdit", gridconfig.FeatureEdit); err != nil {
		return model.EditSession{}, err
	}
	return g.editSess.CommitEdit()
}

// CancelEdit restores the original value and returns the session to Idle.
func (g *Grid) CancelEdit() (model.EditSession, error) {
	if err := g.guard("datagrid.CancelEdit", gridconfig.FeatureEdit); err != nil {
		return model.EditSession{}, err
	}
	final, err := g.editSess.CancelEdit(func(rowID model.RowID, column string, v interface{}) error {
		row, ok := g.store.GetRowByID(rowID)
		if !ok {
			row = model.Row{}
		}
		row[column] = v
		return g.store.UpdateRowByID(rowID, row)
	})
	if err != nil {
		return model.EditSession{}, err
	}
	g.afterMutation("CancelEdit")
	return final, nil
}
