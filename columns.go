package datagrid

import (
	"github.com/kasuganosora/datagrid/gridconfig"
	"github.com/kasuganosora/datagrid/internal/griderr"
	"github.com/kasuganosora/datagrid/internal/model"
)

// AddColumn registers def and back-fills every existing row with its
// default value (spec §6 "Columns: add_column").
func (g *Grid) AddColumn(def model.ColumnDef) error {
	if err := g.guard("datagrid.AddColumn", gridconfig.FeatureColumns); err != nil {
		return err
	}
	if err := g.cols.AddColumn(def); err != nil {
		return err
	}
	g.afterMutation("AddColumn")
	return nil
}

// RemoveColumn drops name from the schema and every row.
func (g *Grid) RemoveColumn(name string) error {
	if err := g.guard("datagrid.RemoveColumn", gridconfig.FeatureColumns); err != nil {
		return err
	}
	if err := g.cols.RemoveColumn(name); err != nil {
		return err
	}
	g.rules.RemoveRulesForColumns([]string{name})
	g.afterMutation("RemoveColumn")
	return nil
}

// UpdateColumn replaces an existing column's definition.
func (g *Grid) UpdateColumn(def model.ColumnDef) error {
	if err := g.guard("datagrid.UpdateColumn", gridconfig.FeatureColumns); err != nil {
		return err
	}
	if err := g.cols.UpdateColumn(def); err != nil {
		return err
	}
	g.afterMutation("UpdateColumn")
	return nil
}

// GetColumn returns a copy of the named column's definition.
func (g *Grid) GetColumn(name string) (model.ColumnDef, error) {
	if err := g.guard("datagrid.GetColumn", gridconfig.FeatureColumns); err != nil {
		return model.ColumnDef{}, err
	}
	def, ok := g.cols.GetColumn(name)
	if !ok {
		return model.ColumnDef{}, griderr.NotFound("datagrid.GetColumn", "unknown column: "+name)
	}
	return def, nil
}

// GetColumnDefinitions returns every column definition in display order.
func (g *Grid) GetColumnDefinitions() ([]model.ColumnDef, error) {
	if err := g.guard("datagrid.GetColumnDefinitions", gridconfig.FeatureColumns); err != nil {
		return nil, err
	}
	return g.cols.GetColumnDefinitions(), nil
}

// ReorderColumns validates newOrder is a permutation of the current set and
// applies it.
func (g *Grid) ReorderColumns(newOrder []string) error {
	if err := g.guard("datagrid.ReorderColumns", gridconfig.FeatureColumns); err != nil {
		return err
	}
	if err := g.cols.ReorderColumns(newOrder); err != nil {
		return err
	}
	g.afterMutation("ReorderColumns")
	return nil
}

// ResizeColumn clamps width to [min,max] and returns the applied width.
func (g *Grid) ResizeColumn(name string, width float64) (float64, error) {
	if err := g.guard("datagrid.ResizeColumn", gridconfig.FeatureColumns); err != nil {
		return 0, err
	}
	applied, err := g.cols.ResizeColumn(name, width)
	if err != nil {
		return 0, err
	}
	g.afterMutation("ResizeColumn")
	return applied, nil
}

// GetColumnWidth returns the current width of name.
func (g *Grid) GetColumnWidth(name string) (float64, error) {
	if err := g.guard("datagrid.GetColumnWidth", gridconfig.FeatureColumns); err != nil {
		return 0, err
	}
	return g.cols.GetColumnWidth(name)
}
