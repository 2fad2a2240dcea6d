package datagrid

import (
	"context"
	"fmt"

	"github.com/kasuganosora/datagrid/gridconfig"
	"github.com/kasuganosora/datagrid/internal/model"
	"github.com/kasuganosora/datagrid/internal/scope"
	"github.com/kasuganosora/datagrid/internal/validation"
)

// AddRule registers rule, invalidating any prior alerts for a replaced rule
// id (spec §4.3 "Rule registry").
func (g *Grid) AddRule(rule model.Rule) error {
	if err := g.guard("datagrid.AddRule", gridconfig.FeatureValidation); err != nil {
		return err
	}
	_, replaced := g.rules.Get(rule.ID)
	if err := g.rules.AddRule(rule); err != nil {
		return err
	}
	if replaced {
		for _, id := range g.store.AllIDs() {
			for _, a := range g.store.GetValidationErrorsForRow(id) {
				if a.RuleID == rule.ID {
					g.store.MarkAlertsStale(id)
					break
				}
			}
		}
	}
	return nil
}

// RemoveRule removes a single rule by id.
func (g *Grid) RemoveRule(id string) error {
	if err := g.guard("datagrid.RemoveRule", gridconfig.FeatureValidation); err != nil {
		return err
	}
	return g.rules.RemoveRule(id)
}

// RemoveRules removes every rule depending on any of columns.
func (g *Grid) RemoveRules(columns []string) ([]string, error) {
	if err := g.guard("datagrid.RemoveRules", gridconfig.FeatureValidation); err != nil {
		return nil, err
	}
	return g.rules.RemoveRulesForColumns(columns), nil
}

// ClearAllRules removes every rule and group.
func (g *Grid) ClearAllRules() error {
	if err := g.guard("datagrid.ClearAllRules", gridconfig.FeatureValidation); err != nil {
		return err
	}
	g.rules.ClearAll()
	return nil
}

// maybeValidateRealTime is the write-path hook every row mutation calls:
// when real-time validation is enabled, it evaluates the row synchronously
// and stores the resulting alerts; changedCols nil means a full recheck.
// With a column list, prior alerts of rules that were not re-run are kept.
func (g *Grid) maybeValidateRealTime(id model.RowID, changedCols []string) {
	if !g.opts.Validation.EnableRealTimeValidation {
		g.store.MarkAlertsStale(id)
		return
	}
	row, ok := g.store.GetRowByID(id)
	if !ok {
		return
	}
	idx, _ := g.store.IndexOfRowID(id)
	alerts := validation.EvaluateRow(g.rules, row, id, idx, changedCols, g.store.GetAllRows, g.opts.Validation.DefaultRuleTimeout)
	if changedCols != nil {
		rerun := make(map[string]bool)
		for _, r := range g.rules.RulesForColumns(changedCols) {
			rerun[r.ID] = true
		}
		for _, a := range g.store.GetValidationErrorsForRow(id) {
			if !rerun[a.RuleID] {
				alerts = append(alerts, a)
			}
		}
	}
	g.store.SetAlerts(id, alerts)
}

// ValidateAll runs a full batch validation pass over the store (spec §6
// "validate_all").
func (g *Grid) ValidateAll(ctx context.Context, onlyFiltered, onlyChecked bool) (validation.BatchResult, error) {
	if err := g.guard("datagrid.ValidateAll", gridconfig.FeatureValidation); err != nil {
		return validation.BatchResult{}, err
	}
	s := g.beginScope(ctx, "datagrid.ValidateAll")
	src := g.rowSource()
	checkboxCol, _ := g.cols.CheckboxColumn()

	result, err := validation.ValidateAll(s.Context(), g.rules, src, validation.BatchOptions{
		OnlyFiltered:        onlyFiltered,
		OnlyChecked:         onlyChecked,
		CheckboxColumn:      checkboxCol,
		BatchSize:           g.opts.Validation.BatchSize,
		EnableParallel:      g.opts.Validation.EnableParallelProcessing,
		DegreeOfParallelism: g.opts.Validation.DegreeOfParallelism,
		ParallelThreshold:   g.opts.Validation.ParallelProcessingThreshold,
	}, int64(g.opts.Validation.DefaultRuleTimeout))
	if err != nil {
		s.Finish(scope.OutcomeFailure, err.Error())
		return result, err
	}
	for id, alerts := range result.AlertsByRow {
		g.store.SetAlerts(id, alerts)
	}
	s.Finish(scope.OutcomeSuccess, fmt.Sprintf("validated %d rows", result.TotalRows))
	return result, nil
}

// ValidateAllWithStatistics is validate_all plus the aggregate statistics
// already present on its result (spec §6 "validate_all_with_statistics" —
// both names resolve to the same call; the aggregate is always computed).
func (g *Grid) ValidateAllWithStatistics(ctx context.Context, onlyFiltered, onlyChecked bool) (validation.BatchResult, error) {
	return g.ValidateAll(ctx, onlyFiltered, onlyChecked)
}

// AreAllNonEmptyRowsValid is the pre-export validity gate (spec §4.3
// "Pre-export gate").
func (g *Grid) AreAllNonEmptyRowsValid(onlyFiltered, onlyChecked bool) (bool, error) {
	if err := g.guard("datagrid.AreAllNonEmptyRowsValid", gridconfig.FeatureValidation); err != nil {
		return false, err
	}
	src := g.rowSource()
	checkboxCol, _ := g.cols.CheckboxColumn()
	alerts := g.snapshotAlerts(src.IDs)
	return validation.AllNonEmptyRowsValid(src, alerts, onlyFiltered, onlyChecked, checkboxCol), nil
}

// GetValidationErrors returns the alert list of every row that has alerts,
// keyed by rowId. onlyFiltered limits it to visible rows; onlyChecked is
// not applied, so checked and unchecked rows are both returned.
func (g *Grid) GetValidationErrors(onlyFiltered, onlyChecked bool) (map[model.RowID][]model.Alert, error) {
	if err := g.guard("datagrid.GetValidationErrors", gridconfig.FeatureValidation); err != nil {
		return nil, err
	}
	src := g.rowSource()
	out := make(map[model.RowID][]model.Alert)
	for i, id := range src.IDs {
		if onlyFiltered && i < len(src.Visible) && !src.Visible[i] {
			continue
		}
		if alerts := g.store.GetValidationErrorsForRow(id); len(alerts) > 0 {
			out[id] = alerts
		}
	}
	return out, nil
}

// GetValidationAlerts returns the alert list stored for a single row.
func (g *Grid) GetValidationAlerts(id model.RowID) ([]model.Alert, error) {
	if err := g.guard("datagrid.GetValidationAlerts", gridconfig.FeatureValidation); err != nil {
		return nil, err
	}
	return g.store.GetValidationErrorsForRow(id), nil
}

// HasValidationErrors reports whether id currently has any Error-severity alert.
func (g *Grid) HasValidationErrors(id model.RowID) (bool, error) {
	if err := g.guard("datagrid.HasValidationErrors", gridconfig.FeatureValidation); err != nil {
		return false, err
	}
	for _, a := range g.store.GetValidationErrorsForRow(id) {
		if a.Severity == model.SeverityError {
			return true, nil
		}
	}
	return false, nil
}

// RefreshValidationResultsToUI serializes every row's alerts into the
// "__validationAlerts" reserved field of the snapshot it returns (spec
// §4.3 "Alert surfacing").
func (g *Grid) RefreshValidationResultsToUI() ([]model.Row, error) {
	if err := g.guard("datagrid.RefreshValidationResultsToUI", gridconfig.FeatureValidation); err != nil {
		return nil, err
	}
	rows := g.store.GetAllRows()
	for i := range rows {
		rawID, _ := rows[i][model.ReservedRowID].(string)
		alerts := g.store.GetValidationErrorsForRow(model.RowID(rawID))
		rows[i][model.ReservedValidationAlerts] = validation.FormatAlerts(alerts)
	}
	g.afterMutation("RefreshValidationResultsToUI")
	return rows, nil
}

func (g *Grid) snapshotAlerts(ids []model.RowID) map[model.RowID][]model.Alert {
	out := make(map[model.RowID][]model.Alert, len(ids))
	for _, id := range ids {
		out[id] = g.store.GetValidationErrorsForRow(id)
	}
	return out
}

// rowSource builds a validation.RowSource: a consistent snapshot of rows,
// visibility and ids taken under the store's read lock.
func (g *Grid) rowSource() validation.RowSource {
	var src validation.RowSource
	g.store.WithReadLock(func(rows []model.Row, visible []bool, ids []model.RowID) {
		src.Rows = append([]model.Row(nil), rows...)
		src.Visible = append([]bool(nil), visible...)
		src.IDs = append([]model.RowID(nil), ids...)
	})
	return src
}
