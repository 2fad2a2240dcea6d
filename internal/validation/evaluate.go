package validation

import (
	"time"

	"github.com/kasuganosora/datagrid/internal/model"
)

// EvaluateRow runs every applicable rule (per changedCols, or every enabled
// rule if changedCols is nil) against row and returns one alert for each of
// those rules that failed (spec §4.3 "Row evaluation"). It does not see the
// row's prior alerts; merging them with the result is left to the caller.
// rowID is stamped onto every alert.
func EvaluateRow(reg *Registry, row model.Row, rowID model.RowID, rowIndex int, changedCols []string, tableRows func() []model.Row, defaultTimeout time.Duration) []model.Alert {
	rules := reg.RulesForColumns(changedCols)
	alerts := make([]model.Alert, 0, len(rules))

	ctx := model.EvalContext{RowIndex: rowIndex, TableRows: tableRows, ChangedCols: changedCols}

	for _, rule := range rules {
		outcome := evaluateOne(rule, row, ctx, defaultTimeout)
		if outcome.Success {
			continue
		}
		col := outcome.AffectedColumn
		if col == "" && len(rule.DependentColumns) > 0 {
			col = rule.DependentColumns[0]
		}
		alerts = append(alerts, model.Alert{
			RowID:      rowID,
			RuleID:     rule.ID,
			ColumnName: col,
			RuleName:   rule.Name,
			Severity:   outcome.Severity,
			Message:    outcome.Message,
			ErrorCode:  outcome.ErrorCode,
		})
	}
	return alerts
}

// evaluateOne runs a single rule under its timeout, catching panics (spec
// §4.3 "Failure semantics": a rule that throws is caught, the row receives
// Failure(Error, "rule crashed: …") and evaluation continues; a timeout
// yields a synthetic Warning).
func evaluateOne(rule model.Rule, row model.Row, ctx model.EvalContext, defaultTimeout time.Duration) (outcome model.Outcome) {
	timeout := rule.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if timeout <= 0 {
		return runCatching(rule, row, ctx)
	}

	type result struct{ outcome model.Outcome }
	done := make(chan result, 1)
	go func() {
		done <- result{runCatching(rule, row, ctx)}
	}()

	select {
	case r := <-done:
		return r.outcome
	case <-time.After(timeout):
		return model.Fail(model.SeverityWarning, "timeout", "")
	}
}

// runCatching invokes rule.Evaluate, converting a panic into a synthetic
// Error outcome instead of propagating it (spec §4.3, §7 "RuleCrashed").
func runCatching(rule model.Rule, row model.Row, ctx model.EvalContext) (outcome model.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = model.Fail(model.SeverityError, "rule crashed: "+panicMessage(r), "")
		}
	}()
	return rule.Evaluate(row, ctx)
}

func panicMessage(r interface{}) string {
	if err, ok := r.(error); ok {
		return err.Error()
	}
	if s, ok := r.(string); ok {
		return s
	}
	return "unknown panic"
}
