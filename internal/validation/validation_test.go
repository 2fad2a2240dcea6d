package validation

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/datagrid/internal/model"
)

func ageRule() model.Rule {
	return model.Rule{
		ID:               "age-positive",
		Name:             "age must be positive",
		DependentColumns: []string{"age"},
		Severity:         model.SeverityError,
		Enabled:          true,
		Evaluate: func(row model.Row, ctx model.EvalContext) model.Outcome {
			age, _ := row["age"].(int)
			if age < 0 {
				return model.Fail(model.SeverityError, "age must not be negative", "age")
			}
			return model.Success()
		},
	}
}

func TestRegistryRulesForColumns(t *testing.T) {
	reg := New()
	require.NoError(t, reg.AddRule(ageRule()))

	rules := reg.RulesForColumns([]string{"age"})
	assert.Len(t, rules, 1)

	rules = reg.RulesForColumns([]string{"name"})
	assert.Empty(t, rules)

	rules = reg.RulesForColumns(nil)
	assert.Len(t, rules, 1)
}

func TestAddRuleReplacesExisting(t *testing.T) {
	reg := New()
	require.NoError(t, reg.AddRule(ageRule()))

	replacement := ageRule()
	replacement.Severity = model.SeverityWarning
	require.NoError(t, reg.AddRule(replacement))

	rule, ok := reg.Get("age-positive")
	require.True(t, ok)
	assert.Equal(t, model.SeverityWarning, rule.Severity)
	assert.Len(t, reg.RulesForColumns(nil), 1)
}

func TestAddRuleRejectsMissingEvaluator(t *testing.T) {
	reg := New()
	err := reg.AddRule(model.Rule{ID: "x", DependentColumns: []string{"a"}})
	assert.Error(t, err)
}

func TestEvaluateRowCollectsFailures(t *testing.T) {
	reg := New()
	require.NoError(t, reg.AddRule(ageRule()))

	alerts := EvaluateRow(reg, model.Row{"age": -1}, "r1", 0, []string{"age"}, nil, time.Second)
	require.Len(t, alerts, 1)
	assert.Equal(t, model.SeverityError, alerts[0].Severity)
	assert.Equal(t, "age", alerts[0].ColumnName)
}

func TestEvaluateRowPassesWithNoAlert(t *testing.T) {
	reg := New()
	require.NoError(t, reg.AddRule(ageRule()))

	alerts := EvaluateRow(reg, model.Row{"age": 5}, "r1", 0, []string{"age"}, nil, time.Second)
	assert.Empty(t, alerts)
}

func TestEvaluateRowCatchesPanic(t *testing.T) {
	reg := New()
	require.NoError(t, reg.AddRule(model.Rule{
		ID:               "crasher",
		DependentColumns: []string{"x"},
		Enabled:          true,
		Evaluate: func(row model.Row, ctx model.EvalContext) model.Outcome {
			panic("boom")
		},
	}))

	alerts := EvaluateRow(reg, model.Row{"x": 1}, "r1", 0, []string{"x"}, nil, time.Second)
	require.Len(t, alerts, 1)
	assert.Equal(t, model.SeverityError, alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "rule crashed")
}

func TestEvaluateRowTimesOut(t *testing.T) {
	reg := New()
	require.NoError(t, reg.AddRule(model.Rule{
		ID:               "slow",
		DependentColumns: []string{"x"},
		Enabled:          true,
		Timeout:          5 * time.Millisecond,
		Evaluate: func(row model.Row, ctx model.EvalContext) model.Outcome {
			time.Sleep(50 * time.Millisecond)
			return model.Success()
		},
	}))

	alerts := EvaluateRow(reg, model.Row{"x": 1}, "r1", 0, []string{"x"}, nil, time.Second)
	require.Len(t, alerts, 1)
	assert.Equal(t, model.SeverityWarning, alerts[0].Severity)
	assert.Equal(t, "timeout", alerts[0].Message)
}

func TestValidateAllAggregatesCounts(t *testing.T) {
	reg := New()
	require.NoError(t, reg.AddRule(ageRule()))

	src := RowSource{
		Rows:    []model.Row{{"age": 5}, {"age": -1}, {"age": 10}},
		IDs:     []model.RowID{"r1", "r2", "r3"},
		Visible: []bool{true, true, true},
	}

	result, err := ValidateAll(context.Background(), reg, src, BatchOptions{BatchSize: 2}, int64(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalRows)
	assert.Equal(t, 2, result.ValidRows)
	assert.Equal(t, 1, result.InvalidRows)
	assert.Equal(t, 1, result.ErrorsBySeverity[model.SeverityError])
}

func TestValidateAllHonorsOnlyFiltered(t *testing.T) {
	reg := New()
	require.NoError(t, reg.AddRule(ageRule()))

	src := RowSource{
		Rows:    []model.Row{{"age": -1}, {"age": -1}},
		IDs:     []model.RowID{"r1", "r2"},
		Visible: []bool{true, false},
	}

	result, err := ValidateAll(context.Background(), reg, src, BatchOptions{OnlyFiltered: true}, int64(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalRows)
}

func TestValidateAllParallelPathAggregatesWithoutDataRace(t *testing.T) {
	reg := New()
	require.NoError(t, reg.AddRule(ageRule()))

	const n = 4000
	rows := make([]model.Row, n)
	ids := make([]model.RowID, n)
	visible := make([]bool, n)
	invalidCount := 0
	for i := 0; i < n; i++ {
		age := i % 3
		if age == 0 {
			age = -1
			invalidCount++
		}
		rows[i] = model.Row{"age": age}
		ids[i] = model.RowID(strconv.Itoa(i))
		visible[i] = true
	}
	src := RowSource{Rows: rows, IDs: ids, Visible: visible}

	result, err := ValidateAll(context.Background(), reg, src, BatchOptions{
		BatchSize:           200,
		EnableParallel:      true,
		DegreeOfParallelism: 8,
		ParallelThreshold:   100,
	}, int64(time.Second))
	require.NoError(t, err)
	assert.Equal(t, n, result.TotalRows)
	assert.Equal(t, invalidCount, result.InvalidRows)
	assert.Equal(t, n-invalidCount, result.ValidRows)
	assert.Equal(t, invalidCount, result.ErrorsBySeverity[model.SeverityError])
	assert.Len(t, result.AlertsByRow, invalidCount)
}

func TestScheduleDecidesBulkForLargeBatches(t *testing.T) {
	mode := Decide(ScheduleInput{Trigger: model.TriggerRowEdit, AffectedRows: 100, BulkThreshold: 50})
	assert.Equal(t, model.ModeBulk, mode)
}

func TestScheduleDecidesRealTimeForSmallEditsWhenNotTyping(t *testing.T) {
	mode := Decide(ScheduleInput{Trigger: model.TriggerCellEdit, AffectedRows: 1, IsTyping: false})
	assert.Equal(t, model.ModeRealTime, mode)
}

func TestScheduleDefersToBulkForSmallEditsWhileTyping(t *testing.T) {
	mode := Decide(ScheduleInput{Trigger: model.TriggerCellEdit, AffectedRows: 1, IsTyping: true})
	assert.Equal(t, model.ModeBulk, mode)
}

func TestScheduleAlwaysBulksImportAndPaste(t *testing.T) {
	assert.Equal(t, model.ModeBulk, Decide(ScheduleInput{Trigger: model.TriggerImport, AffectedRows: 1}))
	assert.Equal(t, model.ModeBulk, Decide(ScheduleInput{Trigger: model.TriggerPaste, AffectedRows: 1}))
}

func TestFormatAlertsOrdersBySeverity(t *testing.T) {
	alerts := []model.Alert{
		{Severity: model.SeverityInfo, Message: "fyi"},
		{Severity: model.SeverityError, Message: "bad"},
		{Severity: model.SeverityWarning, Message: "meh"},
	}
	out := FormatAlerts(alerts)
	assert.Equal(t, "Error: bad; Warning: meh; Info: fyi", out)
}

func TestFormatAlertsEmpty(t *testing.T) {
	assert.Equal(t, "", FormatAlerts(nil))
}

func TestAllNonEmptyRowsValidSkipsEmptyRows(t *testing.T) {
	src := RowSource{
		Rows:    []model.Row{{}, {"name": "x"}},
		IDs:     []model.RowID{"r1", "r2"},
		Visible: []bool{true, true},
	}
	alerts := map[model.RowID][]model.Alert{
		"r2": {{Severity: model.SeverityWarning, Message: "minor"}},
	}
	assert.True(t, AllNonEmptyRowsValid(src, alerts, false, false, ""))

	alerts["r2"] = []model.Alert{{Severity: model.SeverityError, Message: "bad"}}
	assert.False(t, AllNonEmptyRowsValid(src, alerts, false, false, ""))
}
