package validation

import (
	"sort"
	"strings"

	"github.com/kasuganosora/datagrid/internal/model"
)

// FormatAlerts renders a row's alerts into the "__validationAlerts" display
// string (spec §4.3 "UI refresh"): one "Severity: message" entry per alert,
// most severe first, joined with "; ". An empty alert list renders to "".
func FormatAlerts(alerts []model.Alert) string {
	if len(alerts) == 0 {
		return ""
	}
	sorted := append([]model.Alert(nil), alerts...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return model.MoreSevere(sorted[i].Severity, sorted[j].Severity)
	})

	parts := make([]string, 0, len(sorted))
	for _, a := range sorted {
		parts = append(parts, string(a.Severity)+": "+a.Message)
	}
	return strings.Join(parts, "; ")
}

// AllNonEmptyRowsValid reports whether every selected, non-empty row is
// free of Error-severity alerts (spec §6's pre-export validity gate: a row
// with only Warning/Info alerts still counts as valid; a wholly empty row
// is skipped rather than counted as invalid).
func AllNonEmptyRowsValid(src RowSource, alertsByRow map[model.RowID][]model.Alert, onlyFiltered, onlyChecked bool, checkboxColumn string) bool {
	opts := BatchOptions{OnlyFiltered: onlyFiltered, OnlyChecked: onlyChecked, CheckboxColumn: checkboxColumn}
	for _, sel := range selectRows(src, opts) {
		if isEmptyRow(sel.row) {
			continue
		}
		for _, a := range alertsByRow[sel.id] {
			if a.Severity == model.SeverityError {
				return false
			}
		}
	}
	return true
}

func isEmptyRow(row model.Row) bool {
	for k, v := range row {
		if k == model.ReservedRowID || k == model.ReservedValidationAlerts {
			continue
		}
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		return false
	}
	return true
}
