package importexport

import (
	"context"
	"time"

	"github.com/kasuganosora/datagrid/internal/griderr"
	"github.com/kasuganosora/datagrid/internal/model"
)

// ExportRequest configures one export call (spec §4.5 "Export").
type ExportRequest struct {
	Format                  Format
	OnlyFiltered            bool
	OnlyChecked             bool
	CheckboxColumn          string
	Columns                 []string // projection; nil/empty means every column
	IncludeValidationAlerts bool
	AlertsForRow            func(model.RowID) string // pre-formatted "__validationAlerts" value
	RemoveAfterExport       bool
	BatchSize               int
}

// ExportResult reports the outcome of an export (spec §4.5 "Export contract").
type ExportResult struct {
	Success          bool
	ExportedRows     int64
	Duration         time.Duration
	Format           Format
	DataSizeEstimate int64
	Table            *TableShape
	RowMappings      []model.Row
}

// Export selects rows per req's filters, materializes them into the
// requested shape, and — if req.RemoveAfterExport — removes the exported
// rows from st after a successful pass. Partial failure does not delete
// (spec §4.5 "remove_after_export").
func Export(ctx context.Context, st RowStore, req ExportRequest) (ExportResult, error) {
	started := time.Now()
	result := ExportResult{Format: req.Format}

	if req.Format != FormatTableShape && req.Format != FormatRowMappingList {
		return result, griderr.InvalidInput("importexport.Export", "unsupported export format: "+string(req.Format))
	}

	var selected []model.Row
	var selectedIDs []model.RowID

	st.WithReadLock(func(rows []model.Row, visible []bool, ids []model.RowID) {
		for i, row := range rows {
			if req.OnlyFiltered && i < len(visible) && !visible[i] {
				continue
			}
			if req.OnlyChecked && req.CheckboxColumn != "" {
				if v, ok := row[req.CheckboxColumn]; !ok || !truthy(v) {
					continue
				}
			}
			selected = append(selected, project(row, req))
			if i < len(ids) {
				selectedIDs = append(selectedIDs, ids[i])
				if req.IncludeValidationAlerts && req.AlertsForRow != nil {
					selected[len(selected)-1][model.ReservedValidationAlerts] = req.AlertsForRow(ids[i])
				}
			}
		}
	})

	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = 5000
	}
	estimate := int64(0)
	for start := 0; start < len(selected); start += batchSize {
		select {
		case <-ctx.Done():
			result.Duration = time.Since(started)
			return result, ctx.Err()
		default:
		}
		end := start + batchSize
		if end > len(selected) {
			end = len(selected)
		}
		for _, row := range selected[start:end] {
			estimate += estimateRowSize(row)
		}
	}

	switch req.Format {
	case FormatTableShape:
		result.Table = toTableShape(selected, req.Columns)
	case FormatRowMappingList:
		result.RowMappings = selected
	}

	result.ExportedRows = int64(len(selected))
	result.DataSizeEstimate = estimate
	result.Success = true
	result.Duration = time.Since(started)

	if req.RemoveAfterExport && len(selectedIDs) > 0 {
		if _, err := st.RemoveRows(selectedIDs); err != nil {
			result.Success = false
			return result, err
		}
	}
	return result, nil
}

func truthy(v interface{}) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return val == "true" || val == "1"
	case int:
		return val != 0
	case int64:
		return val != 0
	case float64:
		return val != 0
	default:
		return false
	}
}

func project(row model.Row, req ExportRequest) model.Row {
	if len(req.Columns) == 0 {
		return row.Clone()
	}
	out := make(model.Row, len(req.Columns))
	for _, c := range req.Columns {
		if v, ok := row[c]; ok {
			out[c] = v
		}
	}
	return out
}

func toTableShape(rows []model.Row, columns []string) *TableShape {
	headers := columns
	if len(headers) == 0 {
		seen := make(map[string]bool)
		for _, row := range rows {
			for k := range row {
				if seen[k] {
					continue
				}
				seen[k] = true
				headers = append(headers, k)
			}
		}
	}
	out := make([][]interface{}, len(rows))
	for i, row := range rows {
		vals := make([]interface{}, len(headers))
		for j, h := range headers {
			vals[j] = row[h]
		}
		out[i] = vals
	}
	return &TableShape{Headers: headers, Rows: out}
}

func estimateRowSize(row model.Row) int64 {
	size := int64(0)
	for k, v := range row {
		size += int64(len(k)) + 8
		if s, ok := v.(string); ok {
			size += int64(len(s))
		} else {
			size += 8
		}
	}
	return size
}
