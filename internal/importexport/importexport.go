// Package importexport implements the two fixed import/export shapes (spec
// §4.5): a table shape (headers + typed rows) and a row-mapping list.
//
// Grounded on the teacher's pkg/resource/csv/adapter.go streaming-batch
// pattern and pkg/resource/memory.MVCCDataSource's BulkLoad callback style
// ("addPage" fed in pages, errors abort the whole load), adapted to the
// grid's two in-memory-only shapes — there is no file or wire format here,
// only in-process data already materialized by the caller.
package importexport

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kasuganosora/datagrid/internal/griderr"
	"github.com/kasuganosora/datagrid/internal/model"
)

// Format enumerates the two supported shapes. Any other value fails
// validation (spec §4.5 "Supported formats").
type Format string

const (
	FormatTableShape     Format = "TableShape"
	FormatRowMappingList Format = "RowMappingList"
)

// TableShape is headers-plus-rows, column-positional.
type TableShape struct {
	Headers []string
	Rows    [][]interface{}
}

// ToRowMappings converts a TableShape into row mappings keyed by header.
func (t TableShape) ToRowMappings() []model.Row {
	out := make([]model.Row, 0, len(t.Rows))
	for _, r := range t.Rows {
		row := make(model.Row, len(t.Headers))
		for i, h := range t.Headers {
			if i < len(r) {
				row[h] = r[i]
			}
		}
		out = append(out, row)
	}
	return out
}

// RowStore is the minimal surface Import/Export need from the row store,
// kept narrow so this package stays a pure function of its dependencies
// rather than importing internal/store directly (mirrors the teacher's
// BulkLoad callback indirection).
type RowStore interface {
	ClearAllRows()
	AddRowsBatch(rows []model.Row) ([]model.RowID, error)
	GetRowByID(id model.RowID) (model.Row, bool)
	UpdateRowByID(id model.RowID, row model.Row) error
	RemoveRows(ids []model.RowID) (int64, error)
	WithReadLock(fn func(rows []model.Row, visible []bool, ids []model.RowID))
}

// ColumnChecker reports whether a column name is already registered, and
// registers one that is not (used when ExpandSchema is set).
type ColumnChecker interface {
	Exists(name string) bool
	AddColumn(def model.ColumnDef) error
}

// ImportRequest configures one import call.
type ImportRequest struct {
	Mode               model.ImportMode
	Format             Format
	Table              *TableShape
	RowMappings        []model.Row
	ExpandSchema       bool
	BatchSize          int
	RealTimeValidation bool
	OnBatch            func(ctx context.Context, rows []model.Row, ids []model.RowID) error // validation enqueue hook
}

// ImportResult reports the outcome of an import.
type ImportResult struct {
	ImportedRows  int64
	FailedRows    int64
	Duration      time.Duration
	ErrorMessages []string
}

// Import optionally expands the schema, streams rows in batches, and
// appends/merges them into the store per req.Mode (spec §4.5 "Import"
// steps 1-4). Headers are not checked against the registered columns:
// with ExpandSchema unset, keys that name no registered column are stored
// as given, not dropped.
func Import(ctx context.Context, st RowStore, cols ColumnChecker, req ImportRequest) (ImportResult, error) {
	started := time.Now()
	result := ImportResult{}

	rows, err := resolveRows(req)
	if err != nil {
		return result, err
	}

	if req.ExpandSchema {
		expandSchema(cols, rows)
	}

	if req.Mode == model.ImportReplace {
		st.ClearAllRows()
	}

	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = 5000
	}

	for start := 0; start < len(rows); start += batchSize {
		select {
		case <-ctx.Done():
			result.Duration = time.Since(started)
			return result, ctx.Err()
		default:
		}

		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]

		ids, failed, errs := applyBatch(st, req.Mode, batch)
		result.ImportedRows += int64(len(ids))
		result.FailedRows += int64(failed)
		result.ErrorMessages = append(result.ErrorMessages, errs...)

		if req.OnBatch != nil && len(ids) > 0 {
			matched := make([]model.Row, len(ids))
			for i, id := range ids {
				matched[i], _ = st.GetRowByID(id)
			}
			if err := req.OnBatch(ctx, matched, ids); err != nil {
				result.ErrorMessages = append(result.ErrorMessages, err.Error())
			}
		}
	}

	result.Duration = time.Since(started)
	return result, nil
}

func resolveRows(req ImportRequest) ([]model.Row, error) {
	switch req.Format {
	case FormatTableShape:
		if req.Table == nil {
			return nil, griderr.InvalidInput("importexport.Import", "table shape requested but no table provided")
		}
		return req.Table.ToRowMappings(), nil
	case FormatRowMappingList:
		return req.RowMappings, nil
	default:
		return nil, griderr.InvalidInput("importexport.Import", "unsupported import format: "+string(req.Format))
	}
}

func expandSchema(cols ColumnChecker, rows []model.Row) {
	seen := make(map[string]bool)
	for _, row := range rows {
		for k := range row {
			if k == model.ReservedRowID || k == model.ReservedValidationAlerts {
				continue
			}
			if seen[k] || cols.Exists(k) {
				continue
			}
			seen[k] = true
			_ = cols.AddColumn(model.ColumnDef{Name: k, Type: model.DataTypeAny, Visible: true})
		}
	}
}

// applyBatch appends or merges one batch depending on mode. Merge matches
// by rowId when the row carries one that already exists in the store;
// unmatched merge rows fall back to append, per spec §4.5.
func applyBatch(st RowStore, mode model.ImportMode, batch []model.Row) (ids []model.RowID, failed int, errs []string) {
	if mode != model.ImportMerge {
		newIDs, err := st.AddRowsBatch(batch)
		if err != nil {
			return nil, len(batch), []string{err.Error()}
		}
		return newIDs, 0, nil
	}

	var toAppend []model.Row
	for _, row := range batch {
		rawID, hasID := row[model.ReservedRowID]
		if !hasID {
			toAppend = append(toAppend, row)
			continue
		}
		id := model.RowID(toStringValue(rawID))
		if _, exists := st.GetRowByID(id); !exists {
			toAppend = append(toAppend, row)
			continue
		}
		if err := st.UpdateRowByID(id, row); err != nil {
			failed++
			errs = append(errs, err.Error())
			continue
		}
		ids = append(ids, id)
	}
	if len(toAppend) > 0 {
		newIDs, err := st.AddRowsBatch(toAppend)
		if err != nil {
			failed += len(toAppend)
			errs = append(errs, err.Error())
		} else {
			ids = append(ids, newIDs...)
		}
	}
	return ids, failed, errs
}

func toStringValue(v interface{}) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprintf("%v", v))
}
