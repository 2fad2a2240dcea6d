package validation

import (
	"context"
	"sync"
	"time"

	"github.com/kasuganosora/datagrid/internal/model"
	"github.com/kasuganosora/datagrid/internal/workerpool"
)

// RowSource is the minimal view of the store a batch validation pass needs:
// it must not know about the store's lock, only iterate a consistent
// snapshot handed to it by the caller.
type RowSource struct {
	Rows    []model.Row
	IDs     []model.RowID
	Visible []bool
}

// BatchOptions configures validate_all (spec §4.3 "Batch / dataset
// evaluation").
type BatchOptions struct {
	OnlyFiltered        bool
	OnlyChecked         bool
	CheckboxColumn      string
	BatchSize           int
	EnableParallel      bool
	DegreeOfParallelism int
	ParallelThreshold   int
	Progress            func(fraction float64)
}

// BatchResult aggregates the outcome of a full validation pass.
type BatchResult struct {
	TotalRows        int
	ValidRows        int
	InvalidRows      int
	ErrorsBySeverity map[model.Severity]int
	AlertsByRow      map[model.RowID][]model.Alert
}

// ValidateAll iterates src in batches of opts.BatchSize, running a full
// recheck (changedCols=nil) on each selected row. Batches run in parallel
// via the worker pool when opts.EnableParallel is set and the total
// selected row count exceeds opts.ParallelThreshold (spec §4.3 "Smart
// scheduling").
func ValidateAll(ctx context.Context, reg *Registry, src RowSource, opts BatchOptions, defaultTimeout int64) (BatchResult, error) {
	selected := selectRows(src, opts)

	result := BatchResult{
		ErrorsBySeverity: make(map[model.Severity]int),
		AlertsByRow:      make(map[model.RowID][]model.Alert),
	}
	result.TotalRows = len(selected)
	if len(selected) == 0 {
		return result, nil
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 1000
	}
	batches := chunk(selected, batchSize)

	useParallel := opts.EnableParallel && len(selected) > opts.ParallelThreshold
	processed := 0
	timeout := time.Duration(defaultTimeout)

	// mu guards result and processed: the parallel path below runs process
	// on multiple workerpool goroutines at once (spec §5 "results merge
	// back under the store lock"), so every write to the shared aggregate
	// and to the progress counter must be serialized through it.
	var mu sync.Mutex

	report := func() {
		if opts.Progress != nil {
			mu.Lock()
			processed += batchSize
			frac := float64(processed) / float64(len(selected))
			mu.Unlock()
			if frac > 1 {
				frac = 1
			}
			opts.Progress(frac)
		}
	}

	process := func(ctx context.Context, b []selectedRow) error {
		local := BatchResult{
			ErrorsBySeverity: make(map[model.Severity]int),
			AlertsByRow:      make(map[model.RowID][]model.Alert),
		}
		for _, row := range b {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			alerts := EvaluateRow(reg, row.row, row.id, row.index, nil, func() []model.Row { return src.Rows }, timeout)
			recordResult(&local, row.id, alerts)
		}
		mu.Lock()
		mergeResult(&result, &local)
		mu.Unlock()
		return nil
	}

	if useParallel {
		pool, err := workerpool.New(maxInt(opts.DegreeOfParallelism, 1))
		if err != nil {
			return result, err
		}
		defer pool.Close()
		err = workerpool.RunBatches(ctx, pool, batches, func(ctx context.Context, b []selectedRow) error {
			err := process(ctx, b)
			report()
			return err
		})
		if err != nil {
			return result, err
		}
	} else {
		for _, b := range batches {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			default:
			}
			if err := process(ctx, b); err != nil {
				return result, err
			}
			report()
		}
	}

	if opts.Progress != nil {
		opts.Progress(1)
	}
	return result, nil
}

type selectedRow struct {
	row   model.Row
	id    model.RowID
	index int
}

func selectRows(src RowSource, opts BatchOptions) []selectedRow {
	out := make([]selectedRow, 0, len(src.Rows))
	for i, row := range src.Rows {
		if opts.OnlyFiltered && i < len(src.Visible) && !src.Visible[i] {
			continue
		}
		if opts.OnlyChecked && opts.CheckboxColumn != "" {
			if v, ok := row[opts.CheckboxColumn]; !ok || !truthy(v) {
				continue
			}
		}
		var id model.RowID
		if i < len(src.IDs) {
			id = src.IDs[i]
		}
		out = append(out, selectedRow{row: row, id: id, index: i})
	}
	return out
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

func recordResult(result *BatchResult, id model.RowID, alerts []model.Alert) {
	if len(alerts) == 0 {
		result.ValidRows++
		return
	}
	result.InvalidRows++
	result.AlertsByRow[id] = alerts
	for _, a := range alerts {
		result.ErrorsBySeverity[a.Severity]++
	}
}

// mergeResult folds a single batch's local aggregate into the shared
// result. Callers must hold result's guarding mutex.
func mergeResult(result, local *BatchResult) {
	result.ValidRows += local.ValidRows
	result.InvalidRows += local.InvalidRows
	for id, alerts := range local.AlertsByRow {
		result.AlertsByRow[id] = alerts
	}
	for severity, count := range local.ErrorsBySeverity {
		result.ErrorsBySeverity[severity] += count
	}
}

func chunk(rows []selectedRow, size int) [][]selectedRow {
	var out [][]selectedRow
	for i := 0; i < len(rows); i += size {
		end := i + size
		if end > len(rows) {
			end = len(rows)
		}
		out = append(out, rows[i:end])
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
