package datagrid

import (
	"context"
	"fmt"
	"strings"

	"github.com/kasuganosora/datagrid/gridconfig"
	"github.com/kasuganosora/datagrid/internal/model"
	"github.com/kasuganosora/datagrid/internal/query"
	"github.com/kasuganosora/datagrid/internal/scope"
)

// Sort returns a freshly ordered copy of the current visible-or-all rows
// (spec §4.4 "Sort"). scope follows the same {AllData,VisibleData,
// SelectedData,FilteredData} resolution as Search. Concurrent identical
// requests against the same store generation are collapsed onto a single
// computation and served from the result cache (spec §4 domain stack,
// singleflight wiring).
func (g *Grid) Sort(scope model.SearchScope, column string, direction model.SortDirection) ([]model.Row, error) {
	if err := g.guard("datagrid.Sort", gridconfig.FeatureQuery); err != nil {
		return nil, err
	}
	key := fmt.Sprintf("sort:%s:%s:%s", scope, column, direction)
	return g.cachedRows(key, func() ([]model.Row, error) {
		rows, err := g.resolveScope(scope)
		if err != nil {
			return nil, err
		}
		return query.Sort(rows, column, direction), nil
	})
}

// MultiSort stably orders rows by multiple keys in declared order.
func (g *Grid) MultiSort(scope model.SearchScope, keys []model.SortKey) ([]model.Row, error) {
	if err := g.guard("datagrid.MultiSort", gridconfig.FeatureQuery); err != nil {
		return nil, err
	}
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = string(k.Column) + "-" + string(k.Direction)
	}
	key := fmt.Sprintf("multisort:%s:%s", scope, strings.Join(parts, ","))
	return g.cachedRows(key, func() ([]model.Row, error) {
		rows, err := g.resolveScope(scope)
		if err != nil {
			return nil, err
		}
		return query.MultiSort(rows, keys), nil
	})
}

// ApplyFilter mutates the store's visibility bitmap and returns the count
// of now-visible rows (spec §4.4 "apply_filter").
func (g *Grid) ApplyFilter(filter model.Filter) (int, error) {
	if err := g.guard("datagrid.ApplyFilter", gridconfig.FeatureQuery); err != nil {
		return 0, err
	}
	var visible []bool
	g.store.WithReadLock(func(rows []model.Row, _ []bool, _ []model.RowID) {
		visible = query.ApplyFilter(rows, filter)
	})
	if err := g.store.SetVisible(visible); err != nil {
		return 0, err
	}
	count := 0
	for _, v := range visible {
		if v {
			count++
		}
	}
	g.afterMutation("ApplyFilter")
	return count, nil
}

// ClearFilters restores every row to visible and returns the total count.
func (g *Grid) ClearFilters() (int, error) {
	if err := g.guard("datagrid.ClearFilters", gridconfig.FeatureQuery); err != nil {
		return 0, err
	}
	n := g.store.ClearFilters()
	g.afterMutation("ClearFilters")
	return n, nil
}

// Search performs a basic substring/whole-word search (spec §4.4 "Search").
// Identical concurrent searches against the same store generation share one
// computation (spec §4 domain stack, singleflight wiring).
func (g *Grid) Search(scope model.SearchScope, req query.Request) (query.Result, error) {
	if err := g.guard("datagrid.Search", gridconfig.FeatureQuery); err != nil {
		return query.Result{}, err
	}
	key := fmt.Sprintf("search:%s:%q:%v:%v:%q", scope, req.Text, req.WholeWord, req.CaseSensitive, req.Columns)
	return g.cachedSearch(key, func() (query.Result, error) {
		rows, ids, err := g.resolveScopeWithIDs(scope)
		if err != nil {
			return query.Result{}, err
		}
		return query.Search(rows, ids, req), nil
	})
}

// AdvancedSearch runs the richer search contract, optionally in parallel.
func (g *Grid) AdvancedSearch(ctx context.Context, searchScope model.SearchScope, req query.AdvancedRequest) (query.Result, error) {
	if err := g.guard("datagrid.AdvancedSearch", gridconfig.FeatureQuery); err != nil {
		return query.Result{}, err
	}
	s := g.beginScope(ctx, "datagrid.AdvancedSearch")
	key := fmt.Sprintf("advsearch:%s:%q:%s:%s:%d:%v:%v:%q:%v", searchScope, req.Text, req.Mode, req.Ranking, req.MaxMatches,
		req.CaseSensitive, req.WholeWord, req.Columns, req.FuzzyThreshold)
	result, err := g.cachedSearch(key, func() (query.Result, error) {
		rows, ids, err := g.resolveScopeWithIDs(searchScope)
		if err != nil {
			return query.Result{}, err
		}
		return query.AdvancedSearch(s.Context(), rows, ids, req)
	})
	if err != nil {
		s.Finish(scope.OutcomeFailure, err.Error())
		return result, err
	}
	s.Finish(scope.OutcomeSuccess, fmt.Sprintf("matched %d rows", len(result.Matches)))
	return result, nil
}

// StreamRows returns a finite, non-restartable iterator over a coherent
// snapshot of the store's rows captured at call time (spec §4.1
// "stream_rows"). batchSize <= 0 falls back to opts.Query.StreamBatchSize.
// Each call to the returned function yields the next batch; it returns
// (nil, false) once exhausted.
func (g *Grid) StreamRows(onlyFiltered bool, batchSize int) (func() ([]model.Row, bool), error) {
	if err := g.guard("datagrid.StreamRows", gridconfig.FeatureQuery); err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		batchSize = g.opts.Query.StreamBatchSize
	}
	next := g.store.StreamRows(onlyFiltered, batchSize)
	return func() ([]model.Row, bool) {
		batch, ok := next()
		if !ok {
			return nil, false
		}
		return batch.Rows, true
	}, nil
}

// cachedRows serves key from the row-result cache when present, otherwise
// computes it once per (key, store generation) even under concurrent
// callers: every caller racing for the same key blocks on the same
// singleflight call instead of recomputing independently.
func (g *Grid) cachedRows(key string, compute func() ([]model.Row, error)) ([]model.Row, error) {
	if g.rowCache == nil {
		return compute()
	}
	full := fmt.Sprintf("%d:%s", g.store.Generation(), key)
	if cached, ok := g.rowCache.Get(full); ok {
		return cloneRows(cached), nil
	}
	v, err, _ := g.querySF.Do(full, func() (interface{}, error) {
		rows, err := compute()
		if err != nil {
			return nil, err
		}
		g.rowCache.Set(full, rows)
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneRows(v.([]model.Row)), nil
}

// cachedSearch is cachedRows' counterpart for query.Result-shaped calls.
func (g *Grid) cachedSearch(key string, compute func() (query.Result, error)) (query.Result, error) {
	if g.searchCache == nil {
		return compute()
	}
	full := fmt.Sprintf("%d:%s", g.store.Generation(), key)
	if cached, ok := g.searchCache.Get(full); ok {
		return cached, nil
	}
	v, err, _ := g.querySF.Do(full, func() (interface{}, error) {
		result, err := compute()
		if err != nil {
			return query.Result{}, err
		}
		g.searchCache.Set(full, result)
		return result, nil
	})
	if err != nil {
		return query.Result{}, err
	}
	return v.(query.Result), nil
}

func cloneRows(rows []model.Row) []model.Row {
	out := make([]model.Row, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}

func (g *Grid) resolveScope(scope model.SearchScope) ([]model.Row, error) {
	rows, _, err := g.resolveScopeWithIDs(scope)
	return rows, err
}

func (g *Grid) resolveScopeWithIDs(scope model.SearchScope) ([]model.Row, []model.RowID, error) {
	switch scope {
	case model.ScopeAllData, "":
		return g.store.GetAllRows(), g.store.AllIDs(), nil
	case model.ScopeVisibleData, model.ScopeFilteredData:
		var rows []model.Row
		var ids []model.RowID
		g.store.WithReadLock(func(allRows []model.Row, visible []bool, allIDs []model.RowID) {
			for i, row := range allRows {
				if i < len(visible) && !visible[i] {
					continue
				}
				rows = append(rows, row.Clone())
				if i < len(allIDs) {
					ids = append(ids, allIDs[i])
				}
			}
		})
		return rows, ids, nil
	case model.ScopeSelectedData:
		snap := g.sel.Snapshot()
		var rows []model.Row
		var ids []model.RowID
		for id := range snap.Rows {
			if row, ok := g.store.GetRowByID(id); ok {
				rows = append(rows, row)
				ids = append(ids, id)
			}
		}
		return rows, ids, nil
	default:
		return g.store.GetAllRows(), g.store.AllIDs(), nil
	}
}
