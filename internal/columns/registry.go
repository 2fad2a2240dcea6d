// Package columns implements the column registry (spec §4.2): the owner of
// the grid's schema. Add/remove/reorder propagate to the row store via
// backfill, key-drop, and permutation validation respectively.
//
// Grounded on the teacher's pkg/resource/domain.TableInfo/ColumnInfo shape,
// adapted to the grid's reserved-field and special-column-tag model instead
// of SQL column metadata (nullable/primary/foreign-key concerns dropped,
// since the grid has no relational constraints).
package columns

import (
	"strings"
	"sync"

	"github.com/kasuganosora/datagrid/internal/griderr"
	"github.com/kasuganosora/datagrid/internal/model"
	"github.com/kasuganosora/datagrid/internal/store"
)

// Registry owns the column schema for one grid instance.
type Registry struct {
	mu        sync.RWMutex
	order     []string // canonical lower-cased names, in display order
	byName    map[string]*model.ColumnDef
	minWidth  float64
	maxWidth  float64
	store     *store.Store
}

// New creates a registry bound to store s, with the given width bounds
// (spec "width (numeric, bounded by a configurable [min_width, max_width])").
func New(s *store.Store, minWidth, maxWidth float64) *Registry {
	return &Registry{
		byName:   make(map[string]*model.ColumnDef),
		minWidth: minWidth,
		maxWidth: maxWidth,
		store:    s,
	}
}

func canon(name string) string { return strings.ToLower(name) }

// clampWidth bounds w to [minWidth, maxWidth].
func (r *Registry) clampWidth(w float64) float64 {
	if w < r.minWidth {
		return r.minWidth
	}
	if w > r.maxWidth {
		return r.maxWidth
	}
	return w
}

// AddColumn registers def, back-filling every existing row with its
// default value. Fails with Conflict if the name (case-insensitively)
// already exists.
func (r *Registry) AddColumn(def model.ColumnDef) error {
	r.mu.Lock()
	key := canon(def.Name)
	if _, exists := r.byName[key]; exists {
		r.mu.Unlock()
		return griderr.Conflict("columns.AddColumn", "duplicate column name: "+def.Name)
	}
	if def.Name == "" {
		r.mu.Unlock()
		return griderr.InvalidInput("columns.AddColumn", "column name must not be empty")
	}
	def.Width = r.clampWidth(def.Width)
	cp := def
	r.byName[key] = &cp
	r.order = append(r.order, key)
	r.mu.Unlock()

	r.store.BackfillColumn(def.Name, def.Default)
	return nil
}

// RemoveColumn drops name from the schema and deletes its key from every row.
func (r *Registry) RemoveColumn(name string) error {
	r.mu.Lock()
	key := canon(name)
	def, exists := r.byName[key]
	if !exists {
		r.mu.Unlock()
		return griderr.NotFound("columns.RemoveColumn", "unknown column: "+name)
	}
	delete(r.byName, key)
	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	r.store.DropColumn(def.Name)
	return nil
}

// UpdateColumn replaces an existing column's definition by removing the
// column and adding def, whatever changed: every row's value for the column
// is replaced by def.Default and the column moves to the end of the display
// order. The remove and the add each take the registry lock on their own,
// so the pair is not atomic with respect to concurrent callers.
func (r *Registry) UpdateColumn(def model.ColumnDef) error {
	r.mu.RLock()
	key := canon(def.Name)
	_, exists := r.byName[key]
	r.mu.RUnlock()
	if !exists {
		return griderr.NotFound("columns.UpdateColumn", "unknown column: "+def.Name)
	}
	if err := r.RemoveColumn(def.Name); err != nil {
		return err
	}
	return r.AddColumn(def)
}

// GetColumn returns a copy of the named column's definition.
func (r *Registry) GetColumn(name string) (model.ColumnDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.byName[canon(name)]
	if !ok {
		return model.ColumnDef{}, false
	}
	return *def, true
}

// GetColumnDefinitions returns every column definition in display order.
func (r *Registry) GetColumnDefinitions() []model.ColumnDef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.ColumnDef, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, *r.byName[key])
	}
	return out
}

// ReorderColumns validates that newOrder is a permutation of the current
// column set and, if so, applies it.
func (r *Registry) ReorderColumns(newOrder []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(newOrder) != len(r.order) {
		return griderr.Conflict("columns.ReorderColumns", "new order is not a permutation of the current columns")
	}
	seen := make(map[string]bool, len(newOrder))
	canonOrder := make([]string, len(newOrder))
	for i, name := range newOrder {
		key := canon(name)
		if _, ok := r.byName[key]; !ok {
			return griderr.Conflict("columns.ReorderColumns", "unknown column in new order: "+name)
		}
		if seen[key] {
			return griderr.Conflict("columns.ReorderColumns", "duplicate column in new order: "+name)
		}
		seen[key] = true
		canonOrder[i] = key
	}
	r.order = canonOrder
	return nil
}

// ResizeColumn clamps width to [min,max] and returns the applied width.
func (r *Registry) ResizeColumn(name string, width float64) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	def, ok := r.byName[canon(name)]
	if !ok {
		return 0, griderr.NotFound("columns.ResizeColumn", "unknown column: "+name)
	}
	def.Width = r.clampWidth(width)
	return def.Width, nil
}

// GetColumnWidth returns the current width of name.
func (r *Registry) GetColumnWidth(name string) (float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.byName[canon(name)]
	if !ok {
		return 0, griderr.NotFound("columns.GetColumnWidth", "unknown column: "+name)
	}
	return def.Width, nil
}

// CheckboxColumn returns the name of the column that drives "only-checked"
// export filtering, if one is registered. It relies solely on the explicit
// special-type tag / IsCheckboxUX flag, never on name heuristics (spec §9
// re-architecture guidance).
func (r *Registry) CheckboxColumn() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, key := range r.order {
		def := r.byName[key]
		if def.Special == model.SpecialCheckbox || def.IsCheckboxUX {
			return def.Name, true
		}
	}
	return "", false
}

// ValidationAlertsColumn returns the name of the column tagged to receive
// serialized alerts, if one is registered.
func (r *Registry) ValidationAlertsColumn() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, key := range r.order {
		def := r.byName[key]
		if def.Special == model.SpecialValidationAlerts {
			return def.Name, true
		}
	}
	return "", false
}

// Names returns every column name in display order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.byName[key].Name)
	}
	return out
}

// Exists reports whether name is a registered column.
func (r *Registry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byName[canon(name)]
	return ok
}
