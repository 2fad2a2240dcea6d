// Package datagrid is the façade for the in-memory tabular grid engine
// (spec §4.7): thin dispatch over the row store, column registry,
// validation subsystem, query pipeline, import/export, and selection/edit
// session services, adding lifecycle, feature gating, and a UI-refresh
// hook on top.
//
// Grounded on the teacher's CSV/Excel adapters embedding *memory.
// MVCCDataSource and re-exposing it behind format-specific surfaces; here
// that embedding-of-mutable-state pattern is replaced by explicit field
// composition (no embedded struct carries the store itself), per the
// re-architecture guidance against an ambient DI container — the façade
// holds references to its collaborators and forwards to them, it does not
// inherit their methods.
package datagrid

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/kasuganosora/datagrid/gridconfig"
	"github.com/kasuganosora/datagrid/internal/cache"
	"github.com/kasuganosora/datagrid/internal/columns"
	"github.com/kasuganosora/datagrid/internal/griderr"
	"github.com/kasuganosora/datagrid/internal/gridlog"
	"github.com/kasuganosora/datagrid/internal/model"
	"github.com/kasuganosora/datagrid/internal/query"
	"github.com/kasuganosora/datagrid/internal/scope"
	"github.com/kasuganosora/datagrid/internal/selection"
	"github.com/kasuganosora/datagrid/internal/store"
	"github.com/kasuganosora/datagrid/internal/validation"
)

// UINotifier is the external collaborator a façade posts coalesced UI
// refresh notifications to when running in Interactive mode (spec §4.7
// "UI refresh hook"). Grounded on the teacher's notification-on-mutation
// pattern, generalized to a single-method seam so callers can supply
// anything from a channel send to a GUI toolkit's invoke-on-main-thread.
type UINotifier interface {
	NotifyRefresh(reason string)
}

// noopNotifier discards every notification; the default when none is
// configured.
type noopNotifier struct{}

func (noopNotifier) NotifyRefresh(string) {}

// Grid is one façade instance: the process-wide shared store for the
// lifetime of this value (spec §5 "Resource policy").
type Grid struct {
	mu sync.Mutex

	opts   gridconfig.Options
	logger gridlog.Logger
	notify UINotifier

	store      *store.Store
	cols       *columns.Registry
	rules      *validation.Registry
	sel        *selection.Manager
	editSess   *selection.EditSession
	rowCache    *cache.Bounded[string, []model.Row]
	searchCache *cache.Bounded[string, query.Result]
	querySF     singleflight.Group
	disposed    atomic.Bool
}

// New constructs a Grid from opts. A zero-value gridconfig.Options is
// usable but degenerate; callers normally start from gridconfig.Default().
func New(opts gridconfig.Options, logger gridlog.Logger, notify UINotifier) *Grid {
	if logger == nil {
		logger = gridlog.Nop{}
	}
	if notify == nil {
		notify = noopNotifier{}
	}

	st := store.New(nil)
	g := &Grid{
		opts:     opts,
		logger:   logger,
		notify:   notify,
		store:    st,
		cols:     columns.New(st, opts.Store.MinColumnWidth, opts.Store.MaxColumnWidth),
		rules:    validation.New(),
		sel:      selection.New(opts.Store.MaxSelectionSize),
		editSess: selection.NewEditSession(),
	}
	if opts.Query.ResultCacheSize > 0 {
		if c, err := cache.NewBounded[string, []model.Row](int64(opts.Query.ResultCacheSize), opts.Query.ResultCacheTTL); err == nil {
			g.rowCache = c
		}
		if c, err := cache.NewBounded[string, query.Result](int64(opts.Query.ResultCacheSize), opts.Query.ResultCacheTTL); err == nil {
			g.searchCache = c
		}
	}
	return g
}

// Dispose marks the façade permanently closed (spec §4.7 "Lifecycle").
// Subsequent operations fail with a Lifecycle error. Dispose is idempotent.
func (g *Grid) Dispose() {
	if g.disposed.CompareAndSwap(false, true) {
		if g.rowCache != nil {
			g.rowCache.Close()
		}
		if g.searchCache != nil {
			g.searchCache.Close()
		}
		g.logger.Printf("grid disposed")
	}
}

// checkAlive fails fast for calls made after Dispose.
func (g *Grid) checkAlive(op string) error {
	if g.disposed.Load() {
		return griderr.New(griderr.KindLifecycle, op, "facade has been disposed")
	}
	return nil
}

// checkFeature fails for operations whose feature tag is gated off (spec
// §4.7 "Feature gating").
func (g *Grid) checkFeature(op, feature string) error {
	if !g.opts.Features.IsEnabled(feature) {
		return griderr.FeatureDisabled(op, feature)
	}
	return nil
}

// guard runs the lifecycle and feature checks every mutating/reading
// operation needs before doing any real work.
func (g *Grid) guard(op, feature string) error {
	if err := g.checkAlive(op); err != nil {
		return err
	}
	return g.checkFeature(op, feature)
}

// afterMutation posts a coalesced refresh notification if running Interactive
// (spec §4.7 "UI refresh hook"). Clears the row and search result caches,
// since any mutation may change what a cached query result should contain.
func (g *Grid) afterMutation(reason string) {
	if g.rowCache != nil {
		g.rowCache.Clear()
	}
	if g.searchCache != nil {
		g.searchCache.Clear()
	}
	if g.opts.Mode == gridconfig.ModeInteractive {
		g.notify.NotifyRefresh(reason)
	}
}

// Options returns a copy of the façade's current configuration.
func (g *Grid) Options() gridconfig.Options { return g.opts }

// beginScope opens a per-operation scope for a long-running, cancellable
// call (spec §5 "Per-operation scopes"): ValidateAll, Import, Export, and
// AdvancedSearch each acquire one so cancellation and timing are logged
// uniformly instead of each call hand-rolling it. The caller must invoke
// the returned Scope's Finish at every exit path.
func (g *Grid) beginScope(ctx context.Context, op string) *scope.Scope {
	mode := model.OperationMode(g.opts.Mode)
	return scope.New(ctx, mode, gridlog.Prefixed(g.logger, op))
}
