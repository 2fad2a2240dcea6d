// Package validation implements the rule registry, row/batch/real-time
// evaluation, and alert surfacing (spec §4.3). Grounded on the teacher's
// pkg/resource/generated evaluator ("evaluate, catch panics, degrade to a
// synthetic outcome" — here generalized from generated-column expressions
// to arbitrary rule functions) and on pkg/resource/memory/mutation.go's
// batch-vs-realtime split between the transactional single-row path and
// the bulk new-version path.
package validation

import (
	"strings"
	"sync"

	"github.com/kasuganosora/datagrid/internal/griderr"
	"github.com/kasuganosora/datagrid/internal/model"
)

// Registry is a mapping ruleId -> Rule plus a secondary index
// columnName -> set<ruleId> derived from Rule.DependentColumns.
type Registry struct {
	mu      sync.RWMutex
	byID    map[string]*model.Rule
	byCol   map[string]map[string]bool // column -> set of rule ids
	order   []string                   // registration order, for deterministic full-recheck iteration
	groups  map[string]*model.RuleGroup
}

// New creates an empty rule registry.
func New() *Registry {
	return &Registry{
		byID:  make(map[string]*model.Rule),
		byCol: make(map[string]map[string]bool),
		groups: make(map[string]*model.RuleGroup),
	}
}

// AddRule registers rule. An existing ID is replaced — all of its prior
// alerts are invalidated by the caller via store.MarkAlertsStale for every
// affected row (the registry itself does not know about rows).
func (r *Registry) AddRule(rule model.Rule) error {
	if rule.ID == "" {
		return griderr.InvalidInput("validation.AddRule", "rule id must not be empty")
	}
	if len(rule.DependentColumns) == 0 {
		return griderr.InvalidInput("validation.AddRule", "rule must declare at least one dependent column")
	}
	if rule.Evaluate == nil {
		return griderr.InvalidInput("validation.AddRule", "rule must supply an evaluator")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if old, exists := r.byID[rule.ID]; exists {
		r.unindexLocked(old)
	} else {
		r.order = append(r.order, rule.ID)
	}
	cp := rule
	r.byID[rule.ID] = &cp
	for _, col := range rule.DependentColumns {
		key := strings.ToLower(col)
		if r.byCol[key] == nil {
			r.byCol[key] = make(map[string]bool)
		}
		r.byCol[key][rule.ID] = true
	}
	return nil
}

func (r *Registry) unindexLocked(rule *model.Rule) {
	for _, col := range rule.DependentColumns {
		key := strings.ToLower(col)
		delete(r.byCol[key], rule.ID)
		if len(r.byCol[key]) == 0 {
			delete(r.byCol, key)
		}
	}
}

// RemoveRule removes the rule with the given id from the registry.
func (r *Registry) RemoveRule(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, exists := r.byID[id]
	if !exists {
		return griderr.NotFound("validation.RemoveRule", "unknown rule: "+id)
	}
	r.unindexLocked(rule)
	delete(r.byID, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// RemoveRulesForColumns removes every rule that depends on any of columns.
// Returns the removed rule ids.
func (r *Registry) RemoveRulesForColumns(columns []string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	toRemove := make(map[string]bool)
	for _, col := range columns {
		for id := range r.byCol[strings.ToLower(col)] {
			toRemove[id] = true
		}
	}
	removed := make([]string, 0, len(toRemove))
	for id := range toRemove {
		if rule, ok := r.byID[id]; ok {
			r.unindexLocked(rule)
			delete(r.byID, id)
			removed = append(removed, id)
		}
	}
	if len(removed) > 0 {
		newOrder := r.order[:0:0]
		for _, id := range r.order {
			if !toRemove[id] {
				newOrder = append(newOrder, id)
			}
		}
		r.order = newOrder
	}
	return removed
}

// ClearAll removes every rule and group.
func (r *Registry) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = make(map[string]*model.Rule)
	r.byCol = make(map[string]map[string]bool)
	r.order = nil
	r.groups = make(map[string]*model.RuleGroup)
}

// RulesForColumns returns every enabled rule whose dependent columns
// intersect columns. If columns is nil, every enabled rule is returned
// (a "full recheck").
func (r *Registry) RulesForColumns(columns []string) []model.Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if columns == nil {
		out := make([]model.Rule, 0, len(r.order))
		for _, id := range r.order {
			if rule := r.byID[id]; rule.Enabled {
				out = append(out, *rule)
			}
		}
		return out
	}

	seen := make(map[string]bool)
	var ids []string
	for _, col := range columns {
		for id := range r.byCol[strings.ToLower(col)] {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	// Preserve registration order for determinism.
	out := make([]model.Rule, 0, len(ids))
	for _, id := range r.order {
		if seen[id] && r.byID[id].Enabled {
			out = append(out, *r.byID[id])
		}
	}
	return out
}

// Get returns a copy of the rule with the given id.
func (r *Registry) Get(id string) (model.Rule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.byID[id]
	if !ok {
		return model.Rule{}, false
	}
	return *rule, true
}

// AddGroup registers a rule group.
func (r *Registry) AddGroup(name string, group model.RuleGroup) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := group
	r.groups[name] = &cp
}

// EvaluateGroup combines the outcomes of a group's rules with its logical
// operator: AND succeeds only if every rule succeeds; OR succeeds if any
// rule succeeds. The first failing (AND) or last failing (OR, if all fail)
// outcome is returned for reporting.
func (r *Registry) EvaluateGroup(name string, outcomes map[string]model.Outcome) (model.Outcome, bool) {
	r.mu.RLock()
	group, ok := r.groups[name]
	r.mu.RUnlock()
	if !ok {
		return model.Outcome{}, false
	}

	var firstFailure, lastFailure model.Outcome
	anySuccess := false
	allSuccess := true
	for _, id := range group.RuleIDs {
		oc, ok := outcomes[id]
		if !ok {
			continue
		}
		if oc.Success {
			anySuccess = true
		} else {
			if allSuccess {
				firstFailure = oc
			}
			allSuccess = false
			lastFailure = oc
		}
	}

	if group.Op == model.LogicOr {
		if anySuccess {
			return model.Success(), true
		}
		return lastFailure, true
	}
	// AND (default)
	if allSuccess {
		return model.Success(), true
	}
	return firstFailure, true
}
