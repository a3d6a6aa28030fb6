package eraser

import (
	"errors"
	"fmt"
	"sort"

	"resetdb/internal/registry"
)

// ErrNoTargets is the usage error returned when no selection was given.
var ErrNoTargets = errors.New("specify --all, --app, or --model to select what to erase")

// DefaultProtectedNamespaces hold framework bookkeeping that --all never touches.
var DefaultProtectedNamespaces = []string{
	"contenttypes",
	"auth",
	"sessions",
	"admin",
	"staticfiles",
	"messages",
}

// DefaultAccountModel is the Account collection when none is configured.
const DefaultAccountModel = "auth.User"

// Options selects what an erase run targets and how it behaves.
type Options struct {
	All            bool     // every collection outside the skip set
	Namespaces     []string // every collection of each namespace
	Collections    []string // "namespace.Name" labels
	SkipNamespaces []string // excluded under All, on top of Protected
	KeepAdmins     bool
	Force          bool
	DryRun         bool

	// Protected replaces DefaultProtectedNamespaces when non-nil.
	Protected []string

	// AccountModel is the "namespace.Name" of the Account collection.
	// Empty means DefaultAccountModel.
	AccountModel string
}

// HasSelection reports whether any target-selection option is set.
func (o Options) HasSelection() bool {
	return o.All || len(o.Namespaces) > 0 || len(o.Collections) > 0
}

// SkipSet returns SkipNamespaces unioned with the protected namespaces.
func (o Options) SkipSet() map[string]bool {
	protected := o.Protected
	if protected == nil {
		protected = DefaultProtectedNamespaces
	}
	skip := make(map[string]bool, len(protected)+len(o.SkipNamespaces))
	for _, ns := range protected {
		skip[ns] = true
	}
	for _, ns := range o.SkipNamespaces {
		skip[ns] = true
	}
	return skip
}

// Warning is a non-fatal problem found while resolving the plan.
type Warning struct {
	Input string // the offending --app / --model value
	Err   error
}

func (w Warning) String() string {
	switch {
	case errors.Is(w.Err, registry.ErrMalformedLabel):
		return fmt.Sprintf("Invalid model label %q (expected namespace.Name), skipping", w.Input)
	case errors.Is(w.Err, registry.ErrUnknownNamespace):
		return fmt.Sprintf("App %q not found, skipping", w.Input)
	case errors.Is(w.Err, registry.ErrUnknownCollection):
		return fmt.Sprintf("Model %q not found, skipping", w.Input)
	default:
		return fmt.Sprintf("%s: %v, skipping", w.Input, w.Err)
	}
}

// Plan is a deduplicated set of collections sorted by (namespace, name).
type Plan []*registry.Collection

// Labels returns the "namespace.Name" label of every planned collection.
func (p Plan) Labels() []string {
	labels := make([]string, len(p))
	for i, c := range p {
		labels[i] = c.ID.String()
	}
	return labels
}

// Contains reports whether id is planned.
func (p Plan) Contains(id registry.CollectionID) bool {
	for _, c := range p {
		if c.ID == id {
			return true
		}
	}
	return false
}

// ResolvePlan builds the plan from the three selection channels. Unknown or
// malformed inputs produce warnings and are left out.
func ResolvePlan(reg *registry.Registry, opts Options) (Plan, []Warning, error) {
	if !opts.HasSelection() {
		return nil, nil, ErrNoTargets
	}

	var warnings []Warning
	byID := make(map[registry.CollectionID]*registry.Collection)
	add := func(cs ...*registry.Collection) {
		for _, c := range cs {
			byID[c.ID] = c
		}
	}

	if opts.All {
		skip := opts.SkipSet()
		for _, ns := range reg.Namespaces() {
			if skip[ns] {
				continue
			}
			cs, _ := reg.Namespace(ns)
			add(cs...)
		}
	}

	for _, ns := range opts.Namespaces {
		cs, err := reg.Namespace(ns)
		if err != nil {
			warnings = append(warnings, Warning{Input: ns, Err: err})
			continue
		}
		add(cs...)
	}

	for _, label := range opts.Collections {
		c, err := reg.LookupLabel(label)
		if err != nil {
			warnings = append(warnings, Warning{Input: label, Err: err})
			continue
		}
		add(c)
	}

	plan := make(Plan, 0, len(byID))
	for _, c := range byID {
		plan = append(plan, c)
	}
	sort.Slice(plan, func(i, j int) bool { return plan[i].ID.Less(plan[j].ID) })
	return plan, warnings, nil
}

// Phases is the deletion order of a plan.
type Phases struct {
	// Independent collections have no direct reference to Account.
	Independent []*registry.Collection
	// Dependent collections reference Account directly.
	Dependent []*registry.Collection
	// Account is the Account collection when it is planned.
	Account *registry.Collection
}

// OrderPhases splits a sorted plan into the two passes plus Account.
// Only direct references to Account are considered; chains between other
// collections are not resolved.
func OrderPhases(plan Plan, account registry.CollectionID) Phases {
	var ph Phases
	for _, c := range plan {
		switch {
		case c.ID == account:
			ph.Account = c
		case c.References(account):
			ph.Dependent = append(ph.Dependent, c)
		default:
			ph.Independent = append(ph.Independent, c)
		}
	}
	return ph
}

// Ordered returns every collection in deletion order.
func (ph Phases) Ordered() []*registry.Collection {
	out := make([]*registry.Collection, 0, len(ph.Independent)+len(ph.Dependent)+1)
	out = append(out, ph.Independent...)
	out = append(out, ph.Dependent...)
	if ph.Account != nil {
		out = append(out, ph.Account)
	}
	return out
}

// resolveAccount returns the canonical ID of the Account collection. When the
// registry does not know it, the parsed label is returned unchanged.
func resolveAccount(reg *registry.Registry, label string) (registry.CollectionID, error) {
	if label == "" {
		label = DefaultAccountModel
	}
	id, err := registry.ParseLabel(label)
	if err != nil {
		return registry.CollectionID{}, fmt.Errorf("account model: %w", err)
	}
	if c, err := reg.Lookup(id); err == nil {
		return c.ID, nil
	}
	return id, nil
}
