// Package attribute implements the reactive value cells that carry all
// observable state of a simulation: component parameters, node voltages,
// branch currents, and the solution vector itself.
//
// Attributes come in two variants. A static attribute is plain storage. A
// dynamic attribute additionally carries ordered lists of update actions
// keyed by trigger: OnGet actions run before every read, OnSet actions run
// after every write, and OnOnce actions run exactly once, at reference
// binding time. Update actions are how derived views and reference bindings
// are realized; they may read other attributes, and they record those reads
// as dependency handles so the scheduler can order per-step work.
//
// All attributes of one simulation live in a single Registry and are
// identified by stable integer handles. Dependency edges are stored as
// handle slices, never as embedded references, so the attribute graph has
// no ownership cycles.
package attribute

import (
	"errors"
	"fmt"
)

// Configuration faults. These surface synchronously at setup call sites and
// are never recovered from.
var (
	// ErrDuplicateName is returned when a name is registered twice.
	ErrDuplicateName = errors.New("attribute name already registered")
	// ErrTypeMismatch is returned when a payload's kind does not match the
	// attribute's kind.
	ErrTypeMismatch = errors.New("attribute kind mismatch")
	// ErrStatic is returned when a dynamic-only operation is invoked on a
	// static attribute.
	ErrStatic = errors.New("operation not supported on static attribute")
	// ErrUnknownTrigger is returned for trigger kinds outside the known set.
	ErrUnknownTrigger = errors.New("unknown update trigger")
)

// Handle identifies an attribute within its owning registry.
type Handle int

// NoHandle is the zero value for optional handle fields.
const NoHandle Handle = -1

// Trigger selects when an update action runs.
type Trigger uint8

const (
	// OnOnce actions run exactly once, at reference binding time.
	OnOnce Trigger = iota
	// OnGet actions run before every read, in registration order.
	OnGet
	// OnSet actions run after every write, in registration order.
	OnSet
)

// Action is one update step attached to a dynamic attribute. Update receives
// the attribute's raw storage slot; writing through it does not re-trigger
// the attribute's own action lists. Deps lists the attributes the action
// reads.
type Action struct {
	Update func(data *Value)
	Deps   []Handle
}

// Registry is an insertion-ordered mapping from unique names to attributes.
type Registry struct {
	attrs []*Attribute
	names map[string]Handle
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]Handle)}
}

// Attribute is a named, typed, mutable value cell.
type Attribute struct {
	reg     *Registry
	handle  Handle
	name    string
	kind    Kind
	dynamic bool

	// data is a shared slot: binding to a static source aliases the
	// source's slot, so later writes to the source stay visible.
	data *Value

	onOnce []Action
	onGet  []Action
	onSet  []Action
}

func (r *Registry) register(name string, a *Attribute) (*Attribute, error) {
	if _, exists := r.names[name]; exists {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	a.reg = r
	a.name = name
	a.handle = Handle(len(r.attrs))
	r.attrs = append(r.attrs, a)
	r.names[name] = a.handle
	return a, nil
}

// Create registers a static attribute holding the given initial value.
func (r *Registry) Create(name string, initial Value) (*Attribute, error) {
	kind, err := KindOf(initial)
	if err != nil {
		return nil, fmt.Errorf("creating attribute %q: %w", name, err)
	}
	data := initial
	return r.register(name, &Attribute{kind: kind, data: &data})
}

// CreateDynamic registers a dynamic attribute of the given kind with empty
// action lists.
func (r *Registry) CreateDynamic(name string, kind Kind) (*Attribute, error) {
	data := ZeroValue(kind)
	return r.register(name, &Attribute{kind: kind, dynamic: true, data: &data})
}

// Lookup resolves a name to its attribute.
func (r *Registry) Lookup(name string) (*Attribute, bool) {
	h, ok := r.names[name]
	if !ok {
		return nil, false
	}
	return r.attrs[h], true
}

// ByHandle resolves a handle issued by this registry. Panics on a foreign
// handle, which is always a programming error.
func (r *Registry) ByHandle(h Handle) *Attribute {
	if h < 0 || int(h) >= len(r.attrs) {
		panic(fmt.Sprintf("attribute: handle %d outside registry of size %d", h, len(r.attrs)))
	}
	return r.attrs[h]
}

// Names returns all registered names in insertion order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.attrs))
	for i, a := range r.attrs {
		out[i] = a.name
	}
	return out
}

// Len reports the number of registered attributes.
func (r *Registry) Len() int { return len(r.attrs) }

// Name returns the attribute's unique name.
func (a *Attribute) Name() string { return a.name }

// Handle returns the attribute's registry handle.
func (a *Attribute) Handle() Handle { return a.handle }

// Kind returns the attribute's value kind.
func (a *Attribute) Kind() Kind { return a.kind }

// IsStatic reports whether the attribute is the static variant.
func (a *Attribute) IsStatic() bool { return !a.dynamic }

// Get returns the current value. For dynamic attributes every OnGet action
// runs first, in registration order; actions may themselves read other
// attributes, so callers must not assume O(1) cost or absence of side
// effects.
func (a *Attribute) Get() Value {
	if a.dynamic {
		for _, act := range a.onGet {
			act.Update(a.data)
		}
	}
	return *a.data
}

// Set stores a new value, then for dynamic attributes runs every OnSet
// action in registration order. A payload of the wrong kind is rejected
// with ErrTypeMismatch and the attribute keeps its previous value.
func (a *Attribute) Set(v Value) error {
	kind, err := KindOf(v)
	if err != nil {
		return fmt.Errorf("setting attribute %q: %w", a.name, err)
	}
	if kind != a.kind {
		return fmt.Errorf("setting attribute %q: %w: cannot store %s into %s cell",
			a.name, ErrTypeMismatch, kind, a.kind)
	}
	*a.data = v
	if a.dynamic {
		for _, act := range a.onSet {
			act.Update(a.data)
		}
	}
	return nil
}

// AddAction appends an update action to the given trigger list. Only dynamic
// attributes carry actions.
func (a *Attribute) AddAction(tr Trigger, act Action) error {
	if !a.dynamic {
		return fmt.Errorf("%w: cannot add action to %q", ErrStatic, a.name)
	}
	switch tr {
	case OnOnce:
		a.onOnce = append(a.onOnce, act)
	case OnGet:
		a.onGet = append(a.onGet, act)
	case OnSet:
		a.onSet = append(a.onSet, act)
	default:
		return fmt.Errorf("%w: %d on attribute %q", ErrUnknownTrigger, tr, a.name)
	}
	return nil
}

// ClearActions removes all registered actions from every trigger list.
func (a *Attribute) ClearActions() {
	a.onOnce = nil
	a.onGet = nil
	a.onSet = nil
}

// SetReference binds the attribute to track source. Rebinding clears all
// previously registered actions, so the last binding wins. A static source
// is realized exactly once, here at the binding call, by aliasing the
// source's storage slot; later writes to the source remain visible through
// the shared slot and nothing fires again. A dynamic source is re-read
// lazily on every Get.
func (a *Attribute) SetReference(source *Attribute) error {
	if !a.dynamic {
		return fmt.Errorf("%w: cannot rebind %q", ErrStatic, a.name)
	}
	if source.kind != a.kind {
		return fmt.Errorf("binding %q to %q: %w: %s vs %s",
			a.name, source.name, ErrTypeMismatch, a.kind, source.kind)
	}
	a.ClearActions()
	deps := []Handle{source.handle}
	if source.IsStatic() {
		// Realized exactly once, here: the slot is aliased so later source
		// writes stay visible, then the action runs over the shared slot.
		a.data = source.data
		act := Action{
			Update: func(data *Value) { *data = *source.data },
			Deps:   deps,
		}
		a.onOnce = append(a.onOnce, act)
		act.Update(a.data)
		return nil
	}
	// A previous static binding may have left the slot aliased. The rebound
	// attribute needs private storage so its reads and writes cannot land in
	// the former source.
	fresh := ZeroValue(a.kind)
	a.data = &fresh
	return a.AddAction(OnGet, Action{
		Update: func(data *Value) { *data = source.Get() },
		Deps:   deps,
	})
}

// Dependencies returns the handles of every attribute read by the OnOnce and
// OnGet action lists, in registration order.
func (a *Attribute) Dependencies() []Handle {
	var deps []Handle
	for _, act := range a.onOnce {
		deps = append(deps, act.Deps...)
	}
	for _, act := range a.onGet {
		deps = append(deps, act.Deps...)
	}
	return deps
}

// String formats the current value for logging.
func (a *Attribute) String() string {
	return formatValue(a.Get())
}
