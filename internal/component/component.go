// Package component defines the contract every circuit element fulfills
// toward the stepper, plus a set of basic linear models. The stepper only
// ever sees the contract: stamps accumulate into the shared system, state
// updates read the solution vector, and dependency declarations feed the
// task scheduler. The electrical formulas inside the models are domain
// physics, not kernel architecture.
package component

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/vk/powerstep/internal/attribute"
	"github.com/vk/powerstep/internal/solver"
	"github.com/vk/powerstep/internal/task"
)

// Component is the contract consumed by the simulation stepper.
type Component interface {
	// Name returns the human-readable component name.
	Name() string
	// UID returns the component's stable unique identifier.
	UID() string

	// Initialize prepares internal state from the topology parameters. It
	// runs once, before the scheduler plans any tasks; the solution
	// attribute handle is captured here for dependency declarations.
	Initialize(frequency, timeStep float64, solution *attribute.Attribute) error

	// ApplySystemMatrixStamp accumulates the component's linearized
	// contribution into the shared system matrix.
	ApplySystemMatrixStamp(sys *solver.System)
	// ApplyRightSideVectorStamp accumulates the component's source
	// contribution into the shared right-side vector.
	ApplyRightSideVectorStamp(sys *solver.System)

	// UpdateVoltageFromSolution propagates the solved node voltages into
	// the component's voltage attribute.
	UpdateVoltageFromSolution(x []float64)
	// UpdateCurrentFromSolution propagates the solved system into the
	// component's current attribute.
	UpdateCurrentFromSolution(x []float64)

	// PreStep runs before assembly each step, in scheduled order.
	PreStep(time float64, step int)
	// PostStep runs after the solve each step, in scheduled order.
	PostStep(time float64, step int, x []float64)

	// PreStepDependencies declares the pre-step task's attribute footprint.
	PreStepDependencies() task.Sets
	// PostStepDependencies declares the post-step task's attribute footprint.
	PostStepDependencies() task.Sets

	// HasAttribute reports whether the component exposes the named
	// attribute (relative to the component, e.g. "v"). Callers use this
	// capability query instead of inspecting concrete types.
	HasAttribute(name string) bool
	// Attribute resolves a component-relative attribute name.
	Attribute(name string) (*attribute.Attribute, bool)
}

// Base carries the identity and attribute bookkeeping shared by all models.
type Base struct {
	name string
	uid  string

	reg      *attribute.Registry
	attrs    map[string]*attribute.Attribute
	solution *attribute.Attribute
}

// NewBase initializes the shared bookkeeping for a named component whose
// attributes register into reg under the "name." prefix.
func NewBase(name string, reg *attribute.Registry) Base {
	return Base{
		name:  name,
		uid:   uuid.NewString(),
		reg:   reg,
		attrs: make(map[string]*attribute.Attribute),
	}
}

// Name returns the component name.
func (b *Base) Name() string { return b.name }

// UID returns the component's unique identifier.
func (b *Base) UID() string { return b.uid }

// HasAttribute implements the capability query of the component contract.
func (b *Base) HasAttribute(name string) bool {
	_, ok := b.attrs[name]
	return ok
}

// Attribute resolves a component-relative attribute name.
func (b *Base) Attribute(name string) (*attribute.Attribute, bool) {
	a, ok := b.attrs[name]
	return a, ok
}

// createReal registers a static real attribute under the component prefix.
func (b *Base) createReal(suffix string, initial float64) (*attribute.Attribute, error) {
	a, err := b.reg.Create(b.name+"."+suffix, initial)
	if err != nil {
		return nil, fmt.Errorf("component %q: %w", b.name, err)
	}
	b.attrs[suffix] = a
	return a, nil
}

// bindSolution records the solution attribute for dependency declarations.
func (b *Base) bindSolution(solution *attribute.Attribute) {
	b.solution = solution
}

// solutionHandle returns the solution attribute's handle, or NoHandle
// before Initialize has run.
func (b *Base) solutionHandle() attribute.Handle {
	if b.solution == nil {
		return attribute.NoHandle
	}
	return b.solution.Handle()
}

// nodeVoltage reads one node's solved voltage, treating ground as 0.
func nodeVoltage(x []float64, n int) float64 {
	if n == solver.Ground {
		return 0
	}
	return x[n]
}
