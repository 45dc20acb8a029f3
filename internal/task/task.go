// Package task defines the unit of per-step work scheduled by the
// simulation. A task carries no inherent order; everything the scheduler
// knows about it comes from the three attribute-handle sets it declares.
package task

import "github.com/vk/powerstep/internal/attribute"

// Sets declares a task's attribute footprint.
type Sets struct {
	// PreviousStep lists attributes that must have been produced by the
	// prior timestep. They are satisfied by construction across iterations
	// and never participate in same-step ordering or cycle checks.
	PreviousStep []attribute.Handle
	// Attributes lists attributes that must be current within this step:
	// every task writing one of them runs first.
	Attributes []attribute.Handle
	// Modified lists the attributes this task writes.
	Modified []attribute.Handle
}

// Task is one operation executed during a simulation phase. Tasks are
// constructed once during setup and are immutable for the run.
type Task interface {
	// Name uniquely identifies the task within its phase.
	Name() string
	// Execute runs the operation for the given simulation time and step count.
	Execute(time float64, step int) error
	// Declared returns the task's attribute footprint.
	Declared() Sets
}

// Func adapts a plain function into a Task.
type Func struct {
	TaskName string
	Deps     Sets
	Run      func(time float64, step int) error
}

// Name implements Task.
func (f *Func) Name() string { return f.TaskName }

// Execute implements Task.
func (f *Func) Execute(time float64, step int) error { return f.Run(time, step) }

// Declared implements Task.
func (f *Func) Declared() Sets { return f.Deps }
