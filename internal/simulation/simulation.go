// Package simulation runs the per-timestep loop: pre-step tasks in
// scheduled order, matrix and vector assembly from component stamps, the
// linear solve, and post-step tasks in scheduled order. The loop advances
// by a fixed step size until the configured final time is reached.
package simulation

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/powerstep/internal/attribute"
	"github.com/vk/powerstep/internal/component"
	"github.com/vk/powerstep/internal/ctxlog"
	"github.com/vk/powerstep/internal/scheduler"
	"github.com/vk/powerstep/internal/solver"
	"github.com/vk/powerstep/internal/task"
)

// State is the stepper's lifecycle state.
type State int

const (
	// Uninitialized accepts components and task providers.
	Uninitialized State = iota
	// Ready is entered once the scheduler has produced an order; the
	// component set is frozen.
	Ready
	// Stepping is entered by the first step and kept until the run ends.
	Stepping
	// Finished is reached when elapsed time covers the final time.
	Finished
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Ready:
		return "ready"
	case Stepping:
		return "stepping"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrFrozen is returned when components or task providers are added after
// initialization.
var ErrFrozen = errors.New("simulation already initialized; component set is frozen")

// TaskProvider contributes extra pre- and post-step tasks beyond the
// components' own, e.g. a realtime interface's import and export.
type TaskProvider interface {
	Tasks() (pre, post []task.Task)
}

// Config carries the stepper's run parameters.
type Config struct {
	// Name labels the run in logs.
	Name string
	// TimeStep is the fixed step size in seconds.
	TimeStep float64
	// FinalTime is the simulated duration in seconds.
	FinalTime float64
	// Frequency is the system frequency in hertz, handed to components.
	Frequency float64
	// SystemSize is the system dimension: node count plus source branch
	// count.
	SystemSize int
	// Concurrent executes each scheduler level on separate goroutines.
	// Sequential execution of the scheduled order is always valid; this is
	// an optimization only.
	Concurrent bool
}

func (c Config) validate() error {
	if c.TimeStep <= 0 {
		return fmt.Errorf("time step must be positive, got %g", c.TimeStep)
	}
	if c.FinalTime <= 0 {
		return fmt.Errorf("final time must be positive, got %g", c.FinalTime)
	}
	if c.SystemSize <= 0 {
		return fmt.Errorf("system size must be positive, got %d", c.SystemSize)
	}
	return nil
}

// Simulation is the stepper.
type Simulation struct {
	cfg Config
	reg *attribute.Registry

	comps     []component.Component
	providers []TaskProvider

	sys      *solver.System
	solution *attribute.Attribute
	prePlan  *scheduler.Plan
	postPlan *scheduler.Plan

	state State
	time  float64
	step  int
}

// New creates an uninitialized simulation over the given attribute registry.
func New(cfg Config, reg *attribute.Registry) *Simulation {
	return &Simulation{cfg: cfg, reg: reg, state: Uninitialized}
}

// AddComponent registers a circuit element. No component may be added once
// Ready is entered.
func (s *Simulation) AddComponent(c component.Component) error {
	if s.state != Uninitialized {
		return fmt.Errorf("adding component %q: %w", c.Name(), ErrFrozen)
	}
	s.comps = append(s.comps, c)
	return nil
}

// AddTaskProvider registers an extra task source, such as a realtime
// interface.
func (s *Simulation) AddTaskProvider(p TaskProvider) error {
	if s.state != Uninitialized {
		return fmt.Errorf("adding task provider: %w", ErrFrozen)
	}
	s.providers = append(s.providers, p)
	return nil
}

// Initialize freezes the component set, initializes every component,
// collects all pre- and post-step tasks and produces the scheduled orders.
// Configuration faults here are fatal and abort construction.
func (s *Simulation) Initialize(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	if s.state != Uninitialized {
		return fmt.Errorf("initialize called in state %s", s.state)
	}
	if err := s.cfg.validate(); err != nil {
		return fmt.Errorf("simulation %q: %w", s.cfg.Name, err)
	}

	sys, err := solver.New(s.cfg.SystemSize)
	if err != nil {
		return fmt.Errorf("simulation %q: %w", s.cfg.Name, err)
	}
	s.sys = sys

	s.solution, err = s.reg.Create(s.cfg.Name+".solution", make([]float64, s.cfg.SystemSize))
	if err != nil {
		return fmt.Errorf("simulation %q: %w", s.cfg.Name, err)
	}

	for _, c := range s.comps {
		if err := c.Initialize(s.cfg.Frequency, s.cfg.TimeStep, s.solution); err != nil {
			return fmt.Errorf("initializing component %q: %w", c.Name(), err)
		}
	}

	pre, post := s.collectTasks()
	if s.prePlan, err = scheduler.BuildPlan(ctx, "pre-step", pre); err != nil {
		return err
	}
	if s.postPlan, err = scheduler.BuildPlan(ctx, "post-step", post); err != nil {
		return err
	}

	s.state = Ready
	logger.Debug("Simulation initialized.",
		"name", s.cfg.Name, "components", len(s.comps),
		"preTasks", len(pre), "postTasks", len(post),
		"systemSize", s.cfg.SystemSize)
	return nil
}

func (s *Simulation) collectTasks() (pre, post []task.Task) {
	for _, c := range s.comps {
		pre = append(pre, &task.Func{
			TaskName: c.Name() + ".pre-step",
			Deps:     c.PreStepDependencies(),
			Run: func(time float64, step int) error {
				c.PreStep(time, step)
				return nil
			},
		})
		post = append(post, &task.Func{
			TaskName: c.Name() + ".post-step",
			Deps:     c.PostStepDependencies(),
			Run: func(time float64, step int) error {
				c.PostStep(time, step, s.solution.RealVector())
				return nil
			},
		})
	}
	for _, p := range s.providers {
		providerPre, providerPost := p.Tasks()
		pre = append(pre, providerPre...)
		post = append(post, providerPost...)
	}
	return pre, post
}

func (s *Simulation) runPlan(ctx context.Context, p *scheduler.Plan) error {
	if s.cfg.Concurrent {
		return p.RunConcurrent(ctx, s.time, s.step)
	}
	return p.RunSequential(s.time, s.step)
}

// Step executes one timestep. Numeric faults propagate out and are not
// retried.
func (s *Simulation) Step(ctx context.Context) error {
	if s.state != Ready && s.state != Stepping {
		return fmt.Errorf("step called in state %s", s.state)
	}
	s.state = Stepping

	if err := s.runPlan(ctx, s.prePlan); err != nil {
		return err
	}

	s.sys.Clear()
	for _, c := range s.comps {
		c.ApplySystemMatrixStamp(s.sys)
	}
	for _, c := range s.comps {
		c.ApplyRightSideVectorStamp(s.sys)
	}

	x, err := s.sys.Solve()
	if err != nil {
		return fmt.Errorf("step %d at t=%g: %w", s.step, s.time, err)
	}
	if err := s.solution.Set(x); err != nil {
		return fmt.Errorf("step %d: storing solution: %w", s.step, err)
	}

	if err := s.runPlan(ctx, s.postPlan); err != nil {
		return err
	}

	s.time += s.cfg.TimeStep
	s.step++
	return nil
}

// Run steps the simulation until elapsed time reaches the final time.
func (s *Simulation) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	if s.state != Ready {
		return fmt.Errorf("run called in state %s", s.state)
	}
	logger.Info("Simulation run starting.",
		"name", s.cfg.Name, "timeStep", s.cfg.TimeStep, "finalTime", s.cfg.FinalTime)

	for s.time < s.cfg.FinalTime {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run aborted at t=%g: %w", s.time, err)
		}
		if err := s.Step(ctx); err != nil {
			return err
		}
	}

	s.state = Finished
	logger.Info("Simulation run finished.", "name", s.cfg.Name, "steps", s.step)
	return nil
}

// State returns the current lifecycle state.
func (s *Simulation) State() State { return s.state }

// Time returns the current simulated time in seconds.
func (s *Simulation) Time() float64 { return s.time }

// StepCount returns the number of completed steps.
func (s *Simulation) StepCount() int { return s.step }

// Solution returns the solution-vector attribute, for export or derived
// coefficient views.
func (s *Simulation) Solution() *attribute.Attribute { return s.solution }

// Destroy releases solver resources.
func (s *Simulation) Destroy() {
	if s.sys != nil {
		s.sys.Destroy()
	}
}
