// Package scheduler orders the declared tasks of one simulation phase into
// a serialization that respects every same-step dependency: for every task
// T, every task writing an attribute in T's same-step dependency set runs
// before T. Previous-step dependencies are satisfied by the prior
// iteration's execution and never produce edges, so they also never
// participate in the acyclicity check.
//
// The plan is computed once at setup. Tasks with no ordering constraint
// between each other land in the same dependency level; their attribute
// read/write sets are disjoint by construction, so a level may execute
// concurrently. Sequential execution of the full order is always valid.
package scheduler

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/vk/powerstep/internal/attribute"
	"github.com/vk/powerstep/internal/ctxlog"
	"github.com/vk/powerstep/internal/task"
)

// Plan is the validated execution order for one phase.
type Plan struct {
	phase string
	// Order is a sequential topological order over all tasks.
	Order []task.Task
	// Levels groups Order into dependency levels safe for concurrent
	// execution; concatenating the levels yields Order.
	Levels [][]task.Task
}

// BuildPlan constructs the execution order for a phase from the full set of
// its tasks. A cyclic same-step dependency is a fatal configuration error:
// it cannot be resolved in a single pass.
func BuildPlan(ctx context.Context, phase string, tasks []task.Task) (*Plan, error) {
	logger := ctxlog.FromContext(ctx)

	g := newGraph()
	byName := make(map[string]task.Task, len(tasks))
	for _, t := range tasks {
		if err := g.addNode(t.Name()); err != nil {
			return nil, fmt.Errorf("building %s plan: %w", phase, err)
		}
		byName[t.Name()] = t
	}

	// Index writers per attribute handle, then add one edge per
	// writer/reader pair. A task reading an attribute it also writes
	// imposes no constraint on itself.
	writers := make(map[attribute.Handle][]string)
	for _, t := range tasks {
		for _, h := range t.Declared().Modified {
			writers[h] = append(writers[h], t.Name())
		}
	}
	for _, t := range tasks {
		for _, h := range t.Declared().Attributes {
			for _, w := range writers[h] {
				if w == t.Name() {
					continue
				}
				if err := g.addEdge(w, t.Name()); err != nil {
					return nil, fmt.Errorf("building %s plan: %w", phase, err)
				}
			}
		}
	}

	if err := g.detectCycles(); err != nil {
		return nil, fmt.Errorf("building %s plan: cyclic same-step dependency: %w", phase, err)
	}

	plan := &Plan{phase: phase}
	for _, ids := range g.levels() {
		level := make([]task.Task, 0, len(ids))
		for _, id := range ids {
			level = append(level, byName[id])
		}
		plan.Levels = append(plan.Levels, level)
		plan.Order = append(plan.Order, level...)
	}

	logger.Debug("Task plan built.",
		"phase", phase, "tasks", len(tasks), "levels", len(plan.Levels))
	return plan, nil
}

// RunSequential executes every task in scheduled order on the calling
// goroutine. The first task error aborts the pass.
func (p *Plan) RunSequential(time float64, step int) error {
	for _, t := range p.Order {
		if err := t.Execute(time, step); err != nil {
			return fmt.Errorf("%s task %q: %w", p.phase, t.Name(), err)
		}
	}
	return nil
}

// RunConcurrent executes the plan level by level, running the tasks of each
// level on separate goroutines. This is an optimization over RunSequential,
// not a correctness requirement.
func (p *Plan) RunConcurrent(ctx context.Context, time float64, step int) error {
	for _, level := range p.Levels {
		if len(level) == 1 {
			t := level[0]
			if err := t.Execute(time, step); err != nil {
				return fmt.Errorf("%s task %q: %w", p.phase, t.Name(), err)
			}
			continue
		}
		grp, _ := errgroup.WithContext(ctx)
		for _, t := range level {
			grp.Go(func() error {
				if err := t.Execute(time, step); err != nil {
					return fmt.Errorf("%s task %q: %w", p.phase, t.Name(), err)
				}
				return nil
			})
		}
		if err := grp.Wait(); err != nil {
			return err
		}
	}
	return nil
}
