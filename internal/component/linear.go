package component

import (
	"fmt"
	"math"

	"github.com/vk/powerstep/internal/attribute"
	"github.com/vk/powerstep/internal/solver"
	"github.com/vk/powerstep/internal/task"
)

// Resistor is a linear resistance between two nodes.
type Resistor struct {
	Base
	n1, n2 int

	resistance *attribute.Attribute
	voltage    *attribute.Attribute
	current    *attribute.Attribute
}

// NewResistor registers a resistor of the given resistance in ohms between
// nodes n1 and n2 (solver.Ground for the reference node).
func NewResistor(reg *attribute.Registry, name string, n1, n2 int, ohms float64) (*Resistor, error) {
	if ohms <= 0 {
		return nil, fmt.Errorf("resistor %q: resistance must be positive, got %g", name, ohms)
	}
	r := &Resistor{Base: NewBase(name, reg), n1: n1, n2: n2}
	var err error
	if r.resistance, err = r.createReal("R", ohms); err != nil {
		return nil, err
	}
	if r.voltage, err = r.createReal("v", 0); err != nil {
		return nil, err
	}
	if r.current, err = r.createReal("i", 0); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Resistor) conductance() float64 { return 1 / r.resistance.Real() }

// Initialize implements Component.
func (r *Resistor) Initialize(frequency, timeStep float64, solution *attribute.Attribute) error {
	r.bindSolution(solution)
	return nil
}

// ApplySystemMatrixStamp implements Component.
func (r *Resistor) ApplySystemMatrixStamp(sys *solver.System) {
	g := r.conductance()
	sys.AddMatrix(r.n1, r.n1, g)
	sys.AddMatrix(r.n2, r.n2, g)
	sys.AddMatrix(r.n1, r.n2, -g)
	sys.AddMatrix(r.n2, r.n1, -g)
}

// ApplyRightSideVectorStamp implements Component. A resistor has no source
// contribution.
func (r *Resistor) ApplyRightSideVectorStamp(sys *solver.System) {}

// UpdateVoltageFromSolution implements Component.
func (r *Resistor) UpdateVoltageFromSolution(x []float64) {
	r.voltage.MustSetReal(nodeVoltage(x, r.n1) - nodeVoltage(x, r.n2))
}

// UpdateCurrentFromSolution implements Component.
func (r *Resistor) UpdateCurrentFromSolution(x []float64) {
	r.current.MustSetReal(r.conductance() * r.voltage.Real())
}

// PreStep implements Component.
func (r *Resistor) PreStep(time float64, step int) {}

// PostStep implements Component.
func (r *Resistor) PostStep(time float64, step int, x []float64) {
	r.UpdateVoltageFromSolution(x)
	r.UpdateCurrentFromSolution(x)
}

// PreStepDependencies implements Component.
func (r *Resistor) PreStepDependencies() task.Sets { return task.Sets{} }

// PostStepDependencies implements Component.
func (r *Resistor) PostStepDependencies() task.Sets {
	return task.Sets{
		Attributes: []attribute.Handle{r.solutionHandle()},
		Modified:   []attribute.Handle{r.voltage.Handle(), r.current.Handle()},
	}
}

// Capacitor is represented by its trapezoidal companion model: a constant
// equivalent conductance in parallel with a current source refreshed from
// the previous step's voltage and current.
type Capacitor struct {
	Base
	n1, n2 int

	capacitance *attribute.Attribute
	voltage     *attribute.Attribute
	current     *attribute.Attribute
	equivI      *attribute.Attribute

	equivCond float64
}

// NewCapacitor registers a capacitor of the given capacitance in farads.
func NewCapacitor(reg *attribute.Registry, name string, n1, n2 int, farads float64) (*Capacitor, error) {
	if farads <= 0 {
		return nil, fmt.Errorf("capacitor %q: capacitance must be positive, got %g", name, farads)
	}
	c := &Capacitor{Base: NewBase(name, reg), n1: n1, n2: n2}
	var err error
	if c.capacitance, err = c.createReal("C", farads); err != nil {
		return nil, err
	}
	if c.voltage, err = c.createReal("v", 0); err != nil {
		return nil, err
	}
	if c.current, err = c.createReal("i", 0); err != nil {
		return nil, err
	}
	if c.equivI, err = c.createReal("i_eq", 0); err != nil {
		return nil, err
	}
	return c, nil
}

// Initialize implements Component. The equivalent conductance is constant
// for a fixed step size.
func (c *Capacitor) Initialize(frequency, timeStep float64, solution *attribute.Attribute) error {
	if timeStep <= 0 {
		return fmt.Errorf("capacitor %q: time step must be positive, got %g", c.Name(), timeStep)
	}
	c.bindSolution(solution)
	c.equivCond = 2 * c.capacitance.Real() / timeStep
	return nil
}

// ApplySystemMatrixStamp implements Component.
func (c *Capacitor) ApplySystemMatrixStamp(sys *solver.System) {
	sys.AddMatrix(c.n1, c.n1, c.equivCond)
	sys.AddMatrix(c.n2, c.n2, c.equivCond)
	sys.AddMatrix(c.n1, c.n2, -c.equivCond)
	sys.AddMatrix(c.n2, c.n1, -c.equivCond)
}

// ApplyRightSideVectorStamp implements Component.
func (c *Capacitor) ApplyRightSideVectorStamp(sys *solver.System) {
	ieq := c.equivI.Real()
	sys.AddRightSide(c.n1, -ieq)
	sys.AddRightSide(c.n2, ieq)
}

// UpdateVoltageFromSolution implements Component.
func (c *Capacitor) UpdateVoltageFromSolution(x []float64) {
	c.voltage.MustSetReal(nodeVoltage(x, c.n1) - nodeVoltage(x, c.n2))
}

// UpdateCurrentFromSolution implements Component.
func (c *Capacitor) UpdateCurrentFromSolution(x []float64) {
	c.current.MustSetReal(c.equivCond*c.voltage.Real() + c.equivI.Real())
}

// PreStep implements Component: the companion current source is refreshed
// from the previous step's voltage and current.
func (c *Capacitor) PreStep(time float64, step int) {
	c.equivI.MustSetReal(-(c.equivCond*c.voltage.Real() + c.current.Real()))
}

// PostStep implements Component.
func (c *Capacitor) PostStep(time float64, step int, x []float64) {
	c.UpdateVoltageFromSolution(x)
	c.UpdateCurrentFromSolution(x)
}

// PreStepDependencies implements Component.
func (c *Capacitor) PreStepDependencies() task.Sets {
	return task.Sets{
		PreviousStep: []attribute.Handle{c.voltage.Handle(), c.current.Handle()},
		Modified:     []attribute.Handle{c.equivI.Handle()},
	}
}

// PostStepDependencies implements Component.
func (c *Capacitor) PostStepDependencies() task.Sets {
	return task.Sets{
		Attributes: []attribute.Handle{c.solutionHandle()},
		Modified:   []attribute.Handle{c.voltage.Handle(), c.current.Handle()},
	}
}

// Inductor is represented by its trapezoidal companion model, the dual of
// the capacitor's.
type Inductor struct {
	Base
	n1, n2 int

	inductance *attribute.Attribute
	voltage    *attribute.Attribute
	current    *attribute.Attribute
	equivI     *attribute.Attribute

	equivCond float64
}

// NewInductor registers an inductor of the given inductance in henries.
func NewInductor(reg *attribute.Registry, name string, n1, n2 int, henries float64) (*Inductor, error) {
	if henries <= 0 {
		return nil, fmt.Errorf("inductor %q: inductance must be positive, got %g", name, henries)
	}
	l := &Inductor{Base: NewBase(name, reg), n1: n1, n2: n2}
	var err error
	if l.inductance, err = l.createReal("L", henries); err != nil {
		return nil, err
	}
	if l.voltage, err = l.createReal("v", 0); err != nil {
		return nil, err
	}
	if l.current, err = l.createReal("i", 0); err != nil {
		return nil, err
	}
	if l.equivI, err = l.createReal("i_eq", 0); err != nil {
		return nil, err
	}
	return l, nil
}

// Initialize implements Component.
func (l *Inductor) Initialize(frequency, timeStep float64, solution *attribute.Attribute) error {
	if timeStep <= 0 {
		return fmt.Errorf("inductor %q: time step must be positive, got %g", l.Name(), timeStep)
	}
	l.bindSolution(solution)
	l.equivCond = timeStep / (2 * l.inductance.Real())
	return nil
}

// ApplySystemMatrixStamp implements Component.
func (l *Inductor) ApplySystemMatrixStamp(sys *solver.System) {
	sys.AddMatrix(l.n1, l.n1, l.equivCond)
	sys.AddMatrix(l.n2, l.n2, l.equivCond)
	sys.AddMatrix(l.n1, l.n2, -l.equivCond)
	sys.AddMatrix(l.n2, l.n1, -l.equivCond)
}

// ApplyRightSideVectorStamp implements Component.
func (l *Inductor) ApplyRightSideVectorStamp(sys *solver.System) {
	ieq := l.equivI.Real()
	sys.AddRightSide(l.n1, -ieq)
	sys.AddRightSide(l.n2, ieq)
}

// UpdateVoltageFromSolution implements Component.
func (l *Inductor) UpdateVoltageFromSolution(x []float64) {
	l.voltage.MustSetReal(nodeVoltage(x, l.n1) - nodeVoltage(x, l.n2))
}

// UpdateCurrentFromSolution implements Component.
func (l *Inductor) UpdateCurrentFromSolution(x []float64) {
	l.current.MustSetReal(l.equivCond*l.voltage.Real() + l.equivI.Real())
}

// PreStep implements Component.
func (l *Inductor) PreStep(time float64, step int) {
	l.equivI.MustSetReal(l.current.Real() + l.equivCond*l.voltage.Real())
}

// PostStep implements Component.
func (l *Inductor) PostStep(time float64, step int, x []float64) {
	l.UpdateVoltageFromSolution(x)
	l.UpdateCurrentFromSolution(x)
}

// PreStepDependencies implements Component.
func (l *Inductor) PreStepDependencies() task.Sets {
	return task.Sets{
		PreviousStep: []attribute.Handle{l.voltage.Handle(), l.current.Handle()},
		Modified:     []attribute.Handle{l.equivI.Handle()},
	}
}

// PostStepDependencies implements Component.
func (l *Inductor) PostStepDependencies() task.Sets {
	return task.Sets{
		Attributes: []attribute.Handle{l.solutionHandle()},
		Modified:   []attribute.Handle{l.voltage.Handle(), l.current.Handle()},
	}
}

// VoltageSource is an ideal source between two nodes, carried on an extra
// branch row of the system. A zero source frequency yields a DC source;
// otherwise the setpoint is the sine amplitude.
type VoltageSource struct {
	Base
	n1, n2 int
	branch int

	setpoint  *attribute.Attribute
	reference *attribute.Attribute
	voltage   *attribute.Attribute
	current   *attribute.Attribute

	srcFreq float64
}

// NewVoltageSource registers a voltage source. branch is the source's row
// in the system, beyond the node rows. srcFreq of 0 selects DC.
func NewVoltageSource(reg *attribute.Registry, name string, n1, n2, branch int, volts, srcFreq float64) (*VoltageSource, error) {
	if branch < 0 {
		return nil, fmt.Errorf("voltage source %q: branch row must be non-negative, got %d", name, branch)
	}
	v := &VoltageSource{Base: NewBase(name, reg), n1: n1, n2: n2, branch: branch, srcFreq: srcFreq}
	var err error
	if v.setpoint, err = v.createReal("V", volts); err != nil {
		return nil, err
	}
	if v.reference, err = v.createReal("v_ref", volts); err != nil {
		return nil, err
	}
	if v.voltage, err = v.createReal("v", 0); err != nil {
		return nil, err
	}
	if v.current, err = v.createReal("i", 0); err != nil {
		return nil, err
	}
	return v, nil
}

// Initialize implements Component.
func (v *VoltageSource) Initialize(frequency, timeStep float64, solution *attribute.Attribute) error {
	v.bindSolution(solution)
	return nil
}

// ApplySystemMatrixStamp implements Component.
func (v *VoltageSource) ApplySystemMatrixStamp(sys *solver.System) {
	sys.AddMatrix(v.n1, v.branch, 1)
	sys.AddMatrix(v.n2, v.branch, -1)
	sys.AddMatrix(v.branch, v.n1, 1)
	sys.AddMatrix(v.branch, v.n2, -1)
}

// ApplyRightSideVectorStamp implements Component.
func (v *VoltageSource) ApplyRightSideVectorStamp(sys *solver.System) {
	sys.AddRightSide(v.branch, v.reference.Real())
}

// UpdateVoltageFromSolution implements Component.
func (v *VoltageSource) UpdateVoltageFromSolution(x []float64) {
	v.voltage.MustSetReal(nodeVoltage(x, v.n1) - nodeVoltage(x, v.n2))
}

// UpdateCurrentFromSolution implements Component. The branch row of the
// solution carries the source current.
func (v *VoltageSource) UpdateCurrentFromSolution(x []float64) {
	v.current.MustSetReal(x[v.branch])
}

// PreStep implements Component: the instantaneous reference voltage is
// refreshed from the setpoint.
func (v *VoltageSource) PreStep(time float64, step int) {
	ref := v.setpoint.Real()
	if v.srcFreq > 0 {
		ref *= math.Sin(2 * math.Pi * v.srcFreq * time)
	}
	v.reference.MustSetReal(ref)
}

// PostStep implements Component.
func (v *VoltageSource) PostStep(time float64, step int, x []float64) {
	v.UpdateVoltageFromSolution(x)
	v.UpdateCurrentFromSolution(x)
}

// PreStepDependencies implements Component.
func (v *VoltageSource) PreStepDependencies() task.Sets {
	return task.Sets{
		Attributes: []attribute.Handle{v.setpoint.Handle()},
		Modified:   []attribute.Handle{v.reference.Handle()},
	}
}

// PostStepDependencies implements Component.
func (v *VoltageSource) PostStepDependencies() task.Sets {
	return task.Sets{
		Attributes: []attribute.Handle{v.solutionHandle()},
		Modified:   []attribute.Handle{v.voltage.Handle(), v.current.Handle()},
	}
}

// CurrentSource is an ideal current source injecting its setpoint from n2
// into n1.
type CurrentSource struct {
	Base
	n1, n2 int

	setpoint *attribute.Attribute
	voltage  *attribute.Attribute
	current  *attribute.Attribute
}

// NewCurrentSource registers a current source with the given setpoint in
// amperes.
func NewCurrentSource(reg *attribute.Registry, name string, n1, n2 int, amps float64) (*CurrentSource, error) {
	c := &CurrentSource{Base: NewBase(name, reg), n1: n1, n2: n2}
	var err error
	if c.setpoint, err = c.createReal("I", amps); err != nil {
		return nil, err
	}
	if c.voltage, err = c.createReal("v", 0); err != nil {
		return nil, err
	}
	if c.current, err = c.createReal("i", 0); err != nil {
		return nil, err
	}
	return c, nil
}

// Initialize implements Component.
func (c *CurrentSource) Initialize(frequency, timeStep float64, solution *attribute.Attribute) error {
	c.bindSolution(solution)
	return nil
}

// ApplySystemMatrixStamp implements Component. An ideal current source has
// no matrix contribution.
func (c *CurrentSource) ApplySystemMatrixStamp(sys *solver.System) {}

// ApplyRightSideVectorStamp implements Component.
func (c *CurrentSource) ApplyRightSideVectorStamp(sys *solver.System) {
	i := c.setpoint.Real()
	sys.AddRightSide(c.n1, i)
	sys.AddRightSide(c.n2, -i)
}

// UpdateVoltageFromSolution implements Component.
func (c *CurrentSource) UpdateVoltageFromSolution(x []float64) {
	c.voltage.MustSetReal(nodeVoltage(x, c.n1) - nodeVoltage(x, c.n2))
}

// UpdateCurrentFromSolution implements Component.
func (c *CurrentSource) UpdateCurrentFromSolution(x []float64) {
	c.current.MustSetReal(c.setpoint.Real())
}

// PreStep implements Component.
func (c *CurrentSource) PreStep(time float64, step int) {}

// PostStep implements Component.
func (c *CurrentSource) PostStep(time float64, step int, x []float64) {
	c.UpdateVoltageFromSolution(x)
	c.UpdateCurrentFromSolution(x)
}

// PreStepDependencies implements Component.
func (c *CurrentSource) PreStepDependencies() task.Sets { return task.Sets{} }

// PostStepDependencies implements Component.
func (c *CurrentSource) PostStepDependencies() task.Sets {
	return task.Sets{
		Attributes: []attribute.Handle{c.solutionHandle()},
		Modified:   []attribute.Handle{c.voltage.Handle(), c.current.Handle()},
	}
}
