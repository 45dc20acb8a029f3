package app

import (
	"github.com/vk/powerstep/internal/attribute"
	"github.com/vk/powerstep/internal/component"
	"github.com/vk/powerstep/internal/solver"
)

// DefaultNetwork builds the demonstration circuit: a 50 Hz sine source
// driving an RC low-pass filter.
//
//	node 0 --- R (100 Ω) --- node 1
//	  |                        |
//	 Vs (10 V, branch 2)      C (10 µF)
//	  |                        |
//	 gnd ------------------- gnd
//
// Rows 0 and 1 are node voltages, row 2 is the source branch current, so
// the system dimension is 3.
func DefaultNetwork(reg *attribute.Registry) ([]component.Component, int, error) {
	vs, err := component.NewVoltageSource(reg, "vs", 0, solver.Ground, 2, 10, 50)
	if err != nil {
		return nil, 0, err
	}
	r1, err := component.NewResistor(reg, "r1", 0, 1, 100)
	if err != nil {
		return nil, 0, err
	}
	c1, err := component.NewCapacitor(reg, "c1", 1, solver.Ground, 10e-6)
	if err != nil {
		return nil, 0, err
	}
	return []component.Component{vs, r1, c1}, 3, nil
}
