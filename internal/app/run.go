package app

import (
	"context"
	"fmt"

	"github.com/vk/powerstep/internal/attribute"
	"github.com/vk/powerstep/internal/ctxlog"
	"github.com/vk/powerstep/internal/realtime"
	"github.com/vk/powerstep/internal/scenario"
	"github.com/vk/powerstep/internal/simulation"
)

// Run executes one full simulation lifecycle: load the scenario, assemble
// the network, wire the realtime interfaces, then initialize and step the
// simulation to completion.
func (a *App) Run(ctx context.Context, cfg *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	scn, err := scenario.Load(cfg.ScenarioPath)
	if err != nil {
		return fmt.Errorf("loading scenario: %w", err)
	}

	simCfg := simulation.Config{
		Name:       scn.Simulation.Name,
		TimeStep:   scn.Simulation.TimeStep,
		FinalTime:  scn.Simulation.Duration,
		Frequency:  scn.Simulation.Frequency,
		Concurrent: scn.Simulation.Concurrent,
	}
	if cfg.TimeStep > 0 {
		simCfg.TimeStep = cfg.TimeStep
	}
	if cfg.Duration > 0 {
		simCfg.FinalTime = cfg.Duration
	}
	if cfg.Frequency > 0 {
		simCfg.Frequency = cfg.Frequency
	}

	reg := attribute.NewRegistry()
	comps, systemSize, err := a.network(reg)
	if err != nil {
		return fmt.Errorf("assembling network: %w", err)
	}
	simCfg.SystemSize = systemSize

	sim := simulation.New(simCfg, reg)
	defer sim.Destroy()
	for _, c := range comps {
		if err := sim.AddComponent(c); err != nil {
			return err
		}
	}

	if err := scn.Apply(reg); err != nil {
		return fmt.Errorf("applying scenario overrides: %w", err)
	}

	interfaces, err := a.buildInterfaces(scn, reg)
	if err != nil {
		return err
	}
	for _, intf := range interfaces {
		if err := sim.AddTaskProvider(intf); err != nil {
			return err
		}
	}

	if err := sim.Initialize(ctx); err != nil {
		return fmt.Errorf("initializing simulation: %w", err)
	}
	a.logger.Info("Simulation initialized.",
		"name", simCfg.Name,
		"timestep", simCfg.TimeStep,
		"duration", simCfg.FinalTime,
		"system_size", simCfg.SystemSize,
		"interfaces", len(interfaces))

	for _, intf := range interfaces {
		if err := intf.Open(); err != nil {
			return fmt.Errorf("opening interface: %w", err)
		}
	}
	defer func() {
		for _, intf := range interfaces {
			if cerr := intf.Close(); cerr != nil {
				a.logger.Warn("Interface close failed.", "error", cerr)
			}
		}
	}()

	a.logger.Info("🚀 Starting simulation run...")
	if err := sim.Run(ctx); err != nil {
		return fmt.Errorf("simulation run: %w", err)
	}
	a.logger.Info("✅ Simulation finished.",
		"steps", sim.StepCount(), "time", sim.Time())
	return nil
}

func (a *App) buildInterfaces(scn *scenario.File, reg *attribute.Registry) ([]*realtime.Interface, error) {
	interfaces := make([]*realtime.Interface, 0, len(scn.Interfaces))
	for _, ib := range scn.Interfaces {
		transport := realtime.NewWebsocketTransport(ib.Endpoint)
		intf := realtime.New(a.logger, transport, realtime.Config{
			Name:         ib.Name,
			Downsampling: ib.Downsampling,
		})
		for _, imp := range ib.Imports {
			attr, ok := reg.Lookup(imp.Attribute)
			if !ok {
				return nil, fmt.Errorf("interface %q imports unknown attribute %q", ib.Name, imp.Attribute)
			}
			intf.ImportAttribute(attr, imp.BlockOnRead)
		}
		for _, exp := range ib.Exports {
			attr, ok := reg.Lookup(exp.Attribute)
			if !ok {
				return nil, fmt.Errorf("interface %q exports unknown attribute %q", ib.Name, exp.Attribute)
			}
			intf.ExportAttribute(attr)
		}
		interfaces = append(interfaces, intf)
	}
	return interfaces, nil
}
