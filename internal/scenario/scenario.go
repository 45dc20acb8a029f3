// Package scenario loads the HCL run configuration: simulation parameters,
// realtime interface declarations, and initial attribute overrides. The
// grid topology itself is not described here; topology loading is an
// external collaborator of the kernel.
package scenario

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/powerstep/internal/attribute"
)

// File is the decoded scenario document.
type File struct {
	Simulation *SimulationBlock `hcl:"simulation,block"`
	Interfaces []InterfaceBlock `hcl:"interface,block"`
	Sets       []SetBlock       `hcl:"set,block"`
}

// SimulationBlock carries the stepper's run parameters.
type SimulationBlock struct {
	Name       string  `hcl:"name"`
	TimeStep   float64 `hcl:"timestep"`
	Duration   float64 `hcl:"duration"`
	Frequency  float64 `hcl:"frequency,optional"`
	Concurrent bool    `hcl:"concurrent,optional"`
}

// InterfaceBlock declares one realtime interface and its attribute wiring.
type InterfaceBlock struct {
	Name         string        `hcl:"name,label"`
	Endpoint     string        `hcl:"endpoint"`
	Downsampling int           `hcl:"downsampling,optional"`
	Imports      []ImportBlock `hcl:"import,block"`
	Exports      []ExportBlock `hcl:"export,block"`
}

// ImportBlock registers one attribute for inbound overwrite.
type ImportBlock struct {
	Attribute   string `hcl:"attribute,label"`
	BlockOnRead bool   `hcl:"block_on_read,optional"`
}

// ExportBlock registers one attribute for outbound snapshots.
type ExportBlock struct {
	Attribute string `hcl:"attribute,label"`
}

// SetBlock overrides an attribute's initial value before the run.
type SetBlock struct {
	Attribute string         `hcl:"attribute,label"`
	Value     hcl.Expression `hcl:"value"`
}

// Load parses and validates a scenario file.
func Load(path string) (*File, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing scenario %s: %w", path, diags)
	}
	return decode(hclFile.Body, path)
}

// LoadSource parses a scenario held in memory; filename is used in
// diagnostics only.
func LoadSource(src []byte, filename string) (*File, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing scenario %s: %w", filename, diags)
	}
	return decode(hclFile.Body, filename)
}

func decode(body hcl.Body, filename string) (*File, error) {
	var file File
	if diags := gohcl.DecodeBody(body, nil, &file); diags.HasErrors() {
		return nil, fmt.Errorf("decoding scenario %s: %w", filename, diags)
	}
	if err := file.validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", filename, err)
	}
	return &file, nil
}

func (f *File) validate() error {
	if f.Simulation == nil {
		return fmt.Errorf("missing required simulation block")
	}
	if f.Simulation.TimeStep <= 0 {
		return fmt.Errorf("simulation timestep must be positive, got %g", f.Simulation.TimeStep)
	}
	if f.Simulation.Duration <= 0 {
		return fmt.Errorf("simulation duration must be positive, got %g", f.Simulation.Duration)
	}
	for _, intf := range f.Interfaces {
		if intf.Endpoint == "" {
			return fmt.Errorf("interface %q: endpoint is required", intf.Name)
		}
		// 0 selects the default of 1.
		if intf.Downsampling < 0 {
			return fmt.Errorf("interface %q: downsampling must not be negative, got %d", intf.Name, intf.Downsampling)
		}
	}
	return nil
}

// ctyToValue converts a decoded cty value into an attribute payload.
func ctyToValue(v cty.Value) (attribute.Value, error) {
	switch v.Type() {
	case cty.Number:
		f, _ := v.AsBigFloat().Float64()
		return f, nil
	case cty.Bool:
		return v.True(), nil
	case cty.String:
		return v.AsString(), nil
	default:
		return nil, fmt.Errorf("unsupported value type %s", v.Type().FriendlyName())
	}
}

// Apply evaluates every set block and stores the result onto the named
// attribute. Unknown attribute names and kind mismatches are configuration
// faults.
func (f *File) Apply(reg *attribute.Registry) error {
	for _, sb := range f.Sets {
		val, diags := sb.Value.Value(nil)
		if diags.HasErrors() {
			return fmt.Errorf("evaluating set %q: %w", sb.Attribute, diags)
		}
		payload, err := ctyToValue(val)
		if err != nil {
			return fmt.Errorf("set %q: %w", sb.Attribute, err)
		}
		attr, ok := reg.Lookup(sb.Attribute)
		if !ok {
			return fmt.Errorf("set %q: attribute not registered", sb.Attribute)
		}
		if err := attr.Set(payload); err != nil {
			return fmt.Errorf("set %q: %w", sb.Attribute, err)
		}
	}
	return nil
}
