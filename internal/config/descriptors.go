package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"parambridge/internal/param"
	"parambridge/internal/spec"
)

const SupportedSchema = "v1"

// LoadDescriptorFile parses a descriptor YAML and validates schema_version and
// every parameter. A missing schema_version is taken as the supported one.
func LoadDescriptorFile(path string) ([]param.Descriptor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f spec.File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("descriptors %s: %w", path, err)
	}
	if f.SchemaVersion == "" {
		f.SchemaVersion = SupportedSchema
	}
	if f.SchemaVersion != SupportedSchema {
		return nil, fmt.Errorf("descriptors schema_version %q not supported (want %q)", f.SchemaVersion, SupportedSchema)
	}
	return descriptorsFrom(f.Parameters)
}

func descriptorsFrom(ps []spec.Parameter) ([]param.Descriptor, error) {
	seen := make(map[string]bool, len(ps))
	out := make([]param.Descriptor, 0, len(ps))
	for i, p := range ps {
		if p.ID == "" {
			return nil, fmt.Errorf("parameter #%d: missing id", i)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("parameter %q: duplicate id", p.ID)
		}
		seen[p.ID] = true
		if p.Min > p.Max {
			return nil, fmt.Errorf("parameter %q: min %g > max %g", p.ID, p.Min, p.Max)
		}
		if p.Max > p.Min && (p.Default < p.Min || p.Default > p.Max) {
			return nil, fmt.Errorf("parameter %q: default %g outside [%g, %g]", p.ID, p.Default, p.Min, p.Max)
		}
		name := p.Name
		if name == "" {
			name = p.ID
		}
		out = append(out, param.Descriptor{
			ID:      param.ID(p.ID),
			Name:    name,
			Unit:    p.Unit,
			Min:     p.Min,
			Max:     p.Max,
			Default: p.Default,
		})
	}
	return out, nil
}

// DemoDescriptors is the parameter set the kernel serves when no descriptor
// file is configured.
func DemoDescriptors() []param.Descriptor {
	ds, _ := descriptorsFrom([]spec.Parameter{
		{ID: "input_gain", Name: "Input Gain", Unit: "dB", Min: -24, Max: 24, Default: 0},
		{ID: "cutoff", Name: "Cutoff", Unit: "Hz", Min: 20, Max: 20000, Default: 8000},
		{ID: "resonance", Name: "Resonance", Min: 0, Max: 1, Default: 0.2},
		{ID: "mix", Name: "Dry/Wet", Unit: "%", Min: 0, Max: 100, Default: 100},
		{ID: "output_gain", Name: "Output Gain", Unit: "dB", Min: -60, Max: 12, Default: 0},
	})
	return ds
}
