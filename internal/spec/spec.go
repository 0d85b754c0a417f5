// Package spec defines the on-disk format of a kernel descriptor file.
package spec

// Parameter is one entry of a descriptor file.
type Parameter struct {
	ID      string  `yaml:"id"`
	Name    string  `yaml:"name"`
	Unit    string  `yaml:"unit"`
	Min     float64 `yaml:"min"`
	Max     float64 `yaml:"max"`
	Default float64 `yaml:"default"`
}

// File is a descriptor file:
//
//	schema_version: v1
//	parameters:
//	  - {id: gain, name: Gain, unit: dB, min: -60, max: 12, default: 0}
type File struct {
	SchemaVersion string      `yaml:"schema_version"`
	Parameters    []Parameter `yaml:"parameters"`
}
