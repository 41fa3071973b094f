// Package config loads the optional YAML run-configuration file consulted
// by cmd/pdp11: the start address, a documentation-only memory size note,
// and whether to trace execution. CLI flags always take precedence over
// whatever the file declares.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"pdp11/cpu"
)

// Config holds one run's settings. Default returns the built-in settings:
// start at cpu.DefaultStartAddress, tracing off.
type Config struct {
	StartAddress uint16 `yaml:"start_address"`
	MemorySize   int    `yaml:"memory_size_note"` // always 65536; kept for forward documentation
	Trace        bool   `yaml:"trace"`
}

// Default returns the built-in configuration used when no file is given.
func Default() Config {
	return Config{StartAddress: cpu.DefaultStartAddress, MemorySize: 65536}
}

// Load reads a YAML config file at path. Fields absent from the file keep
// Default's values, except StartAddress: an explicit "start_address: 0" in
// the file is indistinguishable from "absent", so callers that need that
// distinction should check the raw file instead. For this emulator's scope
// that's an acceptable simplification — start address 0 is not a
// meaningful program entry point.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if cfg.StartAddress == 0 {
		cfg.StartAddress = cpu.DefaultStartAddress
	}
	if cfg.MemorySize == 0 {
		cfg.MemorySize = 65536
	}
	return cfg, nil
}
