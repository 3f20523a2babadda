package config

import (
	"fmt"
	"slices"
)

var validOutputs = []string{"auto", "text", "markdown", "json"}

var validGenerators = []string{"framework", "host"}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	if !slices.Contains(validOutputs, c.OutputFormat) {
		return fmt.Errorf("invalid output format %q (want one of %v)", c.OutputFormat, validOutputs)
	}
	if !slices.Contains(validGenerators, c.Generator) {
		return fmt.Errorf("invalid generator %q (want one of %v)", c.Generator, validGenerators)
	}
	return nil
}
