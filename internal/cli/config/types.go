// Package config provides configuration management for the leapark CLI.
//
// CLI settings live next to the unit manifest in leapark.yaml; the unit list
// itself is loaded by internal/manifest.
package config

// Config holds all CLI configuration options.
type Config struct {
	ManifestPath string `koanf:"manifest"`
	StatePath    string `koanf:"state_path"`
	Verbose      bool   `koanf:"verbose"`
	OutputFormat string `koanf:"output"`
	// Generator names the domain used for platform-generated proxies
	// ("framework" or "host").
	Generator string `koanf:"generator"`
}

// Default configuration values.
const (
	DefaultManifest  = "leapark.yaml"
	DefaultStateFile = ".leapark/state.db"
	DefaultOutput    = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultGenerator = "framework"
)
