// Package manifest loads unit manifests (leapark.yaml) describing the
// platform, startup directives and the ordered unit list.
package manifest

// Manifest is the on-disk description of a process's units.
type Manifest struct {
	PlatformHome string   `koanf:"platform_home" yaml:"platform_home,omitempty"`
	AgentPrefix  string   `koanf:"agent_prefix" yaml:"agent_prefix,omitempty"`
	Args         []string `koanf:"args" yaml:"args,omitempty"`
	HostPaths    []string `koanf:"host_paths" yaml:"host_paths,omitempty"`
	// HostPathVar names an environment variable holding the host path list,
	// used when HostPaths is empty.
	HostPathVar string     `koanf:"host_path_var" yaml:"host_path_var,omitempty"`
	Units       []UnitSpec `koanf:"units" yaml:"units"`
}

// UnitSpec declares one unit. Units are registered in file order.
type UnitSpec struct {
	ID      string            `koanf:"id" yaml:"id"`
	Exports []string          `koanf:"exports" yaml:"exports,omitempty"`
	Imports []string          `koanf:"imports" yaml:"imports,omitempty"`
	Paths   []string          `koanf:"paths" yaml:"paths,omitempty"`
	Symbols map[string]string `koanf:"symbols" yaml:"symbols,omitempty"`
	// Isolated units get a flat domain instead of delegating to the
	// platform-filtered domain.
	Isolated bool `koanf:"isolated" yaml:"isolated,omitempty"`
}

// Default values.
const (
	DefaultAgentPrefix = "-javaagent:"
	DefaultHostPathVar = "LEAPARK_HOST_PATH"
)

// ApplyDefaults fills unset fields.
func (m *Manifest) ApplyDefaults() {
	if m == nil {
		return
	}
	if m.AgentPrefix == "" {
		m.AgentPrefix = DefaultAgentPrefix
	}
	if m.HostPathVar == "" {
		m.HostPathVar = DefaultHostPathVar
	}
}
