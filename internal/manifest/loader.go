package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// FileName is the name of the manifest file.
const FileName = "leapark.yaml"

// FileNameAlt is the alternate name of the manifest file.
const FileNameAlt = "leapark.yml"

// Load reads a manifest from path.
func Load(path string) (*Manifest, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("error reading manifest %s: %w", path, err)
	}
	return unmarshal(k)
}

// Parse reads a manifest from YAML bytes.
func Parse(data []byte) (*Manifest, error) {
	raw, err := yaml.Parser().Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing manifest: %w", err)
	}
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(raw, ""), nil); err != nil {
		return nil, fmt.Errorf("error parsing manifest: %w", err)
	}
	return unmarshal(k)
}

// LoadFromDir loads leapark.yaml or leapark.yml from dir.
// Returns nil, nil if no manifest is found (not an error condition).
func LoadFromDir(dir string) (*Manifest, error) {
	path := FindFile(dir)
	if path == "" {
		return nil, nil
	}
	return Load(path)
}

// FindFile returns the manifest path in dir, or "" if none exists.
func FindFile(dir string) string {
	for _, name := range []string{FileName, FileNameAlt} {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

func unmarshal(k *koanf.Koanf) (*Manifest, error) {
	var m Manifest
	// Lists may also be written as comma-separated strings.
	err := k.UnmarshalWithConf("", &m, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToSliceHookFunc(","),
				trimSliceHook,
			),
			Result:           &m,
			WeaklyTypedInput: true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("unable to decode manifest: %w", err)
	}
	m.ApplyDefaults()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// trimSliceHook trims blanks left by comma-separated list values.
func trimSliceHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.Slice || to != reflect.TypeOf([]string(nil)) {
		return data, nil
	}
	items, ok := data.([]string)
	if !ok {
		return data, nil
	}
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}
