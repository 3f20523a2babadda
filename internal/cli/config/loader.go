package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/leapstack-labs/leapark/internal/manifest"
	"github.com/spf13/pflag"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

// maxUpwardSearchLevels limits how far up the directory tree to search for manifests.
const maxUpwardSearchLevels = 10

// EnvPrefix is the prefix of environment variables read into Config.
const EnvPrefix = "LEAPARK_"

// findManifestUpward searches upward from startDir for a manifest file.
// Returns empty string if not found within maxUpwardSearchLevels.
func findManifestUpward(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if path := manifest.FindFile(dir); path != "" {
			return path
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// LoadConfig loads configuration from defaults, the manifest file,
// environment variables and explicitly set flags.
// Precedence (highest to lowest): flags > env vars > manifest file > defaults
func LoadConfig(manifestPath string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]any{
		"state_path": DefaultStateFile,
		"verbose":    false,
		"output":     DefaultOutput,
		"generator":  DefaultGenerator,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Manifest file: explicit path, then LEAPARK_MANIFEST, else search upward from CWD
	if manifestPath == "" {
		manifestPath = os.Getenv(EnvPrefix + "MANIFEST")
	}
	if manifestPath == "" {
		if cwd, err := os.Getwd(); err == nil {
			manifestPath = findManifestUpward(cwd)
		}
	}
	if manifestPath != "" {
		if _, err := os.Stat(manifestPath); err != nil {
			return nil, fmt.Errorf("manifest %s: %w", manifestPath, err)
		}
		if err := k.Load(file.Provider(manifestPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading manifest %s: %w", manifestPath, err)
		}
	}

	// 3. Environment variables: LEAPARK_STATE_PATH -> state_path
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags that were explicitly set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			if key == "state" {
				return "state_path", posflag.FlagVal(flags, f)
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.ManifestPath = manifestPath
	if manifestPath != "" {
		base := filepath.Dir(manifestPath)
		if abs, err := filepath.Abs(manifestPath); err == nil {
			cfg.ManifestPath = abs
			base = filepath.Dir(abs)
		}
		if flags == nil || !flags.Changed("state") {
			cfg.StatePath = resolvePathRelativeTo(cfg.StatePath, base)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return l
		}
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}

// NewLogger builds the CLI logger: text on w, debug level when verbose.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// configKey is used to store config in context.
type configKey struct{}

// WithConfig stores cfg in ctx.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// GetConfig retrieves the config from ctx, falling back to defaults.
func GetConfig(ctx context.Context) *Config {
	if ctx != nil {
		if c, ok := ctx.Value(configKey{}).(*Config); ok {
			return c
		}
	}
	return &Config{
		StatePath:    DefaultStateFile,
		OutputFormat: DefaultOutput,
		Generator:    DefaultGenerator,
	}
}
