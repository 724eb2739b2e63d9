package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. TFBOOT_API_LISTEN.
const EnvPrefix = "TFBOOT_"

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load builds the configuration in order: defaults, the YAML file at
// configPath (optional), TFBOOT_* environment overrides, then validation.
// A .checksums sidecar next to the file, when present, must match.
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	if configPath != "" {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
		}
		if err := verifyConfigHash(absPath); err != nil {
			return nil, err
		}
		if err := loadConfigFile(absPath, cfg); err != nil {
			return nil, err
		}
		cfg.SourcePath = absPath
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// LockPath returns the PID lock location.
func (c *Config) LockPath() string {
	if c.Service.LockPath != "" {
		return c.Service.LockPath
	}
	return filepath.Join(c.Workspace.Root, ".tfboot.lock")
}

func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", path)
	}

	interpolated := interpolateEnv(string(data))
	if err := yaml.Unmarshal([]byte(interpolated), cfg); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// interpolateEnv replaces ${VAR} with environment variable values.
// Undefined variables are left as-is (not expanded).
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return match
	})
}

func verifyConfigHash(path string) error {
	dir := filepath.Dir(path)
	manifest, err := LoadChecksums(dir)
	if errors.Is(err, ErrNoChecksums) {
		return nil
	}
	if err != nil {
		return err
	}

	basename := filepath.Base(path)
	expectedHash, ok := manifest.Hashes[basename]
	if !ok {
		return fmt.Errorf("config file %s has no hash in checksums at %s\n"+
			"Run: tfboot config lock --config %s", basename, dir, path)
	}
	if err := VerifyFileHash(path, expectedHash); err != nil {
		return fmt.Errorf("config verification failed for %s: %w\n"+
			"This indicates tampering or unauthorized modification.\n"+
			"If you edited this file intentionally, run: tfboot config lock --config %s", path, err, path)
	}
	return nil
}
