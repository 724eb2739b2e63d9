package config

import "time"

// Config represents the complete tfboot configuration.
type Config struct {
	Service   ServiceConfig   `yaml:"service" envPrefix:"SERVICE_"`
	Workspace WorkspaceConfig `yaml:"workspace" envPrefix:"WORKSPACE_"`
	Terraform TerraformConfig `yaml:"terraform" envPrefix:"TERRAFORM_"`
	API       APIConfig       `yaml:"api" envPrefix:"API_"`
	Async     AsyncConfig     `yaml:"async" envPrefix:"ASYNC_"`
	Webhook   WebhookConfig   `yaml:"webhook" envPrefix:"WEBHOOK_"`
	Telemetry TelemetryConfig `yaml:"telemetry" envPrefix:"TELEMETRY_"`
	Health    HealthConfig    `yaml:"health" envPrefix:"HEALTH_"`

	// SourcePath is the absolute path of the loaded file, empty when running on defaults.
	SourcePath string `yaml:"-"`
}

// ServiceConfig contains process-level settings.
type ServiceConfig struct {
	Name      string `yaml:"name" env:"NAME" validate:"required"`
	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT" validate:"oneof=json text"`
	// LockPath defaults to <workspace.root>/.tfboot.lock.
	LockPath string `yaml:"lock_path" env:"LOCK_PATH"`
}

// WorkspaceConfig controls where workspaces live and how long abandoned ones survive.
type WorkspaceConfig struct {
	Root string `yaml:"root" env:"ROOT" validate:"required"`
	// Retention of zero disables the sweep.
	Retention     time.Duration `yaml:"retention" env:"RETENTION" validate:"gte=0"`
	SweepInterval time.Duration `yaml:"sweep_interval" env:"SWEEP_INTERVAL" validate:"gte=0"`
}

// TerraformConfig configures the terraform binary.
type TerraformConfig struct {
	// Binary is looked up on PATH when empty.
	Binary         string        `yaml:"binary" env:"BINARY"`
	CommandTimeout time.Duration `yaml:"command_timeout" env:"COMMAND_TIMEOUT" validate:"gte=0"`
}

// APIConfig configures the HTTP server.
type APIConfig struct {
	Listen      string `yaml:"listen" env:"LISTEN" validate:"required,hostname_port"`
	APIKey      string `yaml:"api_key" env:"API_KEY"`
	MaxBodySize int64  `yaml:"max_body_size" env:"MAX_BODY_SIZE" validate:"gte=0"`
}

// AsyncConfig bounds background executions.
type AsyncConfig struct {
	MaxWorkers int `yaml:"max_workers" env:"MAX_WORKERS" validate:"gte=1"`
}

// WebhookConfig configures async result callbacks.
type WebhookConfig struct {
	Timeout         time.Duration `yaml:"timeout" env:"TIMEOUT" validate:"gte=0"`
	Secret          string        `yaml:"secret" env:"SECRET"`
	SignatureHeader string        `yaml:"signature_header" env:"SIGNATURE_HEADER"`
}

// TelemetryConfig groups metrics and tracing.
type TelemetryConfig struct {
	Metrics MetricsConfig `yaml:"metrics" envPrefix:"METRICS_"`
	Tracing TracingConfig `yaml:"tracing" envPrefix:"TRACING_"`
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" env:"ENABLED"`
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" env:"ENABLED"`
	Exporter     string  `yaml:"exporter" env:"EXPORTER" validate:"oneof=none stdout otlp"`
	Endpoint     string  `yaml:"endpoint" env:"ENDPOINT" validate:"required_if=Exporter otlp"`
	Insecure     bool    `yaml:"insecure" env:"INSECURE"`
	SamplingRate float64 `yaml:"sampling_rate" env:"SAMPLING_RATE" validate:"gte=0,lte=1"`
}

// HealthConfig configures the health probe.
type HealthConfig struct {
	// WorkspaceID is reused by every probe. A random id is chosen at startup when empty.
	WorkspaceID string `yaml:"workspace_id" env:"WORKSPACE_ID" validate:"omitempty,excludesall=/\\"`
}

// ChecksumManifest is the content of a .checksums sidecar.
type ChecksumManifest struct {
	Version     int               `yaml:"version"`
	GeneratedAt string            `yaml:"generated_at"`
	Hashes      map[string]string `yaml:"hashes"`
}

// Defaults returns a Config with default values.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:      "tfboot",
			LogLevel:  "info",
			LogFormat: "json",
		},
		Workspace: WorkspaceConfig{
			Root:          "./workspaces",
			Retention:     24 * time.Hour,
			SweepInterval: time.Hour,
		},
		Terraform: TerraformConfig{
			CommandTimeout: 30 * time.Minute,
		},
		API: APIConfig{
			Listen:      "127.0.0.1:9090",
			MaxBodySize: 10 << 20,
		},
		Async: AsyncConfig{
			MaxWorkers: 4,
		},
		Webhook: WebhookConfig{
			Timeout:         30 * time.Second,
			SignatureHeader: "X-Tfboot-Signature-256",
		},
		Telemetry: TelemetryConfig{
			Metrics: MetricsConfig{
				Enabled:   true,
				Namespace: "tfboot",
			},
			Tracing: TracingConfig{
				Exporter:     "none",
				SamplingRate: 1.0,
			},
		},
	}
}
