// Package config loads process configuration from the environment.
package config

import (
	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/yourorg/spaces-transfer/internal/spaces"
	"github.com/yourorg/spaces-transfer/internal/transfer"
)

// Config holds all application configuration.
type Config struct {
	AccessKey string `env:"SPACES_ACCESS_KEY"`
	SecretKey string `env:"SPACES_SECRET_KEY"`
	Bucket    string `env:"SPACES_BUCKET"`
	Region    string `env:"SPACES_REGION" envDefault:"SFO"`
	// Endpoint overrides the region endpoint (MinIO, LocalStack).
	Endpoint  string `env:"SPACES_ENDPOINT"`
	PathStyle bool   `env:"SPACES_PATH_STYLE" envDefault:"false"`
	ObjectKey string `env:"SPACES_OBJECT_KEY" envDefault:"example_image.jpg"`

	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	MetricsAddr string `env:"METRICS_ADDR"`
	LedgerDir   string `env:"LEDGER_DIR" envDefault:".spaces-ledger"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// TransferConfig resolves the region and builds the client configuration.
func (c *Config) TransferConfig() (transfer.Config, error) {
	region, err := spaces.ParseRegion(c.Region)
	if err != nil {
		return transfer.Config{}, &transfer.ConfigurationError{Field: "region", Err: err}
	}
	tc := transfer.Config{
		Credentials: spaces.NewCredentials(c.AccessKey, c.SecretKey),
		Region:      region,
		Bucket:      c.Bucket,
	}
	if err := tc.Validate(); err != nil {
		return transfer.Config{}, err
	}
	return tc, nil
}

// ClientOptions returns transfer options implied by the configuration.
func (c *Config) ClientOptions() []transfer.Option {
	var opts []transfer.Option
	if c.Endpoint != "" {
		opts = append(opts, transfer.WithEndpoint(c.Endpoint, c.PathStyle))
	}
	return opts
}
