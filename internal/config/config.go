package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config is the process configuration, populated from the environment.
type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	Sweep struct {
		// Workers is the default worker count for sweeps started without
		// an explicit count.
		Workers int `env:"SWEEP_WORKERS" envDefault:"4"`
		// Seed is the default shared random seed.
		Seed int64 `env:"SWEEP_SEED" envDefault:"0"`
		// OutputDir receives local logs and merged result files, one
		// subdirectory per run.
		OutputDir string `env:"SWEEP_OUTPUT_DIR" envDefault:"results"`
		// InterpolateNaN enables the interpolated table by default.
		InterpolateNaN bool `env:"SWEEP_INTERPOLATE_NAN" envDefault:"false"`
	}
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Development runs default to verbose logging.
	if cfg.Environment == "development" && cfg.Logging.Level == "" {
		cfg.Logging.Level = "debug"
	}

	return cfg, nil
}
