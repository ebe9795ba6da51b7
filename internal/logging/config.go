package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Config selects the level, format, and destination for a Logger.
type Config struct {
	// Level is the minimum level to emit (debug, info, warn, error, fatal).
	Level string `yaml:"level"`
	// Format is the output format; only "json" is currently produced.
	Format string `yaml:"format"`
	// Output is "stdout", "stderr", or a file path.
	Output string `yaml:"output"`
}

// DefaultConfig returns a JSON logger at info level on stderr.
func DefaultConfig() *Config {
	return &Config{
		Level:  "info",
		Format: "json",
		Output: "stderr",
	}
}

// NewLogger builds a Logger from cfg. A nil cfg means DefaultConfig.
func NewLogger(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	out, err := openOutput(cfg.Output)
	if err != nil {
		return nil, fmt.Errorf("logging output %q: %w", cfg.Output, err)
	}
	return New(parseLevel(cfg.Level), out), nil
}

// parseLevel maps a config string to a LogLevel, defaulting to info.
func parseLevel(level string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return DebugLevel
	case "WARN", "WARNING":
		return WarnLevel
	case "ERROR":
		return ErrorLevel
	case "FATAL":
		return FatalLevel
	default:
		return InfoLevel
	}
}

func openOutput(output string) (io.Writer, error) {
	switch output {
	case "", "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	default:
		return os.OpenFile(output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	}
}
