package logger

import (
	"os"
	"strings"

	"go.uber.org/zap/zapcore"
)

// LoggerConfig is read before the service configuration so that config
// loading itself can log.
type LoggerConfig struct {
	Service    string
	Level      string
	Format     string
	OutputFile string
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func DefaultConfig() *LoggerConfig {
	return &LoggerConfig{
		Service:    envOr("SERVICE_NAME", "garala"),
		Level:      strings.ToLower(envOr("LOG_LEVEL", "info")),
		Format:     strings.ToLower(envOr("LOG_FORMAT", "json")),
		OutputFile: envOr("LOG_OUTPUT_FILE", "stdout"),
	}
}

// ToZapLevel parses Level, accepting "warning" as well. Unknown values log at info.
func (c *LoggerConfig) ToZapLevel() zapcore.Level {
	name := c.Level
	if name == "warning" {
		name = "warn"
	}
	lvl, err := zapcore.ParseLevel(name)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

func (c *LoggerConfig) toStdStream() bool {
	return c.OutputFile == "stdout" || c.OutputFile == "stderr"
}
