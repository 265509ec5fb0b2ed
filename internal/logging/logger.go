package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps zerolog.Logger with Foreman-specific context helpers
type Logger struct {
	*zerolog.Logger
}

// Config holds logger configuration
type Config struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "console"

	// File, when set, sends JSON output to a size-rotated log file
	// instead of stdout.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// New creates a new configured logger
func New(cfg Config) *Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)

	var output io.Writer = os.Stdout
	switch {
	case cfg.File != "":
		output = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    orDefault(cfg.MaxSizeMB, 50),
			MaxBackups: orDefault(cfg.MaxBackups, 3),
			MaxAge:     orDefault(cfg.MaxAgeDays, 14),
			Compress:   true,
		}
	case cfg.Format == "console":
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}

	logger := zerolog.New(output).
		With().
		Timestamp().
		Caller().
		Logger()

	return &Logger{Logger: &logger}
}

// Default returns a logger with default configuration
func Default() *Logger {
	return New(Config{
		Level:  "info",
		Format: "console",
	})
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	logger := zerolog.Nop()
	return &Logger{Logger: &logger}
}

// WithComponent returns a new logger with a component field
func (l *Logger) WithComponent(component string) *Logger {
	logger := l.Logger.With().Str("component", component).Logger()
	return &Logger{Logger: &logger}
}

// WithRegion returns a new logger with region context
func (l *Logger) WithRegion(region string) *Logger {
	logger := l.Logger.With().Str("region", region).Logger()
	return &Logger{Logger: &logger}
}

// WithCategory returns a new logger with region and structure category context
func (l *Logger) WithCategory(region, category string) *Logger {
	logger := l.Logger.With().
		Str("region", region).
		Str("category", category).
		Logger()
	return &Logger{Logger: &logger}
}

// Init initializes the global logger
func Init(cfg Config) {
	logger := New(cfg)
	log.Logger = *logger.Logger
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
