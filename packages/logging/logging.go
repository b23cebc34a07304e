// Package logging builds the zerolog loggers used by the CLI. Library
// packages never log through a global; they accept a zerolog.Logger.
package logging

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/rs/zerolog"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
	FormatPretty  = "pretty"
)

// Field names shared by every package that logs.
const (
	FieldComponent   = "component"
	FieldMethod      = "method"
	FieldURL         = "url"
	FieldStatus      = "status"
	FieldContentType = "content_type"
	FieldDuration    = "duration"
)

// Config contains logging configuration.
type Config struct {
	Level     string
	Format    string
	NoColor   bool
	Timestamp bool
}

// ApplyDefaults applies default values to logging configuration.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = FormatConsole
	}
}

// Validate validates logging configuration.
func (c *Config) Validate() error {
	validLevels := []string{"trace", "debug", "info", "warn", "error", "disabled"}
	if !slices.Contains(validLevels, strings.ToLower(c.Level)) {
		return fmt.Errorf("logging: level must be one of %v (got: %s)", validLevels, c.Level)
	}
	validFormats := []string{FormatJSON, FormatConsole, FormatPretty}
	if !slices.Contains(validFormats, strings.ToLower(c.Format)) {
		return fmt.Errorf("logging: format must be one of %v (got: %s)", validFormats, c.Format)
	}
	return nil
}

// New creates a logger writing to out. An unknown level falls back to info.
func New(cfg Config, out io.Writer) zerolog.Logger {
	cfg.ApplyDefaults()

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	var zl zerolog.Logger
	switch strings.ToLower(cfg.Format) {
	case FormatConsole, FormatPretty:
		zl = zerolog.New(zerolog.ConsoleWriter{
			Out:         out,
			TimeFormat:  "15:04:05",
			NoColor:     cfg.NoColor,
			FormatLevel: formatLevel(cfg.NoColor),
		})
	default:
		zl = zerolog.New(out)
	}

	if cfg.Timestamp {
		zl = zl.With().Timestamp().Logger()
	}
	return zl.Level(level)
}

// WithComponent returns l tagged with a component name.
func WithComponent(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str(FieldComponent, name).Logger()
}

func formatLevel(noColor bool) zerolog.Formatter {
	return func(i any) string {
		lvl := strings.ToUpper(fmt.Sprintf("%s", i))
		short := map[string]string{
			"TRACE": "TRC",
			"DEBUG": "DBG",
			"INFO":  "INF",
			"WARN":  "WRN",
			"ERROR": "ERR",
		}[lvl]
		if short == "" {
			return fmt.Sprintf("[%s]", lvl)
		}
		if noColor {
			return "[" + short + "]"
		}
		switch lvl {
		case "DEBUG", "TRACE":
			return "\033[36m[" + short + "]\033[0m"
		case "INFO":
			return "\033[32m[" + short + "]\033[0m"
		case "WARN":
			return "\033[33m[" + short + "]\033[0m"
		default:
			return "\033[31m[" + short + "]\033[0m"
		}
	}
}
