package luabridge

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
)

// Defaults used by [DefaultConfig].
const (
	DefaultMaxFunctions    = 2048
	DefaultErrorBufferSize = 1024
)

// Config controls how a [State] is created.
//
// The zero value is usable: missing fields fall back to the defaults of
// [DefaultConfig] when the state is built.
type Config struct {
	// Libraries lists the standard libraries opened at creation.
	// Nil opens all of them; an empty non-nil slice opens none.
	Libraries []string `toml:"libraries"`

	// MaxFunctions bounds the number of live foreign functions.
	MaxFunctions int `toml:"max_functions"`

	// ErrorBufferSize is the capacity used by helpers that allocate an
	// ErrorBuffer on the caller's behalf (the CLI and the C export table).
	ErrorBufferSize int `toml:"error_buffer_size"`

	// LegacyErrorCopy copies error messages into an ErrorBuffer without
	// terminating or zero-filling it.
	LegacyErrorCopy bool `toml:"legacy_error_copy"`

	// LogLevel is used by LoadConfig callers to build a logger.
	LogLevel string `toml:"log_level"`

	// Logger overrides the package logger for this state.
	Logger *zap.Logger `toml:"-"`
}

// DefaultConfig returns the configuration used by [New] without options.
func DefaultConfig() Config {
	return Config{
		MaxFunctions:    DefaultMaxFunctions,
		ErrorBufferSize: DefaultErrorBufferSize,
	}
}

// LoadConfig reads a TOML configuration file.
//
//	libraries = ["base", "string", "table"]
//	max_functions = 512
//	error_buffer_size = 256
//	legacy_error_copy = false
//	log_level = "debug"
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("cannot read %s: %w", path, err)
	}
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return cfg, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if keys := md.Undecoded(); len(keys) > 0 {
		return cfg, fmt.Errorf("%s: unknown key %q", path, keys[0].String())
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.MaxFunctions < 0 {
		return fmt.Errorf("max_functions must not be negative, got %d", c.MaxFunctions)
	}
	if c.ErrorBufferSize < 0 {
		return fmt.Errorf("error_buffer_size must not be negative, got %d", c.ErrorBufferSize)
	}
	for _, name := range c.Libraries {
		if _, ok := libraryOpeners[name]; !ok {
			return fmt.Errorf("unknown library %q", name)
		}
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.MaxFunctions == 0 {
		c.MaxFunctions = DefaultMaxFunctions
	}
	if c.ErrorBufferSize == 0 {
		c.ErrorBufferSize = DefaultErrorBufferSize
	}
	return c
}

// Option configures a State created with [New].
type Option func(*Config)

// WithLibraries opens only the named standard libraries.
func WithLibraries(names ...string) Option {
	return func(c *Config) {
		c.Libraries = append([]string{}, names...)
	}
}

// WithLogger sets the logger used by the state.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithMaxFunctions bounds the foreign function table.
func WithMaxFunctions(n int) Option {
	return func(c *Config) { c.MaxFunctions = n }
}

// WithLegacyErrorCopy selects the unterminated error buffer copy.
func WithLegacyErrorCopy(legacy bool) Option {
	return func(c *Config) { c.LegacyErrorCopy = legacy }
}

// WithErrorBufferSize sets the capacity of buffers allocated on the caller's behalf.
func WithErrorBufferSize(n int) Option {
	return func(c *Config) { c.ErrorBufferSize = n }
}
