package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
// Returns an error if required values are missing or validation fails.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration and panics on error.
// Use this only in main() where early termination is desired.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// loadStruct populates struct fields from the environment, descending into
// nested sections. Every bad variable is reported, not just the first.
func loadStruct(v reflect.Value) error {
	var errs []error
	t := v.Type()

	for i := range t.NumField() {
		field, fv := t.Field(i), v.Field(i)
		if !fv.CanSet() {
			continue
		}
		if field.Type.Kind() == reflect.Struct {
			errs = append(errs, loadStruct(fv))
			continue
		}

		name := field.Tag.Get("env")
		if name == "" {
			continue
		}
		value, ok := lookup(name, field.Tag.Get("envAlt"))
		if !ok {
			if field.Tag.Get("required") == "true" {
				errs = append(errs, fmt.Errorf("required environment variable %s is not set", name))
				continue
			}
			value = field.Tag.Get("default")
		}
		if value == "" {
			continue
		}

		if err := setField(fv, value); err != nil {
			errs = append(errs, fmt.Errorf("invalid value for %s=%q: %w", name, value, err))
		}
	}

	return errors.Join(errs...)
}

// lookup reads the primary variable, falling back to the alternate name.
// Empty values count as unset.
func lookup(name, alt string) (string, bool) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v, true
	}
	if alt != "" {
		if v := strings.TrimSpace(os.Getenv(alt)); v != "" {
			return v, true
		}
	}
	return "", false
}

// parsers convert a raw value for each supported field type.
var parsers = map[reflect.Type]func(string) (any, error){
	reflect.TypeFor[string](): func(s string) (any, error) { return s, nil },
	reflect.TypeFor[int](): func(s string) (any, error) {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("invalid integer: %w", err)
		}
		return n, nil
	},
	reflect.TypeFor[float64](): func(s string) (any, error) {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float: %w", err)
		}
		return f, nil
	},
	reflect.TypeFor[bool](): func(s string) (any, error) {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("invalid boolean: %w", err)
		}
		return b, nil
	},
	reflect.TypeFor[time.Duration](): func(s string) (any, error) {
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("invalid duration: %w", err)
		}
		return d, nil
	},
	// Comma-separated, entries trimmed, blanks dropped.
	reflect.TypeFor[[]string](): func(s string) (any, error) {
		var out []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	},
}

// setField parses value into field according to the field's type.
func setField(field reflect.Value, value string) error {
	parse, ok := parsers[field.Type()]
	if !ok {
		return fmt.Errorf("unsupported field type: %s", field.Type())
	}
	v, err := parse(value)
	if err != nil {
		return err
	}
	field.Set(reflect.ValueOf(v))
	return nil
}

// knownEngines lists the engine names accepted in RENDER_ENGINES.
var knownEngines = map[string]bool{"chrome": true, "wkhtmltopdf": true, "fpdf": true}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	// Batch validation
	switch strings.ToLower(c.Batch.Mode) {
	case "sequential", "parallel":
	default:
		errs = append(errs, fmt.Sprintf("BATCH_MODE (%q) must be one of: sequential, parallel", c.Batch.Mode))
	}
	if c.Batch.Workers < 0 {
		errs = append(errs, "BATCH_WORKERS must be non-negative")
	}
	if c.Batch.MaxWorkers <= 0 {
		errs = append(errs, "BATCH_MAX_WORKERS must be positive")
	}
	if c.Batch.ReclaimEvery < 0 {
		errs = append(errs, "BATCH_RECLAIM_EVERY must be non-negative")
	}
	if len(c.Batch.Extensions) == 0 {
		errs = append(errs, "BATCH_EXTENSIONS must list at least one extension")
	}
	for _, ext := range c.Batch.Extensions {
		if !strings.HasPrefix(ext, ".") {
			errs = append(errs, fmt.Sprintf("BATCH_EXTENSIONS entry %q must start with '.'", ext))
		}
	}
	if c.Batch.MaxConcurrent <= 0 {
		errs = append(errs, "BATCH_MAX_CONCURRENT must be positive")
	}
	if c.Batch.MaxWaitTime <= 0 {
		errs = append(errs, "BATCH_MAX_WAIT_TIME must be positive")
	}

	// Render validation
	for _, name := range c.Render.Engines {
		if !knownEngines[strings.ToLower(name)] {
			errs = append(errs, fmt.Sprintf("RENDER_ENGINES entry %q must be one of: chrome, wkhtmltopdf, fpdf", name))
		}
	}
	if c.Render.EngineTimeout <= 0 {
		errs = append(errs, "RENDER_ENGINE_TIMEOUT must be positive")
	}
	if c.Render.MinOutputBytes < 0 {
		errs = append(errs, "RENDER_MIN_OUTPUT_BYTES must be non-negative")
	}

	// Billing validation
	if c.Billing.PremiumPercent < -100 || c.Billing.PremiumPercent > 100 {
		errs = append(errs, fmt.Sprintf("BILL_PREMIUM_PERCENT (%v) must be between -100 and 100", c.Billing.PremiumPercent))
	}
	if _, err := c.Billing.DeductionSpecs(); err != nil {
		errs = append(errs, fmt.Sprintf("BILL_DEDUCTIONS: %v", err))
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a compact representation of the config for logging.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port))
	b.WriteString(fmt.Sprintf("Batch: {Mode: %q, Workers: %d, ReclaimEvery: %d}, ",
		c.Batch.Mode, c.Batch.EffectiveWorkers(), c.Batch.ReclaimEvery))
	b.WriteString(fmt.Sprintf("Render: {Engines: %v, EngineTimeout: %s}, ",
		c.Render.Engines, c.Render.EngineTimeout))
	b.WriteString(fmt.Sprintf("Billing: {PremiumPercent: %v, Deductions: %v}, ",
		c.Billing.PremiumPercent, c.Billing.Deductions))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
