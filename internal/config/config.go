// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server  ServerConfig
	Batch   BatchConfig
	Render  RenderConfig
	Billing BillingConfig
	Logging LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 30s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`

	// TrustedProxies lists CIDRs whose X-Forwarded-For headers are honored
	TrustedProxies []string `env:"SERVER_TRUSTED_PROXIES"`
}

// BatchConfig holds batch orchestration settings.
type BatchConfig struct {
	// Mode is the scheduling mode: sequential or parallel (default: parallel)
	Mode string `env:"BATCH_MODE" default:"parallel"`

	// Workers is the worker pool size; 0 derives it from available CPUs (default: 0)
	Workers int `env:"BATCH_WORKERS" default:"0"`

	// MaxWorkers caps the derived pool size (default: 4)
	MaxWorkers int `env:"BATCH_MAX_WORKERS" default:"4"`

	// ReclaimEvery releases intermediate buffers after this many files (default: 10)
	ReclaimEvery int `env:"BATCH_RECLAIM_EVERY" default:"10"`

	// Extensions lists the input file extensions picked up by discovery
	Extensions []string `env:"BATCH_EXTENSIONS" default:".xlsx,.xlsm"`

	// MaxConcurrent is the maximum number of batches the HTTP service runs at once (default: 2)
	MaxConcurrent int `env:"BATCH_MAX_CONCURRENT" default:"2"`

	// MaxWaitTime is how long a batch request waits for a slot (default: 5s)
	MaxWaitTime time.Duration `env:"BATCH_MAX_WAIT_TIME" default:"5s"`
}

// RenderConfig holds paginated rendering settings.
type RenderConfig struct {
	// Engines is the ranked engine list (default: chrome,wkhtmltopdf,fpdf)
	Engines []string `env:"RENDER_ENGINES" default:"chrome,wkhtmltopdf,fpdf"`

	// EngineTimeout bounds a single engine invocation (default: 40s)
	EngineTimeout time.Duration `env:"RENDER_ENGINE_TIMEOUT" default:"40s"`

	// MinOutputBytes flags smaller outputs as suspect (default: 1024)
	MinOutputBytes int `env:"RENDER_MIN_OUTPUT_BYTES" default:"1024"`

	// ChromeBin overrides the Chromium binary used by the chrome engine
	ChromeBin string `env:"RENDER_CHROME_BIN" envAlt:"ROD_BROWSER_BIN"`

	// NoSandbox disables the Chromium sandbox, needed in most containers (default: false)
	NoSandbox bool `env:"RENDER_NO_SANDBOX" default:"false"`

	// WkhtmltopdfBin is the wkhtmltopdf executable (default: wkhtmltopdf)
	WkhtmltopdfBin string `env:"RENDER_WKHTMLTOPDF_BIN" default:"wkhtmltopdf"`
}

// BillingConfig holds the jurisdiction-specific billing rules.
type BillingConfig struct {
	// PremiumPercent is the contract premium applied to the base amount (default: 0)
	PremiumPercent float64 `env:"BILL_PREMIUM_PERCENT" default:"0"`

	// Deductions is a comma-separated key=percent list, applied to the gross total
	Deductions []string `env:"BILL_DEDUCTIONS" default:"security_deposit=10,income_tax=2,gst=2,labour_cess=1"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// DeductionSpec is one parsed entry of BillingConfig.Deductions.
type DeductionSpec struct {
	Key     string
	Percent float64
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// EffectiveWorkers returns the pool size to use for parallel batches.
// A zero Workers value derives the size from runtime.NumCPU, capped at MaxWorkers.
func (c *BatchConfig) EffectiveWorkers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	n := runtime.NumCPU()
	if c.MaxWorkers > 0 && n > c.MaxWorkers {
		n = c.MaxWorkers
	}
	if n < 1 {
		n = 1
	}
	return n
}

// DeductionSpecs parses the configured deduction list in declaration order.
func (c *BillingConfig) DeductionSpecs() ([]DeductionSpec, error) {
	specs := make([]DeductionSpec, 0, len(c.Deductions))
	seen := make(map[string]bool, len(c.Deductions))
	for _, entry := range c.Deductions {
		key, pct, ok := strings.Cut(entry, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("deduction %q: expected key=percent", entry)
		}
		p, err := strconv.ParseFloat(strings.TrimSpace(pct), 64)
		if err != nil {
			return nil, fmt.Errorf("deduction %q: invalid percent: %w", entry, err)
		}
		if p < 0 || p > 100 {
			return nil, fmt.Errorf("deduction %q: percent must be 0-100", entry)
		}
		if seen[key] {
			return nil, fmt.Errorf("deduction %q: duplicate key", key)
		}
		seen[key] = true
		specs = append(specs, DeductionSpec{Key: key, Percent: p})
	}
	return specs, nil
}
