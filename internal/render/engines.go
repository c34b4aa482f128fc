package render

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/billdocs/internal/config"
)

// Build returns engines for the given names, in order. Unknown or repeated
// names are an error.
func Build(names []string, cfg config.RenderConfig) ([]Engine, error) {
	engines := make([]Engine, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		if seen[name] {
			return nil, fmt.Errorf("render engine %q listed twice", name)
		}
		seen[name] = true

		switch name {
		case "chrome":
			engines = append(engines, NewChrome(cfg.ChromeBin, cfg.NoSandbox))
		case "wkhtmltopdf":
			engines = append(engines, NewWkhtmltopdf(cfg.WkhtmltopdfBin))
		case "fpdf":
			engines = append(engines, NewFPDF())
		default:
			return nil, fmt.Errorf("unknown render engine %q", name)
		}
	}
	return engines, nil
}

// FromConfig builds the configured chain.
func FromConfig(cfg config.RenderConfig) (*Chain, error) {
	engines, err := Build(cfg.Engines, cfg)
	if err != nil {
		return nil, err
	}
	return NewChain(engines,
		WithTimeout(cfg.EngineTimeout),
		WithMinOutputBytes(cfg.MinOutputBytes),
	), nil
}

// Close releases resources held by engines that keep a process alive.
func (c *Chain) Close() error {
	var first error
	for _, e := range c.engines {
		if cl, ok := e.(interface{ Close() error }); ok {
			if err := cl.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}
