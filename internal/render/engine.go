// Package render turns HTML markup into paginated PDF output.
//
// Rendering goes through an ordered list of engines. Each attempt is bounded
// by a timeout; the first engine to return output wins. When every engine
// fails, a plain-text fallback document is produced instead, so a render never
// yields empty output and never returns an error.
package render

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNoEngines is recorded when a chain is built without any engine.
var ErrNoEngines = errors.New("no render engines configured")

// Engine converts one HTML page into PDF bytes.
type Engine interface {
	Name() string
	Render(ctx context.Context, markup string) ([]byte, error)
}

// EngineError reports a failed attempt of one engine.
type EngineError struct {
	Engine  string
	Elapsed time.Duration
	Err     error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("render engine %s failed after %s: %v", e.Engine, e.Elapsed.Round(time.Millisecond), e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// FallbackEngine is the EngineUsed value of text-fallback output.
const FallbackEngine = "text-fallback"

// Result is the outcome of rendering one document.
type Result struct {
	DocumentName string
	Bytes        []byte
	EngineUsed   string
	SizeBytes    int
	// Attempts holds one error per failed engine, in order.
	Attempts []error
	// Suspect is set when the output is smaller than the configured minimum.
	Suspect bool
	// Err summarizes the failed attempts when the text fallback was used.
	Err error
}

// Fallback reports whether the output came from the text fallback.
func (r Result) Fallback() bool {
	return r.EngineUsed == FallbackEngine
}
