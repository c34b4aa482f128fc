package render

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/billdocs/internal/logging"
)

// Defaults for a Chain built without options.
const (
	DefaultEngineTimeout  = 40 * time.Second
	DefaultMinOutputBytes = 1024
)

// Chain tries engines in order and falls back to a text document.
type Chain struct {
	engines  []Engine
	timeout  time.Duration
	minBytes int
}

// Option configures a Chain.
type Option func(*Chain)

// WithTimeout bounds each engine attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Chain) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMinOutputBytes sets the size below which output is flagged suspect.
func WithMinOutputBytes(n int) Option {
	return func(c *Chain) {
		if n >= 0 {
			c.minBytes = n
		}
	}
}

// NewChain returns a chain over engines in priority order.
func NewChain(engines []Engine, opts ...Option) *Chain {
	c := &Chain{
		engines:  engines,
		timeout:  DefaultEngineTimeout,
		minBytes: DefaultMinOutputBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Engines returns the engine names in priority order.
func (c *Chain) Engines() []string {
	names := make([]string, len(c.engines))
	for i, e := range c.engines {
		names[i] = e.Name()
	}
	return names
}

// Render produces a PDF for one document. It never returns empty output:
// when every engine fails the text fallback is used and Result.Err records why.
func (c *Chain) Render(ctx context.Context, name, markup string) Result {
	log := logging.WithFields(ctx, "document", name)
	markup = strings.ToValidUTF8(markup, "\uFFFD")

	res := Result{DocumentName: name}
	for _, e := range c.engines {
		start := time.Now()
		out, err := c.attempt(ctx, e, markup)
		elapsed := time.Since(start)

		if err == nil {
			res.Bytes = out
			res.EngineUsed = e.Name()
			log.Debug("document rendered", "engine", e.Name(), "duration_ms", elapsed.Milliseconds(), "bytes", len(out))
			break
		}

		eerr := &EngineError{Engine: e.Name(), Elapsed: elapsed, Err: err}
		res.Attempts = append(res.Attempts, eerr)
		log.Warn("render engine failed, trying next", "engine", e.Name(), "duration_ms", elapsed.Milliseconds(), "error", err)
	}

	if res.Bytes == nil {
		attempts := res.Attempts
		if len(c.engines) == 0 {
			attempts = []error{ErrNoEngines}
		}
		res.Err = errors.Join(attempts...)
		res.Bytes = Fallback(name, markup, attempts)
		res.EngineUsed = FallbackEngine
		log.Warn("all render engines failed, using text fallback", "attempts", len(res.Attempts))
	}

	res.SizeBytes = len(res.Bytes)
	if res.SizeBytes < c.minBytes {
		res.Suspect = true
		log.Warn("render output is suspiciously small", "engine", res.EngineUsed, "bytes", res.SizeBytes, "min_bytes", c.minBytes)
	}
	return res
}

type outcome struct {
	out []byte
	err error
}

// attempt runs one engine in its own goroutine under a deadline. A late result
// lands in the buffered channel and is dropped.
func (c *Chain) attempt(ctx context.Context, e Engine, markup string) ([]byte, error) {
	actx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		out, err := e.Render(actx, markup)
		ch <- outcome{out: out, err: err}
	}()

	select {
	case o := <-ch:
		if o.err != nil {
			return nil, o.err
		}
		if len(o.out) == 0 {
			return nil, errors.New("empty output")
		}
		return o.out, nil
	case <-actx.Done():
		return nil, fmt.Errorf("timed out: %w", actx.Err())
	}
}
