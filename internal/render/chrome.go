package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Chrome prints pages to PDF with headless Chromium through the DevTools
// protocol. The browser is launched on first use and shared by all renders;
// each render opens and closes its own page.
type Chrome struct {
	bin       string
	noSandbox bool

	mu        sync.Mutex
	browser   *rod.Browser
	launcher  *launcher.Launcher
	launchErr error
}

// NewChrome returns the engine. An empty bin looks for an installed
// Chrome or Chromium; the browser is never downloaded.
func NewChrome(bin string, noSandbox bool) *Chrome {
	return &Chrome{bin: bin, noSandbox: noSandbox}
}

func (c *Chrome) Name() string { return "chrome" }

func (c *Chrome) connect() (*rod.Browser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.browser != nil {
		return c.browser, nil
	}
	if c.launchErr != nil {
		return nil, c.launchErr
	}

	bin := c.bin
	if bin == "" {
		path, ok := launcher.LookPath()
		if !ok {
			c.launchErr = errors.New("chrome not available: no Chrome or Chromium installation found")
			return nil, c.launchErr
		}
		bin = path
	}

	l := launcher.New().Bin(bin).Headless(true).Leakless(false).NoSandbox(c.noSandbox)
	u, err := l.Launch()
	if err != nil {
		c.launchErr = fmt.Errorf("launch chrome: %w", err)
		return nil, c.launchErr
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Kill()
		c.launchErr = fmt.Errorf("connect chrome: %w", err)
		return nil, c.launchErr
	}

	c.browser, c.launcher = b, l
	return b, nil
}

func (c *Chrome) Render(ctx context.Context, markup string) ([]byte, error) {
	b, err := c.connect()
	if err != nil {
		return nil, err
	}

	page, err := b.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer page.Close()

	if err := page.SetDocumentContent(markup); err != nil {
		return nil, fmt.Errorf("set content: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}

	r, err := page.PDF(&proto.PagePrintToPDF{
		PrintBackground:   true,
		PreferCSSPageSize: true,
	})
	if err != nil {
		return nil, fmt.Errorf("print to pdf: %w", err)
	}
	return io.ReadAll(r)
}

// Close shuts the shared browser down.
func (c *Chrome) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.browser == nil {
		return nil
	}
	err := c.browser.Close()
	c.launcher.Kill()
	c.browser, c.launcher = nil, nil
	return err
}
