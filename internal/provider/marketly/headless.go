package marketly

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/pricehound/pricehound/internal/pricing"
)

// headlessStrategy renders the page with a real browser engine so that
// offers injected client-side still end up in the JSON-LD tags.
type headlessStrategy struct{}

func newHeadlessStrategy() *headlessStrategy {
	return &headlessStrategy{}
}

func (h *headlessStrategy) name() string { return "headless" }

func (h *headlessStrategy) fetch(ctx context.Context, pageURL string) ([]pricing.RawOffer, error) {
	page, cleanup, err := h.openPage(pageURL)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	done := make(chan struct{})
	go func() {
		// Abandon the render when the overall deadline fires.
		select {
		case <-ctx.Done():
			cleanup()
		case <-done:
		}
	}()
	defer close(done)

	timedPage := page.Timeout(15 * time.Second)
	if err := timedPage.WaitStable(time.Second); err == nil {
		_ = timedPage.WaitDOMStable(2*time.Second, 0.1)
	}

	htmlContent, err := page.HTML()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("get page HTML: %w", err)
	}

	return extractJSONLD(htmlContent)
}

func (h *headlessStrategy) openPage(pageURL string) (*rod.Page, func(), error) {
	l := launcher.New().Headless(true).Logger(io.Discard)
	if bin := os.Getenv("PRICEHOUND_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, nil, fmt.Errorf("connect browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: pageURL})
	if err != nil {
		browser.Close()
		return nil, nil, fmt.Errorf("open page: %w", err)
	}

	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  1920,
		Height: 1080,
	})
	if err != nil {
		browser.Close()
		return nil, nil, fmt.Errorf("set viewport: %w", err)
	}

	// cleanup may race between the deadline watcher and the deferred
	// call in fetch; run it once.
	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			page.Close()
			browser.Close()
			l.Cleanup()
		})
	}

	return page, cleanup, nil
}
