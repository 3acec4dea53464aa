package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
)

// Page is the slice of browser automation the scrape pipeline drives.
// Selectors may be CSS or XPath.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Reload(ctx context.Context) error
	// Location returns the current, post-redirect URL.
	Location(ctx context.Context) (string, error)
	// Wait pauses for d. It is the only way the pipeline sleeps on a page.
	Wait(ctx context.Context, d time.Duration) error
	MouseMove(ctx context.Context, x, y float64) error
	Wheel(ctx context.Context, deltaY float64) error
	// WaitVisible blocks until selector is visible or timeout elapses.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	Click(ctx context.Context, selector string) error
	// CaptureElement returns a PNG of the first element matching selector.
	CaptureElement(ctx context.Context, selector string) ([]byte, error)
	// Evaluate runs script and decodes its JSON result into res.
	Evaluate(ctx context.Context, script string, res any) error
}

// chromePage drives one chromedp tab.
type chromePage struct {
	tab context.Context

	// last pointer position, reused as the wheel origin
	x, y float64
}

// run executes actions on the tab. The call aborts when either the tab,
// the caller's ctx, or the optional timeout ends.
func (p *chromePage) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.tab)
	defer cancel()

	if timeout > 0 {
		var cancelTimeout context.CancelFunc
		runCtx, cancelTimeout = context.WithTimeout(runCtx, timeout)
		defer cancelTimeout()
	}

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	if err := p.run(ctx, 0, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

func (p *chromePage) Reload(ctx context.Context) error {
	if err := p.run(ctx, 0, chromedp.Reload()); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	return nil
}

func (p *chromePage) Location(ctx context.Context) (string, error) {
	var url string
	if err := p.run(ctx, 0, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("location: %w", err)
	}
	return url, nil
}

func (p *chromePage) Wait(ctx context.Context, d time.Duration) error {
	return p.run(ctx, 0, chromedp.Sleep(d))
}

func (p *chromePage) MouseMove(ctx context.Context, x, y float64) error {
	if err := p.run(ctx, 0, chromedp.MouseEvent(input.MouseMoved, x, y)); err != nil {
		return fmt.Errorf("mouse move: %w", err)
	}
	p.x, p.y = x, y
	return nil
}

func (p *chromePage) Wheel(ctx context.Context, deltaY float64) error {
	wheel := chromedp.ActionFunc(func(ctx context.Context) error {
		return input.DispatchMouseEvent(input.MouseWheel, p.x, p.y).
			WithDeltaX(0).
			WithDeltaY(deltaY).
			Do(ctx)
	})
	if err := p.run(ctx, 0, wheel); err != nil {
		return fmt.Errorf("mouse wheel: %w", err)
	}
	return nil
}

func (p *chromePage) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if err := p.run(ctx, timeout, chromedp.WaitVisible(selector, chromedp.BySearch)); err != nil {
		return fmt.Errorf("wait visible %q: %w", selector, err)
	}
	return nil
}

func (p *chromePage) Click(ctx context.Context, selector string) error {
	if err := p.run(ctx, 0, chromedp.Click(selector, chromedp.BySearch, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("click %q: %w", selector, err)
	}
	return nil
}

func (p *chromePage) CaptureElement(ctx context.Context, selector string) ([]byte, error) {
	var buf []byte
	if err := p.run(ctx, 0, chromedp.Screenshot(selector, &buf, chromedp.BySearch, chromedp.NodeVisible)); err != nil {
		return nil, fmt.Errorf("screenshot %q: %w", selector, err)
	}
	return buf, nil
}

func (p *chromePage) Evaluate(ctx context.Context, script string, res any) error {
	if err := p.run(ctx, 0, chromedp.Evaluate(script, res)); err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	return nil
}
