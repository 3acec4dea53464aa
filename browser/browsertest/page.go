// Package browsertest provides a scripted browser.Page for tests.
package browsertest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"rental-scraper/browser"
)

var _ browser.Page = (*Page)(nil)

// ErrNotVisible is returned by WaitVisible for selectors that are not
// scripted as visible.
var ErrNotVisible = errors.New("browsertest: element not visible")

// Page records every call and answers from its scripted fields. The zero
// value is a blank page where nothing is visible.
type Page struct {
	mu sync.Mutex

	// Redirects maps a navigated URL to the URL the page resolves to.
	Redirects   map[string]string
	NavigateErr error
	ReloadErr   error
	MouseErr    error

	// Visible lists selectors that WaitVisible accepts. VisibleFunc, when
	// set, takes precedence.
	Visible     map[string]bool
	VisibleFunc func(selector string) error

	ClickErr map[string]error

	// Captures are returned by successive CaptureElement calls; the last
	// one repeats once the list is exhausted.
	Captures   [][]byte
	CaptureErr error

	// EvalResult is JSON-encoded into Evaluate's res.
	EvalResult any
	EvalErr    error

	URL       string
	Navigated []string
	Reloads   int
	Waits     []time.Duration
	Moves     [][2]float64
	Scrolls   []float64
	Probed    []string
	Clicked   []string
	Shots     int
	Scripts   []string
	// Calls is the ordered log of method names.
	Calls []string
}

func (p *Page) record(call string) {
	p.Calls = append(p.Calls, call)
}

func (p *Page) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("navigate")
	if p.NavigateErr != nil {
		return p.NavigateErr
	}
	p.Navigated = append(p.Navigated, url)
	if to, ok := p.Redirects[url]; ok {
		url = to
	}
	p.URL = url
	return nil
}

func (p *Page) Reload(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("reload")
	if p.ReloadErr != nil {
		return p.ReloadErr
	}
	p.Reloads++
	return nil
}

func (p *Page) Location(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("location")
	return p.URL, nil
}

func (p *Page) Wait(ctx context.Context, d time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("wait")
	p.Waits = append(p.Waits, d)
	return ctx.Err()
}

func (p *Page) MouseMove(_ context.Context, x, y float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("mouse")
	if p.MouseErr != nil {
		return p.MouseErr
	}
	p.Moves = append(p.Moves, [2]float64{x, y})
	return nil
}

func (p *Page) Wheel(_ context.Context, deltaY float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("wheel")
	p.Scrolls = append(p.Scrolls, deltaY)
	return nil
}

func (p *Page) WaitVisible(_ context.Context, selector string, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("wait_visible")
	p.Probed = append(p.Probed, selector)
	if p.VisibleFunc != nil {
		return p.VisibleFunc(selector)
	}
	if p.Visible[selector] {
		return nil
	}
	return fmt.Errorf("%q: %w", selector, ErrNotVisible)
}

func (p *Page) Click(_ context.Context, selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("click")
	if err := p.ClickErr[selector]; err != nil {
		return err
	}
	p.Clicked = append(p.Clicked, selector)
	return nil
}

func (p *Page) CaptureElement(context.Context, string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("capture")
	if p.CaptureErr != nil {
		return nil, p.CaptureErr
	}
	if len(p.Captures) == 0 {
		return nil, errors.New("browsertest: no capture scripted")
	}
	i := p.Shots
	if i >= len(p.Captures) {
		i = len(p.Captures) - 1
	}
	p.Shots++
	return p.Captures[i], nil
}

func (p *Page) Evaluate(_ context.Context, script string, res any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("evaluate")
	p.Scripts = append(p.Scripts, script)
	if p.EvalErr != nil {
		return p.EvalErr
	}
	if res == nil {
		return nil
	}
	data, err := json.Marshal(p.EvalResult)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, res)
}

// Browser hands out a single Page and counts lifecycle calls.
type Browser struct {
	Page     *Page
	StartErr error
	Starts   int
	Closes   int
	started  bool
}

// Start returns Page, counting only the calls that (re)create a session.
func (b *Browser) Start(context.Context) (browser.Page, error) {
	if b.StartErr != nil {
		return nil, b.StartErr
	}
	if !b.started {
		b.started = true
		b.Starts++
	}
	return b.Page, nil
}

func (b *Browser) Close() error {
	if b.started {
		b.started = false
		b.Closes++
	}
	return nil
}

// Started reports whether a session is live.
func (b *Browser) Started() bool { return b.started }
