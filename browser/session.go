package browser

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/exec"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"rental-scraper/utils"
)

const (
	viewportWidth  = 1920
	viewportHeight = 1080
)

// UserAgents is the pool a session picks its user agent from.
var UserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// maskWebdriver runs before any page script so navigator.webdriver reads
// as undefined.
const maskWebdriver = `
	Object.defineProperty(navigator, 'webdriver', {
		get: () => undefined
	});
`

// Options configures the browser a Session launches.
type Options struct {
	Headless  bool
	ChromeBin string
}

// Session owns one browser, one tab and its page. It is created lazily by
// Start and torn down by Close, after which Start builds a fresh one.
// A Session must not be driven by two callers at once.
type Session struct {
	opts   Options
	logger *utils.Logger
	rnd    *rand.Rand

	cancelAlloc context.CancelFunc
	cancelTab   context.CancelFunc
	tab         context.Context
	page        *chromePage
}

// NewSession returns an uninitialized session.
func NewSession(opts Options, rnd *rand.Rand, logger *utils.Logger) *Session {
	return &Session{opts: opts, rnd: rnd, logger: logger}
}

// Start launches the browser on first use and returns its page. Repeat
// calls return the same page.
func (s *Session) Start(ctx context.Context) (Page, error) {
	if s.page != nil {
		return s.page, nil
	}

	userAgent := UserAgents[s.rnd.Intn(len(UserAgents))]
	chromeBin := s.opts.ChromeBin
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	s.logger.Info("[browser] Launching browser (headless=%v, binary=%q)", s.opts.Headless, chromeBin)
	s.logger.Debug("[browser] User agent: %s", userAgent)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.opts.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-features", "IsolateOrigins,site-per-process"),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(viewportWidth, viewportHeight),
		chromedp.UserAgent(userAgent),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	// The browser outlives any single call, so it hangs off Background.
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	p := &chromePage{tab: tabCtx}
	setup := chromedp.Tasks{
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(maskWebdriver).Do(ctx)
			return err
		}),
		chromedp.EmulateViewport(viewportWidth, viewportHeight),
	}
	// The first Run allocates the browser and ties the process to the
	// context it is given, so it must be the tab itself. ctx may still
	// abort start-up.
	stop := context.AfterFunc(ctx, cancelTab)
	err := chromedp.Run(tabCtx, setup)
	if !stop() && err == nil {
		err = ctx.Err()
	}
	if err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("browser: start: %w", err)
	}

	s.cancelAlloc = cancelAlloc
	s.cancelTab = cancelTab
	s.tab = tabCtx
	s.page = p
	return p, nil
}

// Close shuts the tab, then the browser process, and resets the session.
// Closing an uninitialized session is a no-op.
func (s *Session) Close() error {
	if s.page == nil {
		return nil
	}

	err := chromedp.Cancel(s.tab)
	s.cancelTab()
	s.cancelAlloc()

	s.page = nil
	s.tab = nil
	s.cancelTab = nil
	s.cancelAlloc = nil

	if err != nil {
		return fmt.Errorf("browser: close: %w", err)
	}
	s.logger.Info("[browser] Browser closed")
	return nil
}

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
