package browser

import (
	"context"
	"time"

	"rental-scraper/utils"
)

const (
	consentProbeTimeout = 5000 * time.Millisecond
	consentDismissWait  = 2000 * time.Millisecond
)

// ConsentSelectors are probed in order; the first visible one is clicked.
var ConsentSelectors = []string{
	`button[data-testid='accept-btn']`,
	`//button[contains(normalize-space(.), 'Accept')]`,
	`//button[contains(normalize-space(.), 'Accept all')]`,
	`//button[contains(normalize-space(.), 'Only necessary')]`,
	`[aria-label='Only necessary']`,
	`#accept-cookies`,
}

// ConsentOutcome reports what HandleConsent did.
type ConsentOutcome struct {
	Dismissed bool
	// Selector is the candidate that was clicked, empty when none matched.
	Selector string
	// Failures counts candidates that timed out or could not be clicked.
	Failures int
}

// ConsentHandler dismisses a cookie banner if one is showing.
type ConsentHandler struct {
	selectors []string
	logger    *utils.Logger
}

// NewConsentHandler uses ConsentSelectors.
func NewConsentHandler(logger *utils.Logger) *ConsentHandler {
	return &ConsentHandler{selectors: ConsentSelectors, logger: logger}
}

// HandleConsent tries each candidate for up to five seconds, clicks the
// first one that becomes visible and waits for the banner to go away.
// It never fails: a page without a banner yields a zero outcome.
func (h *ConsentHandler) HandleConsent(ctx context.Context, p Page) ConsentOutcome {
	var out ConsentOutcome

	for _, sel := range h.selectors {
		if err := p.WaitVisible(ctx, sel, consentProbeTimeout); err != nil {
			h.logger.Debug("[consent] %s not visible: %v", sel, err)
			out.Failures++
			continue
		}

		h.logger.Info("[consent] Found cookie consent button with selector: %s", sel)
		if err := p.Click(ctx, sel); err != nil {
			h.logger.Warn("[consent] Could not click %s: %v", sel, err)
			out.Failures++
			continue
		}

		if err := p.Wait(ctx, consentDismissWait); err != nil {
			h.logger.Warn("[consent] Wait after dismiss interrupted: %v", err)
		}

		out.Dismissed = true
		out.Selector = sel
		return out
	}

	h.logger.Debug("[consent] No cookie consent banner found")
	return out
}
