package browser

import (
	"context"
	"math/rand"
	"time"

	"rental-scraper/utils"
)

// Bounds of the randomized behavior. Pointer targets fall inside the square
// [PointerMin, PointerMax] on both axes.
const (
	PointerMin = 100
	PointerMax = 500
	ScrollMin  = 300
	ScrollMax  = 700
	PauseMin   = 1000 * time.Millisecond
	PauseMax   = 2000 * time.Millisecond
)

// Simulator issues pointer, scroll and pause operations that look like a
// person reading the page.
type Simulator struct {
	rnd *rand.Rand
}

// NewSimulator returns a Simulator drawing from rnd. rnd is not safe for
// concurrent use, so every scraper instance owns its own.
func NewSimulator(rnd *rand.Rand) *Simulator {
	return &Simulator{rnd: rnd}
}

// Simulate moves the pointer, pauses, scrolls down and pauses again.
// Errors from the page are returned as-is.
func (s *Simulator) Simulate(ctx context.Context, p Page) error {
	x := float64(PointerMin + s.rnd.Intn(PointerMax-PointerMin+1))
	y := float64(PointerMin + s.rnd.Intn(PointerMax-PointerMin+1))
	if err := p.MouseMove(ctx, x, y); err != nil {
		return err
	}

	if err := p.Wait(ctx, utils.RandomDuration(s.rnd, PauseMin, PauseMax)); err != nil {
		return err
	}

	dy := float64(ScrollMin + s.rnd.Intn(ScrollMax-ScrollMin+1))
	if err := p.Wheel(ctx, dy); err != nil {
		return err
	}

	return p.Wait(ctx, utils.RandomDuration(s.rnd, PauseMin, PauseMax))
}
