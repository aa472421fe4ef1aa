// Filename: internal/humanoid/pacer.go
package humanoid

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/easyapply-cli/internal/config"
)

// Step names a point in the application flow that is followed by a pause.
type Step int

const (
	// StepClick surrounds clicks on form controls and action buttons.
	StepClick Step = iota
	// StepAdvance follows "continue" and discard actions, before the page is inspected.
	StepAdvance
	// StepLanding follows navigation to a posting.
	StepLanding
	// StepReload follows a page refresh.
	StepReload
)

func (s Step) String() string {
	switch s {
	case StepClick:
		return "click"
	case StepAdvance:
		return "advance"
	case StepLanding:
		return "landing"
	case StepReload:
		return "reload"
	default:
		return "unknown"
	}
}

// Sleeper blocks for a duration or until the context is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// ContextSleeper is the production Sleeper.
type ContextSleeper struct{}

func (ContextSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Pacer spaces out page interactions with randomized delays.
type Pacer struct {
	cfg     config.HumanoidConfig
	sleeper Sleeper
	logger  *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Pacer. A nil sleeper defaults to ContextSleeper.
func New(cfg config.HumanoidConfig, sleeper Sleeper, logger *zap.Logger) *Pacer {
	if sleeper == nil {
		sleeper = ContextSleeper{}
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Pacer{
		cfg:     cfg,
		sleeper: sleeper,
		logger:  logger.Named("pacer"),
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// Pause sleeps for a random duration drawn from the step's window.
func (p *Pacer) Pause(ctx context.Context, step Step) error {
	lo, hi := p.window(step)
	d := p.uniform(lo, hi)
	p.logger.Debug("Pausing", zap.Stringer("step", step), zap.Duration("duration", d))
	return p.sleeper.Sleep(ctx, d)
}

func (p *Pacer) window(step Step) (time.Duration, time.Duration) {
	switch step {
	case StepClick:
		return p.cfg.ClickPauseMin, p.cfg.ClickPauseMax
	case StepAdvance:
		return p.cfg.AdvancePauseMin, p.cfg.AdvancePauseMax
	case StepLanding:
		return p.cfg.LandingPauseMin, p.cfg.LandingPauseMax
	case StepReload:
		return p.cfg.ReloadPause, p.cfg.ReloadPause
	default:
		return 0, 0
	}
}

func (p *Pacer) uniform(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return lo + time.Duration(p.rng.Int63n(int64(hi-lo)+1))
}

// CognitivePause sleeps for a normally distributed duration. Negative draws
// return immediately.
func (p *Pacer) CognitivePause(ctx context.Context, meanMs, stdDevMs float64) error {
	p.mu.Lock()
	d := time.Duration((meanMs + p.rng.NormFloat64()*stdDevMs) * float64(time.Millisecond))
	p.mu.Unlock()
	if d <= 0 {
		return nil
	}
	return p.sleeper.Sleep(ctx, d)
}

// KeyPause is the inter-keystroke delay used while typing.
func (p *Pacer) KeyPause(ctx context.Context) error {
	return p.CognitivePause(ctx, p.cfg.KeyDelayMeanMs, p.cfg.KeyDelayStdDevMs)
}
