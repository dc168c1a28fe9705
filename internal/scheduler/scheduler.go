// Package scheduler owns the scrape-detect-reschedule control loop.
//
// The loop holds exactly one pending wake at any instant. Every cycle,
// whatever its outcome, computes exactly one next wake time and re-arms
// the single timer slot; arming always replaces the previous wake, so
// the loop can never run concurrently with itself.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ZoomL-Olymp/EGSListener/internal/domain"
	"github.com/ZoomL-Olymp/EGSListener/internal/metrics"
	"github.com/ZoomL-Olymp/EGSListener/internal/store"
)

// Extractor produces the currently promoted offer, or an error when the
// page cannot be rendered or parsed.
type Extractor interface {
	Extract(ctx context.Context) (*domain.Offer, error)
}

// Announcer broadcasts a newly detected offer to subscribers.
type Announcer interface {
	Announce(ctx context.Context, offer domain.Offer)
}

// Scheduler drives the control loop: wake, extract, decide, persist and
// notify on change, then arm the next wake.
type Scheduler struct {
	extractor Extractor
	repo      store.Repo
	notifier  Announcer
	log       *zap.Logger
	mets      *metrics.Set
	now       func() time.Time

	mu       sync.Mutex
	timer    *time.Timer
	nextWake time.Time
}

// New creates a Scheduler. mets may be nil in tests.
func New(extractor Extractor, repo store.Repo, notifier Announcer, log *zap.Logger, mets *metrics.Set) *Scheduler {
	return &Scheduler{
		extractor: extractor,
		repo:      repo,
		notifier:  notifier,
		log:       log,
		mets:      mets,
		now:       time.Now,
	}
}

// Run executes the control loop until ctx is done. The first cycle fires
// immediately at startup; after that, each cycle arms its own successor.
func (s *Scheduler) Run(ctx context.Context) {
	s.arm(s.now())
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopping")
			s.mu.Lock()
			s.timer.Stop()
			s.mu.Unlock()
			return
		case <-s.timer.C:
			s.arm(s.Cycle(ctx))
		}
	}
}

// NextWake reports the instant the pending wake is armed for.
func (s *Scheduler) NextWake() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextWake
}

// arm points the single wake slot at the given instant, superseding any
// previously armed wake.
func (s *Scheduler) arm(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := at.Sub(s.now())
	if d < 0 {
		d = 0
	}
	if s.timer == nil {
		s.timer = time.NewTimer(d)
	} else {
		if !s.timer.Stop() {
			select {
			case <-s.timer.C:
			default:
			}
		}
		s.timer.Reset(d)
	}
	s.nextWake = at.UTC()
	if s.mets != nil {
		s.mets.NextWakeUnix.Set(float64(at.Unix()))
	}
	s.log.Info("wake armed", zap.Time("at", s.nextWake))
}

// Cycle runs one scrape-detect-notify pass and returns the instant the
// next wake must be armed for. Every path through it yields exactly one
// wake time: the freshly observed expiry when it is still ahead of now,
// the daily fallback otherwise.
func (s *Scheduler) Cycle(ctx context.Context) time.Time {
	now := s.now().UTC()

	offer, err := s.extractor.Extract(ctx)
	if err != nil {
		s.log.Warn("extraction failed, using fallback schedule", zap.Error(err))
		s.observe(domain.DecisionFailed)
		return domain.FallbackWake(now)
	}

	stored, err := s.repo.LastOffer(ctx)
	if err != nil {
		// History is unknown, not empty. A blind read must not trigger a
		// duplicate broadcast, so skip detection this cycle and keep the
		// loop going off the freshly observed expiry.
		s.log.Error("last offer lookup failed, skipping change detection", zap.Error(err))
		s.observe(domain.DecisionUnchanged)
		return s.wakeFrom(now, offer.FreeUntil)
	}

	decision := domain.Decide(offer, stored)
	if decision == domain.DecisionNew {
		if err := s.repo.AppendOffer(ctx, *offer); err != nil {
			// Not persisted means the next cycle re-detects this offer;
			// announcing now would broadcast it twice.
			s.log.Error("append offer failed, deferring notification", zap.Error(err))
		} else {
			s.log.Info("new free game detected",
				zap.String("title", offer.Title),
				zap.Time("free_until", offer.FreeUntil))
			s.notifier.Announce(ctx, *offer)
		}
	}
	s.observe(decision)

	return s.wakeFrom(now, offer.FreeUntil)
}

func (s *Scheduler) wakeFrom(now, freeUntil time.Time) time.Time {
	wake, fallback := domain.NextWake(now, freeUntil)
	if fallback {
		s.log.Warn("observed expiry not in the future, using fallback schedule",
			zap.Time("free_until", freeUntil))
	}
	return wake
}

func (s *Scheduler) observe(d domain.Decision) {
	if s.mets != nil {
		s.mets.ScrapeCycles.WithLabelValues(d.String()).Inc()
	}
	s.log.Info("cycle completed", zap.String("decision", d.String()))
}
