package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ZoomL-Olymp/EGSListener/internal/domain"
)

// fakeExtractor serves one canned extraction result per call.
type fakeExtractor struct {
	mu    sync.Mutex
	offer *domain.Offer
	err   error
	calls int
}

func (f *fakeExtractor) Extract(context.Context) (*domain.Offer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.offer, nil
}

func (f *fakeExtractor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeRepo is an in-memory store.Repo that can fail on demand.
type fakeRepo struct {
	history   []domain.Offer
	appendErr error
	lastErr   error
}

func (r *fakeRepo) AppendOffer(_ context.Context, offer domain.Offer) error {
	if r.appendErr != nil {
		return r.appendErr
	}
	r.history = append(r.history, offer)
	return nil
}

func (r *fakeRepo) LastOffer(context.Context) (*domain.Offer, error) {
	if r.lastErr != nil {
		return nil, r.lastErr
	}
	if len(r.history) == 0 {
		return nil, nil
	}
	last := r.history[len(r.history)-1]
	return &last, nil
}

func (r *fakeRepo) AddSubscriber(context.Context, int64) error       { return nil }
func (r *fakeRepo) RemoveSubscriber(context.Context, int64) error    { return nil }
func (r *fakeRepo) ListSubscribers(context.Context) ([]int64, error) { return nil, nil }
func (r *fakeRepo) Close() error                                     { return nil }

type fakeAnnouncer struct {
	announced []domain.Offer
}

func (a *fakeAnnouncer) Announce(_ context.Context, offer domain.Offer) {
	a.announced = append(a.announced, offer)
}

var testNow = time.Date(2029, 12, 25, 12, 0, 0, 0, time.UTC)

func newTestScheduler(e Extractor, r *fakeRepo, a *fakeAnnouncer) *Scheduler {
	s := New(e, r, a, zap.NewNop(), nil)
	s.now = func() time.Time { return testNow }
	return s
}

func TestCycle_NewOfferOnEmptyStore(t *testing.T) {
	// Scenario: empty history, extractor finds "Alpha Game" free until
	// 2030-01-01. One row inserted, notifier invoked, wake armed exactly
	// at the expiry.
	expiry := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	ext := &fakeExtractor{offer: &domain.Offer{Title: "Alpha Game", FreeUntil: expiry}}
	repo := &fakeRepo{}
	ann := &fakeAnnouncer{}
	s := newTestScheduler(ext, repo, ann)

	wake := s.Cycle(context.Background())

	if len(repo.history) != 1 || repo.history[0].Title != "Alpha Game" {
		t.Fatalf("want one history row for Alpha Game, got %v", repo.history)
	}
	if len(ann.announced) != 1 {
		t.Fatalf("want one announcement, got %d", len(ann.announced))
	}
	if !wake.Equal(expiry) {
		t.Fatalf("want wake at expiry %s, got %s", expiry, wake)
	}
}

func TestCycle_UnchangedTitleRecomputesWake(t *testing.T) {
	// Scenario: same title re-extracted with a refined expiry. No insert,
	// no notification, but the wake follows the freshly observed expiry.
	storedExpiry := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	freshExpiry := time.Date(2030, 1, 1, 17, 0, 0, 0, time.UTC)

	repo := &fakeRepo{history: []domain.Offer{{Title: "Alpha Game", FreeUntil: storedExpiry}}}
	ext := &fakeExtractor{offer: &domain.Offer{Title: "Alpha Game", FreeUntil: freshExpiry}}
	ann := &fakeAnnouncer{}
	s := newTestScheduler(ext, repo, ann)

	wake := s.Cycle(context.Background())

	if len(repo.history) != 1 {
		t.Fatalf("want history untouched, got %d rows", len(repo.history))
	}
	if len(ann.announced) != 0 {
		t.Fatalf("want no announcement, got %d", len(ann.announced))
	}
	if !wake.Equal(freshExpiry) {
		t.Fatalf("want wake at fresh expiry %s, got %s", freshExpiry, wake)
	}
}

func TestCycle_ExtractionFailureUsesFallback(t *testing.T) {
	repo := &fakeRepo{}
	ann := &fakeAnnouncer{}
	s := newTestScheduler(&fakeExtractor{err: errors.New("selectors broke")}, repo, ann)

	wake := s.Cycle(context.Background())

	if len(repo.history) != 0 || len(ann.announced) != 0 {
		t.Fatal("extraction failure must not mutate the store or notify")
	}
	want := domain.FallbackWake(testNow)
	if !wake.Equal(want) {
		t.Fatalf("want fallback wake %s, got %s", want, wake)
	}
}

func TestCycle_ExpiryEqualToNowUsesFallback(t *testing.T) {
	ext := &fakeExtractor{offer: &domain.Offer{Title: "Alpha Game", FreeUntil: testNow}}
	s := newTestScheduler(ext, &fakeRepo{}, &fakeAnnouncer{})

	wake := s.Cycle(context.Background())

	want := domain.FallbackWake(testNow)
	if !wake.Equal(want) {
		t.Fatalf("want fallback wake %s, got %s", want, wake)
	}
}

func TestCycle_HistoryLookupFailureSkipsNotification(t *testing.T) {
	expiry := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	ext := &fakeExtractor{offer: &domain.Offer{Title: "Alpha Game", FreeUntil: expiry}}
	repo := &fakeRepo{lastErr: errors.New("database is locked")}
	ann := &fakeAnnouncer{}
	s := newTestScheduler(ext, repo, ann)

	wake := s.Cycle(context.Background())

	if len(repo.history) != 0 || len(ann.announced) != 0 {
		t.Fatal("blind history read must not append or broadcast")
	}
	if !wake.Equal(expiry) {
		t.Fatalf("loop must keep going off the observed expiry, got %s", wake)
	}
}

func TestCycle_AppendFailureDefersNotification(t *testing.T) {
	expiry := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	ext := &fakeExtractor{offer: &domain.Offer{Title: "Alpha Game", FreeUntil: expiry}}
	repo := &fakeRepo{appendErr: errors.New("disk full")}
	ann := &fakeAnnouncer{}
	s := newTestScheduler(ext, repo, ann)

	s.Cycle(context.Background())

	// Unpersisted offers are re-detected next cycle; announcing now would
	// broadcast the same offer twice.
	if len(ann.announced) != 0 {
		t.Fatalf("want deferred announcement, got %d", len(ann.announced))
	}
}

func TestCycle_EveryOutcomeYieldsExactlyOneWake(t *testing.T) {
	expiry := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := &fakeRepo{}
	ann := &fakeAnnouncer{}
	ext := &fakeExtractor{}
	s := newTestScheduler(ext, repo, ann)

	steps := []struct {
		name  string
		offer *domain.Offer
		err   error
	}{
		{"new", &domain.Offer{Title: "Alpha Game", FreeUntil: expiry}, nil},
		{"unchanged", &domain.Offer{Title: "Alpha Game", FreeUntil: expiry.Add(time.Hour)}, nil},
		{"failed", nil, errors.New("render timeout")},
		{"new again", &domain.Offer{Title: "Beta Game", FreeUntil: expiry.AddDate(0, 0, 7)}, nil},
		{"stale expiry", &domain.Offer{Title: "Beta Game", FreeUntil: testNow.Add(-time.Hour)}, nil},
	}
	for _, step := range steps {
		ext.offer, ext.err = step.offer, step.err
		wake := s.Cycle(context.Background())
		if wake.IsZero() {
			t.Fatalf("step %q: cycle returned no wake", step.name)
		}
		if !wake.After(testNow) {
			t.Fatalf("step %q: wake %s not in the future", step.name, wake)
		}
	}
}

func TestArm_ReplacesPendingWake(t *testing.T) {
	s := New(&fakeExtractor{}, &fakeRepo{}, &fakeAnnouncer{}, zap.NewNop(), nil)

	// Arm far in the future, then re-arm immediately: the slot must hold
	// the replacement, and only one fire may be pending.
	s.arm(time.Now().Add(time.Hour))
	s.arm(time.Now())

	select {
	case <-s.timer.C:
	case <-time.After(2 * time.Second):
		t.Fatal("replacement wake never fired")
	}
	select {
	case <-s.timer.C:
		t.Fatal("more than one wake was pending")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRun_FirstCycleFiresImmediately(t *testing.T) {
	expiry := time.Now().Add(24 * time.Hour).UTC()
	ext := &fakeExtractor{offer: &domain.Offer{Title: "Alpha Game", FreeUntil: expiry}}
	repo := &fakeRepo{}
	s := New(ext, repo, &fakeAnnouncer{}, zap.NewNop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for ext.callCount() == 0 || !s.NextWake().Equal(expiry) {
		select {
		case <-deadline:
			cancel()
			t.Fatalf("startup cycle did not complete: calls=%d next=%s", ext.callCount(), s.NextWake())
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	<-done
	if ext.callCount() != 1 {
		t.Fatalf("want exactly one startup cycle, got %d", ext.callCount())
	}
}
