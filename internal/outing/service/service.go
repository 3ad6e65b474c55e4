package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"nightout/internal/outing/metrics"
	"nightout/internal/outing/models"
	"nightout/internal/sentinel"
	dErrors "nightout/pkg/domain-errors"
)

// StatsStore persists the single statistics record.
// Error Contract: Load returns (nil, nil) when nothing is stored and an error wrapping
// sentinel.ErrInvalidInput when the stored record cannot be decoded.
type StatsStore interface {
	Load(ctx context.Context) (*models.Statistics, error)
	Save(ctx context.Context, stats models.Statistics) error
	Clear(ctx context.Context) error
}

const (
	opGroupTotal    = "group_total"
	opVenuesVisited = "venues_visited"
	opSquadSize     = "squad_size"
	opTotalDrinks   = "total_drinks"
	opStart         = "start"
	opReset         = "reset"
)

// Tracker owns the statistics of the current outing. Every mutation is persisted
// before it becomes visible, and subscribers observe records in commit order.
type Tracker struct {
	store   StatsStore
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	discardMalformed bool

	mu    sync.Mutex
	stats models.Statistics

	// pubMu is taken before mu is released so publication order matches commit order.
	pubMu  sync.Mutex
	subsMu sync.RWMutex
	subs   []subscriber
	nextID uint64
}

type subscriber struct {
	id uint64
	fn func(models.Statistics)
}

type Option func(*Tracker)

func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Tracker) {
		t.metrics = m
	}
}

// WithClock overrides the time source used to stamp new outings.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// WithDiscardMalformed makes New clear an undecodable record and start from zero
// instead of failing.
func WithDiscardMalformed(discard bool) Option {
	return func(t *Tracker) {
		t.discardMalformed = discard
	}
}

// New builds a Tracker and rehydrates it from the store.
func New(ctx context.Context, store StatsStore, opts ...Option) (*Tracker, error) {
	t := &Tracker{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}

	persisted, err := store.Load(ctx)
	switch {
	case err == nil:
	case errors.Is(err, sentinel.ErrInvalidInput) && t.discardMalformed:
		t.logger.WarnContext(ctx, "discarding malformed outing statistics", "error", err)
		if err := store.Clear(ctx); err != nil {
			return nil, translateStoreError(err, "failed to clear malformed outing statistics")
		}
	case errors.Is(err, sentinel.ErrInvalidInput):
		return nil, dErrors.Wrap(err, dErrors.CodeCorruptState, "persisted outing statistics are malformed")
	default:
		return nil, translateStoreError(err, "failed to load outing statistics")
	}
	if persisted != nil {
		t.stats = persisted.Clone()
		t.logger.InfoContext(ctx, "outing statistics restored",
			"active", t.stats.Active(),
			"group_total", t.stats.GroupTotal,
		)
	}
	return t, nil
}

// Snapshot returns a copy of the current record.
func (t *Tracker) Snapshot() models.Statistics {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats.Clone()
}

// UpdateGroupTotal replaces the cumulative spend.
func (t *Tracker) UpdateGroupTotal(ctx context.Context, total float64) error {
	if err := models.ValidateTotal(total); err != nil {
		t.reject(ctx, opGroupTotal, err)
		return err
	}
	return t.mutate(ctx, opGroupTotal, func(s *models.Statistics) {
		s.GroupTotal = total
	})
}

// UpdateVenuesVisited replaces the venue counter.
func (t *Tracker) UpdateVenuesVisited(ctx context.Context, count int) error {
	if err := models.ValidateCount("venues visited", count); err != nil {
		t.reject(ctx, opVenuesVisited, err)
		return err
	}
	return t.mutate(ctx, opVenuesVisited, func(s *models.Statistics) {
		s.VenuesVisited = count
	})
}

// UpdateSquadSize replaces the number of participants.
func (t *Tracker) UpdateSquadSize(ctx context.Context, size int) error {
	if err := models.ValidateCount("squad size", size); err != nil {
		t.reject(ctx, opSquadSize, err)
		return err
	}
	return t.mutate(ctx, opSquadSize, func(s *models.Statistics) {
		s.SquadSize = size
	})
}

// UpdateTotalDrinks replaces the drink counter.
func (t *Tracker) UpdateTotalDrinks(ctx context.Context, count int) error {
	if err := models.ValidateCount("total drinks", count); err != nil {
		t.reject(ctx, opTotalDrinks, err)
		return err
	}
	return t.mutate(ctx, opTotalDrinks, func(s *models.Statistics) {
		s.TotalDrinks = count
	})
}

// StartNewSession zeroes every counter and stamps the current time.
func (t *Tracker) StartNewSession(ctx context.Context) error {
	return t.mutate(ctx, opStart, func(s *models.Statistics) {
		*s = models.Started(t.now())
	})
}

// ResetSession zeroes everything and removes the persisted record.
// Resetting an already empty tracker is a no-op apart from the notification.
func (t *Tracker) ResetSession(ctx context.Context) error {
	t.mu.Lock()
	if err := t.store.Clear(ctx); err != nil {
		t.mu.Unlock()
		t.storeFailure(ctx, opReset, err)
		return translateStoreError(err, "failed to clear outing statistics")
	}
	t.stats = models.Statistics{}
	t.commit(ctx, opReset)
	if t.metrics != nil {
		t.metrics.IncrementReset()
	}
	return nil
}

// Subscribe registers fn to receive every committed record. Callbacks run outside
// the state lock but one at a time; they must not mutate the tracker synchronously.
func (t *Tracker) Subscribe(fn func(models.Statistics)) func() {
	t.subsMu.Lock()
	id := t.nextID
	t.nextID++
	t.subs = append(t.subs, subscriber{id: id, fn: fn})
	t.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.subsMu.Lock()
			defer t.subsMu.Unlock()
			for i, sub := range t.subs {
				if sub.id == id {
					t.subs = append(t.subs[:i:i], t.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// mutate applies change to a copy, persists it, then commits and publishes.
func (t *Tracker) mutate(ctx context.Context, op string, change func(*models.Statistics)) error {
	t.mu.Lock()
	next := t.stats.Clone()
	change(&next)
	if err := t.store.Save(ctx, next); err != nil {
		t.mu.Unlock()
		t.storeFailure(ctx, op, err)
		return translateStoreError(err, "failed to persist outing statistics")
	}
	t.stats = next
	t.commit(ctx, op)
	return nil
}

// commit must be called with mu held; it releases mu.
func (t *Tracker) commit(ctx context.Context, op string) {
	snapshot := t.stats.Clone()
	t.pubMu.Lock()
	t.mu.Unlock()
	defer t.pubMu.Unlock()

	if t.metrics != nil {
		t.metrics.IncrementMutation(op)
	}
	t.logger.DebugContext(ctx, "outing statistics updated", "op", op)

	t.subsMu.RLock()
	subs := t.subs
	t.subsMu.RUnlock()

	for _, sub := range subs {
		sub.fn(snapshot.Clone())
	}
}

func (t *Tracker) reject(ctx context.Context, op string, err error) {
	t.logger.InfoContext(ctx, "outing mutation rejected", "op", op, "error", err)
	if t.metrics != nil {
		t.metrics.IncrementRejection(op)
	}
}

func (t *Tracker) storeFailure(ctx context.Context, op string, err error) {
	t.logger.ErrorContext(ctx, "outing statistics store failed", "op", op, "error", err)
	if t.metrics != nil {
		t.metrics.IncrementStoreError(op)
	}
}

func translateStoreError(err error, msg string) error {
	if errors.Is(err, sentinel.ErrUnavailable) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, msg)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
