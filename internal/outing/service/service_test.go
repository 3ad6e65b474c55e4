package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"nightout/internal/outing/metrics"
	"nightout/internal/outing/models"
	"nightout/internal/outing/store"
	"nightout/internal/sentinel"
	"nightout/internal/storage/kv"
	dErrors "nightout/pkg/domain-errors"
	"nightout/pkg/testutil"
)

type TrackerSuite struct {
	suite.Suite
	ctx     context.Context
	kv      *kv.InMemoryStore
	store   *store.StatsStore
	metrics *metrics.Metrics
	now     time.Time
	tracker *Tracker
}

func TestTrackerSuite(t *testing.T) {
	suite.Run(t, new(TrackerSuite))
}

func (s *TrackerSuite) SetupTest() {
	s.ctx = context.Background()
	s.kv = kv.NewInMemory()
	s.store = store.New(s.kv)
	s.metrics = metrics.NewWithRegisterer(prometheus.NewRegistry())
	s.now = time.Date(2026, 10, 18, 21, 30, 0, 0, time.UTC)
	s.tracker = s.newTracker()
}

func (s *TrackerSuite) newTracker(opts ...Option) *Tracker {
	opts = append([]Option{
		WithClock(func() time.Time { return s.now }),
		WithMetrics(s.metrics),
	}, opts...)
	t, err := New(s.ctx, s.store, opts...)
	s.Require().NoError(err)
	return t
}

func (s *TrackerSuite) persisted() *models.Statistics {
	stats, err := s.store.Load(s.ctx)
	s.Require().NoError(err)
	return stats
}

func (s *TrackerSuite) TestStartsFromZeroWithoutRecord() {
	snap := s.tracker.Snapshot()
	s.Equal(models.Statistics{}, snap)
	s.False(snap.Active())
}

func (s *TrackerSuite) TestStartNewSession() {
	s.Require().NoError(s.tracker.UpdateGroupTotal(s.ctx, 30))
	s.Require().NoError(s.tracker.UpdateTotalDrinks(s.ctx, 5))

	s.Require().NoError(s.tracker.StartNewSession(s.ctx))

	snap := s.tracker.Snapshot()
	s.Require().NotNil(snap.SessionStartTime)
	s.True(snap.SessionStartTime.Equal(s.now))
	s.Zero(snap.GroupTotal)
	s.Zero(snap.VenuesVisited)
	s.Zero(snap.SquadSize)
	s.Zero(snap.TotalDrinks)
	s.True(snap.Equal(*s.persisted()))
}

func (s *TrackerSuite) TestStartNewSessionRestampsActiveOuting() {
	s.Require().NoError(s.tracker.StartNewSession(s.ctx))
	s.now = s.now.Add(2 * time.Hour)
	s.Require().NoError(s.tracker.StartNewSession(s.ctx))

	snap := s.tracker.Snapshot()
	s.True(snap.SessionStartTime.Equal(s.now))
}

func (s *TrackerSuite) TestSettersChangeOnlyTheirField() {
	s.Require().NoError(s.tracker.StartNewSession(s.ctx))
	s.Require().NoError(s.tracker.UpdateGroupTotal(s.ctx, 48.5))
	s.Require().NoError(s.tracker.UpdateVenuesVisited(s.ctx, 3))
	s.Require().NoError(s.tracker.UpdateTotalDrinks(s.ctx, 11))
	before := s.tracker.Snapshot()

	s.Require().NoError(s.tracker.UpdateSquadSize(s.ctx, 6))

	after := s.tracker.Snapshot()
	s.Equal(6, after.SquadSize)
	s.Equal(before.GroupTotal, after.GroupTotal)
	s.Equal(before.VenuesVisited, after.VenuesVisited)
	s.Equal(before.TotalDrinks, after.TotalDrinks)
	s.True(before.SessionStartTime.Equal(*after.SessionStartTime))
	s.True(after.Equal(*s.persisted()))
}

func (s *TrackerSuite) TestSettersWorkWithoutActiveOuting() {
	s.Require().NoError(s.tracker.UpdateSquadSize(s.ctx, 2))

	snap := s.tracker.Snapshot()
	s.Equal(2, snap.SquadSize)
	s.False(snap.Active())
}

func (s *TrackerSuite) TestResetIsIdempotent() {
	s.Require().NoError(s.tracker.StartNewSession(s.ctx))
	s.Require().NoError(s.tracker.UpdateGroupTotal(s.ctx, 12))

	s.Require().NoError(s.tracker.ResetSession(s.ctx))
	s.Require().NoError(s.tracker.ResetSession(s.ctx))

	s.Equal(models.Statistics{}, s.tracker.Snapshot())
	s.Nil(s.persisted())
	_, err := s.kv.Get(s.ctx, store.Key)
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.Equal(float64(2), promtest.ToFloat64(s.metrics.Resets))
}

func (s *TrackerSuite) TestReloadRestoresRecord() {
	s.Require().NoError(s.tracker.StartNewSession(s.ctx))
	s.Require().NoError(s.tracker.UpdateGroupTotal(s.ctx, 48.5))
	s.Require().NoError(s.tracker.UpdateVenuesVisited(s.ctx, 3))
	s.Require().NoError(s.tracker.UpdateSquadSize(s.ctx, 4))
	expected := s.tracker.Snapshot()

	restarted := s.newTracker()

	s.True(expected.Equal(restarted.Snapshot()), "expected %+v, got %+v", expected, restarted.Snapshot())
}

func (s *TrackerSuite) TestSubMillisecondClockSurvivesReload() {
	s.now = time.Date(2026, 10, 18, 21, 30, 0, 123456789, time.UTC)
	s.Require().NoError(s.tracker.StartNewSession(s.ctx))
	s.Require().NoError(s.tracker.UpdateGroupTotal(s.ctx, 48.5))

	inMemory := s.tracker.Snapshot()
	s.Require().NotNil(inMemory.SessionStartTime)
	s.Equal(time.Date(2026, 10, 18, 21, 30, 0, 123000000, time.UTC), *inMemory.SessionStartTime)
	s.True(inMemory.Equal(*s.persisted()), "memory %+v, storage %+v", inMemory, s.persisted())

	restarted := s.newTracker()
	s.True(inMemory.Equal(restarted.Snapshot()))
}

func (s *TrackerSuite) TestInvalidInputRejected() {
	s.Require().NoError(s.tracker.StartNewSession(s.ctx))
	s.Require().NoError(s.tracker.UpdateGroupTotal(s.ctx, 20))
	before := s.tracker.Snapshot()
	raw, err := s.kv.Get(s.ctx, store.Key)
	s.Require().NoError(err)

	cases := []struct {
		name string
		op   func() error
	}{
		{"negative total", func() error { return s.tracker.UpdateGroupTotal(s.ctx, -1) }},
		{"nan total", func() error { return s.tracker.UpdateGroupTotal(s.ctx, math.NaN()) }},
		{"infinite total", func() error { return s.tracker.UpdateGroupTotal(s.ctx, math.Inf(1)) }},
		{"negative venues", func() error { return s.tracker.UpdateVenuesVisited(s.ctx, -1) }},
		{"negative squad", func() error { return s.tracker.UpdateSquadSize(s.ctx, -3) }},
		{"negative drinks", func() error { return s.tracker.UpdateTotalDrinks(s.ctx, -10) }},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			err := tc.op()
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput), "got %v", err)

			s.True(before.Equal(s.tracker.Snapshot()))
			after, err := s.kv.Get(s.ctx, store.Key)
			s.Require().NoError(err)
			s.Equal(raw, after)
		})
	}
	s.Equal(float64(3), promtest.ToFloat64(s.metrics.Rejections.WithLabelValues(opGroupTotal)))
}

func (s *TrackerSuite) TestZeroValuesAccepted() {
	s.Require().NoError(s.tracker.UpdateGroupTotal(s.ctx, 0))
	s.Require().NoError(s.tracker.UpdateSquadSize(s.ctx, 0))
	s.Equal(float64(1), promtest.ToFloat64(s.metrics.Mutations.WithLabelValues(opGroupTotal)))
}

func (s *TrackerSuite) TestSubscribersObserveCommitOrder() {
	var got []int
	unsubscribe := s.tracker.Subscribe(func(stats models.Statistics) {
		got = append(got, stats.TotalDrinks)
	})

	for i := 1; i <= 5; i++ {
		s.Require().NoError(s.tracker.UpdateTotalDrinks(s.ctx, i))
	}
	s.Require().Error(s.tracker.UpdateTotalDrinks(s.ctx, -1))
	unsubscribe()
	unsubscribe()
	s.Require().NoError(s.tracker.UpdateTotalDrinks(s.ctx, 99))

	s.Equal([]int{1, 2, 3, 4, 5}, got)
}

func (s *TrackerSuite) TestConcurrentSubscribersSeeSameSequence() {
	var mu sync.Mutex
	seqA, seqB := []float64{}, []float64{}
	s.tracker.Subscribe(func(stats models.Statistics) {
		mu.Lock()
		seqA = append(seqA, stats.GroupTotal)
		mu.Unlock()
	})
	s.tracker.Subscribe(func(stats models.Statistics) {
		mu.Lock()
		seqB = append(seqB, stats.GroupTotal)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(v float64) {
			defer wg.Done()
			s.NoError(s.tracker.UpdateGroupTotal(s.ctx, v))
		}(float64(i))
	}
	wg.Wait()

	s.Len(seqA, 50)
	s.Equal(seqA, seqB)
	s.Equal(seqA[len(seqA)-1], s.tracker.Snapshot().GroupTotal)
	s.Equal(seqA[len(seqA)-1], s.persisted().GroupTotal)
}

func (s *TrackerSuite) TestSubscriberMayReadSnapshot() {
	var seen models.Statistics
	s.tracker.Subscribe(func(models.Statistics) {
		seen = s.tracker.Snapshot()
	})
	s.Require().NoError(s.tracker.UpdateVenuesVisited(s.ctx, 2))
	s.Equal(2, seen.VenuesVisited)
}

func (s *TrackerSuite) TestMalformedRecord() {
	s.Require().NoError(s.kv.Set(s.ctx, store.Key, "{broken"))

	s.Run("fails by default", func() {
		_, err := New(s.ctx, s.store)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeCorruptState))
		s.ErrorIs(err, sentinel.ErrInvalidInput)
	})

	s.Run("discarded when configured", func() {
		tracker := s.newTracker(WithDiscardMalformed(true))
		s.Equal(models.Statistics{}, tracker.Snapshot())
		_, err := s.kv.Get(s.ctx, store.Key)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

// flakyStore fails every write once failWrites is set.
type flakyStore struct {
	*store.StatsStore
	failWrites bool
	err        error
}

func (f *flakyStore) Save(ctx context.Context, stats models.Statistics) error {
	if f.failWrites {
		return f.err
	}
	return f.StatsStore.Save(ctx, stats)
}

func (f *flakyStore) Clear(ctx context.Context) error {
	if f.failWrites {
		return f.err
	}
	return f.StatsStore.Clear(ctx)
}

func TestStoreFailureLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	fs := &flakyStore{StatsStore: store.New(kv.NewInMemory()), err: errors.New("disk full")}
	tracker, err := New(ctx, fs)
	require.NoError(t, err)
	require.NoError(t, tracker.UpdateSquadSize(ctx, 4))

	notified := 0
	tracker.Subscribe(func(models.Statistics) { notified++ })
	fs.failWrites = true

	err = tracker.UpdateSquadSize(ctx, 5)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	assert.Equal(t, 4, tracker.Snapshot().SquadSize)

	err = tracker.ResetSession(ctx)
	require.Error(t, err)
	assert.Equal(t, 4, tracker.Snapshot().SquadSize)
	assert.Zero(t, notified)

	persisted, err := fs.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, persisted.SquadSize)
}

func TestUnavailableStoreTranslated(t *testing.T) {
	ctx := context.Background()
	fs := &flakyStore{
		StatsStore: store.New(kv.NewInMemory()),
		failWrites: true,
		err:        errors.Join(sentinel.ErrUnavailable, errors.New("dial tcp: refused")),
	}
	tracker, err := New(ctx, fs)
	require.NoError(t, err)

	err = tracker.StartNewSession(ctx)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	assert.False(t, tracker.Snapshot().Active())
}

func (s *TrackerSuite) TestConcurrentMixedUpdates() {
	result := testutil.RunConcurrent(40, func(idx int) error {
		if idx%4 == 0 {
			return s.tracker.UpdateVenuesVisited(s.ctx, -idx-1)
		}
		return s.tracker.UpdateVenuesVisited(s.ctx, idx)
	})

	s.Equal(int32(30), result.Successes)
	s.Equal(int32(10), result.Rejected)
	s.Zero(result.Errors)
	s.Equal(s.tracker.Snapshot().VenuesVisited, s.persisted().VenuesVisited)
}
