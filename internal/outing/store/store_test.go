package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"nightout/internal/outing/models"
	"nightout/internal/sentinel"
	"nightout/internal/storage/kv"
)

type StatsStoreSuite struct {
	suite.Suite
	kv    *kv.InMemoryStore
	store *StatsStore
	ctx   context.Context
}

func (s *StatsStoreSuite) SetupTest() {
	s.kv = kv.NewInMemory()
	s.store = New(s.kv)
	s.ctx = context.Background()
}

func TestStatsStoreSuite(t *testing.T) {
	suite.Run(t, new(StatsStoreSuite))
}

func (s *StatsStoreSuite) TestLoadEmptyReturnsNil() {
	stats, err := s.store.Load(s.ctx)
	s.Require().NoError(err)
	s.Nil(stats)
}

func (s *StatsStoreSuite) TestRoundTrip() {
	start := time.Date(2026, 10, 18, 21, 4, 5, 123_000_000, time.FixedZone("BST", 3600))
	in := models.Statistics{
		GroupTotal:       48.50,
		VenuesVisited:    3,
		SquadSize:        4,
		TotalDrinks:      11,
		SessionStartTime: &start,
	}

	s.Require().NoError(s.store.Save(s.ctx, in))
	out, err := s.store.Load(s.ctx)
	s.Require().NoError(err)
	s.Require().NotNil(out)

	s.True(in.Equal(*out), "expected %+v, got %+v", in, *out)
}

func (s *StatsStoreSuite) TestRoundTripInactive() {
	in := models.Statistics{GroupTotal: 7.25, TotalDrinks: 2}

	s.Require().NoError(s.store.Save(s.ctx, in))
	out, err := s.store.Load(s.ctx)
	s.Require().NoError(err)
	s.Require().NotNil(out)

	s.Nil(out.SessionStartTime)
	s.True(in.Equal(*out))
}

func (s *StatsStoreSuite) TestSaveWritesBrowserCompatibleDocument() {
	start := time.Date(2026, 10, 18, 21, 4, 5, 123_456_789, time.UTC)
	s.Require().NoError(s.store.Save(s.ctx, models.Statistics{
		GroupTotal:       48.5,
		VenuesVisited:    3,
		SquadSize:        4,
		SessionStartTime: &start,
	}))

	raw, err := s.kv.Get(s.ctx, Key)
	s.Require().NoError(err)
	s.JSONEq(`{"groupTotal":48.5,"venuesVisited":3,"squadSize":4,"totalDrinks":0,"sessionStartTime":"2026-10-18T21:04:05.123Z"}`, raw)
}

func (s *StatsStoreSuite) TestClearRemovesSlot() {
	s.Require().NoError(s.store.Save(s.ctx, models.Statistics{SquadSize: 2}))
	s.Require().NoError(s.store.Clear(s.ctx))

	_, err := s.kv.Get(s.ctx, Key)
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.Require().NoError(s.store.Clear(s.ctx))
}

func (s *StatsStoreSuite) TestLoadMalformed() {
	s.Run("invalid json", func() {
		s.Require().NoError(s.kv.Set(s.ctx, Key, "{not json"))
		_, err := s.store.Load(s.ctx)
		s.ErrorIs(err, sentinel.ErrInvalidInput)
	})

	s.Run("invalid timestamp", func() {
		s.Require().NoError(s.kv.Set(s.ctx, Key, `{"groupTotal":1,"sessionStartTime":"yesterday"}`))
		_, err := s.store.Load(s.ctx)
		s.ErrorIs(err, sentinel.ErrInvalidInput)
	})
}

func (s *StatsStoreSuite) TestLoadAcceptsDocumentsWrittenByBrowser() {
	s.Require().NoError(s.kv.Set(s.ctx, Key, `{"groupTotal":22,"venuesVisited":1,"squadSize":2,"totalDrinks":3,"sessionStartTime":null}`))

	out, err := s.store.Load(s.ctx)
	s.Require().NoError(err)
	s.Equal(models.Statistics{GroupTotal: 22, VenuesVisited: 1, SquadSize: 2, TotalDrinks: 3}, *out)
}

type failingKV struct{ kv.Store }

func (failingKV) Get(context.Context, string) (string, error) {
	return "", errors.New("connection reset")
}

func (failingKV) Set(context.Context, string, string) error {
	return errors.New("quota exceeded")
}

func TestStoreErrorsPropagate(t *testing.T) {
	store := New(failingKV{})

	_, err := store.Load(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, sentinel.ErrInvalidInput)

	err = store.Save(context.Background(), models.Statistics{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}
