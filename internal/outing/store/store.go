// Package store persists the outing statistics in a single key/value slot.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"nightout/internal/outing/models"
	"nightout/internal/sentinel"
	"nightout/internal/storage/kv"
)

// Key is the fixed slot holding the serialized statistics.
const Key = "currentSession"

// timeLayout matches the ISO-8601 form browsers produce (millisecond precision, UTC).
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// statisticsJSON is the wire form of models.Statistics.
type statisticsJSON struct {
	GroupTotal       float64 `json:"groupTotal"`
	VenuesVisited    int     `json:"venuesVisited"`
	SquadSize        int     `json:"squadSize"`
	TotalDrinks      int     `json:"totalDrinks"`
	SessionStartTime *string `json:"sessionStartTime"`
}

// StatsStore adapts a kv.Store to load, save and clear one Statistics record.
type StatsStore struct {
	kv kv.Store
}

// New constructs a StatsStore over the given key/value medium.
func New(store kv.Store) *StatsStore {
	return &StatsStore{kv: store}
}

// Load returns the persisted statistics, or nil when nothing is stored.
// A blob that cannot be decoded yields an error wrapping sentinel.ErrInvalidInput.
func (s *StatsStore) Load(ctx context.Context) (*models.Statistics, error) {
	raw, err := s.kv.Get(ctx, Key)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load outing statistics: %w", err)
	}
	stats, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Save overwrites the slot with stats.
func (s *StatsStore) Save(ctx context.Context, stats models.Statistics) error {
	raw, err := Encode(stats)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, Key, raw); err != nil {
		return fmt.Errorf("save outing statistics: %w", err)
	}
	return nil
}

// Clear removes the slot entirely.
func (s *StatsStore) Clear(ctx context.Context) error {
	if err := s.kv.Remove(ctx, Key); err != nil {
		return fmt.Errorf("clear outing statistics: %w", err)
	}
	return nil
}

// Encode serializes stats; the start time is written as a UTC ISO-8601 string.
func Encode(stats models.Statistics) (string, error) {
	j := statisticsJSON{
		GroupTotal:    stats.GroupTotal,
		VenuesVisited: stats.VenuesVisited,
		SquadSize:     stats.SquadSize,
		TotalDrinks:   stats.TotalDrinks,
	}
	if stats.SessionStartTime != nil {
		ts := stats.SessionStartTime.UTC().Format(timeLayout)
		j.SessionStartTime = &ts
	}
	b, err := json.Marshal(j)
	if err != nil {
		return "", fmt.Errorf("encode outing statistics: %w", err)
	}
	return string(b), nil
}

// Decode parses a stored blob back into Statistics.
func Decode(raw string) (*models.Statistics, error) {
	var j statisticsJSON
	if err := json.Unmarshal([]byte(raw), &j); err != nil {
		return nil, fmt.Errorf("decode outing statistics: %w", errors.Join(sentinel.ErrInvalidInput, err))
	}
	stats := &models.Statistics{
		GroupTotal:    j.GroupTotal,
		VenuesVisited: j.VenuesVisited,
		SquadSize:     j.SquadSize,
		TotalDrinks:   j.TotalDrinks,
	}
	if j.SessionStartTime != nil && *j.SessionStartTime != "" {
		t, err := time.Parse(time.RFC3339Nano, *j.SessionStartTime)
		if err != nil {
			return nil, fmt.Errorf("decode session start time: %w", errors.Join(sentinel.ErrInvalidInput, err))
		}
		stats.SessionStartTime = &t
	}
	return stats, nil
}
