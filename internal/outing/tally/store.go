package tally

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"nightout/internal/sentinel"
	"nightout/internal/storage/kv"
)

// Slots used in the key/value medium. KeyMenu holds the same price list
// document the drink setup screen writes.
const (
	KeyParticipants = "drinkTally"
	KeyMenu         = "drinkPrices"
)

type menuItemJSON struct {
	ID    string  `json:"id"`
	Price float64 `json:"price"`
}

// Store persists the tally participants and the price list.
type Store struct {
	kv kv.Store
}

func NewStore(store kv.Store) *Store {
	return &Store{kv: store}
}

// LoadMenu returns the saved price list, or nil when none was saved.
func (s *Store) LoadMenu(ctx context.Context) (Menu, error) {
	raw, err := s.kv.Get(ctx, KeyMenu)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load drink prices: %w", err)
	}
	var items []menuItemJSON
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("decode drink prices: %w", errors.Join(sentinel.ErrInvalidInput, err))
	}
	menu := make(Menu, len(items))
	for _, item := range items {
		menu[item.ID] = item.Price
	}
	return menu, nil
}

// SaveMenu writes menu as a list ordered by drink id.
func (s *Store) SaveMenu(ctx context.Context, menu Menu) error {
	items := make([]menuItemJSON, 0, len(menu))
	for id, price := range menu {
		items = append(items, menuItemJSON{ID: id, Price: price})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode drink prices: %w", err)
	}
	if err := s.kv.Set(ctx, KeyMenu, string(raw)); err != nil {
		return fmt.Errorf("save drink prices: %w", err)
	}
	return nil
}

// LoadParticipants returns the saved participants, or nil when none were saved.
func (s *Store) LoadParticipants(ctx context.Context) ([]Participant, error) {
	raw, err := s.kv.Get(ctx, KeyParticipants)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load drink tally: %w", err)
	}
	var ps []Participant
	if err := json.Unmarshal([]byte(raw), &ps); err != nil {
		return nil, fmt.Errorf("decode drink tally: %w", errors.Join(sentinel.ErrInvalidInput, err))
	}
	return ps, nil
}

func (s *Store) SaveParticipants(ctx context.Context, ps []Participant) error {
	raw, err := json.Marshal(ps)
	if err != nil {
		return fmt.Errorf("encode drink tally: %w", err)
	}
	if err := s.kv.Set(ctx, KeyParticipants, string(raw)); err != nil {
		return fmt.Errorf("save drink tally: %w", err)
	}
	return nil
}

// ClearParticipants removes the saved participants. The price list is kept.
func (s *Store) ClearParticipants(ctx context.Context) error {
	if err := s.kv.Remove(ctx, KeyParticipants); err != nil {
		return fmt.Errorf("clear drink tally: %w", err)
	}
	return nil
}
